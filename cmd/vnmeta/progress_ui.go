package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/vnmeta/internal/app/batch"
	"github.com/John-Robertt/vnmeta/internal/app/reconcile"
	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/provider"
)

var (
	_ reconcile.Observer = (*progressUI)(nil)
	_ batch.Observer     = (*progressUI)(nil)
)

// progressUI 是交互终端下的简洁进度输出。
//
// 约束：
// - 只写 stderr，不污染 stdout 的 JSON 输出契约
// - 事件驱动：reconcile 层只发事件，CLI 决定如何展示
// - skipped 来源不逐条打印，只在结束时汇总
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
	ok        int
	absent    int
	fail      int
	skipped   []string
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnState(requestID string, s reconcile.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	switch s {
	case reconcile.StateIdle:
		p.startedAt = now
		p.ok, p.absent, p.fail = 0, 0, 0
		p.skipped = nil
		fmt.Fprintf(p.w, "[%s] vnmeta fetch request=%s\n", now.Format("15:04:05"), shortID(requestID))
	case reconcile.StateStage1Fetching:
		fmt.Fprintln(p.w, "阶段一: 主数据源")
	case reconcile.StateStage2Fetching:
		fmt.Fprintln(p.w, "阶段二: 派生来源")
	case reconcile.StateScoring:
		fmt.Fprintln(p.w, "打分: 候选择优")
	case reconcile.StateDone:
		line := fmt.Sprintf("完成: ok=%d absent=%d failed=%d", p.ok, p.absent, p.fail)
		if len(p.skipped) > 0 {
			line += " skipped=" + strings.Join(p.skipped, ",")
		}
		fmt.Fprintf(p.w, "%s (%s)\n", line, formatShortDuration(now.Sub(p.startedAt)))
	}
}

func (p *progressUI) OnSourceDone(requestID string, a provider.Attempt) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch a.Stage {
	case provider.StageSkipped:
		p.skipped = append(p.skipped, a.Provider)
		return
	case provider.StageOK:
		p.ok++
		fmt.Fprintf(p.w, "  %-16s OK (%s)\n", a.Provider, formatShortDuration(a.Duration))
	case provider.StageAbsent:
		p.absent++
		fmt.Fprintf(p.w, "  %-16s ABSENT (%s)\n", a.Provider, formatShortDuration(a.Duration))
	default:
		p.fail++
		msg := ""
		if a.Err != nil {
			msg = ": " + truncate(a.Err.Error(), 120)
		}
		fmt.Fprintf(p.w, "  %-16s FAIL %s%s (%s)\n", a.Provider, a.Stage, msg, formatShortDuration(a.Duration))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate 按字符（rune）截断，避免切坏多字节文本。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// OnItemDone 用于 batch：每个 Seed 完成时一行。
func (p *progressUI) OnItemDone(done, total int, rep domain.FetchReport, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := rep.Metadata.Name
	status := "OK"
	if name == "" {
		name = "<empty>"
		status = "EMPTY"
	}
	fmt.Fprintf(p.w, "[%d/%d] %s %s %s ok=%d failed=%d (%s)\n",
		done, total, seedLabel(rep.Seed), status, truncate(name, 60),
		rep.Summary.OK, rep.Summary.Failed, formatShortDuration(dur),
	)
}

func seedLabel(s domain.Seed) string {
	parts := make([]string, 0, 3)
	for _, v := range []string{s.VNDBID, s.DLsiteCode, s.CommunityURL} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "+")
}
