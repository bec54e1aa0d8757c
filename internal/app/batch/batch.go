// Package batch 对一组 Seed 并发执行聚合（worker pool），每个 Seed 内部仍由引擎负责两阶段调度。
//
// 约束：
// - 输出顺序与输入顺序一致，与完成顺序无关
// - ctx 取消后不再派发新任务；已派发的任务由引擎自行尽快返回
// - 本包不做任何输出；进度通过 Observer 回调
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/vnmeta/internal/domain"
)

// Fetcher 是批处理依赖的聚合能力（*reconcile.Engine 满足该接口）。
type Fetcher interface {
	FetchReport(ctx context.Context, seed domain.Seed) domain.FetchReport
}

// Observer 的 OnItemDone 在调用 Run 的 goroutine 中按完成顺序调用。
type Observer interface {
	OnItemDone(done, total int, rep domain.FetchReport, dur time.Duration)
}

// Report 是一次批处理的输出。
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    Summary   `json:"summary"`
	// Canceled=true 表示 ctx 提前结束，Items 只包含已派发的 Seed。
	Canceled bool                 `json:"canceled"`
	Items    []domain.FetchReport `json:"items"`
}

type Summary struct {
	Total int `json:"total"`
	// Named 是得到非空 name 的条目数；Empty 是所有来源都缺失的条目数。
	Named int `json:"named"`
	Empty int `json:"empty"`
}

// Run 用 workers 个 goroutine 处理 seeds。
func Run(ctx context.Context, f Fetcher, seeds []domain.Seed, workers int, obs Observer) Report {
	rep := Report{StartedAt: time.Now().UTC(), Items: []domain.FetchReport{}}
	if workers < 1 {
		workers = 1
	}

	type job struct {
		idx  int
		seed domain.Seed
	}
	type result struct {
		idx int
		rep domain.FetchReport
		dur time.Duration
	}

	jobs := make(chan job)
	results := make(chan result, len(seeds))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				started := time.Now()
				r := f.FetchReport(ctx, j.seed)
				results <- result{idx: j.idx, rep: r, dur: time.Since(started)}
			}
		}()
	}

	go func() {
		defer func() {
			close(jobs)
			wg.Wait()
			close(results)
		}()
		for i, s := range seeds {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- job{idx: i, seed: s}:
			case <-ctx.Done():
				return
			}
		}
	}()

	done := 0
	byIdx := make(map[int]domain.FetchReport, len(seeds))
	for r := range results {
		done++
		byIdx[r.idx] = r.rep
		if obs != nil {
			obs.OnItemDone(done, len(seeds), r.rep, r.dur)
		}
	}

	for i := range seeds {
		r, ok := byIdx[i]
		if !ok {
			continue
		}
		rep.Items = append(rep.Items, r)
		rep.Summary.Total++
		if r.Metadata.Name != "" {
			rep.Summary.Named++
		}
		if r.Summary.OK == 0 {
			rep.Summary.Empty++
		}
	}
	rep.Canceled = len(rep.Items) < len(seeds)
	rep.FinishedAt = time.Now().UTC()
	return rep
}

// LineError 是种子列表中无法识别的行。
type LineError struct {
	Line int
	Text string
}

func (e LineError) Error() string {
	return fmt.Sprintf("第 %d 行没有可用标识：%q", e.Line, e.Text)
}

// ParseSeeds 读取种子列表：每行一个作品，空行与 # 注释忽略。
//
// 每行由空白分隔的若干 token 组成，token 可以是：
// - key=value（key 为 vndb / code / url）
// - 裸值：http(s) URL → url；RJ/VJ 编号 → code；v17 / 17 → vndb
//
// 同一字段出现多次时后者覆盖前者。
func ParseSeeds(r io.Reader) ([]domain.Seed, []LineError, error) {
	var (
		seeds []domain.Seed
		bad   []LineError
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s := parseLine(text).Normalize()
		if s.VNDBID == "" && s.DLsiteCode == "" && s.CommunityURL == "" {
			bad = append(bad, LineError{Line: line, Text: text})
			continue
		}
		seeds = append(seeds, s)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return seeds, bad, nil
}

func parseLine(text string) domain.Seed {
	var s domain.Seed
	for _, tok := range strings.Fields(text) {
		if k, v, ok := strings.Cut(tok, "="); ok && !strings.Contains(k, "/") {
			switch strings.ToLower(k) {
			case "vndb":
				s.VNDBID = v
			case "code":
				s.DLsiteCode = v
			case "url":
				s.CommunityURL = v
			}
			continue
		}
		lower := strings.ToLower(tok)
		switch {
		case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
			s.CommunityURL = tok
		case isCode(tok):
			s.DLsiteCode = tok
		case isVNDB(tok):
			s.VNDBID = tok
		}
	}
	return s
}

func isCode(tok string) bool {
	_, ok := domain.ParseStorefrontCode(tok)
	return ok
}

func isVNDB(tok string) bool {
	_, ok := domain.ParseVNDBID(tok)
	return ok
}
