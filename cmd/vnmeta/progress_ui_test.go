package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/vnmeta/internal/app/reconcile"
	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/match"
	"github.com/John-Robertt/vnmeta/internal/provider"
)

func TestProgressUI_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnState("0123456789abcdef", reconcile.StateIdle)
	p.OnState("0123456789abcdef", reconcile.StateStage1Fetching)
	p.OnSourceDone("r", provider.Attempt{Provider: domain.SourceVNDB, Stage: provider.StageOK, Duration: 300 * time.Millisecond})
	p.OnSourceDone("r", provider.Attempt{Provider: domain.SourceDLsite, Stage: provider.StageFetch, Err: errors.New("HTTP 403")})
	p.OnSourceDone("r", provider.Attempt{Provider: domain.SourceSteamLocal, Stage: provider.StageSkipped})
	p.OnState("r", reconcile.StateDone)

	out := buf.String()
	for _, want := range []string{"request=01234567", "vndb", "OK (0.3s)", "FAIL fetch: HTTP 403", "ok=1 absent=0 failed=1", "skipped=steam_schinese"} {
		if !strings.Contains(out, want) {
			t.Fatalf("进度输出缺少 %q：\n%s", want, out)
		}
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	got := truncate("这是一段很长的中文简介文本", 6)
	if got != "这是一..." {
		t.Fatalf("期望按字符截断，实际 %q", got)
	}
	if truncate("short", 10) != "short" {
		t.Fatalf("短文本不应截断")
	}
}

func TestRenderReportAndRanked(t *testing.T) {
	rep := domain.FetchReport{Metadata: domain.EmptyMetadata()}
	rep.Metadata.Name = "时空轮回"
	rep.Metadata.Companies = []domain.Company{{Name: "KID", Original: "キッド"}}
	rep.Sources = []domain.SourceResult{{Provider: domain.SourceVNDB, Status: domain.SourceStatusOK, DurationMS: 12}}

	out := renderReport(rep)
	for _, want := range []string{"时空轮回", "KID (キッド)", "vndb", "12ms"} {
		if !strings.Contains(out, want) {
			t.Fatalf("表格缺少 %q：\n%s", want, out)
		}
	}

	ranked := renderRanked([]match.Ranked{{Candidate: domain.Candidate{ID: "v17", Title: "Ever17", IsTarget: true}, Score: 120}})
	if !strings.Contains(ranked, "v17") || !strings.Contains(ranked, "120") {
		t.Fatalf("候选表格不正确：\n%s", ranked)
	}
}
