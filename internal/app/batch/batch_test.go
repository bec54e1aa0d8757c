package batch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/vnmeta/internal/domain"
)

type stubFetcher struct {
	mu     sync.Mutex
	active int
	peak   int
	delay  time.Duration
}

func (f *stubFetcher) FetchReport(ctx context.Context, seed domain.Seed) domain.FetchReport {
	f.mu.Lock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()

	// 让编号越小的任务越慢，验证输出顺序不受完成顺序影响。
	if seed.VNDBID == "v1" {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	rep := domain.FetchReport{Seed: seed, Metadata: domain.EmptyMetadata()}
	if seed.VNDBID != "" {
		rep.Metadata.Name = "name-" + seed.VNDBID
		rep.Sources = []domain.SourceResult{{Provider: domain.SourceVNDB, Status: domain.SourceStatusOK}}
	}
	rep.Finalize()
	return rep
}

type countingObserver struct {
	mu   sync.Mutex
	done []int
}

func (o *countingObserver) OnItemDone(done, total int, rep domain.FetchReport, dur time.Duration) {
	o.mu.Lock()
	o.done = append(o.done, done)
	o.mu.Unlock()
}

func TestRun_KeepsInputOrderAndBoundsWorkers(t *testing.T) {
	f := &stubFetcher{delay: 50 * time.Millisecond}
	seeds := []domain.Seed{{VNDBID: "v1"}, {VNDBID: "v2"}, {DLsiteCode: "RJ01"}, {VNDBID: "v4"}}
	obs := &countingObserver{}

	rep := Run(context.Background(), f, seeds, 2, obs)

	if len(rep.Items) != len(seeds) || rep.Canceled {
		t.Fatalf("期望 %d 条结果且未取消，实际 %d 条 canceled=%v", len(seeds), len(rep.Items), rep.Canceled)
	}
	for i, it := range rep.Items {
		if it.Seed != seeds[i] {
			t.Fatalf("第 %d 条顺序错误：%+v", i, it.Seed)
		}
	}
	if f.peak > 2 {
		t.Fatalf("并发超过 workers：peak=%d", f.peak)
	}
	if rep.Summary.Total != 4 || rep.Summary.Named != 3 || rep.Summary.Empty != 1 {
		t.Fatalf("summary 不正确：%+v", rep.Summary)
	}
	if len(obs.done) != 4 || obs.done[3] != 4 {
		t.Fatalf("observer 计数不正确：%v", obs.done)
	}
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := Run(ctx, &stubFetcher{}, []domain.Seed{{VNDBID: "v1"}, {VNDBID: "v2"}, {VNDBID: "v3"}}, 1, nil)
	if !rep.Canceled || len(rep.Items) != 0 {
		t.Fatalf("取消后不应派发任何任务：canceled=%v items=%d", rep.Canceled, len(rep.Items))
	}
}

func TestParseSeeds(t *testing.T) {
	in := `
# comment
v17
RJ012345 https://community.test/vn/1
vndb=2 code=vj000001
nothing-here
url=https://community.test/vn/9
`
	seeds, bad, err := ParseSeeds(strings.NewReader(in))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []domain.Seed{
		{VNDBID: "v17"},
		{DLsiteCode: "RJ012345", CommunityURL: "https://community.test/vn/1"},
		{VNDBID: "v2", DLsiteCode: "VJ000001"},
		{CommunityURL: "https://community.test/vn/9"},
	}
	if len(seeds) != len(want) {
		t.Fatalf("期望 %d 个 seed，实际 %+v", len(want), seeds)
	}
	for i := range want {
		if seeds[i] != want[i] {
			t.Fatalf("第 %d 个 seed 期望 %+v，实际 %+v", i, want[i], seeds[i])
		}
	}
	if len(bad) != 1 || bad[0].Line != 6 {
		t.Fatalf("期望第 6 行无法识别，实际 %+v", bad)
	}
}
