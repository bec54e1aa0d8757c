// Package reconcile 是元数据聚合的唯一入口：按两阶段依赖顺序调用各来源，派生缺失标识，
// 用打分器消解搜索候选，最后按固定优先级合并字段。
//
// 约束：
// - 任何来源失败/超时都只降级为“缺失”，不会中断流程；Fetch 永远返回一条记录
// - 每个来源调用有独立超时；调用方取消 ctx 时，未完成的调用被放弃（本包不做任何写操作）
// - Merge 只在所有阶段屏障之后运行，绝不与在途任务并发
// - 不在多次调用之间共享可变状态
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/vnmeta/internal/code"
	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/match"
	"github.com/John-Robertt/vnmeta/internal/merge"
	"github.com/John-Robertt/vnmeta/internal/provider"
	"github.com/John-Robertt/vnmeta/internal/provider/steam"
)

// DefaultTimeout 是未配置时每个来源调用的超时。
const DefaultTimeout = 15 * time.Second

// Sources 是参与聚合的来源；nil 表示不使用该来源（对应调用记为 skipped）。
type Sources struct {
	VNDB      provider.VNSource
	DLsite    provider.StoreSource
	Steam     provider.AppSource
	Bangumi   provider.ReviewSource
	Community provider.CommunitySource
	// CommunitySearch 非空时，调用方未提供社区站 URL 也会按标题搜索社区站并抓取胜出条目。
	CommunitySearch provider.Searcher
}

// Timeouts 是各来源单次调用的超时；零值使用 DefaultTimeout。
type Timeouts struct {
	VNDB      time.Duration
	DLsite    time.Duration
	Steam     time.Duration
	Bangumi   time.Duration
	Community time.Duration
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Engine 是可复用、并发安全的聚合器（自身不持有跨调用的可变状态）。
type Engine struct {
	src      Sources
	timeouts Timeouts
	log      zerolog.Logger
	obs      Observer

	newID func() string
	now   func() time.Time
}

type Option func(*Engine)

func WithTimeouts(t Timeouts) Option { return func(e *Engine) { e.timeouts = t } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithObserver(o Observer) Option { return func(e *Engine) { e.obs = o } }

func New(src Sources, opts ...Option) *Engine {
	e := &Engine{
		src:   src,
		log:   zerolog.Nop(),
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Fetch 执行一次聚合。空 Seed 也会返回（全空的）记录，而不是错误。
func (e *Engine) Fetch(ctx context.Context, seed domain.Seed) domain.CanonicalMetadata {
	m, _ := e.FetchTrace(ctx, seed)
	return m
}

// FetchTrace 与 Fetch 相同，但额外返回每个来源的调用轨迹（用于解释字段缺失原因）。
func (e *Engine) FetchTrace(ctx context.Context, seed domain.Seed) (domain.CanonicalMetadata, []provider.Attempt) {
	r := e.newRun(seed)
	m := r.execute(ctx)
	return m, r.attempts()
}

// FetchReport 执行一次聚合并生成对外稳定的报告（CLI 输出）。
func (e *Engine) FetchReport(ctx context.Context, seed domain.Seed) domain.FetchReport {
	started := e.now()
	r := e.newRun(seed)
	m := r.execute(ctx)

	rep := domain.FetchReport{
		RequestID:  r.id,
		Seed:       r.seed,
		StartedAt:  started,
		FinishedAt: e.now(),
		Metadata:   m,
	}
	for _, a := range r.attempts() {
		rep.Sources = append(rep.Sources, sourceResult(a))
	}
	rep.Finalize()
	return rep
}

func sourceResult(a provider.Attempt) domain.SourceResult {
	sr := domain.SourceResult{Provider: a.Provider, DurationMS: a.Duration.Milliseconds()}
	switch a.Stage {
	case provider.StageOK:
		sr.Status = domain.SourceStatusOK
	case provider.StageAbsent:
		sr.Status = domain.SourceStatusAbsent
	case provider.StageSkipped:
		sr.Status = domain.SourceStatusSkipped
	default:
		sr.Status = domain.SourceStatusFailed
	}
	if a.Err != nil {
		sr.Error = a.Err.Error()
	}
	return sr
}

// allSources 是报告中出现的全部来源；未调用的来源会补记为 skipped。
var allSources = []string{
	domain.SourceVNDB,
	domain.SourceVNDBReleases,
	domain.SourceCommunity,
	domain.SourceDLsite,
	domain.SourceSteamLocal,
	domain.SourceSteamEnglish,
	domain.SourceBangumiSearch,
	domain.SourceCommunitySearch,
	domain.SourceBangumi,
}

// run 是单次聚合的全部状态；每个阶段内的任务只写各自的字段，读取发生在屏障之后。
type run struct {
	e    *Engine
	id   string
	seed domain.Seed
	log  zerolog.Logger

	mu    sync.Mutex
	trace []provider.Attempt

	in         merge.Inputs
	steamAppID string
	query      string
	seedTitle  string

	bangumiCands   []domain.Candidate
	communityCands []domain.Candidate
}

func (e *Engine) newRun(seed domain.Seed) *run {
	id := e.newID()
	return &run{
		e:    e,
		id:   id,
		seed: seed.Normalize(),
		log:  e.log.With().Str("request_id", id).Logger(),
	}
}

func (r *run) execute(ctx context.Context) domain.CanonicalMetadata {
	r.state(StateIdle)
	r.in.Seed = r.seed
	r.log.Debug().
		Str("vndb", r.seed.VNDBID).
		Str("code", r.seed.DLsiteCode).
		Str("url", r.seed.CommunityURL).
		Msg("开始聚合")

	r.state(StateStage1Fetching)
	r.stage1(ctx)

	r.state(StateDerivingIdentifiers)
	r.derive()

	r.state(StateStage2Fetching)
	r.stage2(ctx)

	r.state(StateScoring)
	r.resolve(ctx)

	r.state(StateMerging)
	m := merge.Merge(r.in)
	r.fillSkipped()

	r.state(StateDone)
	r.log.Info().Str("name", m.Name).Int("sources", len(r.attempts())).Msg("聚合完成")
	return m
}

func (r *run) state(s State) {
	if r.e.obs != nil {
		r.e.obs.OnState(r.id, s)
	}
}

// stage1：VNDB 详情 + VNDB releases（有 VNDB id 时）；社区站详情页（有 URL 时）。
func (r *run) stage1(ctx context.Context) {
	src, to := r.e.src, r.e.timeouts
	var s stage

	if id := domain.VNDBID(r.seed.VNDBID); id != "" && src.VNDB != nil {
		s.Go(func() {
			r.in.VNDB = fetch(ctx, r, domain.SourceVNDB, to.VNDB, func(c context.Context) (*domain.VNDBRecord, error) {
				return src.VNDB.FetchVN(c, id)
			}, nonNil[domain.VNDBRecord])
		})
		s.Go(func() {
			r.in.Releases = fetch(ctx, r, domain.SourceVNDBReleases, to.VNDB, func(c context.Context) ([]domain.VNDBRelease, error) {
				return src.VNDB.FetchReleases(c, id)
			}, nonEmpty[domain.VNDBRelease])
		})
	}
	if u := r.seed.CommunityURL; u != "" && src.Community != nil {
		s.Go(func() {
			r.in.Community = fetch(ctx, r, domain.SourceCommunity, to.Community, func(c context.Context) (*domain.CommunityRecord, error) {
				return src.Community.Scrape(c, u)
			}, nonNil[domain.CommunityRecord])
		})
	}
	s.Wait()
}

// derive：从阶段一结果中派生 storefront code / Steam app id，并确定搜索关键字与种子标题。
func (r *run) derive() {
	sc := domain.StorefrontCode(r.seed.DLsiteCode)
	if sc == "" {
		if c, ok := code.StorefrontCode(r.in.VNDB, r.in.Releases); ok {
			sc = c
			r.log.Debug().Str("code", string(c)).Msg("从 VNDB 链接派生 storefront code")
		}
	}
	r.in.DLsiteCode = sc

	if id, ok := code.SteamAppID(r.in.VNDB, r.in.Releases); ok {
		r.steamAppID = id
		r.log.Debug().Str("app_id", id).Msg("从 VNDB 链接派生 Steam app id")
	}

	r.query, r.seedTitle = keywords(r.in.VNDB, r.in.Community)
}

// keywords 返回 (搜索关键字, 种子标题)。
// 关键字优先用原文标题（评分站多以原名收录）；种子标题优先用社区站/中文标题。
func keywords(vn *domain.VNDBRecord, cm *domain.CommunityRecord) (query, seed string) {
	var communityTitle string
	if cm != nil {
		communityTitle = cm.Title
	}
	if vn != nil {
		query = first(vn.AltTitle, vn.Title)
		seed = first(communityTitle, vn.LocalizedTitle, vn.Title)
	} else {
		seed = first(communityTitle)
	}
	if query == "" {
		query = communityTitle
	}
	return query, seed
}

// stage2：DLsite 详情、Steam 双语言详情、Bangumi 搜索、社区站搜索（未提供 URL 时）。
func (r *run) stage2(ctx context.Context) {
	src, to := r.e.src, r.e.timeouts
	var s stage

	if sc := r.in.DLsiteCode; sc != "" && src.DLsite != nil {
		s.Go(func() {
			r.in.DLsite = fetch(ctx, r, domain.SourceDLsite, to.DLsite, func(c context.Context) (*domain.DLsiteRecord, error) {
				return src.DLsite.FetchProduct(c, sc)
			}, nonNil[domain.DLsiteRecord])
		})
	}
	if id := r.steamAppID; id != "" && src.Steam != nil {
		s.Go(func() {
			r.in.SteamLocal = fetch(ctx, r, domain.SourceSteamLocal, to.Steam, func(c context.Context) (*domain.SteamRecord, error) {
				return src.Steam.FetchApp(c, id, steam.LangSChinese)
			}, nonNil[domain.SteamRecord])
		})
		s.Go(func() {
			r.in.SteamEnglish = fetch(ctx, r, domain.SourceSteamEnglish, to.Steam, func(c context.Context) (*domain.SteamRecord, error) {
				return src.Steam.FetchApp(c, id, steam.LangEnglish)
			}, nonNil[domain.SteamRecord])
		})
	}
	if kw := r.query; kw != "" && src.Bangumi != nil {
		s.Go(func() {
			r.bangumiCands = fetch(ctx, r, domain.SourceBangumiSearch, to.Bangumi, func(c context.Context) ([]domain.Candidate, error) {
				return src.Bangumi.Search(c, kw)
			}, nonEmpty[domain.Candidate])
		})
	}
	if kw := r.query; kw != "" && r.seed.CommunityURL == "" && src.CommunitySearch != nil && src.Community != nil {
		s.Go(func() {
			r.communityCands = fetch(ctx, r, domain.SourceCommunitySearch, to.Community, func(c context.Context) ([]domain.Candidate, error) {
				return src.CommunitySearch.Search(c, kw)
			}, nonEmpty[domain.Candidate])
		})
	}
	s.Wait()
}

// resolve：用打分器在候选中择优，并取胜出条目的详情。
func (r *run) resolve(ctx context.Context) {
	src, to := r.e.src, r.e.timeouts
	var s stage

	if c, ok := match.Best(r.query, r.seedTitle, r.bangumiCands); ok {
		r.log.Debug().Str("provider", domain.SourceBangumi).Str("id", c.ID).Str("title", c.Title).
			Int("score", match.Score(r.query, r.seedTitle, c)).Msg("候选胜出")
		s.Go(func() {
			r.in.Bangumi = fetch(ctx, r, domain.SourceBangumi, to.Bangumi, func(cc context.Context) (*domain.BangumiRecord, error) {
				return src.Bangumi.FetchSubject(cc, c.ID)
			}, nonNil[domain.BangumiRecord])
		})
	}
	if c, ok := match.Best(r.query, r.seedTitle, r.communityCands); ok {
		r.log.Debug().Str("provider", domain.SourceCommunity).Str("id", c.ID).Str("title", c.Title).
			Int("score", match.Score(r.query, r.seedTitle, c)).Msg("候选胜出")
		s.Go(func() {
			r.in.Community = fetch(ctx, r, domain.SourceCommunity, to.Community, func(cc context.Context) (*domain.CommunityRecord, error) {
				return src.Community.Scrape(cc, c.ID)
			}, nonNil[domain.CommunityRecord])
		})
	}
	s.Wait()
}

// fetch 执行一次来源调用并记录轨迹；失败/超时一律降级为零值（缺失）。
func fetch[T any](ctx context.Context, r *run, source string, timeout time.Duration, fn func(context.Context) (T, error), found func(T) bool) T {
	started := time.Now()
	v, err := call(ctx, orDefault(timeout), fn)
	a := provider.Attempt{Provider: source, Duration: time.Since(started)}
	switch {
	case err != nil:
		a.Stage, a.Err = stageOf(err), err
		var zero T
		v = zero
	case !found(v):
		a.Stage = provider.StageAbsent
	default:
		a.Stage = provider.StageOK
	}
	r.record(a)
	return v
}

func stageOf(err error) string {
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Stage != "" {
		return pe.Stage
	}
	return provider.StageFetch
}

func nonNil[T any](p *T) bool { return p != nil }

func nonEmpty[T any](s []T) bool { return len(s) > 0 }

func (r *run) record(a provider.Attempt) {
	r.mu.Lock()
	r.trace = append(r.trace, a)
	r.mu.Unlock()

	ev := r.log.Debug()
	if a.Err != nil {
		ev = r.log.Warn().Err(a.Err)
	}
	ev.Str("provider", a.Provider).Str("stage", a.Stage).Dur("duration", a.Duration).Msg("来源调用结束")

	if r.e.obs != nil {
		r.e.obs.OnSourceDone(r.id, a)
	}
}

func (r *run) fillSkipped() {
	r.mu.Lock()
	seen := make(map[string]struct{}, len(r.trace))
	for _, a := range r.trace {
		seen[a.Provider] = struct{}{}
	}
	r.mu.Unlock()

	for _, name := range allSources {
		if _, ok := seen[name]; !ok {
			r.record(provider.Attempt{Provider: name, Stage: provider.StageSkipped})
		}
	}
}

func (r *run) attempts() []provider.Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]provider.Attempt, len(r.trace))
	copy(out, r.trace)
	return out
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
