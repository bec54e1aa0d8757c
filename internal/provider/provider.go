package provider

import (
	"context"

	"github.com/John-Robertt/vnmeta/internal/domain"
)

// 各来源的适配接口。把“站点变化”限制在 provider 子包内部；核心流程只依赖这些接口与 domain 中的强类型记录。
//
// 约束：
// - 未找到：返回 (nil, nil) 或空切片，不是错误
// - 网络/解析/拦截失败：返回 error（通常是 *Error），由编排层降级为缺失
// - 适配器不做重试（重试/缓存由 infra/httpx 统一实现）
// - 必须尊重 ctx：超时或取消后尽快返回

// VNSource 是主数据源（VNDB）。
type VNSource interface {
	Name() string
	FetchVN(ctx context.Context, id domain.VNDBID) (*domain.VNDBRecord, error)
	FetchReleases(ctx context.Context, id domain.VNDBID) ([]domain.VNDBRelease, error)
}

// StoreSource 是 storefront（DLsite）。
type StoreSource interface {
	Name() string
	FetchProduct(ctx context.Context, code domain.StorefrontCode) (*domain.DLsiteRecord, error)
}

// AppSource 是平台分发 API（Steam）。lang 为站点自身的语言参数（例如 "schinese" / "english"）。
type AppSource interface {
	Name() string
	FetchApp(ctx context.Context, appID, lang string) (*domain.SteamRecord, error)
}

// Searcher 是按关键字返回候选的来源。
type Searcher interface {
	Name() string
	Search(ctx context.Context, keyword string) ([]domain.Candidate, error)
}

// ReviewSource 是评分/收录站（Bangumi）：先搜索，再按打分胜出的 ID 取详情。
type ReviewSource interface {
	Searcher
	FetchSubject(ctx context.Context, id string) (*domain.BangumiRecord, error)
}

// CommunitySource 是社区站：按详情页 URL 抓取，也支持关键字搜索。
type CommunitySource interface {
	Searcher
	Scrape(ctx context.Context, pageURL string) (*domain.CommunityRecord, error)
}
