package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	SourceStatusOK      = "ok"
	SourceStatusAbsent  = "absent"
	SourceStatusFailed  = "failed"
	SourceStatusSkipped = "skipped"
)

// 来源名称（也是 report.sources 的稳定排序依据）。
const (
	SourceVNDB            = "vndb"
	SourceVNDBReleases    = "vndb_releases"
	SourceCommunity       = "community"
	SourceDLsite          = "dlsite"
	SourceSteamLocal      = "steam_schinese"
	SourceSteamEnglish    = "steam_english"
	SourceBangumiSearch   = "bangumi_search"
	SourceCommunitySearch = "community_search"
	SourceBangumi         = "bangumi"
)

var sourceOrder = map[string]int{
	SourceVNDB:            0,
	SourceVNDBReleases:    1,
	SourceCommunity:       2,
	SourceDLsite:          3,
	SourceSteamLocal:      4,
	SourceSteamEnglish:    5,
	SourceBangumiSearch:   6,
	SourceCommunitySearch: 7,
	SourceBangumi:         8,
}

// FetchReport 是对外稳定输出（stdout JSON / --out 文件）的结构。
type FetchReport struct {
	RequestID string `json:"request_id"`
	Seed      Seed   `json:"seed"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary  ReportSummary     `json:"summary"`
	Metadata CanonicalMetadata `json:"metadata"`
	Sources  []SourceResult    `json:"sources"`
}

type ReportSummary struct {
	OK      int `json:"ok"`
	Absent  int `json:"absent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// SourceResult 记录某个来源在本次聚合中的结局。
type SourceResult struct {
	Provider   string `json:"provider"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) sources 稳定排序：按固定来源顺序；未知来源按名称排在最后
// 3) summary 由 sources 计算得出
func (r *FetchReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Sources == nil {
		r.Sources = []SourceResult{}
	}
	sort.SliceStable(r.Sources, func(i, j int) bool {
		a, aok := sourceOrder[r.Sources[i].Provider]
		b, bok := sourceOrder[r.Sources[j].Provider]
		switch {
		case aok && bok:
			return a < b
		case aok:
			return true
		case bok:
			return false
		default:
			return r.Sources[i].Provider < r.Sources[j].Provider
		}
	})

	var s ReportSummary
	for _, it := range r.Sources {
		switch it.Status {
		case SourceStatusOK:
			s.OK++
		case SourceStatusAbsent:
			s.Absent++
		case SourceStatusFailed:
			s.Failed++
		case SourceStatusSkipped:
			s.Skipped++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r FetchReport) MarshalJSON() ([]byte, error) {
	type Alias FetchReport
	return json.Marshal(Alias(r))
}
