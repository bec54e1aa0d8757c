package domain

// 这里的 *Record 类型是各 provider 在适配层边界产出的强类型结构。
//
// 约束：
// - 核心流程（derive/match/merge）只消费这些类型，不接触原始 JSON/HTML
// - nil 指针表示该来源缺失（未找到/不可达/超时），不是错误
// - 记录在一次聚合内只读，不允许被下游修改

// ExtLink 是 VNDB 的外部链接（extlinks）。
type ExtLink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Developer 是 VNDB 条目上的开发商。Original 为原文（通常是日文）名称。
type Developer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Original string `json:"original"`
}

// VNDBRecord 是主数据源（VNDB）的条目详情。
type VNDBRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// AltTitle 是原文标题（日文汉字/假名），可能为空。
	AltTitle string `json:"alttitle"`
	// LocalizedTitle / AltLocalizedTitle 分别是简体、繁体中文标题。
	LocalizedTitle    string `json:"localized_title"`
	AltLocalizedTitle string `json:"alt_localized_title"`

	Aliases     []string    `json:"aliases"`
	Description string      `json:"description"`
	Released    string      `json:"released"`
	ImageURL    string      `json:"image_url"`
	Developers  []Developer `json:"developers"`
	Links       []ExtLink   `json:"links"`
}

// VNDBRelease 是 VNDB 条目下的一个发行版本（只保留派生标识所需的字段）。
type VNDBRelease struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Links []ExtLink `json:"links"`
}

// DLsiteRecord 是 storefront（DLsite）的作品详情。
type DLsiteRecord struct {
	Code     StorefrontCode `json:"code"`
	Title    string         `json:"title"`
	Circle   string         `json:"circle"`
	CircleID string         `json:"circle_id"`
	// Description 来自日文页面；DescriptionEn 来自 locale=en_US 页面（可能为空）。
	Description   string   `json:"description"`
	DescriptionEn string   `json:"description_en"`
	Released      string   `json:"released"`
	Screenshots   []string `json:"screenshots"`
	Tags          []string `json:"tags"`
}

// SteamRecord 是 Steam appdetails 的单语言结果；同一 app 通常会取两种语言。
type SteamRecord struct {
	AppID            string   `json:"app_id"`
	Lang             string   `json:"lang"`
	Name             string   `json:"name"`
	ShortDescription string   `json:"short_description"`
	Released         string   `json:"released"`
	Website          string   `json:"website"`
	HeaderImage      string   `json:"header_image"`
	Screenshots      []string `json:"screenshots"`
}

// WeightedTag 是带权重的标签（Bangumi 的 count）。
type WeightedTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BangumiRecord 是 review 站（Bangumi）的条目详情。
type BangumiRecord struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	NameCN   string        `json:"name_cn"`
	Summary  string        `json:"summary"`
	Date     string        `json:"date"`
	ImageURL string        `json:"image_url"`
	Tags     []WeightedTag `json:"tags"`
}

// CommunityRecord 是社区站详情页的抓取结果。
type CommunityRecord struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CoverURL    string   `json:"cover_url"`
}

// Candidate 是一次搜索返回的、尚未确认的匹配项；打分选出胜者后即丢弃，不进入输出。
type Candidate struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	AltTitle string `json:"alt_title"`
	// IsTarget 表示候选项恰好是目标类别（例如 Bangumi 的“游戏”条目）。
	IsTarget bool `json:"is_target"`
}
