package domain

// Company 是输出中的厂商条目。
type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Original string `json:"original"`
	Type     string `json:"type"`
}

const (
	CompanyTypeDeveloper = "Developer"
	CompanyTypeCircle    = "Circle"

	// StorefrontCircleID 是 storefront 社团条目的固定 ID（DLsite 不提供可跨站对齐的 ID）。
	StorefrontCircleID = "storefront_circle"
)

// CanonicalMetadata 是聚合后的唯一输出记录。
//
// 不变量：
// - 任一 provider 返回了数据时 Name 非空
// - Alias 不包含 Name；只做精确字符串去重
// - Tag 去重、按权重降序，最多 MaxTags 个
// - Banner 非 nil 时等于 Screenshots[0]
// - Website 永不为 null（缺失时为空串）
// - 所有切片字段非 nil（JSON 输出 [] 而不是 null）
type CanonicalMetadata struct {
	Name         string    `json:"name"`
	Introduction *string   `json:"introduction"`
	Released     *string   `json:"released"`
	VNDBID       *string   `json:"vndb_id"`
	DLsiteCode   *string   `json:"dlsite_code"`
	Alias        []string  `json:"alias"`
	Tag          []string  `json:"tag"`
	Banner       *string   `json:"banner"`
	Screenshots  []string  `json:"screenshots"`
	Website      string    `json:"website"`
	Companies    []Company `json:"companies"`
}

// MaxTags 是输出标签数量上限。
const MaxTags = 40

// EmptyMetadata 返回“全空”的记录（空 Seed / 全部 provider 缺失时的结果）。
func EmptyMetadata() CanonicalMetadata {
	return CanonicalMetadata{
		Alias:       []string{},
		Tag:         []string{},
		Screenshots: []string{},
		Companies:   []Company{},
	}
}
