// Package merge 把各来源（可能缺失）的记录合并为唯一的 CanonicalMetadata。
//
// 约束：
// - 纯函数、单线程；只在全部抓取任务结束后调用
// - 每个字段按固定的来源优先级取第一个非空值（见各 pick* 函数）
// - 不修改输入记录
package merge

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/textnorm"
)

// CompanyTagWeight 是厂商名作为标签时的强制权重（保证排在最前）。
const CompanyTagWeight = 999

const officialWebsiteLabel = "official website"

var tagCountSuffixRE = regexp.MustCompile(`\s\+\d+$`)

// Inputs 是一次合并的全部输入；nil 指针表示该来源缺失。
type Inputs struct {
	Seed domain.Seed
	// DLsiteCode 是最终使用的 storefront code（调用方提供或从 VNDB 派生），可能为空。
	DLsiteCode domain.StorefrontCode

	VNDB         *domain.VNDBRecord
	Releases     []domain.VNDBRelease
	Community    *domain.CommunityRecord
	DLsite       *domain.DLsiteRecord
	SteamLocal   *domain.SteamRecord
	SteamEnglish *domain.SteamRecord
	Bangumi      *domain.BangumiRecord
}

// Merge 按字段优先级合并。所有来源都缺失时返回 domain.EmptyMetadata()（可能带有 seed 中的标识）。
func Merge(in Inputs) domain.CanonicalMetadata {
	out := domain.EmptyMetadata()

	out.Name = pickName(in)
	out.Introduction = pickIntroduction(in)
	out.Released = pickReleased(in)
	out.VNDBID = pickVNDBID(in)
	out.DLsiteCode = pickDLsiteCode(in)

	out.Companies = pickCompanies(in)
	out.Alias = pickAlias(in, out.Name)
	out.Tag = pickTags(in, out.Companies)

	out.Screenshots = pickScreenshots(in)
	if len(out.Screenshots) > 0 {
		b := out.Screenshots[0]
		out.Banner = &b
	}
	out.Website = pickWebsite(in)
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// name：社区站标题 → Bangumi 中文名 → VNDB 简/繁中文标题 → VNDB 标题 → 其它来源的原名兜底。
func pickName(in Inputs) string {
	var vals []string
	if in.Community != nil {
		vals = append(vals, in.Community.Title)
	}
	if in.Bangumi != nil {
		vals = append(vals, in.Bangumi.NameCN)
	}
	if in.VNDB != nil {
		vals = append(vals, in.VNDB.LocalizedTitle, in.VNDB.AltLocalizedTitle, in.VNDB.Title)
	}
	if in.Bangumi != nil {
		vals = append(vals, in.Bangumi.Name)
	}
	if in.DLsite != nil {
		vals = append(vals, in.DLsite.Title)
	}
	for _, s := range []*domain.SteamRecord{in.SteamLocal, in.SteamEnglish} {
		if s != nil {
			vals = append(vals, s.Name)
		}
	}
	return firstNonEmpty(vals...)
}

// introduction：
// 1) 社区站简介（原样）
// 2) Bangumi 简介（不像日文时才用），清理后
// 3) DLsite 日文页简介（不像英文时才用）
// 4) 英文简介：Steam english；为空时用 DLsite 英文页
// 5) VNDB 简介，清理后
func pickIntroduction(in Inputs) *string {
	if in.Community != nil && strings.TrimSpace(in.Community.Description) != "" {
		d := in.Community.Description
		return &d
	}
	if in.Bangumi != nil && !textnorm.LooksJapanese(in.Bangumi.Summary) {
		if s := textnorm.Clean(in.Bangumi.Summary); s != nil {
			return s
		}
	}
	if in.DLsite != nil && !textnorm.LooksEnglish(in.DLsite.Description) {
		if s := textnorm.Clean(in.DLsite.Description); s != nil {
			return s
		}
	}
	if in.SteamEnglish != nil {
		if s := textnorm.Clean(in.SteamEnglish.ShortDescription); s != nil {
			return s
		}
	}
	if in.DLsite != nil {
		if s := textnorm.Clean(in.DLsite.DescriptionEn); s != nil {
			return s
		}
	}
	if in.VNDB != nil {
		return textnorm.Clean(in.VNDB.Description)
	}
	return nil
}

func pickReleased(in Inputs) *string {
	var vals []string
	if in.VNDB != nil {
		vals = append(vals, in.VNDB.Released)
	}
	if in.DLsite != nil {
		vals = append(vals, in.DLsite.Released)
	}
	for _, s := range []*domain.SteamRecord{in.SteamLocal, in.SteamEnglish} {
		if s != nil {
			vals = append(vals, s.Released)
		}
	}
	return strPtr(firstNonEmpty(vals...))
}

func pickVNDBID(in Inputs) *string {
	if in.VNDB != nil && in.VNDB.ID != "" {
		return strPtr(in.VNDB.ID)
	}
	return strPtr(in.Seed.VNDBID)
}

func pickDLsiteCode(in Inputs) *string {
	if in.DLsite != nil && in.DLsite.Code != "" {
		return strPtr(string(in.DLsite.Code))
	}
	if in.DLsiteCode != "" {
		return strPtr(string(in.DLsiteCode))
	}
	return strPtr(in.Seed.DLsiteCode)
}

// alias：VNDB 别名 → Bangumi 中文名/原名 → 社区站标题（≠ VNDB 中文标题）。
// 最后整体剔除 name。
func pickAlias(in Inputs, name string) []string {
	set := NewOrderedSet()
	add := func(vals ...string) {
		for _, v := range vals {
			set.Add(strings.TrimSpace(v))
		}
	}

	if in.VNDB != nil {
		add(in.VNDB.Aliases...)
	}
	if in.Bangumi != nil {
		add(in.Bangumi.NameCN, in.Bangumi.Name)
	}
	if in.Community != nil {
		title := strings.TrimSpace(in.Community.Title)
		if in.VNDB == nil || title != strings.TrimSpace(in.VNDB.LocalizedTitle) {
			add(title)
		}
	}
	set.Remove(name)
	return set.Values()
}

// tag：Bangumi 标签（权重 = count）→ 社区站标签（去掉 " +N" 后缀，新标签权重 0）→ DLsite 标签（新标签权重 0）；
// 厂商名与原文名强制权重 CompanyTagWeight。按权重降序，最多 domain.MaxTags 个。
func pickTags(in Inputs, companies []domain.Company) []string {
	ws := NewWeightedSet()
	if in.Bangumi != nil {
		for _, t := range in.Bangumi.Tags {
			ws.Add(strings.TrimSpace(t.Name), t.Count)
		}
	}
	if in.Community != nil {
		for _, t := range in.Community.Tags {
			ws.Add(StripTagCount(t), 0)
		}
	}
	if in.DLsite != nil {
		for _, t := range in.DLsite.Tags {
			ws.Add(strings.TrimSpace(t), 0)
		}
	}
	for _, c := range companies {
		ws.Set(strings.TrimSpace(c.Name), CompanyTagWeight)
		ws.Set(strings.TrimSpace(c.Original), CompanyTagWeight)
	}
	return ws.Top(domain.MaxTags)
}

// StripTagCount 去掉社区站标签末尾的投票数后缀（例如 "纯爱 +12" → "纯爱"）。
func StripTagCount(tag string) string {
	tag = strings.TrimSpace(tag)
	return strings.TrimSpace(tagCountSuffixRE.ReplaceAllString(tag, ""))
}

// companies：VNDB 全部开发商（原顺序）；DLsite 社团名与已有条目都不同时追加一次。
func pickCompanies(in Inputs) []domain.Company {
	out := []domain.Company{}
	seen := map[string]struct{}{}
	remember := func(names ...string) {
		for _, n := range names {
			if k := textnorm.Normalize(n); k != "" {
				seen[k] = struct{}{}
			}
		}
	}

	if in.VNDB != nil {
		for _, d := range in.VNDB.Developers {
			out = append(out, domain.Company{
				ID:       d.ID,
				Name:     d.Name,
				Original: d.Original,
				Type:     domain.CompanyTypeDeveloper,
			})
			remember(d.Name, d.Original)
		}
	}
	if in.DLsite != nil {
		circle := strings.TrimSpace(in.DLsite.Circle)
		if k := textnorm.Normalize(circle); k != "" {
			if _, dup := seen[k]; !dup {
				out = append(out, domain.Company{
					ID:       domain.StorefrontCircleID,
					Name:     circle,
					Original: circle,
					Type:     domain.CompanyTypeCircle,
				})
			}
		}
	}
	return out
}

// screenshots：VNDB 封面 → DLsite 截图 → Steam 截图 → 社区站封面 / Bangumi 封面兜底。
func pickScreenshots(in Inputs) []string {
	set := NewOrderedSet()
	if in.VNDB != nil {
		set.Add(strings.TrimSpace(in.VNDB.ImageURL))
	}
	if in.DLsite != nil {
		for _, u := range in.DLsite.Screenshots {
			set.Add(strings.TrimSpace(u))
		}
	}
	for _, s := range []*domain.SteamRecord{in.SteamLocal, in.SteamEnglish} {
		if s == nil {
			continue
		}
		for _, u := range s.Screenshots {
			set.Add(strings.TrimSpace(u))
		}
	}
	if in.Community != nil {
		set.Add(strings.TrimSpace(in.Community.CoverURL))
	}
	if in.Bangumi != nil {
		set.Add(strings.TrimSpace(in.Bangumi.ImageURL))
	}
	return set.Values()
}

// website：各 release 中第一个 "Official website" 链接 → VNDB 自身链接 → Steam 官网字段；否则空串。
func pickWebsite(in Inputs) string {
	for _, r := range in.Releases {
		if u := officialLink(r.Links); u != "" {
			return u
		}
	}
	if in.VNDB != nil {
		if u := officialLink(in.VNDB.Links); u != "" {
			return u
		}
	}
	var vals []string
	for _, s := range []*domain.SteamRecord{in.SteamLocal, in.SteamEnglish} {
		if s != nil {
			vals = append(vals, s.Website)
		}
	}
	return firstNonEmpty(vals...)
}

func officialLink(links []domain.ExtLink) string {
	for _, l := range links {
		if strings.EqualFold(strings.TrimSpace(l.Label), officialWebsiteLabel) && strings.TrimSpace(l.URL) != "" {
			return strings.TrimSpace(l.URL)
		}
	}
	return ""
}
