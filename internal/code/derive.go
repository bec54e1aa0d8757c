// Package code 从已取得的 VNDB 数据中派生其它站点的标识（DLsite code / Steam app id）。
//
// 约束：纯函数，不做任何 I/O；找不到时返回 ("", false)，不是错误。
package code

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/vnmeta/internal/domain"
)

var (
	productIDRE = regexp.MustCompile(`(?i)product_id/((?:RJ|VJ)\d+)`)
	bareCodeRE  = regexp.MustCompile(`(?i)\b((?:RJ|VJ)\d+)\b`)
	aliasCodeRE = regexp.MustCompile(`(?i)^((?:RJ|VJ)\d+)`)
	steamAppRE  = regexp.MustCompile(`/app/(\d+)`)
)

const (
	steamLabel  = "steam"
	steamDomain = "store.steampowered.com"
)

// FindStorefrontCode 从单个字符串中提取 storefront code（优先 product_id/ 形式，其次裸 token）。
func FindStorefrontCode(s string) (domain.StorefrontCode, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, re := range []*regexp.Regexp{productIDRE, bareCodeRE} {
		if m := re.FindStringSubmatch(s); len(m) == 2 {
			if c, ok := domain.ParseStorefrontCode(m[1]); ok {
				return c, true
			}
		}
	}
	return "", false
}

// StorefrontCode 依次扫描：VN 自身链接 → 每个 release 的链接 → VN 别名（以 RJ/VJ 开头）。
// 第一个命中者胜出。
func StorefrontCode(vn *domain.VNDBRecord, releases []domain.VNDBRelease) (domain.StorefrontCode, bool) {
	if vn != nil {
		if c, ok := codeFromLinks(vn.Links); ok {
			return c, true
		}
	}
	for _, r := range releases {
		if c, ok := codeFromLinks(r.Links); ok {
			return c, true
		}
	}
	if vn != nil {
		for _, a := range vn.Aliases {
			m := aliasCodeRE.FindStringSubmatch(strings.TrimSpace(a))
			if len(m) != 2 {
				continue
			}
			if c, ok := domain.ParseStorefrontCode(m[1]); ok {
				return c, true
			}
		}
	}
	return "", false
}

func codeFromLinks(links []domain.ExtLink) (domain.StorefrontCode, bool) {
	for _, l := range links {
		for _, s := range []string{l.URL, l.Label, l.Name} {
			if c, ok := FindStorefrontCode(s); ok {
				return c, true
			}
		}
	}
	return "", false
}

// SteamAppID 查找 Steam 链接（label/name 为 "Steam" 或 URL 含商店域名）并取 /app/ 后的数字。
// 顺序：VN 自身 → 每个 release。
func SteamAppID(vn *domain.VNDBRecord, releases []domain.VNDBRelease) (string, bool) {
	if vn != nil {
		if id, ok := appIDFromLinks(vn.Links); ok {
			return id, true
		}
	}
	for _, r := range releases {
		if id, ok := appIDFromLinks(r.Links); ok {
			return id, true
		}
	}
	return "", false
}

func appIDFromLinks(links []domain.ExtLink) (string, bool) {
	for _, l := range links {
		if !isSteamLink(l) {
			continue
		}
		if m := steamAppRE.FindStringSubmatch(l.URL); len(m) == 2 {
			return m[1], true
		}
	}
	return "", false
}

func isSteamLink(l domain.ExtLink) bool {
	if strings.EqualFold(strings.TrimSpace(l.Label), steamLabel) || strings.EqualFold(strings.TrimSpace(l.Name), steamLabel) {
		return true
	}
	return strings.Contains(strings.ToLower(l.URL), steamDomain)
}
