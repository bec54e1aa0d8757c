package domain

import (
	"regexp"
	"strings"
)

// StorefrontCode 是 DLsite 作品编号（规范化后形如 RJ01234567 / VJ012345）。
//
// 约束：只接受 RJ/VJ 前缀 + 纯数字；其它店铺前缀（BJ/RE 等）不属于游戏类作品，宁可当作缺失。
type StorefrontCode string

var storefrontCodeRE = regexp.MustCompile(`^(RJ|VJ)[0-9]+$`)

// ParseStorefrontCode 校验并规范化 storefront code（大小写不敏感，输出统一大写）。
func ParseStorefrontCode(s string) (StorefrontCode, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !storefrontCodeRE.MatchString(s) {
		return "", false
	}
	return StorefrontCode(s), true
}

// VNDBID 是 VNDB 条目 ID（规范化后形如 v17）。
type VNDBID string

var vndbIDRE = regexp.MustCompile(`^v[0-9]+$`)

// ParseVNDBID 接受 "v17" / "V17" / "17"，输出统一为小写 v 前缀。
func ParseVNDBID(s string) (VNDBID, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "v" + s
	}
	if !vndbIDRE.MatchString(s) {
		return "", false
	}
	return VNDBID(s), true
}
