package domain

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidSeed 表示调用方没有提供任何可用标识。
// 核心流程本身不会返回该错误；只由 API/CLI 边界层决定是否拒绝请求。
var ErrInvalidSeed = errors.New("invalid_seed: 未提供任何可用标识（vndb / code / url 至少一项）")

// Seed 是一次元数据聚合的输入，三个字段互相独立、均可缺省。
type Seed struct {
	VNDBID       string `json:"vndb_id,omitempty"`
	DLsiteCode   string `json:"dlsite_code,omitempty"`
	CommunityURL string `json:"community_url,omitempty"`
}

// Normalize 返回规范化后的 Seed：非法值直接丢弃（视为缺失），不报错。
func (s Seed) Normalize() Seed {
	var out Seed
	if id, ok := ParseVNDBID(s.VNDBID); ok {
		out.VNDBID = string(id)
	}
	if c, ok := ParseStorefrontCode(s.DLsiteCode); ok {
		out.DLsiteCode = string(c)
	}
	if u, ok := parseCommunityURL(s.CommunityURL); ok {
		out.CommunityURL = u
	}
	return out
}

// Empty 报告规范化后是否一个可用标识都没有。
func (s Seed) Empty() bool {
	n := s.Normalize()
	return n.VNDBID == "" && n.DLsiteCode == "" && n.CommunityURL == ""
}

// Validate 仅供边界层使用：空 Seed 返回 ErrInvalidSeed。
func (s Seed) Validate() error {
	if s.Empty() {
		return ErrInvalidSeed
	}
	return nil
}

func parseCommunityURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
