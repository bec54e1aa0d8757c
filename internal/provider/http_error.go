package provider

import (
	"fmt"
	"strings"
)

// HTTPStatusError 是 GetBytes / PostBytes 在响应非 2xx 时返回的错误。
// 404 由各适配器转为 (nil, nil)；其余状态码在 Attempt 中记为 fetch 失败。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "unexpected HTTP status"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BlockedError 由 DetectBlocked 返回：站点回了 Cloudflare、验证码或年龄确认页而不是作品页。
// 编排层把它记为该来源失败，merge 时按缺失处理。
type BlockedError struct {
	URL    string
	Reason string
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}
