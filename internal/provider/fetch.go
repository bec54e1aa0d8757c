package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxBodyBytes 是单个响应体的读取上限。
const maxBodyBytes = 8 << 20

// GetBytes 发送 GET 并返回 2xx 响应体；非 2xx 返回 *HTTPStatusError。
func GetBytes(ctx context.Context, c *http.Client, u string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return do(c, req)
}

// PostBytes 以 JSON 编码 body 发送 POST，返回 2xx 响应体。
func PostBytes(ctx context.Context, c *http.Client, u string, header http.Header, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, hv := range vs {
			req.Header.Add(k, hv)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return do(c, req)
}

func do(c *http.Client, req *http.Request) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: req.URL.String(), StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return b, nil
}

// DecodeJSON 解码响应体；空响应体视为错误。
func DecodeJSON(b []byte, v any) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("解析 JSON 失败：%w", err)
	}
	return nil
}

// IsNotFound 报告 err 是否为 HTTP 404（适配器据此返回“缺失”而不是错误）。
func IsNotFound(err error) bool {
	var he *HTTPStatusError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

// ResolveURL 把页面内的相对链接解析为绝对 URL（协议相对链接补 https）。
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

// NormSpace 把连续空白折叠为单个空格。
func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// NormList 去空、去重并保持顺序。
func NormList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = NormSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
