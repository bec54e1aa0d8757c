package provider

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BlockText 提取选区的纯文本，保留块级元素与 <br> 的换行结构。
// goquery.Text() 会把段落粘在一起，简介类字段需要保留分段。
func BlockText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range sel.Nodes {
		walkText(&b, n)
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = NormSpace(l)
		if l == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func walkText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript:
			return
		case atom.Br:
			b.WriteByte('\n')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(b, c)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		b.WriteString("\n\n")
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.H1, atom.H2, atom.H3, atom.H4, atom.Blockquote, atom.Section, atom.Article, atom.Tr:
		return true
	}
	return false
}

// challengeMarkers 是常见“验证/拦截”页面的特征片段（Cloudflare / 年龄确认 / 验证码）。
var challengeMarkers = []struct {
	marker string
	reason string
}{
	{"cf-chl-", "cloudflare-challenge"},
	{"<title>Just a moment...</title>", "cloudflare-challenge"},
	{"g-recaptcha", "captcha"},
	{"h-captcha", "captcha"},
	{"id=\"ageVerify\"", "age-verify"},
}

// DetectBlocked 在响应体是验证/拦截页时返回 *BlockedError；否则返回 nil。
// 产品约束：不尝试绕过，直接把该来源视为缺失。
func DetectBlocked(u string, body []byte) error {
	for _, m := range challengeMarkers {
		if bytes.Contains(body, []byte(m.marker)) {
			return &BlockedError{URL: u, Reason: m.reason}
		}
	}
	return nil
}
