// Package community 实现社区站（通用 HTML 站点）的详情页抓取与关键字搜索。
package community

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/provider"
)

const name = "community"

// Client 是社区站适配器。BaseURL 为空时不支持搜索（详情页抓取仍可用，因为 URL 由调用方给出）。
type Client struct {
	BaseURL string
	HTTP    *http.Client

	strategies provider.Strategies
}

func New(c *http.Client, baseURL string) *Client {
	cl := &Client{BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), HTTP: c}
	cl.strategies = provider.Strategies{
		cl.searchWith("keyword+type", func(kw string) url.Values {
			return url.Values{"keyword": {kw}, "type": {"galgame"}}
		}),
		cl.searchWith("keyword", func(kw string) url.Values {
			return url.Values{"keyword": {kw}}
		}),
		cl.searchWith("q", func(kw string) url.Values {
			return url.Values{"q": {kw}}
		}),
	}
	return cl
}

func (*Client) Name() string { return name }

// Strategies 返回搜索策略（按优先级）。
func (c *Client) Strategies() provider.Strategies { return c.strategies }

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	b, err := provider.GetBytes(ctx, c.HTTP, u, nil)
	if err != nil {
		return nil, err
	}
	if err := provider.DetectBlocked(u, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Scrape 抓取详情页；页面不存在时返回 (nil, nil)。
func (c *Client) Scrape(ctx context.Context, pageURL string) (*domain.CommunityRecord, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, provider.Wrap(name, provider.StageFetch, errors.New("url 不能为空"))
	}
	b, err := c.get(ctx, pageURL)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, provider.Wrap(name, provider.StageFetch, err)
	}
	r, err := ParseDetail(b, pageURL)
	if err != nil {
		return nil, provider.Wrap(name, provider.StageParse, err)
	}
	return r, nil
}

// Search 依次尝试各参数形态，第一个非空结果胜出；全部为空时返回空结果。
func (c *Client) Search(ctx context.Context, keyword string) ([]domain.Candidate, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []domain.Candidate{}, nil
	}
	if c.BaseURL == "" {
		return nil, provider.Wrap(name, provider.StageSearch, errors.New("未配置社区站 base_url"))
	}
	cands, _, err := c.strategies.Search(ctx, keyword)
	if err != nil {
		return nil, provider.Wrap(name, provider.StageSearch, err)
	}
	return cands, nil
}

func (c *Client) searchWith(strategy string, params func(kw string) url.Values) provider.Strategy {
	return provider.Strategy{
		Name: strategy,
		Search: func(ctx context.Context, kw string) ([]domain.Candidate, error) {
			u := c.BaseURL + "/search?" + params(kw).Encode()
			b, err := c.get(ctx, u)
			if err != nil {
				if provider.IsNotFound(err) {
					return nil, nil
				}
				return nil, err
			}
			return ParseSearch(b, u)
		},
	}
}

// ParseDetail 把详情页 HTML 解析为 CommunityRecord（纯函数）。
func ParseDetail(html []byte, pageURL string) (*domain.CommunityRecord, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	title := provider.NormSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = metaContent(doc, "og:title")
	}
	if title == "" {
		return nil, errors.New("未找到标题")
	}

	r := &domain.CommunityRecord{URL: pageURL, Title: title}

	desc := doc.Find(`[itemprop="description"], .description, .intro`).First()
	r.Description = provider.BlockText(desc)
	if r.Description == "" {
		r.Description = metaContent(doc, "og:description")
	}

	var tags []string
	doc.Find(`.tags a, a[rel="tag"]`).Each(func(_ int, s *goquery.Selection) {
		tags = append(tags, s.Text())
	})
	r.Tags = provider.NormList(tags)

	if cover := metaContent(doc, "og:image"); cover != "" {
		r.CoverURL = provider.ResolveURL(pageURL, cover)
	}
	return r, nil
}

// ParseSearch 解析搜索结果页：每个 .search-results .item 是一个候选，ID 为详情页绝对 URL。
func ParseSearch(html []byte, pageURL string) ([]domain.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	out := []domain.Candidate{}
	seen := map[string]struct{}{}
	doc.Find(".search-results .item").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a.title").First()
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		id := provider.ResolveURL(pageURL, href)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		typ, _ := s.Attr("data-type")
		typ = strings.ToLower(strings.TrimSpace(typ))
		out = append(out, domain.Candidate{
			ID:       id,
			Title:    provider.NormSpace(a.Text()),
			AltTitle: provider.NormSpace(s.Find(".alt-title").First().Text()),
			IsTarget: typ == "galgame" || typ == "game",
		})
	})
	return out, nil
}

func metaContent(doc *goquery.Document, property string) string {
	v, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return strings.TrimSpace(v)
}
