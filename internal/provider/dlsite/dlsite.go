// Package dlsite 实现 storefront（DLsite 作品页抓取与 HTML 解析）。
package dlsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/provider"
)

const (
	name           = "dlsite"
	defaultBaseURL = "https://www.dlsite.com"
)

// Client 抓取作品详情页（日文页 + locale=en_US 英文页）。
//
// 约束：
// - Parse 必须是纯函数（只依赖输入 html + pageURL）
// - 英文页失败不影响结果（只是没有 DescriptionEn）
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(c *http.Client, baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: c}
}

func (*Client) Name() string { return name }

func (c *Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// PageURL 返回作品详情页 URL（RJ 在 maniax 分站，VJ 在 pro 分站）。
func (c *Client) PageURL(code domain.StorefrontCode) string {
	section := "maniax"
	if strings.HasPrefix(string(code), "VJ") {
		section = "pro"
	}
	return c.baseURL() + "/" + section + "/work/=/product_id/" + string(code) + ".html"
}

func header() http.Header {
	h := http.Header{}
	// 跳过年龄确认页。
	h.Set("Cookie", "adultchecked=1")
	return h
}

// FetchProduct 取作品详情；作品不存在时返回 (nil, nil)。
func (c *Client) FetchProduct(ctx context.Context, code domain.StorefrontCode) (*domain.DLsiteRecord, error) {
	if _, ok := domain.ParseStorefrontCode(string(code)); !ok {
		return nil, provider.Wrap(name, provider.StageFetch, fmt.Errorf("非法 storefront code：%q", code))
	}

	pageURL := c.PageURL(code)
	b, err := c.fetch(ctx, pageURL)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, provider.Wrap(name, provider.StageFetch, err)
	}
	r, err := Parse(code, b, pageURL)
	if err != nil {
		return nil, provider.Wrap(name, provider.StageParse, err)
	}

	if en, err := c.fetch(ctx, pageURL+"?locale=en_US"); err == nil {
		if er, err := Parse(code, en, pageURL); err == nil {
			r.DescriptionEn = er.Description
		}
	}
	return r, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	b, err := provider.GetBytes(ctx, c.HTTP, u, header())
	if err != nil {
		return nil, err
	}
	if err := provider.DetectBlocked(u, b); err != nil {
		return nil, err
	}
	return b, nil
}

var (
	makerIDRE = regexp.MustCompile(`maker_id/(RG\d+)`)
	jaDateRE  = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	enDateRE  = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	isoDateRE = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
)

// Parse 把 DLsite 作品页 HTML 解析为 DLsiteRecord。
func Parse(code domain.StorefrontCode, html []byte, pageURL string) (*domain.DLsiteRecord, error) {
	if code == "" {
		return nil, errors.New("code 不能为空")
	}
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	title := provider.NormSpace(doc.Find("#work_name").First().Text())
	if title == "" {
		return nil, errors.New("未找到作品标题（#work_name）")
	}

	r := &domain.DLsiteRecord{Code: code, Title: title}

	maker := doc.Find("#work_maker .maker_name a").First()
	r.Circle = provider.NormSpace(maker.Text())
	if href, ok := maker.Attr("href"); ok {
		if m := makerIDRE.FindStringSubmatch(href); len(m) == 2 {
			r.CircleID = m[1]
		}
	}

	var tags []string
	doc.Find("#work_outline tr").Each(func(_ int, s *goquery.Selection) {
		h := normHeader(s.Find("th").First().Text())
		switch h {
		case "販売日", "Release date", "发售日", "販賣日":
			r.Released = normDate(s.Find("td").First().Text())
		case "ジャンル", "Genre", "分类", "分類":
			s.Find("td .main_genre a").Each(func(_ int, a *goquery.Selection) {
				tags = append(tags, a.Text())
			})
		}
	})
	r.Tags = provider.NormList(tags)

	desc := doc.Find(`[itemprop="description"]`).First()
	if desc.Length() == 0 {
		desc = doc.Find(".work_parts_container").First()
	}
	r.Description = provider.BlockText(desc)

	var shots []string
	doc.Find(".product-slider-data div").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok {
			shots = append(shots, provider.ResolveURL(pageURL, src))
		}
	})
	r.Screenshots = provider.NormList(shots)
	return r, nil
}

func normHeader(s string) string {
	s = provider.NormSpace(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "：")
	return strings.TrimSpace(s)
}

// normDate 把页面上的日期统一为 YYYY-MM-DD；无法识别时原样返回（去空白后）。
func normDate(s string) string {
	s = provider.NormSpace(s)
	if m := jaDateRE.FindStringSubmatch(s); len(m) == 4 {
		return ymd(m[1], m[2], m[3])
	}
	if m := isoDateRE.FindStringSubmatch(s); len(m) == 4 {
		return ymd(m[1], m[2], m[3])
	}
	if m := enDateRE.FindStringSubmatch(s); len(m) == 4 {
		return ymd(m[3], m[1], m[2])
	}
	return s
}

func ymd(y, m, d string) string {
	yi, _ := strconv.Atoi(y)
	mi, _ := strconv.Atoi(m)
	di, _ := strconv.Atoi(d)
	return fmt.Sprintf("%04d-%02d-%02d", yi, mi, di)
}
