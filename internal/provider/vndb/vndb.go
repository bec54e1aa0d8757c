// Package vndb 实现主数据源 VNDB（Kana API，POST JSON 查询）。
package vndb

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/provider"
)

const (
	name           = "vndb"
	defaultBaseURL = "https://api.vndb.org/kana"

	vnFields      = "title,alttitle,titles{lang,title,main,official},aliases,description,released,image{url},developers{id,name,original},extlinks{url,label,name}"
	releaseFields = "title,extlinks{url,label,name}"
	searchFields  = "title,alttitle"

	maxReleases = 100
	maxSearch   = 20
)

// Client 是 VNDB 适配器。零值 BaseURL 使用官方 API。
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

type query struct {
	Filters any    `json:"filters"`
	Fields  string `json:"fields"`
	Results int    `json:"results,omitempty"`
	Sort    string `json:"sort,omitempty"`
}

type response[T any] struct {
	Results []T  `json:"results"`
	More    bool `json:"more"`
}

type extlink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
	Name  string `json:"name"`
}

type vnTitle struct {
	Lang     string `json:"lang"`
	Title    string `json:"title"`
	Main     bool   `json:"main"`
	Official bool   `json:"official"`
}

type vnItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	AltTitle    string    `json:"alttitle"`
	Titles      []vnTitle `json:"titles"`
	Aliases     []string  `json:"aliases"`
	Description string    `json:"description"`
	Released    string    `json:"released"`
	Image       *struct {
		URL string `json:"url"`
	} `json:"image"`
	Developers []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Original string `json:"original"`
	} `json:"developers"`
	Extlinks []extlink `json:"extlinks"`
}

type releaseItem struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Extlinks []extlink `json:"extlinks"`
}

func (c *Client) post(ctx context.Context, endpoint string, q query, v any) error {
	b, err := provider.PostBytes(ctx, c.HTTP, c.baseURL()+endpoint, nil, q)
	if err != nil {
		return provider.Wrap(name, provider.StageFetch, err)
	}
	return provider.Wrap(name, provider.StageParse, provider.DecodeJSON(b, v))
}

// FetchVN 取 VN 详情；条目不存在时返回 (nil, nil)。
func (c *Client) FetchVN(ctx context.Context, id domain.VNDBID) (*domain.VNDBRecord, error) {
	if id == "" {
		return nil, provider.Wrap(name, provider.StageFetch, errors.New("vndb id 不能为空"))
	}
	var resp response[vnItem]
	q := query{Filters: []any{"id", "=", string(id)}, Fields: vnFields}
	if err := c.post(ctx, "/vn", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return toRecord(resp.Results[0]), nil
}

// FetchReleases 取 VN 下的发行版本（只取派生标识需要的链接）。
func (c *Client) FetchReleases(ctx context.Context, id domain.VNDBID) ([]domain.VNDBRelease, error) {
	if id == "" {
		return nil, provider.Wrap(name, provider.StageFetch, errors.New("vndb id 不能为空"))
	}
	var resp response[releaseItem]
	q := query{
		Filters: []any{"vn", "=", []any{"id", "=", string(id)}},
		Fields:  releaseFields,
		Results: maxReleases,
		Sort:    "released",
	}
	if err := c.post(ctx, "/release", q, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.VNDBRelease, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, domain.VNDBRelease{ID: r.ID, Title: r.Title, Links: toLinks(r.Extlinks)})
	}
	return out, nil
}

// Search 按标题搜索 VN。VNDB 只收录视觉小说，因此所有候选都是目标类别。
func (c *Client) Search(ctx context.Context, keyword string) ([]domain.Candidate, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []domain.Candidate{}, nil
	}
	var resp response[vnItem]
	q := query{Filters: []any{"search", "=", keyword}, Fields: searchFields, Results: maxSearch, Sort: "searchrank"}
	if err := c.post(ctx, "/vn", q, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Candidate, 0, len(resp.Results))
	for _, it := range resp.Results {
		out = append(out, domain.Candidate{ID: it.ID, Title: it.Title, AltTitle: it.AltTitle, IsTarget: true})
	}
	return out, nil
}

func toRecord(it vnItem) *domain.VNDBRecord {
	r := &domain.VNDBRecord{
		ID:          it.ID,
		Title:       strings.TrimSpace(it.Title),
		AltTitle:    strings.TrimSpace(it.AltTitle),
		Aliases:     splitAliases(it.Aliases),
		Description: it.Description,
		Released:    strings.TrimSpace(it.Released),
		Links:       toLinks(it.Extlinks),
	}
	r.LocalizedTitle = pickTitle(it.Titles, "zh-Hans")
	r.AltLocalizedTitle = pickTitle(it.Titles, "zh-Hant")
	if it.Image != nil {
		r.ImageURL = strings.TrimSpace(it.Image.URL)
	}
	for _, d := range it.Developers {
		r.Developers = append(r.Developers, domain.Developer{
			ID:       d.ID,
			Name:     strings.TrimSpace(d.Name),
			Original: strings.TrimSpace(d.Original),
		})
	}
	return r
}

// pickTitle 取指定语言的标题：优先官方标题，其次第一个非空标题。
func pickTitle(titles []vnTitle, lang string) string {
	fallback := ""
	for _, t := range titles {
		if !strings.EqualFold(t.Lang, lang) {
			continue
		}
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		if t.Official {
			return title
		}
		if fallback == "" {
			fallback = title
		}
	}
	return fallback
}

// splitAliases 兼容旧接口的换行分隔别名。
func splitAliases(in []string) []string {
	var out []string
	for _, a := range in {
		for _, part := range strings.Split(a, "\n") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return provider.NormList(out)
}

func toLinks(in []extlink) []domain.ExtLink {
	out := make([]domain.ExtLink, 0, len(in))
	for _, l := range in {
		out = append(out, domain.ExtLink{URL: strings.TrimSpace(l.URL), Label: strings.TrimSpace(l.Label), Name: strings.TrimSpace(l.Name)})
	}
	return out
}
