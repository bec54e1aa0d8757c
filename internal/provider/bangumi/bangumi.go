// Package bangumi 实现评分/收录站 Bangumi（先搜索候选，再按 subject id 取详情）。
package bangumi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/provider"
)

const (
	name           = "bangumi"
	defaultBaseURL = "https://api.bgm.tv"
	userAgent      = "John-Robertt/vnmeta (https://github.com/John-Robertt/vnmeta)"

	// subjectTypeGame 是 Bangumi 的“游戏”条目类型。
	subjectTypeGame = 4
)

// Client 是 Bangumi 适配器。Token 可选（用于访问需要登录的条目）。
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(c *http.Client, baseURL, token string) *Client {
	return &Client{BaseURL: baseURL, Token: token, HTTP: c}
}

func (*Client) Name() string { return name }

func (c *Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", userAgent)
	if t := strings.TrimSpace(c.Token); t != "" {
		h.Set("Authorization", "Bearer "+t)
	}
	return h
}

type searchResponse struct {
	List []struct {
		ID     int    `json:"id"`
		Type   int    `json:"type"`
		Name   string `json:"name"`
		NameCN string `json:"name_cn"`
	} `json:"list"`
}

// Search 搜索游戏条目。Title 为原名，AltTitle 为中文名。
func (c *Client) Search(ctx context.Context, keyword string) ([]domain.Candidate, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []domain.Candidate{}, nil
	}
	u := c.baseURL() + "/search/subject/" + url.PathEscape(keyword) + "?type=" + strconv.Itoa(subjectTypeGame) + "&responseGroup=small&max_results=25"
	b, err := provider.GetBytes(ctx, c.HTTP, u, c.header())
	if err != nil {
		if provider.IsNotFound(err) {
			return []domain.Candidate{}, nil
		}
		return nil, provider.Wrap(name, provider.StageSearch, err)
	}
	var resp searchResponse
	if err := provider.DecodeJSON(b, &resp); err != nil {
		return nil, provider.Wrap(name, provider.StageParse, err)
	}
	out := make([]domain.Candidate, 0, len(resp.List))
	for _, it := range resp.List {
		out = append(out, domain.Candidate{
			ID:       strconv.Itoa(it.ID),
			Title:    strings.TrimSpace(it.Name),
			AltTitle: strings.TrimSpace(it.NameCN),
			IsTarget: it.Type == subjectTypeGame,
		})
	}
	return out, nil
}

type subjectResponse struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	NameCN  string `json:"name_cn"`
	Summary string `json:"summary"`
	Date    string `json:"date"`
	Images  *struct {
		Large  string `json:"large"`
		Common string `json:"common"`
	} `json:"images"`
	Tags []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	} `json:"tags"`
}

// FetchSubject 取条目详情；不存在时返回 (nil, nil)。
func (c *Client) FetchSubject(ctx context.Context, id string) (*domain.BangumiRecord, error) {
	id = strings.TrimSpace(id)
	if _, err := strconv.Atoi(id); err != nil {
		return nil, provider.Wrap(name, provider.StageFetch, errors.New("非法 subject id："+strconv.Quote(id)))
	}
	b, err := provider.GetBytes(ctx, c.HTTP, c.baseURL()+"/v0/subjects/"+id, c.header())
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, provider.Wrap(name, provider.StageFetch, err)
	}
	var s subjectResponse
	if err := provider.DecodeJSON(b, &s); err != nil {
		return nil, provider.Wrap(name, provider.StageParse, err)
	}

	r := &domain.BangumiRecord{
		ID:      strconv.Itoa(s.ID),
		Name:    strings.TrimSpace(s.Name),
		NameCN:  strings.TrimSpace(s.NameCN),
		Summary: strings.TrimSpace(s.Summary),
		Date:    strings.TrimSpace(s.Date),
	}
	if s.Images != nil {
		r.ImageURL = strings.TrimSpace(s.Images.Large)
		if r.ImageURL == "" {
			r.ImageURL = strings.TrimSpace(s.Images.Common)
		}
	}
	for _, t := range s.Tags {
		if n := strings.TrimSpace(t.Name); n != "" {
			r.Tags = append(r.Tags, domain.WeightedTag{Name: n, Count: t.Count})
		}
	}
	return r, nil
}
