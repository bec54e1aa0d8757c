// Package steam 实现平台分发来源（Steam appdetails，单次请求一种语言）。
package steam

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/provider"
)

const (
	name           = "steam"
	defaultBaseURL = "https://store.steampowered.com"

	LangSChinese = "schinese"
	LangEnglish  = "english"
)

// Client 是 Steam 适配器。
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

type appDetails struct {
	Success bool `json:"success"`
	Data    *struct {
		Name             string `json:"name"`
		ShortDescription string `json:"short_description"`
		Website          string `json:"website"`
		HeaderImage      string `json:"header_image"`
		ReleaseDate      struct {
			ComingSoon bool   `json:"coming_soon"`
			Date       string `json:"date"`
		} `json:"release_date"`
		Screenshots []struct {
			PathFull string `json:"path_full"`
		} `json:"screenshots"`
	} `json:"data"`
}

// FetchApp 取单语言的 app 详情；success=false（不存在/地区不可见）时返回 (nil, nil)。
func (c *Client) FetchApp(ctx context.Context, appID, lang string) (*domain.SteamRecord, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, provider.Wrap(name, provider.StageFetch, errors.New("app id 不能为空"))
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = LangEnglish
	}

	q := url.Values{}
	q.Set("appids", appID)
	q.Set("l", lang)
	b, err := provider.GetBytes(ctx, c.HTTP, c.baseURL()+"/api/appdetails?"+q.Encode(), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, provider.Wrap(name, provider.StageFetch, err)
	}

	var resp map[string]appDetails
	if err := provider.DecodeJSON(b, &resp); err != nil {
		return nil, provider.Wrap(name, provider.StageParse, err)
	}
	d, ok := resp[appID]
	if !ok || !d.Success || d.Data == nil {
		return nil, nil
	}

	r := &domain.SteamRecord{
		AppID:            appID,
		Lang:             lang,
		Name:             strings.TrimSpace(d.Data.Name),
		ShortDescription: strings.TrimSpace(d.Data.ShortDescription),
		Website:          strings.TrimSpace(d.Data.Website),
		HeaderImage:      strings.TrimSpace(d.Data.HeaderImage),
	}
	if !d.Data.ReleaseDate.ComingSoon {
		r.Released = strings.TrimSpace(d.Data.ReleaseDate.Date)
	}
	for _, s := range d.Data.Screenshots {
		if u := strings.TrimSpace(s.PathFull); u != "" {
			r.Screenshots = append(r.Screenshots, u)
		}
	}
	return r, nil
}
