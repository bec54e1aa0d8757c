package steam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/vnmeta/internal/provider"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/appdetails" {
			http.NotFound(w, r)
			return
		}
		id := r.URL.Query().Get("appids")
		lang := r.URL.Query().Get("l")
		switch id {
		case "1144400":
			desc := "A story about art."
			if lang == LangSChinese {
				desc = "关于艺术的故事。"
			}
			_, _ = w.Write([]byte(`{"1144400":{"success":true,"data":{
				"name":"Sakura no Uta","short_description":"` + desc + `",
				"website":"https://sakuranouta.example/","header_image":"https://cdn/header.jpg",
				"release_date":{"coming_soon":false,"date":"22 Mar, 2023"},
				"screenshots":[{"path_full":"https://cdn/ss1.jpg"},{"path_full":""}]}}}`))
		case "2":
			_, _ = w.Write([]byte(`{"2":{"success":false}}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
}

func TestFetchApp_PerLanguage(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := New(srv.Client(), srv.URL)

	zh, err := c.FetchApp(context.Background(), "1144400", LangSChinese)
	if err != nil || zh == nil {
		t.Fatalf("FetchApp 失败：r=%v err=%v", zh, err)
	}
	if zh.ShortDescription != "关于艺术的故事。" || zh.Lang != LangSChinese {
		t.Fatalf("中文结果不符合预期：%+v", zh)
	}

	en, err := c.FetchApp(context.Background(), "1144400", LangEnglish)
	if err != nil || en == nil {
		t.Fatalf("FetchApp 失败：r=%v err=%v", en, err)
	}
	if en.ShortDescription != "A story about art." || en.Released != "22 Mar, 2023" {
		t.Fatalf("英文结果不符合预期：%+v", en)
	}
	if len(en.Screenshots) != 1 || en.Website != "https://sakuranouta.example/" {
		t.Fatalf("截图/官网不符合预期：%+v", en)
	}
}

func TestFetchApp_UnsuccessfulIsAbsent(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	r, err := New(srv.Client(), srv.URL).FetchApp(context.Background(), "2", LangEnglish)
	if err != nil || r != nil {
		t.Fatalf("success=false 应返回 (nil, nil)：r=%v err=%v", r, err)
	}
}

func TestFetchApp_HTTPErrorWrapped(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	_, err := New(srv.Client(), srv.URL).FetchApp(context.Background(), "3", LangEnglish)
	var he *provider.HTTPStatusError
	if !errors.As(err, &he) || he.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("期望 429 HTTPStatusError，实际 %v", err)
	}
}
