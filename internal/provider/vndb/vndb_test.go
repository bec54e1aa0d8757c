package vndb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/vnmeta/internal/provider"
)

const vnJSON = `{"results":[{
  "id":"v17",
  "title":"Sakura no Uta",
  "alttitle":"サクラノ詩",
  "titles":[
    {"lang":"ja","title":"サクラノ詩","main":true,"official":true},
    {"lang":"zh-Hans","title":"樱之诗（非官方）","official":false},
    {"lang":"zh-Hans","title":"樱之诗","official":true},
    {"lang":"zh-Hant","title":"櫻之詩","official":true}
  ],
  "aliases":["SakuUta\nサクラノうた","SakuUta"],
  "description":"[b]desc[/b]",
  "released":"2015-10-23",
  "image":{"url":"https://t.vndb.org/cv/1.jpg"},
  "developers":[{"id":"p1","name":"Makura","original":"枕"}],
  "extlinks":[{"url":"https://www.dlsite.com/pro/work/=/product_id/VJ000001.html","label":"DLsite","name":"dlsite"}]
}],"more":false}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q struct {
			Filters []any  `json:"filters"`
			Fields  string `json:"fields"`
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/vn":
			if len(q.Filters) == 3 && q.Filters[0] == "id" && q.Filters[2] == "v17" {
				_, _ = w.Write([]byte(vnJSON))
				return
			}
			if len(q.Filters) == 3 && q.Filters[0] == "search" {
				_, _ = w.Write([]byte(`{"results":[{"id":"v17","title":"Sakura no Uta","alttitle":"サクラノ詩"}]}`))
				return
			}
			if len(q.Filters) == 3 && q.Filters[2] == "v500" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"results":[],"more":false}`))
		case "/release":
			_, _ = w.Write([]byte(`{"results":[
				{"id":"r1","title":"Sakura no Uta","extlinks":[{"url":"https://sakuranouta.example/","label":"Official website","name":"website"}]},
				{"id":"r2","title":"Sakura no Uta (Steam)","extlinks":[{"url":"https://store.steampowered.com/app/1144400/","label":"Steam","name":"steam"}]}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetchVN_MapsRecord(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := New(srv.Client(), srv.URL)

	r, err := c.FetchVN(context.Background(), "v17")
	if err != nil || r == nil {
		t.Fatalf("FetchVN 失败：r=%v err=%v", r, err)
	}
	if r.ID != "v17" || r.Title != "Sakura no Uta" || r.AltTitle != "サクラノ詩" {
		t.Fatalf("基础字段不符合预期：%+v", r)
	}
	if r.LocalizedTitle != "樱之诗" || r.AltLocalizedTitle != "櫻之詩" {
		t.Fatalf("应优先官方中文标题：%q / %q", r.LocalizedTitle, r.AltLocalizedTitle)
	}
	if len(r.Aliases) != 2 || r.Aliases[0] != "SakuUta" || r.Aliases[1] != "サクラノうた" {
		t.Fatalf("别名应按换行拆分并去重：%v", r.Aliases)
	}
	if r.ImageURL != "https://t.vndb.org/cv/1.jpg" || len(r.Developers) != 1 || r.Developers[0].Original != "枕" {
		t.Fatalf("图片/开发商不符合预期：%+v", r)
	}
	if len(r.Links) != 1 || r.Links[0].Label != "DLsite" {
		t.Fatalf("extlinks 不符合预期：%+v", r.Links)
	}
}

func TestFetchVN_NotFoundIsAbsent(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	r, err := New(srv.Client(), srv.URL).FetchVN(context.Background(), "v999")
	if err != nil || r != nil {
		t.Fatalf("不存在的条目应返回 (nil, nil)：r=%v err=%v", r, err)
	}
}

func TestFetchVN_ServerErrorIsProviderError(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	_, err := New(srv.Client(), srv.URL).FetchVN(context.Background(), "v500")
	var pe *provider.Error
	var he *provider.HTTPStatusError
	if !errors.As(err, &pe) || pe.Provider != "vndb" || pe.Stage != provider.StageFetch || !errors.As(err, &he) {
		t.Fatalf("期望 fetch 阶段的 provider.Error，实际 %v", err)
	}
}

func TestFetchReleases(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	rs, err := New(srv.Client(), srv.URL).FetchReleases(context.Background(), "v17")
	if err != nil {
		t.Fatalf("FetchReleases 失败：%v", err)
	}
	if len(rs) != 2 || rs[1].Links[0].URL != "https://store.steampowered.com/app/1144400/" {
		t.Fatalf("releases 不符合预期：%+v", rs)
	}
}

func TestSearch(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	cands, err := New(srv.Client(), srv.URL).Search(context.Background(), "sakura")
	if err != nil {
		t.Fatalf("Search 失败：%v", err)
	}
	if len(cands) != 1 || cands[0].ID != "v17" || !cands[0].IsTarget {
		t.Fatalf("候选不符合预期：%+v", cands)
	}
}
