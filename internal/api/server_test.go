package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/vnmeta/internal/domain"
)

type stubReconciler struct {
	mu    sync.Mutex
	seeds []domain.Seed
}

func (s *stubReconciler) Fetch(ctx context.Context, seed domain.Seed) domain.CanonicalMetadata {
	s.mu.Lock()
	s.seeds = append(s.seeds, seed)
	s.mu.Unlock()
	m := domain.EmptyMetadata()
	m.Name = "Ever17"
	return m
}

func (s *stubReconciler) FetchReport(ctx context.Context, seed domain.Seed) domain.FetchReport {
	rep := domain.FetchReport{RequestID: "req-1", Seed: seed, Metadata: s.Fetch(ctx, seed)}
	rep.Finalize()
	return rep
}

func TestMetadata_OK(t *testing.T) {
	rec := &stubReconciler{}
	srv := httptest.NewServer(New(rec, zerolog.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/metadata?vndb=17&code=rj01")
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", resp.StatusCode)
	}
	var m domain.CanonicalMetadata
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("解析响应失败：%v", err)
	}
	if m.Name != "Ever17" {
		t.Fatalf("期望 name=Ever17，实际 %q", m.Name)
	}
	if len(rec.seeds) != 1 || rec.seeds[0].VNDBID != "v17" || rec.seeds[0].DLsiteCode != "RJ01" {
		t.Fatalf("期望传入规范化后的 Seed，实际 %+v", rec.seeds)
	}
}

func TestMetadata_EmptySeedIs400(t *testing.T) {
	rec := &stubReconciler{}
	srv := httptest.NewServer(New(rec, zerolog.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/metadata?vndb=abc")
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("期望 400，实际 %d", resp.StatusCode)
	}
	var body ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("解析响应失败：%v", err)
	}
	if body.ErrorCode != ErrCodeInvalidSeed {
		t.Fatalf("期望 error_code=%s，实际 %q", ErrCodeInvalidSeed, body.ErrorCode)
	}
	if len(rec.seeds) != 0 {
		t.Fatalf("空 Seed 不应调用引擎")
	}
}

func TestMetadata_MethodNotAllowed(t *testing.T) {
	s := New(&stubReconciler{}, zerolog.Nop())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/metadata?vndb=1", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("期望 405，实际 %d", w.Code)
	}
	if w.Header().Get("Allow") != http.MethodGet {
		t.Fatalf("期望 Allow: GET，实际 %q", w.Header().Get("Allow"))
	}
}

func TestReportAndHealth(t *testing.T) {
	s := New(&stubReconciler{}, zerolog.Nop())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report?url=https://community.test/vn/1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	var rep domain.FetchReport
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("解析报告失败：%v", err)
	}
	if rep.RequestID != "req-1" || rep.Seed.CommunityURL != "https://community.test/vn/1" {
		t.Fatalf("报告内容不正确：%+v", rep)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 /healthz 200，实际 %d", w.Code)
	}
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("监听失败：%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(&stubReconciler{}, zerolog.Nop()).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("期望优雅关闭无错误，实际 %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("ctx 取消后 Serve 未返回")
	}
}
