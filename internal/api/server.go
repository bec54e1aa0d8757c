// Package api 把聚合引擎暴露为只读 HTTP JSON 接口。
//
// 约束：
// - 只有边界层拒绝空 Seed（400 invalid_seed）；引擎本身永远返回记录
// - 仅支持 GET；其它方法 405
// - 每个请求一条访问日志（method/path/status/duration）
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/vnmeta/internal/domain"
)

const (
	ErrCodeInvalidSeed      = "invalid_seed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// Reconciler 是 API 依赖的聚合能力（*reconcile.Engine 满足该接口）。
type Reconciler interface {
	Fetch(ctx context.Context, seed domain.Seed) domain.CanonicalMetadata
	FetchReport(ctx context.Context, seed domain.Seed) domain.FetchReport
}

// ErrorBody 是非 2xx 响应的 JSON 结构。
type ErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type Server struct {
	rec Reconciler
	log zerolog.Logger
	mux *http.ServeMux
}

func New(rec Reconciler, log zerolog.Logger) *Server {
	s := &Server{
		rec: rec,
		log: log.With().Str("component", "api").Logger(),
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/metadata", s.handleMetadata)
	s.mux.HandleFunc("/api/report", s.handleReport)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// Handler 返回带访问日志的根 handler。
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rw, r)

		ev := s.log.Info()
		switch {
		case rw.status >= 500:
			ev = s.log.Error()
		case rw.status >= 400:
			ev = s.log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Dur("duration", time.Since(started)).
			Msg("http_request")
	})
}

// ListenAndServe 监听 bind 直到 ctx 结束，然后优雅关闭。
func (s *Server) ListenAndServe(ctx context.Context, bind string) error {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api 监听失败：%w", err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info().Str("address", ln.Addr().String()).Msg("api 已监听")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api 关闭失败：%w", err)
		}
		return nil
	}
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	seed, ok := s.seedFrom(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.rec.Fetch(r.Context(), seed))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	seed, ok := s.seedFrom(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.rec.FetchReport(r.Context(), seed))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "只支持 GET")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// seedFrom 解析查询参数；失败时已写出错误响应。
func (s *Server) seedFrom(w http.ResponseWriter, r *http.Request) (domain.Seed, bool) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "只支持 GET")
		return domain.Seed{}, false
	}
	q := r.URL.Query()
	seed := domain.Seed{
		VNDBID:       q.Get("vndb"),
		DLsiteCode:   q.Get("code"),
		CommunityURL: q.Get("url"),
	}
	if err := seed.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrCodeInvalidSeed, err.Error())
		return domain.Seed{}, false
	}
	return seed.Normalize(), true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("写出响应失败")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	s.writeJSON(w, status, ErrorBody{ErrorCode: code, Message: msg})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
