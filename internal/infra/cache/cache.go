// Package cache 提供按 key（通常是 "GET <url>"）缓存响应体的存储：SQLite 持久层 + 进程内 LRU 前置。
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

const defaultMemEntries = 256

// ErrReadOnly 表示只读模式下尝试写入。
var ErrReadOnly = errors.New("cache: read-only")

// Options 控制缓存行为。
type Options struct {
	// TTL<=0 表示永不过期。
	TTL time.Duration
	// ReadOnly=true 时只读取已有条目，Put 返回 ErrReadOnly。
	ReadOnly bool
	// MemEntries 是内存 LRU 的容量；<=0 时使用默认值。
	MemEntries int
}

type entry struct {
	body     []byte
	storedAt time.Time
}

// Store 是线程安全的响应缓存（database/sql 与 lru.Cache 均可并发使用）。
//
// 约束：
// - 过期条目视为未命中（读时判断，不在读路径上删除）
// - 写入是 upsert：同 key 覆盖
type Store struct {
	db   *sql.DB
	mem  *lru.Cache[string, entry]
	path string
	opts Options

	now func() time.Time
}

// Open 打开（必要时创建）path 处的 SQLite 缓存库。
func Open(path string, opts Options) (*Store, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if path == "" || path == "." {
		return nil, fmt.Errorf("cache path 不能为空")
	}
	if !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("创建缓存目录失败：%w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		key       TEXT PRIMARY KEY,
		body      BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	n := opts.MemEntries
	if n <= 0 {
		n = defaultMemEntries
	}
	mem, err := lru.New[string, entry](n)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, mem: mem, path: path, opts: opts, now: time.Now}, nil
}

func (s *Store) Path() string { return s.path }

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) expired(storedAt time.Time) bool {
	return s.opts.TTL > 0 && s.now().Sub(storedAt) > s.opts.TTL
}

// Get 读取 key；未命中或已过期时 ok=false。
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if e, ok := s.mem.Get(key); ok {
		if !s.expired(e.storedAt) {
			return e.body, true, nil
		}
		s.mem.Remove(key)
	}

	var (
		body     []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT body, stored_at FROM responses WHERE key = ?`, key).Scan(&body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取缓存失败：%w", err)
	}
	e := entry{body: body, storedAt: time.Unix(0, storedAt)}
	if s.expired(e.storedAt) {
		return nil, false, nil
	}
	s.mem.Add(key, e)
	return body, true, nil
}

// Put 写入（覆盖）key。
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	if s.opts.ReadOnly {
		return ErrReadOnly
	}
	e := entry{body: append([]byte(nil), body...), storedAt: s.now()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (key, body, stored_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, stored_at = excluded.stored_at`,
		key, e.body, e.storedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("写入缓存失败：%w", err)
	}
	s.mem.Add(key, e)
	return nil
}

// Prune 删除已过期条目，返回删除数量。TTL<=0 或只读时不做任何事。
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.opts.ReadOnly || s.opts.TTL <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.opts.TTL).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE stored_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("清理缓存失败：%w", err)
	}
	s.mem.Purge()
	return res.RowsAffected()
}
