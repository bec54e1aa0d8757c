package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是未指定 --config 时在 cwd 下查找的配置文件名（可选）。
	FileName = "vnmeta.toml"

	DefaultHTTPTimeout     = 20 * time.Second
	DefaultProviderTimeout = 15 * time.Second
	DefaultCacheTTL        = 24 * time.Hour
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultBind            = "127.0.0.1:8080"

	DefaultVNDBBaseURL    = "https://api.vndb.org/kana"
	DefaultDLsiteBaseURL  = "https://www.dlsite.com"
	DefaultBangumiBaseURL = "https://api.bgm.tv"
	DefaultSteamBaseURL   = "https://store.steampowered.com"
)

// DefaultConcurrency 是 batch 的并发默认值；范围 [1, MaxConcurrency]，超出截断。
const (
	DefaultConcurrency = 4
	MaxConcurrency     = 32
)

// CLIArgs 是 CLI 能覆盖的配置项，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --proxy="" 必须能覆盖配置文件中的代理。
type CLIArgs struct {
	ConfigPath string

	ProxyURL string
	ProxySet bool

	Bind    string
	BindSet bool

	Concurrency    int
	ConcurrencySet bool

	Verbose bool
	NoCache bool
}

// FileConfig 对应 vnmeta.toml 的解析结构。
type FileConfig struct {
	HTTP      HTTPSection     `toml:"http"`
	Providers ProviderSection `toml:"providers"`
	Timeouts  TimeoutSection  `toml:"timeouts"`
	Cache     CacheSection    `toml:"cache"`
	Log       LogSection      `toml:"log"`
	Server    ServerSection   `toml:"server"`
	Batch     BatchSection    `toml:"batch"`
}

type HTTPSection struct {
	ProxyURL       string `toml:"proxy_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ProviderSection struct {
	VNDBBaseURL      string `toml:"vndb_base_url"`
	DLsiteBaseURL    string `toml:"dlsite_base_url"`
	BangumiBaseURL   string `toml:"bangumi_base_url"`
	BangumiToken     string `toml:"bangumi_token"`
	SteamBaseURL     string `toml:"steam_base_url"`
	CommunityBaseURL string `toml:"community_base_url"`
}

// TimeoutSection 的单位是秒；0 表示使用默认值。
type TimeoutSection struct {
	VNDB      int `toml:"vndb"`
	DLsite    int `toml:"dlsite"`
	Steam     int `toml:"steam"`
	Bangumi   int `toml:"bangumi"`
	Community int `toml:"community"`
}

type CacheSection struct {
	Path     string `toml:"path"`
	TTLHours int    `toml:"ttl_hours"`
}

type LogSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerSection struct {
	Bind string `toml:"bind"`
}

type BatchSection struct {
	Concurrency int `toml:"concurrency"`
}

// Timeouts 是各来源单次调用的超时（已填默认值）。
type Timeouts struct {
	VNDB      time.Duration
	DLsite    time.Duration
	Steam     time.Duration
	Bangumi   time.Duration
	Community time.Duration
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	ProxyURL    string
	HTTPTimeout time.Duration

	VNDBBaseURL      string
	DLsiteBaseURL    string
	BangumiBaseURL   string
	BangumiToken     string
	SteamBaseURL     string
	CommunityBaseURL string

	Timeouts Timeouts

	// CachePath 为空表示不启用响应缓存。
	CachePath string
	CacheTTL  time.Duration

	LogLevel  string
	LogFormat string

	Bind string

	Concurrency int
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，否则 config_not_found
// 2) 否则尝试 <cwd>/vnmeta.toml（可选，不存在时全部使用默认值）
//
// 覆盖优先级（固定）：
// - proxy / bind / concurrency：CLI > config > 默认
// - log level：--verbose 强制 debug > config > 默认 info
// - --no-cache 关闭缓存，无论配置如何
// - 其他字段：仅由 config 控制
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	eff, err := merge(cli, fc, cwdAbs, cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return eff, nil
}

func merge(cli CLIArgs, fc FileConfig, cwdAbs, cfgPath string) (EffectiveConfig, error) {
	eff := EffectiveConfig{ConfigPath: cfgPath}

	// proxy：CLI > config
	eff.ProxyURL = strings.TrimSpace(fc.HTTP.ProxyURL)
	if cli.ProxySet {
		eff.ProxyURL = strings.TrimSpace(cli.ProxyURL)
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("http.proxy_url 无效：%q", eff.ProxyURL)
		}
	}

	var err error
	if eff.HTTPTimeout, err = seconds("http.timeout_seconds", fc.HTTP.TimeoutSeconds, DefaultHTTPTimeout); err != nil {
		return EffectiveConfig{}, err
	}

	bases := []struct {
		key  string
		raw  string
		def  string
		dest *string
	}{
		{"providers.vndb_base_url", fc.Providers.VNDBBaseURL, DefaultVNDBBaseURL, &eff.VNDBBaseURL},
		{"providers.dlsite_base_url", fc.Providers.DLsiteBaseURL, DefaultDLsiteBaseURL, &eff.DLsiteBaseURL},
		{"providers.bangumi_base_url", fc.Providers.BangumiBaseURL, DefaultBangumiBaseURL, &eff.BangumiBaseURL},
		{"providers.steam_base_url", fc.Providers.SteamBaseURL, DefaultSteamBaseURL, &eff.SteamBaseURL},
		// 社区站没有默认域名：未配置时只使用调用方给出的详情页 URL，不做搜索。
		{"providers.community_base_url", fc.Providers.CommunityBaseURL, "", &eff.CommunityBaseURL},
	}
	for _, b := range bases {
		v, err := baseURL(b.key, b.raw, b.def)
		if err != nil {
			return EffectiveConfig{}, err
		}
		*b.dest = v
	}
	eff.BangumiToken = strings.TrimSpace(fc.Providers.BangumiToken)

	timeouts := []struct {
		key  string
		raw  int
		dest *time.Duration
	}{
		{"timeouts.vndb", fc.Timeouts.VNDB, &eff.Timeouts.VNDB},
		{"timeouts.dlsite", fc.Timeouts.DLsite, &eff.Timeouts.DLsite},
		{"timeouts.steam", fc.Timeouts.Steam, &eff.Timeouts.Steam},
		{"timeouts.bangumi", fc.Timeouts.Bangumi, &eff.Timeouts.Bangumi},
		{"timeouts.community", fc.Timeouts.Community, &eff.Timeouts.Community},
	}
	for _, t := range timeouts {
		d, err := seconds(t.key, t.raw, DefaultProviderTimeout)
		if err != nil {
			return EffectiveConfig{}, err
		}
		*t.dest = d
	}

	// 相对的缓存路径以配置文件所在目录为基准（没有配置文件时以 cwd 为基准）。
	if p := strings.TrimSpace(fc.Cache.Path); p != "" && !cli.NoCache {
		base := cwdAbs
		if cfgPath != "" {
			base = filepath.Dir(cfgPath)
		}
		eff.CachePath = absCleanFrom(base, p)
	}
	switch {
	case fc.Cache.TTLHours < 0:
		return EffectiveConfig{}, fmt.Errorf("cache.ttl_hours 不能为负数：%d", fc.Cache.TTLHours)
	case fc.Cache.TTLHours == 0:
		eff.CacheTTL = DefaultCacheTTL
	default:
		eff.CacheTTL = time.Duration(fc.Cache.TTLHours) * time.Hour
	}

	// log level：--verbose > config > 默认
	eff.LogLevel = strings.ToLower(strings.TrimSpace(fc.Log.Level))
	if eff.LogLevel == "" {
		eff.LogLevel = DefaultLogLevel
	}
	if cli.Verbose {
		eff.LogLevel = zerolog.DebugLevel.String()
	}
	if _, err := zerolog.ParseLevel(eff.LogLevel); err != nil {
		return EffectiveConfig{}, fmt.Errorf("log.level 无效：%q", eff.LogLevel)
	}
	eff.LogFormat = strings.ToLower(strings.TrimSpace(fc.Log.Format))
	switch eff.LogFormat {
	case "":
		eff.LogFormat = DefaultLogFormat
	case "console", "json":
	default:
		return EffectiveConfig{}, fmt.Errorf("log.format 只能是 console 或 json，实际是 %q", eff.LogFormat)
	}

	// bind：CLI > config > 默认
	eff.Bind = strings.TrimSpace(fc.Server.Bind)
	if cli.BindSet {
		eff.Bind = strings.TrimSpace(cli.Bind)
	}
	if eff.Bind == "" {
		eff.Bind = DefaultBind
	}

	// concurrency：CLI > config > 默认；超出范围截断
	eff.Concurrency = fc.Batch.Concurrency
	if cli.ConcurrencySet {
		eff.Concurrency = cli.Concurrency
	}
	if eff.Concurrency == 0 {
		eff.Concurrency = DefaultConcurrency
	}
	eff.Concurrency = max(1, min(eff.Concurrency, MaxConcurrency))

	return eff, nil
}

func seconds(key string, v int, def time.Duration) (time.Duration, error) {
	switch {
	case v < 0:
		return 0, fmt.Errorf("%s 不能为负数：%d", key, v)
	case v == 0:
		return def, nil
	default:
		return time.Duration(v) * time.Second, nil
	}
}

func baseURL(key, raw, def string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return def, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s 无效：%q", key, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s 必须是 http/https：%q", key, raw)
	}
	return raw, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件；未知字段视为错误（拼错的键不应被静默忽略）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
