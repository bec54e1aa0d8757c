// Package logging 构造进程内唯一的 zerolog.Logger。
//
// 约束：
// - 日志只写 stderr（或调用方给的 Writer），stdout 留给 JSON 输出
// - 环境变量优先于配置：VNMETA_LOG_LEVEL / VNMETA_LOG_NOCOLOR
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "VNMETA_LOG_LEVEL"
	EnvLogNoColor = "VNMETA_LOG_NOCOLOR"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Options struct {
	Level  string
	Format string
	// Writer 为空时使用 os.Stderr。
	Writer io.Writer
	// Getenv 为空时使用 os.Getenv（测试注入用）。
	Getenv func(string) string
}

// New 返回配置好的 Logger。非法级别回退为 info，不报错。
func New(opts Options) zerolog.Logger {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(opts.Level)
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		level = ParseLevel(v)
	}

	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatJSON) {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}

	noColor := !isTerminal(out)
	if v, err := strconv.ParseBool(strings.TrimSpace(getenv(EnvLogNoColor))); err == nil {
		noColor = v
	}
	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// ParseLevel 接受 zerolog 的级别名（大小写不敏感）；空串或非法值返回 info。
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
