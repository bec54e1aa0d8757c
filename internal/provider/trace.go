package provider

import (
	"fmt"
	"time"
)

const (
	StageFetch  = "fetch"
	StageParse  = "parse"
	StageSearch = "search"
	StageOK     = "ok"
	// StageAbsent 表示来源正常返回但没有找到对应条目。
	StageAbsent = "absent"
	// StageSkipped 表示缺少前置标识，本次没有调用该来源。
	StageSkipped = "skipped"
)

// Attempt 记录一次来源调用（用于解释某个字段为什么缺失）。
// 注意：这是内部执行轨迹，由上层决定如何呈现（日志 / report.sources）。
type Attempt struct {
	Provider string // 来源名（小写，见 domain.Source*）
	Stage    string
	Err      error // Stage 为 ok/absent/skipped 时为 nil
	Duration time.Duration
}

// Error 是来源阶段的可追溯错误。
// 上层据此把失败归类为 fetch/parse，并写入日志与 report。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" / "parse" / "search"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap 在 err 非空时包装为 *Error；已是 *Error 的错误原样返回。
func Wrap(name, stage string, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*Error); ok {
		return pe
	}
	return &Error{Provider: name, Stage: stage, Err: err}
}
