// Package fsx 提供输出文件（fetch --out 的报告）的原子写入。
package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// WriteOptions 控制写入语义。
type WriteOptions struct {
	// NoClobber=true 时目标已存在则返回 os.ErrExist。
	NoClobber bool
	// Perm 为 0 时使用 0o644。
	Perm os.FileMode
}

// WriteFile 原子写入 path（同目录临时文件 + rename）。
//
// 约束：
// - 临时文件必须与目标文件在同目录，以保证 rename 的原子性
// - 目标是目录或非常规文件时返回 *PathTypeConflictError
// - 对临时文件做 Sync；目录 Sync 为 best-effort
// - 任何失败都不会留下临时文件
func WriteFile(path string, data []byte, opts WriteOptions) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("输出路径不能为空")
	}
	path = filepath.Clean(path)

	if fi, err := os.Lstat(path); err == nil {
		if fi.IsDir() {
			return &PathTypeConflictError{Path: path, Want: "file", Got: "dir"}
		}
		if !fi.Mode().IsRegular() {
			return &PathTypeConflictError{Path: path, Want: "regular file", Got: fi.Mode().Type().String()}
		}
		if opts.NoClobber {
			return fmt.Errorf("%s: %w", path, os.ErrExist)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	perm := opts.Perm
	if perm == 0 {
		perm = 0o644
	}
	return writeFileAtomic(filepath.Dir(path), filepath.Base(path), data, perm)
}

func writeFileAtomic(dir, name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}

	_ = syncDirBestEffort(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
