package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/vnmeta/internal/domain"
)

const testVNJSON = `{"results":[{
  "id":"v17",
  "title":"Ever17",
  "alttitle":"エバー17",
  "titles":[{"lang":"zh-Hans","title":"时空轮回","official":true}],
  "aliases":["E17"],
  "released":"2002-08-29",
  "developers":[{"id":"p1","name":"KID","original":"キッド"}]
}],"more":false}`

// newFakeSites 用同一个 server 扮演所有来源：VNDB 返回固定条目，其余路径一律 404（即缺失）。
func newFakeSites(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/vn":
			_, _ = w.Write([]byte(testVNJSON))
		case r.Method == http.MethodPost && r.URL.Path == "/release":
			_, _ = w.Write([]byte(`{"results":[],"more":false}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeTestConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	path := filepath.Join(dir, "vnmeta.toml")
	body := fmt.Sprintf(`
[providers]
vndb_base_url = %[1]q
dlsite_base_url = %[1]q
bangumi_base_url = %[1]q
steam_base_url = %[1]q

[timeouts]
vndb = 5
bangumi = 5

[log]
level = "error"
format = "json"
`, baseURL)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestFetch_EmptySeedExitsWith2(t *testing.T) {
	_, _, err := execute(t, "fetch", "--vndb", "abc")
	if err == nil {
		t.Fatalf("期望错误")
	}
	if exitCode(err) != 2 {
		t.Fatalf("期望退出码 2，实际 %d（%v）", exitCode(err), err)
	}
	if !errors.Is(err, domain.ErrInvalidSeed) {
		t.Fatalf("期望 ErrInvalidSeed，实际 %v", err)
	}
}

func TestFetch_NoTTY_StdoutOnlyReportJSON(t *testing.T) {
	// stdout 非 TTY 时只能输出一个 FetchReport JSON；摘要走 stderr。
	srv := newFakeSites(t)
	cfg := writeTestConfig(t, t.TempDir(), srv.URL)

	stdout, stderr, err := execute(t, "--config", cfg, "fetch", "--vndb", "17")
	if err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s", err, stderr)
	}

	var rep domain.FetchReport
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("stdout 不是合法的 FetchReport JSON：%v\nstdout=%q", err, stdout)
	}
	if rep.Metadata.Name != "时空轮回" {
		t.Fatalf("期望 name=时空轮回，实际 %q", rep.Metadata.Name)
	}
	if rep.RequestID == "" {
		t.Fatalf("期望非空 request_id")
	}
	if rep.Summary.OK == 0 || rep.Summary.Failed != 0 {
		t.Fatalf("来源统计不符合预期：%+v\nsources=%+v", rep.Summary, rep.Sources)
	}
	if !strings.Contains(stderr, "完成：ok=") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr)
	}
}

func TestFetch_OutNoClobber(t *testing.T) {
	srv := newFakeSites(t)
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, srv.URL)
	out := filepath.Join(dir, "report.json")

	if _, stderr, err := execute(t, "--config", cfg, "fetch", "--vndb", "v17", "--out", out); err != nil {
		t.Fatalf("首次写入失败：%v\nstderr=%s", err, stderr)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("读取输出文件失败：%v", err)
	}
	var rep domain.FetchReport
	if err := json.Unmarshal(b, &rep); err != nil {
		t.Fatalf("输出文件不是合法 JSON：%v", err)
	}

	_, _, err = execute(t, "--config", cfg, "fetch", "--vndb", "v17", "--out", out, "--no-clobber")
	if exitCode(err) != 2 {
		t.Fatalf("期望 --no-clobber 时退出码 2，实际 %d（%v）", exitCode(err), err)
	}
}

func TestSearch_UnknownProvider(t *testing.T) {
	srv := newFakeSites(t)
	cfg := writeTestConfig(t, t.TempDir(), srv.URL)

	_, _, err := execute(t, "--config", cfg, "search", "--provider", "community", "Ever17")
	if exitCode(err) != 2 {
		t.Fatalf("未配置社区站时 community 不应可用，实际 %v", err)
	}
	if !strings.Contains(err.Error(), "vndb") {
		t.Fatalf("错误信息应列出可用 provider：%v", err)
	}
}

func TestSearch_VNDBRankedJSON(t *testing.T) {
	srv := newFakeSites(t)
	cfg := writeTestConfig(t, t.TempDir(), srv.URL)

	stdout, _, err := execute(t, "--config", cfg, "search", "Ever17")
	if err != nil {
		t.Fatalf("搜索失败：%v", err)
	}
	var rows []rankedJSON
	if err := json.Unmarshal([]byte(stdout), &rows); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\n%s", err, stdout)
	}
	if len(rows) != 1 || rows[0].ID != "v17" || rows[0].Score <= 0 || !rows[0].IsTarget {
		t.Fatalf("排序结果不符合预期：%+v", rows)
	}
}

func TestConfigErrorPropagates(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "fetch", "--vndb", "17")
	if err == nil || !strings.Contains(err.Error(), "config_not_found") {
		t.Fatalf("期望 config_not_found，实际 %v", err)
	}
	if exitCode(err) != 1 {
		t.Fatalf("期望退出码 1，实际 %d", exitCode(err))
	}
}

func TestBatch_SeedFile(t *testing.T) {
	srv := newFakeSites(t)
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, srv.URL)
	list := filepath.Join(dir, "seeds.txt")
	if err := os.WriteFile(list, []byte("# list\nv17\nbogus\nvndb=17\n"), 0o644); err != nil {
		t.Fatalf("写入种子列表失败：%v", err)
	}

	stdout, stderr, err := execute(t, "--config", cfg, "batch", "-j", "2", list)
	if err != nil {
		t.Fatalf("batch 失败：%v\nstderr=%s", err, stderr)
	}
	var rep struct {
		Summary struct {
			Total int `json:"total"`
			Named int `json:"named"`
		} `json:"summary"`
		Items []domain.FetchReport `json:"items"`
	}
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\n%s", err, stdout)
	}
	if rep.Summary.Total != 2 || rep.Summary.Named != 2 || len(rep.Items) != 2 {
		t.Fatalf("批处理结果不符合预期：%+v", rep.Summary)
	}
	if !strings.Contains(stderr, "第 3 行") {
		t.Fatalf("stderr 应提示跳过无法识别的行：%q", stderr)
	}
}
