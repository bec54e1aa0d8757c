package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Registry 是 Searcher 的只读注册表（按小写 name 索引），供 CLI search 子命令按名称选择来源。
type Registry struct {
	byName map[string]Searcher
}

func NewRegistry(searchers ...Searcher) (Registry, error) {
	byName := make(map[string]Searcher, len(searchers))
	for _, s := range searchers {
		if s == nil {
			return Registry{}, fmt.Errorf("searcher 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("searcher.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 searcher：%q", name)
		}
		byName[name] = s
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Searcher, bool) {
	if r.byName == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	s, ok := r.byName[name]
	return s, ok
}

// Names 返回已注册名称（字典序）。
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
