package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/John-Robertt/vnmeta/internal/domain"
)

// Strategy 是一种搜索参数形态（例如 ?keyword=…&type=galgame / ?q=…）。
type Strategy struct {
	Name   string
	Search func(ctx context.Context, keyword string) ([]domain.Candidate, error)
}

// Strategies 是按优先级排列的搜索策略列表。
//
// 约束：
// - 严格按顺序尝试，第一个返回非空结果的策略胜出（其余不再调用）
// - 全部为空：返回空结果（不是错误）
// - 只有当每一个策略都失败（而不是为空）时才返回错误
// - ctx 结束后立即停止
type Strategies []Strategy

// Search 依次执行策略；used 为胜出策略名（无结果时为空）。
func (ss Strategies) Search(ctx context.Context, keyword string) (cands []domain.Candidate, used string, err error) {
	if len(ss) == 0 {
		return nil, "", errors.New("未配置任何搜索策略")
	}
	var errs []error
	for _, s := range ss {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if s.Search == nil {
			errs = append(errs, fmt.Errorf("strategy=%s: 未实现", s.Name))
			continue
		}
		got, serr := s.Search(ctx, keyword)
		if serr != nil {
			errs = append(errs, fmt.Errorf("strategy=%s: %w", s.Name, serr))
			continue
		}
		if len(got) > 0 {
			return got, s.Name, nil
		}
	}
	if len(errs) == len(ss) {
		return nil, "", errors.Join(errs...)
	}
	return []domain.Candidate{}, "", nil
}
