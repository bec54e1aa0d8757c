// Package match 实现搜索候选的打分与择优。
//
// 约束：
// - 全部比较都在 textnorm.Normalize 之后进行
// - 任一侧规范化后为空串时不参与比较（空串不算相等、包含或前缀）
// - 纯函数、确定性：同样的输入永远得到同样的输出
package match

import (
	"sort"
	"strings"

	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/textnorm"
)

// 打分表（固定常量）。
const (
	SeedEqualBonus     = 120
	QueryEqualBonus    = 100
	SeedContainsBonus  = 70
	QueryContainsBonus = 60
	SeedPrefixBonus    = 20
	QueryPrefixBonus   = 10

	// TargetBonus 是候选属于目标类别（游戏）时的固定加分。
	TargetBonus = 20
)

// Score 计算单个候选的分数。
// query 是实际用于搜索的关键字；seed 是已知的“种子标题”（通常来自社区站或 VNDB 本地化标题）。
func Score(query, seed string, c domain.Candidate) int {
	q := textnorm.Normalize(query)
	s := textnorm.Normalize(seed)
	titles := [2]string{textnorm.Normalize(c.Title), textnorm.Normalize(c.AltTitle)}

	score := 0
	for _, t := range titles {
		if t == "" {
			continue
		}
		if s != "" {
			if t == s {
				score += SeedEqualBonus
			}
			if mutualContains(s, t) {
				score += SeedContainsBonus
			}
			if strings.HasPrefix(t, s) {
				score += SeedPrefixBonus
			}
		}
		if q != "" {
			if t == q {
				score += QueryEqualBonus
			}
			if mutualContains(q, t) {
				score += QueryContainsBonus
			}
			if strings.HasPrefix(t, q) {
				score += QueryPrefixBonus
			}
		}
	}
	if c.IsTarget {
		score += TargetBonus
	}
	return score
}

// mutualContains：a、b 互为子串之一（任一方包含另一方）。
func mutualContains(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Best 返回分数严格最高的候选；同分保留先出现者；空列表返回 false。
func Best(query, seed string, cands []domain.Candidate) (domain.Candidate, bool) {
	if len(cands) == 0 {
		return domain.Candidate{}, false
	}
	best, bestScore := 0, Score(query, seed, cands[0])
	for i := 1; i < len(cands); i++ {
		if sc := Score(query, seed, cands[i]); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return cands[best], true
}

// Ranked 是带分数的候选（用于 CLI 展示）。
type Ranked struct {
	Candidate domain.Candidate
	Score     int
}

// Rank 按分数降序返回全部候选；同分保持输入顺序。
func Rank(query, seed string, cands []domain.Candidate) []Ranked {
	out := make([]Ranked, 0, len(cands))
	for _, c := range cands {
		out = append(out, Ranked{Candidate: c, Score: Score(query, seed, c)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
