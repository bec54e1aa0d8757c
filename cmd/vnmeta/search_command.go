package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/vnmeta/internal/match"
)

// rankedJSON 是 search 在非终端下的输出条目。
type rankedJSON struct {
	Score    int    `json:"score"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	AltTitle string `json:"alt_title"`
	IsTarget bool   `json:"is_target"`
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		providerName string
		seedTitle    string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "在单个来源中搜索候选，并按聚合时的打分规则排序",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			name := strings.ToLower(strings.TrimSpace(providerName))
			s, ok := rt.registry.Get(name)
			if !ok {
				return usageError(fmt.Errorf("未知 provider %q（可用：%s）", providerName, strings.Join(rt.registry.Names(), ", ")))
			}

			keyword := strings.Join(args, " ")
			seed := seedTitle
			if seed == "" {
				seed = keyword
			}

			eff, _ := ctx.ensureConfig(cmd)
			sctx, cancel := context.WithTimeout(cmd.Context(), eff.HTTPTimeout)
			defer cancel()

			cands, err := s.Search(sctx, keyword)
			if err != nil {
				return fmt.Errorf("搜索失败：%w", err)
			}
			ranked := match.Rank(keyword, seed, cands)

			out := cmd.OutOrStdout()
			if isTerminal(out) && !asJSON {
				fmt.Fprint(out, renderRanked(ranked))
				return nil
			}
			rows := make([]rankedJSON, 0, len(ranked))
			for _, r := range ranked {
				rows = append(rows, rankedJSON{
					Score:    r.Score,
					ID:       r.Candidate.ID,
					Title:    r.Candidate.Title,
					AltTitle: r.Candidate.AltTitle,
					IsTarget: r.Candidate.IsTarget,
				})
			}
			return encodeJSON(out, rows)
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "vndb", "来源：vndb|bangumi|community（community 需配置 community_base_url）")
	cmd.Flags().StringVar(&seedTitle, "seed", "", "已知标题（打分用；默认与关键字相同）")
	cmd.Flags().BoolVar(&asJSON, "json", false, "即使 stdout 是终端也输出 JSON")
	return cmd
}
