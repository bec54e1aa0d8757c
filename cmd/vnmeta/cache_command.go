package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/vnmeta/internal/infra/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "响应缓存维护",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "删除超过 ttl 的缓存条目",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			if eff.CachePath == "" {
				return usageError(errors.New("未启用缓存（配置 cache.path 后再试）"))
			}
			st, err := cache.Open(eff.CachePath, cache.Options{TTL: eff.CacheTTL})
			if err != nil {
				return fmt.Errorf("打开响应缓存失败：%w", err)
			}
			defer st.Close()

			n, err := st.Prune(cmd.Context())
			if err != nil {
				return fmt.Errorf("清理缓存失败：%w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已清理 %d 条过期缓存：%s\n", n, st.Path())
			return nil
		},
	})
	return cmd
}
