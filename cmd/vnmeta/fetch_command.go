package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/vnmeta/internal/app/reconcile"
	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/infra/fsx"
)

type fetchFlags struct {
	vndb      string
	code      string
	url       string
	out       string
	noClobber bool
	json      bool
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var f fetchFlags
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "按 VNDB id / DLsite code / 社区站 URL 聚合一条元数据",
		Long: `至少提供 --vndb / --code / --url 其中一项。

stdout 是终端时输出表格摘要；否则 stdout 只输出一个 FetchReport JSON（日志与进度走 stderr）。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, ctx, f)
		},
	}
	cmd.Flags().StringVar(&f.vndb, "vndb", "", "VNDB id（v17 或 17）")
	cmd.Flags().StringVar(&f.code, "code", "", "DLsite 作品编号（RJ/VJ）")
	cmd.Flags().StringVar(&f.url, "url", "", "社区站详情页 URL")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "同时把 FetchReport JSON 写入该文件（原子替换）")
	cmd.Flags().BoolVar(&f.noClobber, "no-clobber", false, "--out 文件已存在时不覆盖")
	cmd.Flags().BoolVar(&f.json, "json", false, "即使 stdout 是终端也输出 JSON")
	return cmd
}

func runFetch(cmd *cobra.Command, ctx *commandContext, f fetchFlags) error {
	seed := domain.Seed{VNDBID: f.vndb, DLsiteCode: f.code, CommunityURL: f.url}
	if err := seed.Validate(); err != nil {
		return usageError(err)
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	// 进度只在交互终端启用，且只写 stderr。
	var obs reconcile.Observer
	if isTerminal(stderr) {
		obs = newProgressUI(stderr)
	}

	rt, err := ctx.openRuntime(cmd, obs)
	if err != nil {
		return err
	}
	defer rt.Close()

	rep := rt.engine.FetchReport(cmd.Context(), seed)

	if f.out != "" {
		if err := writeReportFile(f.out, rep, f.noClobber); err != nil {
			return err
		}
	}

	if isTerminal(stdout) && !f.json {
		fmt.Fprint(stdout, renderReport(rep))
		return nil
	}
	if err := encodeJSON(stdout, rep); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "完成：ok=%d absent=%d failed=%d skipped=%d\n",
		rep.Summary.OK, rep.Summary.Absent, rep.Summary.Failed, rep.Summary.Skipped,
	)
	return nil
}

func writeReportFile(path string, rep domain.FetchReport, noClobber bool) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	err = fsx.WriteFile(path, b, fsx.WriteOptions{NoClobber: noClobber})
	if errors.Is(err, os.ErrExist) {
		return usageError(fmt.Errorf("输出文件已存在（--no-clobber）：%s", path))
	}
	if err != nil {
		return fmt.Errorf("写入 %s 失败：%w", path, err)
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
