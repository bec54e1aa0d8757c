package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/vnmeta/internal/app/batch"
	"github.com/John-Robertt/vnmeta/internal/config"
	"github.com/John-Robertt/vnmeta/internal/infra/fsx"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		out         string
		noClobber   bool
		asJSON      bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch <file|->",
		Short: "按种子列表批量聚合（每行一个作品：v17 / RJ012345 / URL，或 vndb= code= url=）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.concurrency = concurrency
			ctx.concurrencySet = cmd.Flags().Changed("concurrency")

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return usageError(fmt.Errorf("打开种子列表失败：%w", err))
				}
				defer f.Close()
				in = f
			}
			seeds, bad, err := batch.ParseSeeds(in)
			if err != nil {
				return fmt.Errorf("读取种子列表失败：%w", err)
			}
			stderr := cmd.ErrOrStderr()
			for _, b := range bad {
				fmt.Fprintf(stderr, "跳过：%v\n", b)
			}
			if len(seeds) == 0 {
				return usageError(fmt.Errorf("种子列表中没有可用条目"))
			}

			rt, err := ctx.openRuntime(cmd, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			var obs batch.Observer
			if isTerminal(stderr) {
				obs = newProgressUI(stderr)
			}
			rep := batch.Run(cmd.Context(), rt.engine, seeds, ctx.eff.Concurrency, obs)

			if out != "" {
				b, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				if err := fsx.WriteFile(out, append(b, '\n'), fsx.WriteOptions{NoClobber: noClobber}); err != nil {
					return fmt.Errorf("写入 %s 失败：%w", out, err)
				}
			}

			stdout := cmd.OutOrStdout()
			if isTerminal(stdout) && !asJSON {
				fmt.Fprint(stdout, renderBatch(rep))
				return nil
			}
			if err := encodeJSON(stdout, rep); err != nil {
				return err
			}
			fmt.Fprintf(stderr, "完成：total=%d named=%d empty=%d\n", rep.Summary.Total, rep.Summary.Named, rep.Summary.Empty)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "同时把批处理报告 JSON 写入该文件（原子替换）")
	cmd.Flags().BoolVar(&noClobber, "no-clobber", false, "--out 文件已存在时不覆盖")
	cmd.Flags().BoolVar(&asJSON, "json", false, "即使 stdout 是终端也输出 JSON")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, fmt.Sprintf("并发数（覆盖配置文件 batch.concurrency；范围 1-%d）", config.MaxConcurrency))
	return cmd
}

func renderBatch(rep batch.Report) string {
	rows := make([][]string, 0, len(rep.Items))
	for _, it := range rep.Items {
		rows = append(rows, []string{
			seedLabel(it.Seed),
			truncate(it.Metadata.Name, 60),
			strconv.Itoa(it.Summary.OK),
			strconv.Itoa(it.Summary.Failed),
		})
	}
	return renderTable([]string{"Seed", "Name", "OK", "Failed"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}) + "\n"
}
