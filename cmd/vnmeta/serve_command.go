package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/vnmeta/internal/api"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动只读 HTTP API（GET /api/metadata, /api/report, /healthz）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.bindSet = cmd.Flags().Changed("bind")

			rt, err := ctx.openRuntime(cmd, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.New(rt.engine, ctx.log).ListenAndServe(sigCtx, ctx.eff.Bind)
		},
	}
	cmd.Flags().StringVar(&ctx.bind, "bind", "", "监听地址（覆盖配置文件 server.bind）")
	return cmd
}
