package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/vnmeta/internal/app/reconcile"
	"github.com/John-Robertt/vnmeta/internal/config"
	"github.com/John-Robertt/vnmeta/internal/infra/cache"
	"github.com/John-Robertt/vnmeta/internal/infra/httpx"
	"github.com/John-Robertt/vnmeta/internal/logging"
	"github.com/John-Robertt/vnmeta/internal/provider"
	"github.com/John-Robertt/vnmeta/internal/provider/bangumi"
	"github.com/John-Robertt/vnmeta/internal/provider/community"
	"github.com/John-Robertt/vnmeta/internal/provider/dlsite"
	"github.com/John-Robertt/vnmeta/internal/provider/steam"
	"github.com/John-Robertt/vnmeta/internal/provider/vndb"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "vnmeta",
		Short:         "视觉小说元数据聚合",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.configPath, "config", "c", "", "配置文件路径（默认读取 ./vnmeta.toml，可缺省）")
	pf.BoolVarP(&ctx.verbose, "verbose", "v", false, "输出 debug 日志")
	pf.StringVar(&ctx.proxy, "proxy", "", "HTTP 代理（覆盖配置文件；--proxy= 表示不用代理）")
	pf.BoolVar(&ctx.noCache, "no-cache", false, "禁用响应缓存")

	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	return rootCmd
}

// commandContext 在子命令间共享配置与日志；配置只加载一次。
type commandContext struct {
	configPath string
	verbose    bool
	proxy      string
	noCache    bool

	bind    string
	bindSet bool

	concurrency    int
	concurrencySet bool

	once sync.Once
	eff  config.EffectiveConfig
	log  zerolog.Logger
	err  error
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (config.EffectiveConfig, error) {
	c.once.Do(func() {
		cwd, err := os.Getwd()
		if err != nil {
			c.err = fmt.Errorf("读取当前目录失败：%w", err)
			return
		}
		c.eff, c.err = config.LoadEffective(cwd, config.CLIArgs{
			ConfigPath: c.configPath,
			ProxyURL:   c.proxy,
			ProxySet:   cmd.Flags().Changed("proxy"),
			Bind:       c.bind,
			BindSet:    c.bindSet,
			Verbose:    c.verbose,
			NoCache:    c.noCache,

			Concurrency:    c.concurrency,
			ConcurrencySet: c.concurrencySet,
		})
		if c.err != nil {
			return
		}
		c.log = logging.New(logging.Options{
			Level:  c.eff.LogLevel,
			Format: c.eff.LogFormat,
			Writer: cmd.ErrOrStderr(),
		})
		if c.eff.ConfigPath != "" {
			c.log.Debug().Str("path", c.eff.ConfigPath).Msg("已读取配置文件")
		}
	})
	return c.eff, c.err
}

// runtime 是一次命令执行期间共享的 HTTP client、缓存与来源实例。
type runtime struct {
	engine   *reconcile.Engine
	registry provider.Registry
	store    *cache.Store
}

func (r *runtime) Close() error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.Close()
}

func (c *commandContext) openRuntime(cmd *cobra.Command, obs reconcile.Observer) (*runtime, error) {
	eff, err := c.ensureConfig(cmd)
	if err != nil {
		return nil, err
	}

	rt := &runtime{}
	opts := httpx.Options{ProxyURL: eff.ProxyURL, Timeout: eff.HTTPTimeout}
	if eff.CachePath != "" {
		st, err := cache.Open(eff.CachePath, cache.Options{TTL: eff.CacheTTL})
		if err != nil {
			return nil, fmt.Errorf("打开响应缓存失败：%w", err)
		}
		rt.store = st
		opts.Cache = st
	}
	hc, err := httpx.NewClient(opts)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}

	vn := vndb.New(hc, eff.VNDBBaseURL)
	bgm := bangumi.New(hc, eff.BangumiBaseURL, eff.BangumiToken)
	cm := community.New(hc, eff.CommunityBaseURL)

	src := reconcile.Sources{
		VNDB:      vn,
		DLsite:    dlsite.New(hc, eff.DLsiteBaseURL),
		Steam:     steam.New(hc, eff.SteamBaseURL),
		Bangumi:   bgm,
		Community: cm,
	}
	searchers := []provider.Searcher{vn, bgm}
	if eff.CommunityBaseURL != "" {
		src.CommunitySearch = cm
		searchers = append(searchers, cm)
	}
	rt.registry, err = provider.NewRegistry(searchers...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("初始化 provider registry 失败：%w", err)
	}

	engineOpts := []reconcile.Option{
		reconcile.WithLogger(c.log),
		reconcile.WithTimeouts(reconcile.Timeouts(eff.Timeouts)),
	}
	if obs != nil {
		engineOpts = append(engineOpts, reconcile.WithObserver(obs))
	}
	rt.engine = reconcile.New(src, engineOpts...)
	return rt, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
