package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/leonardcser/web-cache/internal/cache"
	"github.com/leonardcser/web-cache/internal/config"
	"github.com/leonardcser/web-cache/internal/logger"
	"github.com/leonardcser/web-cache/internal/tracker"
	"github.com/leonardcser/web-cache/internal/web"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "get-page",
		Usage:     "fetch pages through the expiring web cache",
		ArgsUsage: "URL...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a web-cache.yaml file",
				Sources: cli.NewValueSourceChain(cli.EnvVar(config.EnvConfig)),
			},
			&cli.StringFlag{
				Name:    "store",
				Aliases: []string{"s"},
				Usage:   "store driver: memory, bolt, daemon or redis",
			},
			&cli.StringFlag{
				Name:  "redis-addr",
				Usage: "redis server address",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "how long fetched pages stay cached",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format: raw or markdown",
			},
			&cli.BoolFlag{
				Name:  "single-flight",
				Usage: "collapse concurrent fetches of one URL",
			},
			&cli.BoolFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Usage:   "print the access count after each page",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return errors.New("at least one URL is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.InitLogger(); err != nil {
		return err
	}
	defer logger.Close()
	kv, err := cache.OpenBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer kv.Close()

	format, _ := web.ParseFormat(cfg.Fetch.Format)
	pages := tracker.New(
		web.NewFetcher(web.FetcherOptions{Timeout: cfg.Fetch.Timeout, Delay: cfg.Fetch.Delay, Format: format}),
		kv,
		tracker.Options{TTL: cfg.ResultTTL, SingleFlight: cfg.SingleFlight},
	)

	for _, u := range urls {
		content, err := pages.Get(ctx, u)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.Writer, content)
		if cmd.Bool("count") {
			n, err := pages.Count(ctx, u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Writer, "count:%s %d\n", u, n)
		}
	}
	return nil
}

// loadConfig layers explicitly set flags over the config file and environment.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if cmd.IsSet("store") {
		cfg.Store.Driver = cmd.String("store")
	}
	if cmd.IsSet("redis-addr") {
		cfg.Store.RedisAddr = cmd.String("redis-addr")
	}
	if cmd.IsSet("ttl") {
		cfg.ResultTTL = cmd.Duration("ttl")
	}
	if cmd.IsSet("format") {
		cfg.Fetch.Format = cmd.String("format")
	}
	if cmd.IsSet("single-flight") {
		cfg.SingleFlight = cmd.Bool("single-flight")
	}
	return cfg, cfg.Validate()
}
