// Package main provides the ijstack command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/vearutop/ijstack"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		if ijstack.IsCanceled(err) {
			_, _ = fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "ijstack",
		Usage: "Convert microscopy series into ImageJ-compatible TIFF files",
		Flags: globalFlags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configFile)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			applyLogConfig(c, cfg)

			log, err := newLogger(logLevel, logFormat)
			if err != nil {
				return ctx, err
			}
			ijstack.SetLogger(log)
			return ctx, nil
		},
		After: func(context.Context, *cli.Command) error {
			_ = ijstack.Logger().Sync()
			return nil
		},
		Action: func(_ context.Context, c *cli.Command) error {
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			convertCmd(),
			infoCmd(),
			inspectCmd(),
			versionCmd(),
		},
	}
}
