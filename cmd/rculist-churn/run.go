package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/usnistgov/rcuguard/app/churn"
	"github.com/usnistgov/rcuguard/core/nnduration"
	"github.com/usnistgov/rcuguard/core/yamlflag"
	"go.uber.org/zap"
)

func init() {
	var cfg churn.Config
	var jsonOutput bool
	defineCommand(&cli.Command{
		Name:  "run",
		Usage: "Run a churn workload and verify list invariants.",
		Flags: []cli.Flag{
			&cli.GenericFlag{
				Name:  "config",
				Usage: "Configuration as YAML `document`, or @filename.",
				Value: yamlflag.New(&cfg),
			},
			&cli.IntFlag{
				Name:  "readers",
				Usage: "Number of reader goroutines.",
			},
			&cli.IntFlag{
				Name:  "writers",
				Usage: "Number of writer goroutines.",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Run `duration`.",
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "Print result as JSON.",
				Destination: &jsonOutput,
			},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("readers") {
				cfg.Readers = c.Int("readers")
			}
			if c.IsSet("writers") {
				cfg.Writers = c.Int("writers")
			}
			if c.IsSet("duration") {
				cfg.Duration = nnduration.Milliseconds(c.Duration("duration").Milliseconds())
			}

			r, e := churn.New(cfg)
			if e != nil {
				return e
			}
			r.OnProgress(func(p churn.Progress) {
				logger.Info("progress", zap.Stringer("progress", p))
			})

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, e := r.Run(ctx)

			if jsonOutput {
				printJSON(res)
			} else {
				fmt.Println(res)
			}
			if e != nil {
				return cli.Exit(fmt.Sprintf("%d invariant violations: %v", res.Violations, e), 2)
			}
			return nil
		},
	})
}
