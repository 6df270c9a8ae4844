package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/querybatch/internal/app"
	"github.com/bft-labs/querybatch/internal/cliconfig"
	"github.com/bft-labs/querybatch/internal/plan"
	"github.com/bft-labs/querybatch/internal/watch"
	"github.com/bft-labs/querybatch/pkg/batch"
	"github.com/bft-labs/querybatch/pkg/log"
	"github.com/bft-labs/querybatch/pkg/transport"
)

const helpDescription = `
Run a plan of API queries and merge the ones that only differ in a single
list parameter into one request.

Queries sharing a path and a batch parameter are sent together, with the
parameter values combined into a list. Each query receives its own share of
the combined response. Results are written to stdout as JSON lines, in plan
order.

Configure via file ($HOME/.querybatch/config.toml), QUERYBATCH_* env vars,
or flags. Flags win over env, env wins over the file.
`

var exampleUsage = strings.TrimSpace(`
  querybatch --base-url https://sentry.example.com --plan dashboard.toml
  querybatch --plan dashboard.toml --watch --log-level debug
`)

var errQueriesFailed = errors.New("some queries failed")

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	// Bootstrap logger, replaced once the configured level and format are known.
	logger, _ := log.NewZerologLogger("info", log.FormatConsole, os.Stderr)

	root := &cobra.Command{
		Use:           "querybatch",
		Short:         "Run API query plans with list-parameter request merging",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			l, err := log.NewZerologLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			if err != nil {
				return err
			}
			logger = l
			logger.Info("configuration", log.Any("config", cfg.Masked()))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					logger.Info("received signal, stopping...")
					cancel()
				case <-ctx.Done():
				}
			}()

			return run(ctx, cfg, logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.querybatch/config.toml)")
	root.Flags().StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "API base URL")
	root.Flags().StringVar(&cfg.AuthToken, "auth-token", "", "bearer token for the API (or QUERYBATCH_AUTH_TOKEN)")
	root.Flags().StringVar(&cfg.PlanPath, "plan", cfg.PlanPath, "query plan file (TOML)")

	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per request")
	root.Flags().DurationVar(&cfg.FlushWindow, "flush-window", cfg.FlushWindow, "how long to collect queries before sending")
	root.Flags().IntVar(&cfg.MaxConcurrentRequests, "max-concurrent", cfg.MaxConcurrentRequests, "maximum requests in flight per flush")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json)")

	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "re-run the plan whenever the plan file changes")
	root.Flags().DurationVar(&cfg.DebounceDelay, "debounce", cfg.DebounceDelay, "quiet period before re-running in watch mode")

	if err := root.Execute(); err != nil {
		logger.Error("querybatch", log.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliconfig.Config, logger log.Logger) error {
	requester := transport.NewHTTPRequester(
		&http.Client{Timeout: cfg.HTTPTimeout},
		transport.Config{
			BaseURL:   cfg.BaseURL,
			AuthToken: cfg.AuthToken,
			UserAgent: "querybatch/" + getVersion(),
		},
		logger,
	)

	b := batch.New(ctx, requester,
		batch.WithWindow(cfg.FlushWindow),
		batch.WithMaxConcurrentRequests(cfg.MaxConcurrentRequests),
		batch.WithLogger(logger),
	)
	defer func() {
		_ = b.Close()
		total := b.TotalStats()
		logger.Info("batcher closed",
			log.Int("collected", total.Collected),
			log.Int("sent", total.Sent),
			log.Int("saved", total.Saved),
		)
	}()

	runner := app.NewRunner(b, os.Stdout, logger)

	if !cfg.Watch {
		p, err := plan.Load(cfg.PlanPath)
		if err != nil {
			return err
		}
		sum, err := runner.Run(ctx, p)
		if err != nil {
			return err
		}
		if sum.Failed > 0 {
			return fmt.Errorf("%w: %d of %d", errQueriesFailed, sum.Failed, sum.Queries)
		}
		return nil
	}

	w := watch.New(cfg.PlanPath, cfg.DebounceDelay, logger)
	return w.Run(ctx, func(ctx context.Context) {
		p, err := plan.Load(cfg.PlanPath)
		if err != nil {
			logger.Error("load plan", log.Err(err))
			return
		}
		if _, err := runner.Run(ctx, p); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("run plan", log.Err(err))
		}
	})
}
