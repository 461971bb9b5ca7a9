// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/poiesic/artifex"
	"github.com/poiesic/artifex/ai"
	"github.com/poiesic/artifex/config"
	"github.com/poiesic/artifex/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

// application holds state shared by the commands of one run.
type application struct {
	stdout io.Writer
	stderr io.Writer

	// embedder overrides the configured embedding service when set.
	embedder ai.Embedder

	cfg           config.Config
	metricsServer *http.Server
}

func main() {
	app := newApp(&application{stdout: os.Stdout, stderr: os.Stderr})
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(a *application) *cli.App {
	return &cli.App{
		Name:      "artifex",
		Usage:     "Load documents into artifacts, embed them and search them",
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"ARTIFEX_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` (default .env)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on `ADDR`",
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			{
				Name:      "load",
				Usage:     "Load sources and print the resulting artifacts",
				ArgsUsage: "SOURCE...",
				Action:    a.loadCommand,
				Flags: append(loaderFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print artifacts as JSON",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Load sources, embed them and store the vectors",
				ArgsUsage: "SOURCE...",
				Action:    a.ingestCommand,
				Flags: append(loaderFlags(),
					&cli.StringFlag{
						Name:    "namespace",
						Aliases: []string{"n"},
						Usage:   "Namespace receiving the vectors",
					},
					&cli.StringSliceFlag{
						Name:  "meta",
						Usage: "Metadata `KEY=VALUE` stored with every entry",
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Replace entries that already exist",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search stored artifacts",
				ArgsUsage: "QUERY",
				Action:    a.searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "namespace",
						Aliases: []string{"n"},
						Usage:   "Namespace to search",
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Maximum number of results",
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Drop results scoring below this value",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed every entry of a namespace with the configured embedder",
				Action: a.reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "namespace",
						Aliases: []string{"n"},
						Usage:   "Namespace to reembed",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of entries to process in each batch",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N entries",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
					},
					&cli.BoolFlag{
						Name:  "skip-normalize",
						Usage: "Store vectors as returned by the embedder",
					},
				},
			},
		},
	}
}

// before loads configuration, applies global flag overrides, configures
// logging and starts the metrics endpoint.
func (a *application) before(c *cli.Context) error {
	if err := config.LoadEnvFiles(c.StringSlice("env-file")...); err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	a.cfg = cfg

	if err := setupLogger(a.stderr, cfg.Logging.Level); err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		a.metricsServer = startMetricsServer(cfg.Metrics.Addr)
	}
	return nil
}

func (a *application) after(c *cli.Context) error {
	if a.metricsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.metricsServer.Shutdown(ctx)
}

func (a *application) openEngine() (*artifex.Engine, error) {
	var opts []artifex.EngineOption
	if a.embedder != nil {
		opts = append(opts, artifex.WithEmbedder(a.embedder))
	}
	engine, err := artifex.OpenConfig(&a.cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}

func parseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}
}

func setupLogger(w io.Writer, levelStr string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// metricsHandler registers the artifex collectors with the default registry
// and returns its HTTP handler.
func metricsHandler() http.Handler {
	metrics.Register(nil)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func startMetricsServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger := slog.Default().With("component", "metrics")
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	return srv
}
