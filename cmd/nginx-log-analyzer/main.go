package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nao-Mk2/nginx-log-analyzer/cmd"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/analyzer"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/client"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/config"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/history"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/inspector"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/logging"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/notify"
)

func main() {
	opts := cmd.CollectOptions()
	if msg, code := opts.Validate(); code != 0 {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(code)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL! cannot read config: %v\n", err)
		os.Exit(2)
	}
	mode, err := analyzer.ParseMedianMode(cfg.MedianMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL! %v\n", err)
		os.Exit(2)
	}

	os.Exit(execute(opts, cfg, mode))
}

// execute sets up logging and the optional history and notification sinks,
// runs the analysis and returns the process exit code.
func execute(opts *cmd.Options, cfg config.Config, mode analyzer.MedianMode) int {
	logger, closer, err := logging.New(string(cfg.MonitoringLog), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL! %v\n", err)
		return 2
	}
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("START logging", "config", opts.ConfigPath, "source", opts.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:       cfg,
		opts:      opts,
		mode:      mode,
		logger:    logger,
		stdout:    os.Stdout,
		now:       time.Now,
		publisher: notify.Noop{},
		newSearcher: func(ctx context.Context) (inspector.GroupSearcher, error) {
			return client.NewCloudWatchClient(ctx, client.AuthOptions{Region: opts.Region, Profile: opts.Profile})
		},
	}

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Error("cannot open history database", "path", cfg.HistoryDB, "error", err)
			return 1
		}
		defer store.Close()
		a.store = store
	}
	if cfg.NATSURL != "" {
		pub, err := notify.NewNATS(cfg.NATSURL, cfg.NATSSubject, 5*time.Second)
		if err != nil {
			logger.Warn("run notifications disabled", "error", err)
		} else {
			defer pub.Close()
			a.publisher = pub
		}
	}

	if err := a.run(ctx); err != nil {
		if errors.Is(err, analyzer.ErrQualityGate) {
			logger.Error("log rejected, no report written", "error", err)
		} else {
			logger.Error("ERROR", "error", err)
		}
		return 1
	}
	return 0
}
