package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nao-Mk2/nginx-log-analyzer/cmd"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/analyzer"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/config"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/history"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/inspector"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/logfile"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/notify"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/report"
)

// notifyTopRows is how many report rows go into the run notification.
const notifyTopRows = 10

// sinkTimeout bounds recording and publishing a finished run.
const sinkTimeout = 5 * time.Second

// app runs one analysis. Everything it needs is injected so tests can
// replace the clock, the output and the CloudWatch client.
type app struct {
	cfg       config.Config
	opts      *cmd.Options
	mode      analyzer.MedianMode
	logger    *slog.Logger
	stdout    io.Writer
	now       func() time.Time
	store     *history.Store
	publisher notify.Publisher

	// newSearcher builds the CloudWatch client on demand.
	newSearcher func(ctx context.Context) (inspector.GroupSearcher, error)
}

// input is the log chosen for a run.
type input struct {
	src  analyzer.LineSource
	file model.LogFile
}

// run executes the pipeline. A nil error with nothing written means there was
// nothing to do (no log, or the report already exists).
func (a *app) run(ctx context.Context) error {
	started := a.now()

	in, ok, err := a.selectInput(ctx)
	if err != nil {
		return err
	}
	if !ok {
		a.logger.Info("no log files found", "dir", a.cfg.LogDir, "prefix", a.cfg.LogPrefix)
		return nil
	}
	a.logger.Info("selected log", "path", in.file.Path, "date", in.file.Date)

	dest := filepath.Join(a.cfg.ReportDir, report.Name(in.file.Date))
	if !a.opts.JSON {
		exists, err := report.Exists(a.cfg.ReportDir, in.file.Date)
		if err != nil {
			return fmt.Errorf("check report: %w", err)
		}
		if exists {
			a.logger.Info("report already exists", "report", dest)
			a.logPrevious(ctx, in.file.Date)
			return nil
		}
	}

	records, counters, err := analyzer.Aggregate(ctx, in.src, analyzer.Options{
		Threshold: a.cfg.ParsedPercent,
		Mode:      a.mode,
		Logger:    a.logger,
	})
	run := history.Run{
		ID:        history.NewRunID(),
		StartedAt: started,
		Date:      in.file.Date,
		Source:    in.file.Path,
		Seen:      counters.Seen,
		Parsed:    counters.Parsed,
		Endpoints: len(records),
	}
	if counters.Seen > 0 {
		run.ParsedPercent = float64(counters.Parsed) * 100 / float64(counters.Seen)
	}
	if err != nil {
		a.finish(ctx, run, nil, err)
		return err
	}

	top, table, err := a.buildTable(records)
	if err != nil {
		a.finish(ctx, run, nil, err)
		return err
	}

	if a.opts.JSON {
		err = a.writeJSON(table)
	} else {
		err = report.Render(a.cfg.TemplatePath, dest, table)
		if err == nil {
			run.Report = dest
			a.logger.Info("SUCCESS report is processed", "report", dest, "rows", len(top))
			if terr := history.TouchTimestamp(a.cfg.TSFile, a.now()); terr != nil {
				a.logger.Warn("cannot update timestamp file", "path", a.cfg.TSFile, "error", terr)
			}
		}
	}
	a.finish(ctx, run, top, err)
	return err
}

func (a *app) selectInput(ctx context.Context) (input, bool, error) {
	if a.opts.Source == cmd.SourceCloudWatch {
		return a.cloudWatchInput(ctx)
	}
	names, err := logfile.List(a.cfg.LogDir)
	if err != nil {
		return input{}, false, err
	}
	lf, ok := logfile.Find(names, a.cfg.LogDir, a.cfg.LogPrefix)
	if !ok {
		return input{}, false, nil
	}
	return input{src: logfile.Source{File: lf.Path}, file: lf}, true, nil
}

func (a *app) cloudWatchInput(ctx context.Context) (input, bool, error) {
	groups := a.opts.Groups(a.cfg.CloudWatchGroups)
	if len(groups) == 0 {
		return input{}, false, errors.New("no log groups provided (use --groups, LOG_GROUP_NAMES or CLOUDWATCH_GROUPS)")
	}
	start, end, err := cmd.ResolveTimeWindow(a.opts.StartRFC3339, a.opts.EndRFC3339, a.now())
	if err != nil {
		return input{}, false, fmt.Errorf("invalid time window: %w", err)
	}
	searcher, err := a.newSearcher(ctx)
	if err != nil {
		return input{}, false, fmt.Errorf("failed to create CloudWatch client: %w", err)
	}
	insp := inspector.New(searcher, groups, start, end)
	insp.SetWorkers(a.opts.Concurrency)
	insp.SetFilterPattern(a.opts.FilterPattern)
	lf := model.LogFile{Path: "cloudwatch:" + strings.Join(groups, ","), Date: insp.Date()}
	return input{src: insp, file: lf}, true, nil
}

// buildTable filters, ranks and truncates the rows and encodes them.
func (a *app) buildTable(records []model.Record) ([]model.Record, []byte, error) {
	filtered, err := report.Filter(records, a.opts.Query)
	if err != nil {
		return nil, nil, err
	}
	top := report.Top(filtered, a.cfg.ReportSize)
	table, err := report.TableJSON(top)
	if err != nil {
		return nil, nil, err
	}
	return top, table, nil
}

func (a *app) writeJSON(table []byte) error {
	if a.opts.PrettyJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, table, "", "  "); err != nil {
			return err
		}
		table = buf.Bytes()
	}
	_, err := fmt.Fprintf(a.stdout, "%s\n", table)
	return err
}

// logPrevious logs what is known about the run that produced an existing
// report.
func (a *app) logPrevious(ctx context.Context, date string) {
	if ts, err := history.ReadTimestamp(a.cfg.TSFile); err == nil {
		a.logger.Info("last successful run", "at", ts.UTC().Format(time.RFC3339))
	}
	if a.store == nil {
		return
	}
	prev, ok, err := a.store.Last(ctx, date)
	if err != nil {
		a.logger.Warn("cannot read run history", "date", date, "error", err)
		return
	}
	if ok {
		a.logger.Info("previous run for date", "run", prev.ID, "status", prev.Status,
			"finished", prev.FinishedAt.UTC().Format(time.RFC3339), "report", prev.Report)
	}
}

// finish records the run and publishes its summary. Failures here are
// logged and never change the run outcome. The sinks still get to write when
// ctx is canceled.
func (a *app) finish(ctx context.Context, run history.Run, top []model.Record, runErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	run.FinishedAt = a.now()
	run.Status = history.StatusOK
	if runErr != nil {
		run.Status = history.StatusFailed
		run.Error = runErr.Error()
	}

	if a.store != nil {
		if _, err := a.store.Record(ctx, run); err != nil {
			a.logger.Warn("cannot record run history", "run", run.ID, "error", err)
		}
	}

	if len(top) > notifyTopRows {
		top = top[:notifyTopRows]
	}
	err := a.publisher.Publish(ctx, notify.Summary{
		RunID:         run.ID,
		Date:          run.Date,
		Source:        run.Source,
		Status:        run.Status,
		Lines:         run.Seen,
		Parsed:        run.Parsed,
		ParsedPercent: run.ParsedPercent,
		Endpoints:     run.Endpoints,
		Report:        run.Report,
		Error:         run.Error,
		Top:           top,
	})
	if err != nil {
		a.logger.Warn("cannot publish run summary", "run", run.ID, "error", err)
	}
}
