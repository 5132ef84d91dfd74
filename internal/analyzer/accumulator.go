package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/influxdata/tdigest"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/parser"
)

// progressEvery is how many lines pass between progress log messages.
const progressEvery = 10000

// digestCompression bounds the number of centroids kept per endpoint in sketch mode.
const digestCompression = 100

// MedianMode selects how per-endpoint medians are computed.
type MedianMode string

const (
	// MedianExact keeps every latency in memory and sorts it.
	MedianExact MedianMode = "exact"
	// MedianSketch keeps a t-digest per endpoint; memory is bounded, the median approximate.
	MedianSketch MedianMode = "sketch"
)

// ParseMedianMode validates a mode name; empty selects MedianExact.
func ParseMedianMode(s string) (MedianMode, error) {
	switch MedianMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MedianExact:
		return MedianExact, nil
	case MedianSketch:
		return MedianSketch, nil
	}
	return "", fmt.Errorf("unknown median mode %q (want exact or sketch)", s)
}

// LineSource yields raw access-log lines in order. Lines stops early and
// returns the callback's error if fn fails.
type LineSource interface {
	Lines(ctx context.Context, fn func(line string) error) error
}

type endpointStats struct {
	count   int
	sum     float64
	max     float64
	samples []float64
	digest  *tdigest.TDigest
}

// Accumulator collects per-endpoint latencies and run-wide counters. It is
// not safe for concurrent use.
type Accumulator struct {
	mode     MedianMode
	logger   *slog.Logger
	counters model.Counters
	stats    map[string]*endpointStats
}

// NewAccumulator returns an empty Accumulator. A nil logger discards progress messages.
func NewAccumulator(mode MedianMode, logger *slog.Logger) *Accumulator {
	if mode == "" {
		mode = MedianExact
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Accumulator{mode: mode, logger: logger, stats: make(map[string]*endpointStats)}
}

// Add consumes one raw line and reports whether it was parsed.
func (a *Accumulator) Add(line string) bool {
	a.counters.Seen++
	if a.counters.Seen%progressEvery == 0 {
		a.logger.Info("processed lines", "lines", a.counters.Seen, "parsed", a.counters.Parsed)
	}

	e, ok := parser.ParseLine(line)
	if !ok {
		return false
	}
	a.counters.Parsed++
	a.counters.LatencySum += e.Latency

	st := a.stats[e.Endpoint]
	if st == nil {
		st = &endpointStats{}
		if a.mode == MedianSketch {
			st.digest = tdigest.NewWithCompression(digestCompression)
		}
		a.stats[e.Endpoint] = st
	}
	if st.count == 0 || e.Latency > st.max {
		st.max = e.Latency
	}
	st.count++
	st.sum += e.Latency
	if st.digest != nil {
		st.digest.Add(e.Latency, 1)
	} else {
		st.samples = append(st.samples, e.Latency)
	}
	return true
}

// Consume feeds every line of src through Add. It stops at the first read
// error or when ctx is done.
func (a *Accumulator) Consume(ctx context.Context, src LineSource) error {
	return src.Lines(ctx, func(line string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.Add(line)
		return nil
	})
}

// Counters returns the totals seen so far.
func (a *Accumulator) Counters() model.Counters { return a.counters }

// Endpoints returns the number of distinct endpoints observed.
func (a *Accumulator) Endpoints() int { return len(a.stats) }
