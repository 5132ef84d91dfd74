package analyzer

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
)

// Median returns the statistical median of xs without modifying it.
// It returns 0 for an empty slice.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return medianSorted(sorted)
}

func medianSorted(xs []float64) float64 {
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// Records builds one report row per endpoint. Percentages are relative to the
// current counters, so call it only after the whole log has been consumed.
// Rows come back in no particular order.
func (a *Accumulator) Records() []model.Record {
	records := make([]model.Record, 0, len(a.stats))
	for endpoint, st := range a.stats {
		r := model.Record{
			URL:     endpoint,
			Count:   st.count,
			TimeSum: st.sum,
			TimeAvg: st.sum / float64(st.count),
			TimeMax: st.max,
		}
		if st.digest != nil {
			r.TimeMed = st.digest.Quantile(0.5)
		} else {
			sort.Float64s(st.samples)
			r.TimeMed = medianSorted(st.samples)
		}
		if a.counters.LatencySum > 0 {
			r.TimePerc = st.sum * 100 / a.counters.LatencySum
		}
		if a.counters.Parsed > 0 {
			r.CountPerc = float64(st.count) * 100 / float64(a.counters.Parsed)
		}
		records = append(records, r)
	}
	return records
}

// Options configures Aggregate.
type Options struct {
	// Threshold is the minimum parsed percentage (0-100).
	Threshold int
	Mode      MedianMode
	Logger    *slog.Logger
}

// Aggregate consumes src, applies the quality gate and builds the report rows.
// On a gate failure it returns the counters and an error wrapping
// ErrQualityGate, and no rows.
func Aggregate(ctx context.Context, src LineSource, opts Options) ([]model.Record, model.Counters, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Info("START aggregate raw data")
	acc := NewAccumulator(opts.Mode, logger)
	if err := acc.Consume(ctx, src); err != nil {
		return nil, acc.Counters(), err
	}

	counters := acc.Counters()
	pct, err := Gate(counters, opts.Threshold)
	logger.Info("parsed share of log", "lines", counters.Seen, "parsed", counters.Parsed, "percent", pct, "threshold", opts.Threshold)
	if err != nil {
		return nil, counters, err
	}

	logger.Info("START recalculate aggregated table", "endpoints", acc.Endpoints(), "median", string(acc.mode))
	return acc.Records(), counters, nil
}
