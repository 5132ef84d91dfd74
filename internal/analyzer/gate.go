package analyzer

import (
	"errors"
	"fmt"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
)

// ErrQualityGate is matched by every quality gate failure.
var ErrQualityGate = errors.New("quality gate failed")

// GateError describes a run whose parsed share was below the threshold.
type GateError struct {
	Seen      int
	Parsed    int
	Percent   float64
	Threshold int
}

func (e *GateError) Error() string {
	if e.Seen == 0 {
		return fmt.Sprintf("quality gate failed: log is empty (threshold %d%%)", e.Threshold)
	}
	return fmt.Sprintf("quality gate failed: parsed %d of %d lines (%.2f%%), threshold %d%%",
		e.Parsed, e.Seen, e.Percent, e.Threshold)
}

func (e *GateError) Unwrap() error { return ErrQualityGate }

// Gate returns the parsed percentage of c and a *GateError when it is below
// threshold. An empty log always fails.
func Gate(c model.Counters, threshold int) (float64, error) {
	if c.Seen == 0 {
		return 0, &GateError{Threshold: threshold}
	}
	pct := float64(c.Parsed) * 100 / float64(c.Seen)
	if pct < float64(threshold) {
		return pct, &GateError{Seen: c.Seen, Parsed: c.Parsed, Percent: pct, Threshold: threshold}
	}
	return pct, nil
}
