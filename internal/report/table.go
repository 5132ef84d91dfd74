package report

import (
	"encoding/json"
	"sort"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
)

// Top returns the n records with the largest time_sum, largest first. Ties
// are broken by URL so the output is stable. n <= 0 keeps every record.
// The input slice is not modified.
func Top(records []model.Record, n int) []model.Record {
	out := append([]model.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TimeSum == out[j].TimeSum {
			return out[i].URL < out[j].URL
		}
		return out[i].TimeSum > out[j].TimeSum
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TableJSON encodes records as the JSON array the report template embeds.
// A nil slice encodes as an empty array.
func TableJSON(records []model.Record) ([]byte, error) {
	if records == nil {
		records = []model.Record{}
	}
	return json.Marshal(records)
}
