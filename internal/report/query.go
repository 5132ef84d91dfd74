package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
)

// Filter evaluates a JMESPath expression against the JSON rows of records
// (e.g. "[?count > `10`]") and decodes the result back into records. The
// expression must yield an array of row objects. An empty expression returns
// records unchanged.
func Filter(records []model.Record, expr string) ([]model.Record, error) {
	if strings.TrimSpace(expr) == "" {
		return records, nil
	}
	compiled, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}

	raw, err := TableJSON(records)
	if err != nil {
		return nil, err
	}
	var rows any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}

	res, err := compiled.Search(rows)
	if err != nil {
		return nil, fmt.Errorf("jmespath search failed: %w", err)
	}
	if res == nil {
		return []model.Record{}, nil
	}
	list, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("query %q must return an array of rows, got %T", expr, res)
	}

	out := make([]model.Record, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("query %q: element %d is %T, want a row object", expr, i, item)
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("marshal result failed: %w", err)
		}
		var r model.Record
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("query %q: element %d: %w", expr, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}
