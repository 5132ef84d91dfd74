package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
)

// endpointRe matches the first request path: one or more "/segment" groups
// that do not start right after a word character (so dates like 29/Jun/2017
// and user agents like Lynx/2.8 are skipped).
var endpointRe = regexp.MustCompile(`\B(?:/[\w?=&_-]+)+`)

// latencyRe matches a decimal request time that is the last token on the line.
var latencyRe = regexp.MustCompile(`(?:^|\s)(\d+\.\d+)$`)

// ParseLine extracts the endpoint and request time from a raw access-log line.
// ok is false when either part is missing; such lines are expected and are
// not an error.
func ParseLine(line string) (model.Entry, bool) {
	line = strings.TrimRight(line, " \t\r\n")

	endpoint := endpointRe.FindString(line)
	if endpoint == "" {
		return model.Entry{}, false
	}
	m := latencyRe.FindStringSubmatch(line)
	if m == nil {
		return model.Entry{}, false
	}
	latency, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return model.Entry{}, false
	}
	return model.Entry{Endpoint: endpoint, Latency: latency, RawLatency: m[1]}, true
}
