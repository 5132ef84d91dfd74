package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/config"
)

// Log sources.
const (
	SourceDir        = "dir"
	SourceCloudWatch = "cloudwatch"
)

// Options holds CLI options after parsing flags and env defaults.
type Options struct {
	ConfigPath    string
	Source        string
	GroupsCSV     string
	Region        string
	Profile       string
	FilterPattern string
	StartRFC3339  string
	EndRFC3339    string
	Concurrency   int
	Query         string
	JSON          bool
	PrettyJSON    bool
}

// Validate checks relationships between flags.
// Returns an error message and exit code; code 0 means the options are usable.
func (o *Options) Validate() (string, int) {
	if CountFlagOccurrences("--config") > 1 {
		return "error: --config specified multiple times", 2
	}
	switch o.Source {
	case SourceDir:
		if o.FilterPattern != "" || o.StartRFC3339 != "" || o.EndRFC3339 != "" {
			return "error: --filter-pattern, --start and --end require --source cloudwatch", 2
		}
	case SourceCloudWatch:
	default:
		return fmt.Sprintf("error: unknown --source %q (want %s or %s)", o.Source, SourceDir, SourceCloudWatch), 2
	}
	if o.PrettyJSON && !o.JSON {
		return "error: --pretty requires --json", 2
	}
	if o.Concurrency < 1 {
		return "error: --concurrency must be at least 1", 2
	}
	return "", 0
}

// Groups returns the CloudWatch groups from --groups/LOG_GROUP_NAMES, or
// fallback (the config file's list) when none were given.
func (o *Options) Groups(fallback []string) []string {
	if groups := ParseGroupsCSV(o.GroupsCSV); len(groups) > 0 {
		return groups
	}
	return fallback
}

// CollectOptions parses flags with environment-backed defaults and returns Options.
func CollectOptions() *Options {
	var configPath string
	var source string
	var groupsCSV string
	var region string
	var profileFlag string
	var filterPattern string
	var startStr string
	var endStr string
	var concurrency int
	var query string
	var jsonOut bool
	var prettyJSON bool

	configPath = config.DefaultPath
	if v := os.Getenv("LOG_ANALYZER_CONFIG"); v != "" {
		configPath = v
	}
	if v := os.Getenv("LOG_GROUP_NAMES"); v != "" {
		groupsCSV = v
	}

	flag.StringVar(&configPath, "config", configPath, "Path to the JSON config file (or set LOG_ANALYZER_CONFIG)")
	flag.StringVar(&source, "source", SourceDir, "Where to read access logs: dir or cloudwatch")
	flag.StringVar(&groupsCSV, "groups", groupsCSV, "Comma-separated CloudWatch log group names (cloudwatch source)")
	flag.StringVar(&region, "region", os.Getenv("AWS_REGION"), "AWS region (optional; falls back to AWS defaults)")
	flag.StringVar(&profileFlag, "profile", "", "AWS shared config profile (or set AWS_PROFILE)")
	flag.StringVar(&filterPattern, "filter-pattern", "", "CloudWatch Logs filter pattern (optional)")
	flag.StringVar(&startStr, "start", "", "Start time RFC3339 (cloudwatch source)")
	flag.StringVar(&endStr, "end", "", "End time RFC3339 (cloudwatch source)")
	flag.IntVar(&concurrency, "concurrency", 4, "Log groups fetched concurrently (cloudwatch source)")
	flag.StringVar(&query, "query", "", "JMESPath expression applied to the report rows before truncation")
	flag.BoolVar(&jsonOut, "json", false, "Print the report table as JSON instead of writing the HTML report")
	flag.BoolVar(&prettyJSON, "pretty", false, "Indent --json output")
	flag.Parse()

	return &Options{
		ConfigPath:    configPath,
		Source:        strings.ToLower(strings.TrimSpace(source)),
		GroupsCSV:     groupsCSV,
		Region:        region,
		Profile:       profileFlag,
		FilterPattern: filterPattern,
		StartRFC3339:  startStr,
		EndRFC3339:    endStr,
		Concurrency:   concurrency,
		Query:         query,
		JSON:          jsonOut,
		PrettyJSON:    prettyJSON,
	}
}

// ParseGroupsCSV turns a comma-separated groups string into slice, trimming empties.
func ParseGroupsCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var groups []string
	for _, g := range strings.Split(csv, ",") {
		g = strings.TrimSpace(g)
		if g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// ResolveTimeWindow computes the [start,end] from optional RFC3339 strings.
// Rules:
// - both empty: last 24h ending at now
// - only start: end = now
// - only end: start = end - 24h
// - both set: validate start <= end
func ResolveTimeWindow(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	if startStr == "" && endStr == "" {
		return now.Add(-24 * time.Hour), now, nil
	}
	var start time.Time
	var end time.Time
	var err error
	if startStr != "" {
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if startStr != "" && endStr == "" {
		end = now
	} else if startStr == "" && endStr != "" {
		start = end.Add(-24 * time.Hour)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, ErrStartAfterEnd
	}
	return start, end, nil
}

// ErrStartAfterEnd represents an invalid time window where start > end.
var ErrStartAfterEnd = &timeRangeError{"start is after end"}

type timeRangeError struct{ s string }

func (e *timeRangeError) Error() string { return e.s }

// CountFlagOccurrences counts how many times a long flag (e.g., "--config") appears
// considering both "--flag value" and "--flag=value" forms.
func CountFlagOccurrences(flagName string) int {
	count := 0
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == flagName {
			count++
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		if strings.HasPrefix(a, flagName+"=") {
			count++
			continue
		}
	}
	return count
}
