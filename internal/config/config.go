package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/analyzer"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/logfile"
)

// DefaultPath is where the config file is looked up when none is given.
const DefaultPath = "./log_analyzer.conf"

var (
	// ErrNotFound means the config file does not exist.
	ErrNotFound = errors.New("config file not found")
	// ErrUnreadable means the config file exists but could not be read.
	ErrUnreadable = errors.New("config file unreadable")
	// ErrMalformed means the config file content is not a valid configuration.
	ErrMalformed = errors.New("config file malformed")
)

// Config is the run configuration. It is built once at startup and passed by
// value; nothing mutates it afterwards. JSON keys match the config file.
type Config struct {
	ReportSize    int          `json:"REPORT_SIZE"`
	ReportDir     string       `json:"REPORT_DIR"`
	LogDir        string       `json:"LOG_DIR"`
	LogPrefix     string       `json:"LOG_PREFIX"`
	ParsedPercent int          `json:"PARSED_PERCENT"`
	TSFile        string       `json:"TS_DIR"`
	MonitoringLog OptionalPath `json:"MONITORING_LOG"`
	LogLevel      string       `json:"LOG_LEVEL"`
	TemplatePath  string       `json:"TEMPLATE_PATH"`
	MedianMode    string       `json:"MEDIAN_MODE"`

	// HistoryDB is the sqlite file recording every run; empty disables it.
	HistoryDB string `json:"HISTORY_DB"`

	// NATSURL enables run notifications when set.
	NATSURL     string `json:"NATS_URL"`
	NATSSubject string `json:"NATS_SUBJECT"`

	CloudWatchGroups []string `json:"CLOUDWATCH_GROUPS"`
}

// OptionalPath is a path that may be disabled with false or null in JSON.
type OptionalPath string

func (p *OptionalPath) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" || string(b) == "false" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("expected path string or false: %w", err)
	}
	*p = OptionalPath(s)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ReportSize:    100,
		ReportDir:     "./reports",
		LogDir:        "./log",
		LogPrefix:     logfile.DefaultPrefix,
		ParsedPercent: 50,
		TSFile:        "/var/tmp/log_analyzer.ts",
		LogLevel:      "info",
		TemplatePath:  "./reports/report.html",
		MedianMode:    string(analyzer.MedianExact),
		NATSSubject:   "log_analyzer.report",
	}
}

// Load reads the JSON config file at path over Default. A missing file wraps
// ErrNotFound; bad content wraps ErrMalformed. Both are fatal for the caller.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Config{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	if len(bytes.TrimSpace(b)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	cfg.CloudWatchGroups = append([]string(nil), cfg.CloudWatchGroups...)
	return cfg, nil
}

// Validate checks value ranges and required settings.
func (c Config) Validate() error {
	var problems []string
	if c.ReportSize < 0 {
		problems = append(problems, "REPORT_SIZE must not be negative")
	}
	if c.ParsedPercent < 0 || c.ParsedPercent > 100 {
		problems = append(problems, "PARSED_PERCENT must be between 0 and 100")
	}
	if strings.TrimSpace(c.ReportDir) == "" {
		problems = append(problems, "REPORT_DIR is required")
	}
	if strings.TrimSpace(c.LogDir) == "" {
		problems = append(problems, "LOG_DIR is required")
	}
	if strings.TrimSpace(c.LogPrefix) == "" {
		problems = append(problems, "LOG_PREFIX is required")
	}
	if _, err := analyzer.ParseMedianMode(c.MedianMode); err != nil {
		problems = append(problems, err.Error())
	}
	if c.NATSURL != "" && strings.TrimSpace(c.NATSSubject) == "" {
		problems = append(problems, "NATS_SUBJECT is required with NATS_URL")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
