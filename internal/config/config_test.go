package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "log_analyzer.conf")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		check   func(t *testing.T, c Config)
	}{
		{
			name:    "empty file keeps defaults",
			content: "",
			check: func(t *testing.T, c Config) {
				if !reflect.DeepEqual(c, Default()) {
					t.Fatalf("got %+v, want defaults", c)
				}
			},
		},
		{
			name:    "partial override",
			content: `{"REPORT_SIZE": 10, "LOG_DIR": "/var/log/nginx"}`,
			check: func(t *testing.T, c Config) {
				if c.ReportSize != 10 || c.LogDir != "/var/log/nginx" {
					t.Fatalf("override not applied: %+v", c)
				}
				if c.ParsedPercent != 50 || c.ReportDir != "./reports" {
					t.Fatalf("defaults lost: %+v", c)
				}
			},
		},
		{
			name:    "monitoring log disabled with false",
			content: `{"MONITORING_LOG": false}`,
			check: func(t *testing.T, c Config) {
				if c.MonitoringLog != "" {
					t.Fatalf("MonitoringLog=%q, want empty", c.MonitoringLog)
				}
			},
		},
		{
			name:    "monitoring log path",
			content: `{"MONITORING_LOG": "/tmp/analyzer.log", "CLOUDWATCH_GROUPS": ["/aws/nginx"]}`,
			check: func(t *testing.T, c Config) {
				if c.MonitoringLog != "/tmp/analyzer.log" || len(c.CloudWatchGroups) != 1 {
					t.Fatalf("unexpected config: %+v", c)
				}
			},
		},
		{name: "invalid json", content: `{"REPORT_SIZE": `, wantErr: ErrMalformed},
		{name: "unknown key", content: `{"REPORT_SIZ": 1}`, wantErr: ErrMalformed},
		{name: "wrong type", content: `{"REPORT_SIZE": "ten"}`, wantErr: ErrMalformed},
		{name: "percent out of range", content: `{"PARSED_PERCENT": 101}`, wantErr: ErrMalformed},
		{name: "bad median mode", content: `{"MEDIAN_MODE": "guess"}`, wantErr: ErrMalformed},
		{name: "nats without subject", content: `{"NATS_URL": "nats://127.0.0.1:4222", "NATS_SUBJECT": ""}`, wantErr: ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(writeConfig(t, tt.content))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load err=%v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.conf"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadDirectoryIsUnreadable(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
