package client_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/client"
	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// mockLogsAPI implements client.LogsAPI for testing.
type mockLogsAPI struct {
	responses []*cloudwatchlogs.FilterLogEventsOutput
	inputs    []*cloudwatchlogs.FilterLogEventsInput
	err       error
	call      int
}

func (m *mockLogsAPI) FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	if m.call < len(m.responses) {
		r := m.responses[m.call]
		m.call++
		return r, nil
	}
	m.call++
	return &cloudwatchlogs.FilterLogEventsOutput{}, nil
}

const accessLine = `1.196.116.32 -  - [29/Jun/2017:03:50:22 +0300] "GET /api/v2/banner/25019354 HTTP/1.1" 200 927 "-" "-" "-" "-" "-" 0.390`

func TestSearchGroup(t *testing.T) {
	ts1 := int64(1700000000123)
	ts2 := int64(1700000000456)

	tests := []struct {
		name        string
		group       string
		filter      string
		startMs     int64
		endMs       int64
		mock        *mockLogsAPI
		wantRecords []model.LogRecord
		wantCalls   int
		wantErr     bool
	}{
		{
			name:    "single page returns access lines",
			group:   "/nginx/ui",
			filter:  "",
			startMs: 0,
			endMs:   2000000000000,
			mock: &mockLogsAPI{responses: []*cloudwatchlogs.FilterLogEventsOutput{
				{
					Events: []types.FilteredLogEvent{
						{Timestamp: aws.Int64(ts1), LogStreamName: aws.String("i-1"), Message: aws.String(accessLine)},
						{Timestamp: aws.Int64(ts2), LogStreamName: aws.String("i-2"), Message: aws.String("garbage")},
					},
				},
			}},
			wantRecords: []model.LogRecord{
				{Timestamp: time.UnixMilli(ts1), LogGroup: "/nginx/ui", LogStream: "i-1", Message: accessLine},
				{Timestamp: time.UnixMilli(ts2), LogGroup: "/nginx/ui", LogStream: "i-2", Message: "garbage"},
			},
			wantCalls: 1,
		},
		{
			name:    "paginates until token repeats",
			group:   "/nginx/api",
			filter:  "GET",
			startMs: 1000,
			endMs:   9999,
			mock: &mockLogsAPI{responses: []*cloudwatchlogs.FilterLogEventsOutput{
				{
					Events:    []types.FilteredLogEvent{{Timestamp: aws.Int64(ts1), LogStreamName: aws.String("a"), Message: aws.String("m1")}},
					NextToken: aws.String("A"),
				},
				{
					Events:    []types.FilteredLogEvent{{Timestamp: aws.Int64(ts2), LogStreamName: aws.String("b"), Message: aws.String("m2")}},
					NextToken: aws.String("A"),
				},
			}},
			wantRecords: []model.LogRecord{
				{Timestamp: time.UnixMilli(ts1), LogGroup: "/nginx/api", LogStream: "a", Message: "m1"},
				{Timestamp: time.UnixMilli(ts2), LogGroup: "/nginx/api", LogStream: "b", Message: "m2"},
			},
			wantCalls: 2,
		},
		{
			name:    "propagates api error",
			group:   "group-x",
			startMs: 1,
			endMs:   2,
			mock:    &mockLogsAPI{err: errors.New("boom")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cwc := client.NewWithAPI(tt.mock)

			got, err := cwc.SearchGroup(context.Background(), tt.group, tt.filter, tt.startMs, tt.endMs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.mock.call != tt.wantCalls {
				t.Fatalf("FilterLogEvents calls = %d, want %d", tt.mock.call, tt.wantCalls)
			}
			if len(got) != len(tt.wantRecords) {
				t.Fatalf("records len = %d, want %d", len(got), len(tt.wantRecords))
			}
			for i := range tt.wantRecords {
				if !got[i].Timestamp.Equal(tt.wantRecords[i].Timestamp) ||
					got[i].LogGroup != tt.wantRecords[i].LogGroup ||
					got[i].LogStream != tt.wantRecords[i].LogStream ||
					got[i].Message != tt.wantRecords[i].Message {
					t.Fatalf("record[%d] = %+v, want %+v", i, got[i], tt.wantRecords[i])
				}
			}
			for _, in := range tt.mock.inputs {
				if aws.ToString(in.LogGroupName) != tt.group {
					t.Fatalf("LogGroupName = %q, want %q", aws.ToString(in.LogGroupName), tt.group)
				}
				if tt.filter == "" && in.FilterPattern != nil {
					t.Fatalf("FilterPattern = %q, want unset", aws.ToString(in.FilterPattern))
				}
				if tt.filter != "" && aws.ToString(in.FilterPattern) != tt.filter {
					t.Fatalf("FilterPattern = %q, want %q", aws.ToString(in.FilterPattern), tt.filter)
				}
				if aws.ToInt64(in.StartTime) != tt.startMs || aws.ToInt64(in.EndTime) != tt.endMs {
					t.Fatalf("Start/End = (%d,%d), want (%d,%d)", aws.ToInt64(in.StartTime), aws.ToInt64(in.EndTime), tt.startMs, tt.endMs)
				}
			}
		})
	}
}

func TestNewCloudWatchOptions(t *testing.T) {
	tests := []struct {
		name    string
		options client.AuthOptions
		env     map[string]string // value "" means unset
		wantLen int
	}{
		{
			name:    "no region or profile, no env",
			options: client.AuthOptions{},
			env:     map[string]string{"AWS_PROFILE": "", "AWS_ACCESS_KEY_ID": "", "AWS_SECRET_ACCESS_KEY": ""},
			wantLen: 0,
		},
		{
			name:    "with region",
			options: client.AuthOptions{Region: "us-east-1"},
			env:     map[string]string{"AWS_PROFILE": "", "AWS_ACCESS_KEY_ID": "", "AWS_SECRET_ACCESS_KEY": ""},
			wantLen: 1,
		},
		{
			name:    "with profile flag",
			options: client.AuthOptions{Profile: "my-profile"},
			env:     map[string]string{"AWS_PROFILE": "", "AWS_ACCESS_KEY_ID": "", "AWS_SECRET_ACCESS_KEY": ""},
			wantLen: 1,
		},
		{
			name:    "with AWS_PROFILE env",
			options: client.AuthOptions{},
			env:     map[string]string{"AWS_PROFILE": "env-profile", "AWS_ACCESS_KEY_ID": "", "AWS_SECRET_ACCESS_KEY": ""},
			wantLen: 1,
		},
		{
			name:    "with static creds",
			options: client.AuthOptions{},
			env:     map[string]string{"AWS_PROFILE": "", "AWS_ACCESS_KEY_ID": "key", "AWS_SECRET_ACCESS_KEY": "secret"},
			wantLen: 1,
		},
		{
			name:    "profile overrides static creds",
			options: client.AuthOptions{Profile: "my-profile"},
			env:     map[string]string{"AWS_PROFILE": "", "AWS_ACCESS_KEY_ID": "key", "AWS_SECRET_ACCESS_KEY": "secret"},
			wantLen: 1,
		},
		{
			name:    "with region and profile",
			options: client.AuthOptions{Region: "us-west-2", Profile: "another-profile"},
			env:     map[string]string{"AWS_PROFILE": ""},
			wantLen: 2,
		},
		{
			name:    "with region and static creds",
			options: client.AuthOptions{Region: "us-west-2"},
			env:     map[string]string{"AWS_PROFILE": "", "AWS_ACCESS_KEY_ID": "key", "AWS_SECRET_ACCESS_KEY": "secret"},
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				old, had := os.LookupEnv(k)
				if v == "" {
					os.Unsetenv(k)
				} else {
					os.Setenv(k, v)
				}
				defer func(k, old string, had bool) {
					if had {
						os.Setenv(k, old)
					} else {
						os.Unsetenv(k)
					}
				}(k, old, had)
			}

			opts := client.NewCloudWatchOptions(tt.options)
			if len(opts) != tt.wantLen {
				t.Errorf("NewCloudWatchOptions() returned %d options, want %d", len(opts), tt.wantLen)
			}
		})
	}
}
