package model

import "time"

// LogRecord is one CloudWatch event fetched as an access-log line.
type LogRecord struct {
	Timestamp time.Time
	LogGroup  string
	LogStream string
	Message   string
}

// LogFile is the access log chosen for a run. Date is the 8-digit tag taken
// from the file name (or from the search window for CloudWatch sources).
type LogFile struct {
	Path string
	Date string
}
