package model

// Entry is the endpoint and request time extracted from one access-log line.
type Entry struct {
	Endpoint string
	// Latency in seconds.
	Latency float64
	// RawLatency is the latency token exactly as it appeared in the line.
	RawLatency string
}

// Counters are the run-wide totals kept while a log is consumed.
type Counters struct {
	Seen       int
	Parsed     int
	LatencySum float64
}
