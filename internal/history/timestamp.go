package history

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TouchTimestamp writes the unix time of a successful run to path so that
// external monitoring can tell when the last report was produced.
func TouchTimestamp(path string, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.FormatInt(now.Unix(), 10)), 0o644)
}

// ReadTimestamp returns the time stored by TouchTimestamp.
func ReadTimestamp(path string) (time.Time, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}
