package logfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
)

// DefaultPrefix is the file name prefix of the UI access logs.
const DefaultPrefix = "nginx-access-ui.log"

// ErrListDir is returned when the log directory cannot be read.
var ErrListDir = errors.New("cannot list log directory")

// Pattern returns the regexp matching "<prefix>-YYYYMMDD" with an optional
// ".gz" suffix. The first group is the date tag.
func Pattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-(\d{8})(?:\.gz)?$`)
}

// Find picks the newest log among names. Names are compared as raw strings
// in descending order and the first one matching the pattern wins; dates are
// never parsed. ok is false when nothing matches.
func Find(names []string, dir, prefix string) (model.LogFile, bool) {
	re := Pattern(prefix)
	sorted := append([]string(nil), names...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))
	for _, name := range sorted {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		return model.LogFile{Path: filepath.Join(dir, name), Date: m[1]}, true
	}
	return model.LogFile{}, false
}

// List returns the names of the regular files in dir.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrListDir, dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
