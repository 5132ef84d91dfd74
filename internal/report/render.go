package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// tablePlaceholder is the template variable replaced by the JSON table.
const tablePlaceholder = "table_json"

// placeholderRe matches "$$", "$name" and "${name}" template markers.
var placeholderRe = regexp.MustCompile(`\$(\$|[_A-Za-z][_A-Za-z0-9]*|\{[_A-Za-z][_A-Za-z0-9]*\})`)

// Name returns the report file name for a log date tag.
func Name(date string) string {
	return "report-" + date + ".html"
}

// Exists reports whether the report for date is already in dir.
func Exists(dir, date string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, Name(date)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Fill substitutes table into the $table_json (or ${table_json}) markers of
// tmpl. "$$" becomes "$" and any other marker is left as is.
func Fill(tmpl string, table []byte) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1:]
		if name == "$" {
			return "$"
		}
		if name[0] == '{' {
			name = name[1 : len(name)-1]
		}
		if name == tablePlaceholder {
			return string(table)
		}
		return m
	})
}

// Render fills the template at templatePath with table and writes the result
// to dest. The file appears atomically; a failed render leaves no report.
func Render(templatePath, dest string, table []byte) error {
	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.html")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(Fill(string(tmpl), table)); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
