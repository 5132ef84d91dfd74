package logfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxLineSize bounds the part of a line handed to callers. Longer lines are
// truncated to this size and the rest is discarded.
const maxLineSize = 1024 * 1024

// Open opens path for reading, transparently decompressing ".gz" files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return zerr
}

// Scan calls fn for every line of r, without the line terminator. A line
// longer than maxLineSize is passed truncated. It stops when fn fails, ctx is
// done, or r returns an error.
func Scan(ctx context.Context, r io.Reader, fn func(line string) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 64*1024)
	for {
		chunk, err := br.ReadSlice('\n')
		if room := maxLineSize - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err == nil || len(line) > 0 {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if ferr := fn(string(trimEOL(line))); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			return nil
		}
		line = line[:0]
	}
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// Source streams the lines of one log file.
type Source struct {
	File string
}

// Lines opens the file and feeds its lines to fn.
func (s Source) Lines(ctx context.Context, fn func(line string) error) error {
	rc, err := Open(s.File)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := Scan(ctx, rc, fn); err != nil {
		return fmt.Errorf("read %s: %w", s.File, err)
	}
	return nil
}
