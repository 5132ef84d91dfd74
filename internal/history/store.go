package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one analyzer execution.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Date          string
	Source        string
	Seen          int
	Parsed        int
	ParsedPercent float64
	Endpoints     int
	Report        string
	Status        string
	Error         string
}

// NewRunID returns a time-ordered unique run id.
func NewRunID() string {
	return ulid.Make().String()
}

// Store keeps the run history in sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs(
		id TEXT PRIMARY KEY,
		started_at INTEGER,
		finished_at INTEGER,
		log_date TEXT,
		source TEXT,
		lines_seen INTEGER,
		lines_parsed INTEGER,
		parsed_percent REAL,
		endpoints INTEGER,
		report TEXT,
		status TEXT,
		error TEXT
	)`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS runs_log_date ON runs(log_date, finished_at)`); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts r, assigning an id when it has none.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs(
		id, started_at, finished_at, log_date, source, lines_seen, lines_parsed, parsed_percent, endpoints, report, status, error)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(), r.Date, r.Source, r.Seen, r.Parsed,
		r.ParsedPercent, r.Endpoints, r.Report, r.Status, r.Error)
	return r, err
}

// Last returns the most recently finished run for a log date.
func (s *Store) Last(ctx context.Context, date string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id, started_at, finished_at, log_date, source, lines_seen, lines_parsed, parsed_percent, endpoints, report, status, error
		FROM runs WHERE log_date = ? ORDER BY finished_at DESC, id DESC LIMIT 1`, date)
	var r Run
	var started, finished int64
	err := row.Scan(&r.ID, &started, &finished, &r.Date, &r.Source, &r.Seen, &r.Parsed,
		&r.ParsedPercent, &r.Endpoints, &r.Report, &r.Status, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	r.StartedAt = time.Unix(0, started)
	r.FinishedAt = time.Unix(0, finished)
	return r, true, nil
}
