package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	_ "modernc.org/sqlite"

	"session_tracker/internal/session"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		startTime TEXT NOT NULL,
		endTime   TEXT NOT NULL,
		weekday   TEXT NOT NULL,
		duration  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_start ON sessions(startTime);
`

// SQLiteStore keeps the log in a SQLite database using the same text columns
// as the CSV log.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger hclog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger hclog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	dsn := path
	if path != ":memory:" {
		path = filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Load returns all records ordered by start time descending.
func (s *SQLiteStore) Load() ([]session.Record, []error, error) {
	rows, err := s.db.Query(`
		SELECT id, startTime, endTime, weekday, duration
		FROM sessions
		ORDER BY startTime DESC
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var (
		records  []session.Record
		warnings []error
	)
	for rows.Next() {
		var id int64
		fields := make([]string, 4)
		if err := rows.Scan(&id, &fields[0], &fields[1], &fields[2], &fields[3]); err != nil {
			return nil, warnings, fmt.Errorf("scan session: %w", err)
		}

		rec, err := session.ParseFields(fields)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("row %d: %w", id, err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, warnings, fmt.Errorf("iterate sessions: %w", err)
	}

	session.SortLog(records)
	return records, warnings, nil
}

// Save replaces all rows with log in a single transaction.
func (s *SQLiteStore) Save(log []session.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sessions (startTime, endTime, weekday, duration)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range log {
		f := columns(rec.Fields())
		if _, err := stmt.Exec(f[0], f[1], f[2], f[3]); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// columns fits a raw line into the four table columns. Missing columns are
// empty and any extras stay joined in the last one.
func columns(fields []string) [4]string {
	var out [4]string
	for i, f := range fields {
		if i >= len(out) {
			out[len(out)-1] += ";" + f
			continue
		}
		out[i] = f
	}
	return out
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
