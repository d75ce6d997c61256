package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"session_tracker/internal/session"
)

// CSVStore keeps the log as a ';' separated text file with a header line.
type CSVStore struct {
	path   string
	logger hclog.Logger
}

// OpenCSV opens the log at path, creating it with just a header if missing.
func OpenCSV(path string, logger hclog.Logger) (*CSVStore, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &CSVStore{path: filepath.Clean(path), logger: logger}

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := s.Save(nil); err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		s.logger.Info("created record log", "path", s.path)
	} else if err != nil {
		return nil, fmt.Errorf("stat log file: %w", err)
	}

	return s, nil
}

// Path returns the file backing the store.
func (s *CSVStore) Path() string {
	return s.path
}

// Load reads all records, sorted by start time descending.
func (s *CSVStore) Load() ([]session.Record, []error, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	return readRecords(f)
}

func readRecords(r io.Reader) ([]session.Record, []error, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var (
		records  []session.Record
		warnings []error
	)
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				warnings = append(warnings, fmt.Errorf("line %d: %w", perr.Line, err))
				continue
			}
			return nil, warnings, fmt.Errorf("read log file: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if line == 1 && len(fields) > 0 && fields[0] == session.Header[0] {
			continue
		}

		// Malformed lines are kept so the next save writes them back
		rec, err := session.ParseFields(fields)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("line %d: %w", line, err))
		}
		records = append(records, rec)
	}

	session.SortLog(records)
	return records, warnings, nil
}

// Save rewrites the whole file through a temp file and rename.
func (s *CSVStore) Save(log []session.Record) error {
	sorted := make([]session.Record, len(log))
	copy(sorted, log)
	session.SortLog(sorted)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session_log-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeRecords(tmp, sorted); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace log file: %w", err)
	}
	return nil
}

func writeRecords(w io.Writer, log []session.Record) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(session.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range log {
		if err := cw.Write(rec.Fields()); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Close is a no-op; the file is only open during Load and Save.
func (s *CSVStore) Close() error {
	return nil
}
