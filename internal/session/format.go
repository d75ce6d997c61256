package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts of the persisted record log.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

// Header is the first line of a freshly created record log.
var Header = []string{"StartTime", "EndTime", "Weekday", "Duration"}

// MalformedRecordError reports a persisted field that could not be parsed
type MalformedRecordError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// FormatTimestamp renders t in the persisted timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a persisted timestamp in local time.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, &MalformedRecordError{Field: "timestamp", Value: s, Err: err}
	}
	return t, nil
}

// FormatDuration renders d as HH:MM:SS, dropping any sub-second part.
// Hours are not capped at 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ParseDuration parses an H:MM:SS duration. Hours may have any number of digits;
// minutes and seconds must be in range.
func ParseDuration(s string) (time.Duration, error) {
	malformed := func(err error) (time.Duration, error) {
		return 0, &MalformedRecordError{Field: "duration", Value: s, Err: err}
	}

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return malformed(fmt.Errorf("want H:MM:SS"))
	}

	var fields [3]int64
	for i, p := range parts {
		// Legacy files may carry fractional seconds
		if i == 2 {
			p, _, _ = strings.Cut(p, ".")
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return malformed(err)
		}
		if n < 0 || (i > 0 && n > 59) {
			return malformed(fmt.Errorf("field %d out of range", i))
		}
		fields[i] = n
	}

	return time.Duration(fields[0])*time.Hour +
		time.Duration(fields[1])*time.Minute +
		time.Duration(fields[2])*time.Second, nil
}

// Fields renders the record in persisted column order. Records loaded from a
// malformed line are written back exactly as they were read.
func (r Record) Fields() []string {
	if r.Raw != nil {
		return append([]string(nil), r.Raw...)
	}
	duration := FormatDuration(r.Duration)
	if r.RawDuration != "" {
		duration = r.RawDuration
	}
	return []string{
		FormatTimestamp(r.Start),
		FormatTimestamp(r.End),
		r.Weekday,
		duration,
	}
}

// ParseFields builds a Record from persisted columns. A line that cannot be fully
// decoded still yields a record, flagged Malformed and carrying the raw columns,
// together with the first error found. Fields that did parse are populated.
func ParseFields(fields []string) (Record, error) {
	if len(fields) != len(Header) {
		return malformedRecord(Record{}, fields), &MalformedRecordError{
			Field: "record",
			Value: strings.Join(fields, ";"),
			Err:   fmt.Errorf("want %d fields, got %d", len(Header), len(fields)),
		}
	}

	var (
		rec      Record
		firstErr error
	)
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	start, err := ParseTimestamp(fields[0])
	if err != nil {
		keep(err)
	} else {
		rec.Start = start
	}
	end, err := ParseTimestamp(fields[1])
	if err != nil {
		keep(err)
	} else {
		rec.End = end
	}

	rec.Weekday = strings.TrimSpace(fields[2])
	if rec.Weekday == "" && !rec.Start.IsZero() {
		rec.Weekday = rec.Start.Weekday().String()
	}

	d, err := ParseDuration(fields[3])
	if err != nil {
		keep(err)
		rec.RawDuration = fields[3]
	} else {
		rec.Duration = d
	}

	if firstErr != nil {
		return malformedRecord(rec, fields), firstErr
	}
	return rec, nil
}

func malformedRecord(rec Record, fields []string) Record {
	rec.Malformed = true
	rec.Raw = append([]string(nil), fields...)
	return rec
}

// FormatLogLine renders a record for the session list, e.g.
// "2024-03-04 Mon 09:00 - 09:45 (00:45:12)". Unreadable parts show as "??".
func FormatLogLine(r Record) string {
	if r.Malformed && r.Raw != nil && len(r.Raw) != len(Header) {
		return "?? " + strings.Join(r.Raw, ";")
	}

	date, day, from := "????-??-??", "???", "??:??"
	if !r.Start.IsZero() {
		date, day, from = r.Start.Format(DateLayout), r.Start.Format("Mon"), r.Start.Format("15:04")
	}
	to := "??:??"
	if !r.End.IsZero() {
		to = r.End.Format("15:04")
	}
	duration := FormatDuration(r.Duration)
	if r.RawDuration != "" {
		duration = "??:??:??"
	}
	return fmt.Sprintf("%s %s %s - %s (%s)", date, day, from, to, duration)
}

// FormatElapsed renders a live duration as H:MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
