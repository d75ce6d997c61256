package session

import "sort"

// Summarize folds the whole log into per-day totals keyed by YYYY-MM-DD.
// Records with a malformed duration contribute nothing; the rest of their day
// is still counted. The log is not modified.
func Summarize(log []Record) map[string]DailySummary {
	days := make(map[string]DailySummary)

	for i := range log {
		rec := &log[i]
		if rec.Malformed || rec.Start.IsZero() {
			continue
		}

		date := rec.Date()
		day, exists := days[date]
		if !exists {
			day = DailySummary{Date: date, Weekday: rec.Weekday}
		}
		day.TotalSeconds += int64(rec.Duration.Seconds())
		day.SessionCount++
		days[date] = day
	}

	return days
}

// SortedDays returns the summary newest date first.
func SortedDays(days map[string]DailySummary) []DailySummary {
	out := make([]DailySummary, 0, len(days))
	for _, d := range days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// SortLog orders records by start time, most recent first. Records without a
// readable start time keep their relative order at the end.
func SortLog(log []Record) {
	sort.SliceStable(log, func(i, j int) bool {
		return log[i].Start.After(log[j].Start)
	})
}
