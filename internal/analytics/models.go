package analytics

import "time"

// Window is a bounded time range used to filter call records before
// aggregation. Start is inclusive.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowDaysBack builds the standard dashboard windows (7/30/90 days back
// from now).
func WindowDaysBack(now time.Time, days int) Window {
	return Window{Start: now.Add(-time.Duration(days) * 24 * time.Hour), End: now}
}

func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// Report is derived, ephemeral analytics over a window of call records.
// Values are unrounded; callers round for display.
type Report struct {
	TotalCalls int `json:"total_calls"`

	// SuccessRate is a percentage (0-100); 0 when the window is empty.
	SuccessRate float64 `json:"success_rate"`

	// AvgDurationSeconds averages over completed calls. Completed calls
	// missing a timestamp count 0 seconds but stay in the denominator.
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`

	TotalCost float64 `json:"total_cost"`

	// PeakHours is a dense 24-bucket histogram by hour of day.
	PeakHours []HourBucket `json:"peak_hours"`

	// DailyTrends holds the last 14 dates present in the window, oldest
	// first. Dates with zero records are absent, not zero-filled.
	DailyTrends []DailyTrend `json:"daily_trends"`

	// CallTypes is the keyword-classified intent distribution.
	CallTypes []CallType `json:"call_types"`

	// MonthlyComparison holds the last 3 months present, oldest first.
	MonthlyComparison []MonthlyStat `json:"monthly_comparison"`
}

type HourBucket struct {
	Hour  int `json:"hour"`
	Calls int `json:"calls"`
}

type DailyTrend struct {
	Date       string  `json:"date"` // "Jan 2" display form
	Calls      int     `json:"calls"`
	Successful int     `json:"successful"`
	Cost       float64 `json:"cost"`
}

type CallType struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type MonthlyStat struct {
	Month string  `json:"month"` // "Jan" display form
	Calls int     `json:"calls"`
	Cost  float64 `json:"cost"`
}
