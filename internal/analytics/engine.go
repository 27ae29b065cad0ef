package analytics

import (
	"sort"
	"strings"
	"time"

	"voiceagent-dashboard/internal/vapi"
)

const statusCompleted = "completed"

// Intent labels, in classification priority order.
const (
	IntentReservation    = "Reservation"
	IntentMenuInquiry    = "Menu Inquiry"
	IntentHoursInquiry   = "Hours Inquiry"
	IntentOrder          = "Order"
	IntentComplaint      = "Complaint"
	IntentGeneralInquiry = "General Inquiry"
	IntentUnknown        = "Unknown"
)

// Aggregate computes display-ready analytics from a window of call records.
// Pure and single-pass per metric; an empty window yields zero totals and
// empty series, never an error.
func Aggregate(records []vapi.Call, w Window) Report {
	filtered := make([]vapi.Call, 0, len(records))
	for _, c := range records {
		if w.Contains(c.CreatedAt) {
			filtered = append(filtered, c)
		}
	}

	out := Report{
		TotalCalls: len(filtered),
		PeakHours:  make([]HourBucket, 24),
	}
	for h := range out.PeakHours {
		out.PeakHours[h].Hour = h
	}

	completed := 0
	var durationSum float64
	for _, c := range filtered {
		out.TotalCost += c.Cost
		out.PeakHours[c.CreatedAt.Hour()].Calls++
		if c.Status == statusCompleted {
			completed++
			// 0 for completed-but-untimed calls; they still dilute the
			// average via the full completed denominator.
			durationSum += c.DurationSeconds()
		}
	}
	if out.TotalCalls > 0 {
		out.SuccessRate = float64(completed) / float64(out.TotalCalls) * 100
	}
	if completed > 0 {
		out.AvgDurationSeconds = durationSum / float64(completed)
	}

	out.DailyTrends = dailyTrends(filtered)
	out.CallTypes = callTypes(filtered)
	out.MonthlyComparison = monthlyComparison(filtered)
	return out
}

func dailyTrends(records []vapi.Call) []DailyTrend {
	type dayStats struct {
		calls, successful int
		cost              float64
	}
	byDay := map[string]*dayStats{}
	for _, c := range records {
		key := c.CreatedAt.Format("2006-01-02")
		s := byDay[key]
		if s == nil {
			s = &dayStats{}
			byDay[key] = s
		}
		s.calls++
		if c.Status == statusCompleted {
			s.successful++
		}
		s.cost += c.Cost
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	// only the last 14 dates present; absent dates stay absent
	if len(keys) > 14 {
		keys = keys[len(keys)-14:]
	}

	out := make([]DailyTrend, 0, len(keys))
	for _, k := range keys {
		s := byDay[k]
		t, _ := time.Parse("2006-01-02", k)
		out = append(out, DailyTrend{
			Date:       t.Format("Jan 2"),
			Calls:      s.calls,
			Successful: s.successful,
			Cost:       s.cost,
		})
	}
	return out
}

func callTypes(records []vapi.Call) []CallType {
	counts := map[string]int{}
	for _, c := range records {
		counts[ExtractIntent(c.Summary)]++
	}

	out := make([]CallType, 0, len(counts))
	for typ, n := range counts {
		ct := CallType{Type: typ, Count: n}
		if len(records) > 0 {
			ct.Percentage = float64(n) / float64(len(records)) * 100
		}
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func monthlyComparison(records []vapi.Call) []MonthlyStat {
	type monthStats struct {
		calls int
		cost  float64
	}
	byMonth := map[string]*monthStats{}
	for _, c := range records {
		key := c.CreatedAt.Format("2006-01")
		s := byMonth[key]
		if s == nil {
			s = &monthStats{}
			byMonth[key] = s
		}
		s.calls++
		s.cost += c.Cost
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	// only the last 3 months present in the window
	if len(keys) > 3 {
		keys = keys[len(keys)-3:]
	}

	out := make([]MonthlyStat, 0, len(keys))
	for _, k := range keys {
		s := byMonth[k]
		t, _ := time.Parse("2006-01", k)
		out = append(out, MonthlyStat{Month: t.Format("Jan"), Calls: s.calls, Cost: s.cost})
	}
	return out
}

// ExtractIntent classifies a call summary into the fixed taxonomy by
// ordered, case-insensitive substring matching. The precedence is fixed:
// a summary mentioning both "menu" and "order" is a Menu Inquiry because
// menu is checked first.
func ExtractIntent(summary string) string {
	if summary == "" {
		return IntentUnknown
	}
	lower := strings.ToLower(summary)
	switch {
	case strings.Contains(lower, "reservation") || strings.Contains(lower, "booking"):
		return IntentReservation
	case strings.Contains(lower, "menu"):
		return IntentMenuInquiry
	case strings.Contains(lower, "hours"):
		return IntentHoursInquiry
	case strings.Contains(lower, "order"):
		return IntentOrder
	case strings.Contains(lower, "complaint"):
		return IntentComplaint
	default:
		return IntentGeneralInquiry
	}
}
