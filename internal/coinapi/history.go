package coinapi

import (
	"fmt"
	"strings"
	"time"
)

// TimeFilter is a chart range selectable by the user
type TimeFilter string

const (
	FilterOneDay    TimeFilter = "1D"
	FilterOneWeek   TimeFilter = "1W"
	FilterOneMonth  TimeFilter = "1M"
	FilterSixMonths TimeFilter = "6M"
	FilterOneYear   TimeFilter = "1Y"
	FilterFiveYears TimeFilter = "5Y"
	FilterAll       TimeFilter = "ALL"
)

// TimeFilters lists the filters in display order
var TimeFilters = []TimeFilter{
	FilterOneDay, FilterOneWeek, FilterOneMonth, FilterSixMonths,
	FilterOneYear, FilterFiveYears, FilterAll,
}

// ParseTimeFilter accepts a filter label, case-insensitively
func ParseTimeFilter(s string) (TimeFilter, error) {
	for _, f := range TimeFilters {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown time filter %q", s)
}

// Query returns the history query for source/target covering the filter's
// range ending at now. The one-day chart looks back three days at hourly
// granularity so it always has enough points to draw.
func (f TimeFilter) Query(source, target string, now time.Time) PeriodQuery {
	q := PeriodQuery{
		SourceAsset: source,
		TargetAsset: target,
		PeriodID:    "1DAY",
		End:         now,
	}

	switch f {
	case FilterOneDay:
		q.Start = now.AddDate(0, 0, -3)
		q.PeriodID = "1HRS"
	case FilterOneWeek:
		q.Start = now.AddDate(0, 0, -7)
		q.PeriodID = "4HRS"
	case FilterOneMonth:
		q.Start = now.AddDate(0, -1, 0)
	case FilterSixMonths:
		q.Start = now.AddDate(0, -6, 0)
		q.PeriodID = "10DAY"
	case FilterOneYear:
		q.Start = now.AddDate(-1, 0, 0)
		q.PeriodID = "10DAY"
	case FilterFiveYears:
		q.Start = now.AddDate(-5, 0, 0)
		q.PeriodID = "10DAY"
	default:
		q.Start = now.Add(-defaultLookback)
		q.PeriodID = "10DAY"
	}
	return q
}

// FilterPeriods keeps the periods lying entirely inside [start, end].
// Periods with unparseable timestamps are dropped.
func FilterPeriods(periods []ExchangePeriod, start, end time.Time) []ExchangePeriod {
	out := make([]ExchangePeriod, 0, len(periods))
	for _, p := range periods {
		ps, err := time.Parse(time.RFC3339Nano, p.TimePeriodStart)
		if err != nil {
			continue
		}
		pe, err := time.Parse(time.RFC3339Nano, p.TimePeriodEnd)
		if err != nil {
			continue
		}
		if !ps.Before(start) && !pe.After(end) {
			out = append(out, p)
		}
	}
	return out
}
