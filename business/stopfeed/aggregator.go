package stopfeed

import (
	"sort"
	"time"
)

// unrankedMinutes sorts a line with no confirmed arrival time after every line
// that has one.
const unrankedMinutes = 9999

// aggregateLines groups arrivals by line, keeping the two soonest distinct
// minute values per line, and orders lines soonest-first. The first destination
// seen for a line is retained: the feeds report one destination per line per
// stop query. Output is capped at maxLines entries.
func aggregateLines(arrivals []ArrivalRecord, maxLines int, now time.Time, location *time.Location) []LineSummary {
	byLine := make(map[string][]int)
	var order []string
	destinations := make(map[string]string)

	for _, arrival := range arrivals {
		if !arrival.Valid() {
			continue
		}
		if _, seen := byLine[arrival.Line]; !seen {
			order = append(order, arrival.Line)
			destinations[arrival.Line] = arrival.Destination
		}
		byLine[arrival.Line] = append(byLine[arrival.Line], arrival.Minutes)
	}

	summaries := make([]LineSummary, 0, len(order))
	for _, line := range order {
		first, second := twoSoonest(byLine[line])
		summary := LineSummary{
			Line:        line,
			Destination: destinations[line],
			M1:          first,
			M2:          second,
		}
		if location != nil {
			if first != nil {
				clock := localClock(now, *first, location)
				summary.T1Local = &clock
			}
			if second != nil {
				clock := localClock(now, *second, location)
				summary.T2Local = &clock
			}
		}
		summaries = append(summaries, summary)
	}

	// stable keeps discovery order between lines sharing the same soonest time
	sort.SliceStable(summaries, func(i, j int) bool {
		return rankMinutes(summaries[i].M1) < rankMinutes(summaries[j].M1)
	})

	if maxLines > 0 && len(summaries) > maxLines {
		summaries = summaries[:maxLines]
	}
	return summaries
}

// twoSoonest returns the smallest and second smallest distinct values in
// minutes, nil when fewer than that many distinct values exist.
func twoSoonest(minutes []int) (*int, *int) {
	distinct := make(map[int]bool, len(minutes))
	var uniq []int
	for _, m := range minutes {
		if !distinct[m] {
			distinct[m] = true
			uniq = append(uniq, m)
		}
	}
	sort.Ints(uniq)

	var first, second *int
	if len(uniq) > 0 {
		first = &uniq[0]
	}
	if len(uniq) > 1 {
		second = &uniq[1]
	}
	return first, second
}

func rankMinutes(m *int) int {
	if m == nil {
		return unrankedMinutes
	}
	return *m
}

// sortDepartures orders raw arrivals soonest-first for debug output, keeping
// feed order between equal times.
func sortDepartures(arrivals []ArrivalRecord) []ArrivalRecord {
	sorted := make([]ArrivalRecord, len(arrivals))
	copy(sorted, arrivals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Minutes < sorted[j].Minutes
	})
	return sorted
}
