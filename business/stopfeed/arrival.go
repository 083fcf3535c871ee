// Package stopfeed aggregates upcoming bus arrivals for a stop from the two
// upstream TMB feeds, normalizing their inconsistent payload shapes into a
// single caller-facing summary per line.
package stopfeed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ArrivalRecord is one normalized upcoming arrival: a line, the destination it
// is heading to, and the whole minutes until it reaches the stop.
// Line and Destination are non-empty after trimming, Minutes is never negative.
type ArrivalRecord struct {
	Line        string `json:"line"`
	Destination string `json:"destination"`
	Minutes     int    `json:"minutes"`
}

// Valid reports whether the record satisfies the ArrivalRecord invariants.
func (a ArrivalRecord) Valid() bool {
	return strings.TrimSpace(a.Line) != "" && strings.TrimSpace(a.Destination) != "" && a.Minutes >= 0
}

// LineSummary is the per-line view presented to callers: the soonest and second
// soonest distinct arrival minute values observed for the line at a stop.
// M1 and M2 are nil when fewer than that many distinct times were seen.
// T1Local/T2Local carry the same times rendered as HH:MM in the service timezone.
type LineSummary struct {
	Line        string  `json:"line"`
	Destination string  `json:"destination"`
	M1          *int    `json:"m1"`
	M2          *int    `json:"m2"`
	T1Local     *string `json:"t1_local,omitempty"`
	T2Local     *string `json:"t2_local,omitempty"`
}

// RampKO identifies a predicted bus whose wheelchair ramp the official feed
// reports as out of service.
type RampKO struct {
	Line        string `json:"line"`
	Destination string `json:"destination"`
}

// StopDetail carries stop-level metadata the official feed provides alongside
// its predictions.
type StopDetail struct {
	StopID         string   `json:"stop_id"`
	Name           *string  `json:"name"`
	APITimestampMS *int64   `json:"api_timestamp_ms"`
	RampKOCount    int      `json:"ramp_ko_count"`
	RampKOExamples []RampKO `json:"ramp_ko_examples"`
}

// SourceDebug holds per-source diagnostic information. It is only surfaced to
// callers when the request asks for debug output.
type SourceDebug struct {
	Source      string `json:"source"`
	Status      int    `json:"status,omitempty"`
	Note        string `json:"note,omitempty"`
	BodySnippet string `json:"body_snippet,omitempty"`
}

// FeedOutcome is the result of querying one upstream source for one stop.
// Ok is false on transport failure, non-success status or an unparsable body.
// Lines may legitimately be empty with Ok true when no buses are predicted.
type FeedOutcome struct {
	Ok         bool
	StatusHint int
	Lines      []LineSummary
	Departures []ArrivalRecord
	Detail     *StopDetail
	Debug      SourceDebug
}

// StopResult is the resolved caller-facing result for one stop after source
// selection has run.
type StopResult struct {
	StopID     string          `json:"stop_id"`
	Lines      []LineSummary   `json:"lines"`
	Source     string          `json:"source"`
	Error      string          `json:"error,omitempty"`
	Detail     *StopDetail     `json:"stop_detail,omitempty"`
	Departures []ArrivalRecord `json:"departures,omitempty"`
	Debug      []SourceDebug   `json:"debug,omitempty"`
}

// firstNumeric returns the value of the first key in keys that is present in
// rec and parses to a finite number. Keys are tried strictly in order so the
// priority between equivalently-spelled upstream fields stays fixed.
func firstNumeric(rec map[string]interface{}, keys []string) (float64, bool) {
	for _, key := range keys {
		raw, present := rec[key]
		if !present {
			continue
		}
		if n, ok := asNumber(raw); ok {
			return n, true
		}
	}
	return 0, false
}

// firstArray returns the first key in keys whose value in payload is a JSON array.
func firstArray(payload map[string]interface{}, keys []string) ([]interface{}, bool) {
	for _, key := range keys {
		if arr, ok := payload[key].([]interface{}); ok {
			return arr, true
		}
	}
	return nil, false
}

// asNumber coerces a decoded JSON value into a finite float64. Strings holding
// numbers are accepted because the feeds are inconsistent about quoting.
func asNumber(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// asTrimmedString coerces a decoded JSON value to a trimmed string.
func asTrimmedString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// localClock renders now+minutes as HH:MM in location.
func localClock(now time.Time, minutes int, location *time.Location) string {
	return now.Add(time.Duration(minutes) * time.Minute).In(location).Format("15:04")
}

func minutesString(m *int) string {
	if m == nil {
		return "-"
	}
	return strconv.Itoa(*m)
}

func (l LineSummary) String() string {
	return fmt.Sprintf("line %s to %s in %s/%s min", l.Line, l.Destination,
		minutesString(l.M1), minutesString(l.M2))
}
