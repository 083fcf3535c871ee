package stopfeed

import (
	"math"
)

// officialMinuteKeys are the equivalently-spelled fields the official feed has
// been observed using for minutes-to-arrival, in priority order. The first key
// that is present and parses to a finite number wins.
var officialMinuteKeys = []string{"minutes_to_arrival", "minutes-to-arrival", "minutes"}

// officialContainerKeys are the equivalently-spelled wrapper keys the official
// payload nests its arrival array under, in priority order.
var officialContainerKeys = []string{"arrival_times", "arrival-times", "arrivalTimes", "times"}

// normalizeOfficialRecord converts one raw record from the official feed into
// an ArrivalRecord. Records missing a line or destination, or without a usable
// minute value under any recognized key, are dropped.
func normalizeOfficialRecord(rec map[string]interface{}) (ArrivalRecord, bool) {
	minutes, ok := firstNumeric(rec, officialMinuteKeys)
	if !ok {
		return ArrivalRecord{}, false
	}
	rounded := int(math.Round(minutes))
	if rounded < 0 {
		return ArrivalRecord{}, false
	}
	normalized := ArrivalRecord{
		Line:        asTrimmedString(rec["line"]),
		Destination: asTrimmedString(rec["destination"]),
		Minutes:     rounded,
	}
	return normalized, normalized.Valid()
}

// normalizeWebRecord converts one raw record from the web portal feed, whose
// arrival offset is expressed in seconds, into an ArrivalRecord. An offset that
// rounds below zero is clamped to 0: the portal reports a bus already at the
// stop with a small negative offset.
func normalizeWebRecord(rec map[string]interface{}) (ArrivalRecord, bool) {
	seconds, ok := asNumber(rec["arrivalTime"])
	if !ok {
		return ArrivalRecord{}, false
	}
	minutes := int(math.Round(seconds / 60))
	if minutes < 0 {
		minutes = 0
	}
	normalized := ArrivalRecord{
		Line:        asTrimmedString(rec["lineCode"]),
		Destination: asTrimmedString(rec["destination"]),
		Minutes:     minutes,
	}
	return normalized, normalized.Valid()
}

// normalizeRecords runs records through normalize, silently excluding the ones
// that do not produce a valid ArrivalRecord.
func normalizeRecords(records []interface{}, normalize func(map[string]interface{}) (ArrivalRecord, bool)) []ArrivalRecord {
	var arrivals []ArrivalRecord
	for _, raw := range records {
		rec, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if arrival, ok := normalize(rec); ok {
			arrivals = append(arrivals, arrival)
		}
	}
	return arrivals
}
