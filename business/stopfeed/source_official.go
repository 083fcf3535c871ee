package stopfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/almograve/trmnl-barcelona-bus/foundation/fetch"
)

// rampKOExampleLimit caps how many out-of-service ramp examples are reported.
const rampKOExampleLimit = 2

// queryOfficialFeed retrieves predictions for stopID from the credentialed
// official feed. Missing credentials fail fast without a network call; all
// other failures are contained in the returned FeedOutcome.
func (s *Service) queryOfficialFeed(ctx context.Context, stopID string) FeedOutcome {
	debug := SourceDebug{Source: SourceOfficial}

	if !s.HasCredentials() {
		debug.Note = "missing credentials"
		return FeedOutcome{Ok: false, Debug: debug}
	}

	query := url.Values{}
	query.Set("agrupar_desti", "true")
	query.Set("numberOfPredictions", "2")
	query.Set("app_id", s.cfg.AppID)
	query.Set("app_key", s.cfg.AppKey)
	requestURL := fmt.Sprintf("%s/%s?%s", s.cfg.OfficialFeedURL, url.PathEscape(stopID), query.Encode())

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	status, body, err := fetch.Get(ctx, s.client, requestURL)
	if err != nil {
		s.log.Printf("official feed request for stop %s failed: %v", stopID, err)
		debug.Note = fmt.Sprintf("request failed: %v", err)
		return FeedOutcome{Ok: false, StatusHint: status, Debug: debug}
	}
	debug.Status = status
	if status != http.StatusOK {
		debug.Note = fmt.Sprintf("official feed status %d", status)
		debug.BodySnippet = fetch.Snippet(body, snippetLimit)
		return FeedOutcome{Ok: false, StatusHint: status, Debug: debug}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		debug.Note = "body is not JSON"
		debug.BodySnippet = fetch.Snippet(body, snippetLimit)
		return FeedOutcome{Ok: false, StatusHint: status, Debug: debug}
	}

	// an absent container means no predictions, not a failure
	records, _ := firstArray(payload, officialContainerKeys)

	arrivals := normalizeRecords(records, normalizeOfficialRecord)
	return FeedOutcome{
		Ok:         true,
		StatusHint: status,
		Lines:      aggregateLines(arrivals, s.cfg.MaxLines, s.now(), s.cfg.Location),
		Departures: sortDepartures(arrivals),
		Detail:     officialStopDetail(stopID, payload, records),
		Debug:      debug,
	}
}

// officialStopDetail extracts the stop-level metadata the official payload
// carries alongside its predictions: stop name, the upstream's own timestamp,
// and buses whose wheelchair ramp is reported out of service.
func officialStopDetail(stopID string, payload map[string]interface{}, records []interface{}) *StopDetail {
	detail := StopDetail{StopID: stopID, RampKOExamples: []RampKO{}}

	if name := asTrimmedString(payload["stop_name"]); name != "" {
		detail.Name = &name
	}
	if ts, ok := asNumber(payload["timestamp"]); ok {
		millis := int64(ts)
		detail.APITimestampMS = &millis
	}

	for _, raw := range records {
		rec, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if asTrimmedString(rec["ramp_status"]) != "KO" {
			continue
		}
		detail.RampKOCount++
		if len(detail.RampKOExamples) < rampKOExampleLimit {
			detail.RampKOExamples = append(detail.RampKOExamples, RampKO{
				Line:        asTrimmedString(rec["line"]),
				Destination: asTrimmedString(rec["destination"]),
			})
		}
	}
	return &detail
}
