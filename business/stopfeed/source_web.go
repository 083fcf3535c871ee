package stopfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/almograve/trmnl-barcelona-bus/foundation/fetch"
)

// snippetLimit bounds how much of an upstream body is kept for diagnostics.
const snippetLimit = 200

// queryWebFeed retrieves predictions for stopID from the web portal feed.
// Every failure mode is contained in the returned FeedOutcome; this source
// never lets a transport error escape.
func (s *Service) queryWebFeed(ctx context.Context, stopID string) FeedOutcome {
	debug := SourceDebug{Source: SourceWeb}

	requestURL := fmt.Sprintf("%s?stop=%s", s.cfg.WebFeedURL, url.QueryEscape(stopID))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	status, body, err := fetch.Get(ctx, s.client, requestURL)
	if err != nil {
		s.log.Printf("web feed request for stop %s failed: %v", stopID, err)
		debug.Note = fmt.Sprintf("request failed: %v", err)
		return FeedOutcome{Ok: false, StatusHint: status, Debug: debug}
	}
	debug.Status = status
	if status != http.StatusOK {
		debug.Note = fmt.Sprintf("web feed status %d", status)
		debug.BodySnippet = fetch.Snippet(body, snippetLimit)
		return FeedOutcome{Ok: false, StatusHint: status, Debug: debug}
	}

	var payload struct {
		Times []interface{} `json:"times"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// the portal occasionally serves an html error page with a 200
		debug.Note = "body is not JSON"
		debug.BodySnippet = fetch.Snippet(body, snippetLimit)
		return FeedOutcome{Ok: false, StatusHint: status, Debug: debug}
	}

	arrivals := normalizeRecords(payload.Times, normalizeWebRecord)
	return FeedOutcome{
		Ok:         true,
		StatusHint: status,
		Lines:      aggregateLines(arrivals, s.cfg.MaxLines, s.now(), s.cfg.Location),
		Departures: sortDepartures(arrivals),
		Debug:      debug,
	}
}
