package stopfeed

import (
	"context"
	"sync"
)

// departureLimit caps the raw departures echoed back under the debug flag.
const departureLimit = 40

// Request describes one aggregation call: one or two stops, an optional source
// preference, and whether to include per-source diagnostics.
type Request struct {
	StopIDs []string
	Prefer  string
	Debug   bool
}

// AggregateStops resolves each requested stop independently and concurrently.
// Within a stop the web and official queries run in parallel and both are
// awaited before selection; across stops neither pipeline blocks the other.
// Results preserve request order.
func (s *Service) AggregateStops(ctx context.Context, req Request) []StopResult {
	results := make([]StopResult, len(req.StopIDs))

	var wg sync.WaitGroup
	for i, stopID := range req.StopIDs {
		wg.Add(1)
		go func(i int, stopID string) {
			defer wg.Done()
			results[i] = s.resolveStop(ctx, stopID, req.Prefer, req.Debug)
		}(i, stopID)
	}
	wg.Wait()

	return results
}

// resolveStop runs the full pipeline for one stop: both sources concurrently,
// then selection.
func (s *Service) resolveStop(ctx context.Context, stopID string, prefer string, debug bool) StopResult {
	var web, official FeedOutcome

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		web = s.queryWebFeed(ctx, stopID)
		s.observe(SourceWeb, web.Ok)
	}()
	go func() {
		defer wg.Done()
		official = s.queryOfficialFeed(ctx, stopID)
		s.observe(SourceOfficial, official.Ok)
	}()
	wg.Wait()

	result := selectOutcome(stopID, web, official, prefer)

	if debug {
		result.Debug = []SourceDebug{web.Debug, official.Debug}
		result.Departures = chosenDepartures(result.Source, web, official)
	}
	return result
}

func chosenDepartures(source string, web, official FeedOutcome) []ArrivalRecord {
	var departures []ArrivalRecord
	switch source {
	case SourceWeb:
		departures = web.Departures
	case SourceOfficial:
		departures = official.Departures
	}
	if len(departures) > departureLimit {
		departures = departures[:departureLimit]
	}
	return departures
}
