package stopfeed

// Preference tokens callers may pass to pin a source.
const (
	PreferWeb      = "web"
	PreferOfficial = "official"
)

// ValidPreference reports whether prefer is empty or a recognized token.
func ValidPreference(prefer string) bool {
	return prefer == "" || prefer == PreferWeb || prefer == PreferOfficial
}

// selectOutcome decides which source's result to surface for one stop.
// An explicit preference wins regardless of the chosen outcome's content.
// Without one, web is used when it succeeded with at least one line, then
// official under the same condition, else the stop reports no usable source.
// The two sources are never merged.
func selectOutcome(stopID string, web, official FeedOutcome, prefer string) StopResult {
	switch {
	case prefer == PreferWeb:
		return resultFrom(stopID, web, SourceWeb)
	case prefer == PreferOfficial:
		return resultFrom(stopID, official, SourceOfficial)
	case web.Ok && len(web.Lines) > 0:
		return resultFrom(stopID, web, SourceWeb)
	case official.Ok && len(official.Lines) > 0:
		return resultFrom(stopID, official, SourceOfficial)
	}

	return StopResult{
		StopID: stopID,
		Lines:  []LineSummary{},
		Source: SourceNone,
		Error:  noDataMessage(web, official),
	}
}

func resultFrom(stopID string, outcome FeedOutcome, source string) StopResult {
	lines := outcome.Lines
	if lines == nil {
		lines = []LineSummary{}
	}
	result := StopResult{
		StopID: stopID,
		Lines:  lines,
		Source: source,
		Detail: outcome.Detail,
	}
	if !outcome.Ok {
		result.Error = outcome.Debug.Note
	}
	return result
}

// noDataMessage summarizes why neither source produced lines. Both sources
// being reachable but empty is the common case and reads as no upcoming buses.
func noDataMessage(web, official FeedOutcome) string {
	if web.Ok || official.Ok {
		return "No upcoming buses"
	}
	if official.Debug.Note != "" {
		return official.Debug.Note
	}
	if web.Debug.Note != "" {
		return web.Debug.Note
	}
	return "No upcoming buses"
}
