package stopfeed

import (
	"testing"

	"github.com/matryer/is"
)

func summaries(lines ...string) []LineSummary {
	var result []LineSummary
	for _, line := range lines {
		m := 5
		result = append(result, LineSummary{Line: line, Destination: "X", M1: &m})
	}
	return result
}

func TestSelectOutcomePreferenceOverridesQuality(t *testing.T) {
	is := is.New(t)

	failedWeb := FeedOutcome{Ok: false, Debug: SourceDebug{Source: SourceWeb, Note: "web feed status 503"}}
	goodOfficial := FeedOutcome{Ok: true, Lines: summaries("H6")}

	result := selectOutcome("1265", failedWeb, goodOfficial, PreferWeb)
	is.Equal(result.Source, SourceWeb)
	is.Equal(len(result.Lines), 0)
	is.Equal(result.Error, "web feed status 503")
}

func TestSelectOutcomePreferOfficialWhenEmpty(t *testing.T) {
	is := is.New(t)

	goodWeb := FeedOutcome{Ok: true, Lines: summaries("22")}
	emptyOfficial := FeedOutcome{Ok: true, Lines: []LineSummary{}}

	result := selectOutcome("1265", goodWeb, emptyOfficial, PreferOfficial)
	is.Equal(result.Source, SourceOfficial)
	is.Equal(len(result.Lines), 0)
	is.Equal(result.Error, "")
}

func TestSelectOutcomeNoPreference(t *testing.T) {
	tests := []struct {
		name       string
		web        FeedOutcome
		official   FeedOutcome
		wantSource string
		wantLines  int
	}{
		{
			name:       "web wins when both have lines",
			web:        FeedOutcome{Ok: true, Lines: summaries("22")},
			official:   FeedOutcome{Ok: true, Lines: summaries("H6", "V15")},
			wantSource: SourceWeb,
			wantLines:  1,
		},
		{
			name:       "official covers empty web",
			web:        FeedOutcome{Ok: true, Lines: []LineSummary{}},
			official:   FeedOutcome{Ok: true, Lines: summaries("H6")},
			wantSource: SourceOfficial,
			wantLines:  1,
		},
		{
			name:       "official covers failed web",
			web:        FeedOutcome{Ok: false},
			official:   FeedOutcome{Ok: true, Lines: summaries("H6")},
			wantSource: SourceOfficial,
			wantLines:  1,
		},
		{
			name:       "successful web beats failed official",
			web:        FeedOutcome{Ok: true, Lines: summaries("22")},
			official:   FeedOutcome{Ok: false},
			wantSource: SourceWeb,
			wantLines:  1,
		},
		{
			name:       "both empty reports none",
			web:        FeedOutcome{Ok: true, Lines: []LineSummary{}},
			official:   FeedOutcome{Ok: true, Lines: []LineSummary{}},
			wantSource: SourceNone,
			wantLines:  0,
		},
		{
			name:       "both failed reports none",
			web:        FeedOutcome{Ok: false},
			official:   FeedOutcome{Ok: false},
			wantSource: SourceNone,
			wantLines:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := selectOutcome("1265", tt.web, tt.official, "")
			if result.Source != tt.wantSource {
				t.Errorf("selectOutcome() source = %s, want %s", result.Source, tt.wantSource)
			}
			if len(result.Lines) != tt.wantLines {
				t.Errorf("selectOutcome() returned %d lines, want %d", len(result.Lines), tt.wantLines)
			}
			if tt.wantSource == SourceNone && result.Error == "" {
				t.Error("selectOutcome() with no usable source must carry an error string")
			}
		})
	}
}

func TestSelectOutcomeNoneMessages(t *testing.T) {
	is := is.New(t)

	// reachable sources with no arrivals read as no buses, not a failure
	result := selectOutcome("1265",
		FeedOutcome{Ok: true, Lines: []LineSummary{}},
		FeedOutcome{Ok: true, Lines: []LineSummary{}}, "")
	is.Equal(result.Error, "No upcoming buses")

	// total failure surfaces a feed-specific note when one exists
	result = selectOutcome("1265",
		FeedOutcome{Ok: false, Debug: SourceDebug{Source: SourceWeb, Note: "body is not JSON"}},
		FeedOutcome{Ok: false, Debug: SourceDebug{Source: SourceOfficial, Note: "missing credentials"}}, "")
	is.Equal(result.Error, "missing credentials")
}

func TestValidPreference(t *testing.T) {
	is := is.New(t)

	is.True(ValidPreference(""))
	is.True(ValidPreference(PreferWeb))
	is.True(ValidPreference(PreferOfficial))
	is.True(!ValidPreference("fastest"))
}
