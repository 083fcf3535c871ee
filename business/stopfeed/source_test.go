package stopfeed

import (
	"context"
	"io"
	logger "log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
)

func testService(cfg Config) *Service {
	log := logger.New(io.Discard, "TEST : ", logger.LstdFlags)
	return NewService(log, cfg, nil)
}

func TestQueryWebFeedSuccess(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.Equal(r.URL.Query().Get("stop"), "1265")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"times":[{"lineCode":"22","destination":"Rally","arrivalTime":125}]}`))
	}))
	defer server.Close()

	svc := testService(Config{WebFeedURL: server.URL})
	outcome := svc.queryWebFeed(context.Background(), "1265")

	is.True(outcome.Ok)
	is.Equal(len(outcome.Lines), 1)
	is.Equal(outcome.Lines[0].Line, "22")
	is.Equal(outcome.Lines[0].Destination, "Rally")
	is.Equal(*outcome.Lines[0].M1, 2)
	is.True(outcome.Lines[0].M2 == nil)
}

func TestQueryWebFeedEmptyTimesIsNotAFailure(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"times":[]}`))
	}))
	defer server.Close()

	svc := testService(Config{WebFeedURL: server.URL})
	outcome := svc.queryWebFeed(context.Background(), "1265")

	is.True(outcome.Ok)
	is.Equal(len(outcome.Lines), 0)
}

func TestQueryWebFeedNonSuccessStatus(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := testService(Config{WebFeedURL: server.URL})
	outcome := svc.queryWebFeed(context.Background(), "1265")

	is.True(!outcome.Ok)
	is.Equal(outcome.StatusHint, http.StatusServiceUnavailable)
	is.Equal(len(outcome.Lines), 0)
	is.True(outcome.Debug.BodySnippet != "")
}

func TestQueryWebFeedNonJSONBody(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance page</html>"))
	}))
	defer server.Close()

	svc := testService(Config{WebFeedURL: server.URL})
	outcome := svc.queryWebFeed(context.Background(), "1265")

	is.True(!outcome.Ok)
	is.Equal(outcome.Debug.Note, "body is not JSON")
}

func TestQueryWebFeedTimeout(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"times":[]}`))
	}))
	defer server.Close()

	svc := testService(Config{WebFeedURL: server.URL, UpstreamTimeout: 50 * time.Millisecond})
	outcome := svc.queryWebFeed(context.Background(), "1265")

	is.True(!outcome.Ok)
	is.Equal(len(outcome.Lines), 0)
}

func TestQueryOfficialFeedMissingCredentials(t *testing.T) {
	is := is.New(t)

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"arrival_times":[]}`))
	}))
	defer server.Close()

	svc := testService(Config{OfficialFeedURL: server.URL})
	outcome := svc.queryOfficialFeed(context.Background(), "1265")

	is.True(!outcome.Ok)
	is.Equal(outcome.Debug.Note, "missing credentials")
	is.Equal(atomic.LoadInt32(&hits), int32(0))
}

func TestQueryOfficialFeedSuccess(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.Equal(r.URL.Path, "/1265")
		is.Equal(r.URL.Query().Get("app_id"), "test-id")
		is.Equal(r.URL.Query().Get("app_key"), "test-key")
		is.Equal(r.URL.Query().Get("agrupar_desti"), "true")
		is.Equal(r.URL.Query().Get("numberOfPredictions"), "2")
		_, _ = w.Write([]byte(`{
			"timestamp": 1717233600000,
			"stop_name": "Pl. Catalunya",
			"arrival_times": [
				{"line":"H6","destination":"Zona Universitària","minutes_to_arrival":7},
				{"line":"H6","destination":"Zona Universitària","minutes_to_arrival":7},
				{"line":"H6","destination":"Zona Universitària","minutes_to_arrival":15,"ramp_status":"KO"}
			]
		}`))
	}))
	defer server.Close()

	svc := testService(Config{OfficialFeedURL: server.URL, AppID: "test-id", AppKey: "test-key"})
	outcome := svc.queryOfficialFeed(context.Background(), "1265")

	is.True(outcome.Ok)
	is.Equal(len(outcome.Lines), 1)
	is.Equal(*outcome.Lines[0].M1, 7)
	is.Equal(*outcome.Lines[0].M2, 15)

	is.True(outcome.Detail != nil)
	is.Equal(*outcome.Detail.Name, "Pl. Catalunya")
	is.Equal(*outcome.Detail.APITimestampMS, int64(1717233600000))
	is.Equal(outcome.Detail.RampKOCount, 1)
	is.Equal(outcome.Detail.RampKOExamples[0].Line, "H6")
}

func TestQueryOfficialFeedContainerKeyVariants(t *testing.T) {
	bodies := map[string]string{
		"arrival_times": `{"arrival_times":[{"line":"24","destination":"Carmel","minutes":5}]}`,
		"arrival-times": `{"arrival-times":[{"line":"24","destination":"Carmel","minutes":5}]}`,
		"arrivalTimes":  `{"arrivalTimes":[{"line":"24","destination":"Carmel","minutes":5}]}`,
		"times":         `{"times":[{"line":"24","destination":"Carmel","minutes":5}]}`,
	}
	for variant, body := range bodies {
		t.Run(variant, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			svc := testService(Config{OfficialFeedURL: server.URL, AppID: "id", AppKey: "key"})
			outcome := svc.queryOfficialFeed(context.Background(), "1265")

			if !outcome.Ok {
				t.Fatalf("variant %s: outcome not ok: %+v", variant, outcome.Debug)
			}
			if len(outcome.Lines) != 1 || outcome.Lines[0].Line != "24" {
				t.Errorf("variant %s: unexpected lines %+v", variant, outcome.Lines)
			}
		})
	}
}

func TestQueryOfficialFeedNoContainerIsEmptyNotFailed(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"timestamp": 1717233600000}`))
	}))
	defer server.Close()

	svc := testService(Config{OfficialFeedURL: server.URL, AppID: "id", AppKey: "key"})
	outcome := svc.queryOfficialFeed(context.Background(), "1265")

	is.True(outcome.Ok)
	is.Equal(len(outcome.Lines), 0)
}
