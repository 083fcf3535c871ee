// Package busapi serves the stop arrival aggregation endpoint over http.
package busapi

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/almograve/trmnl-barcelona-bus/business/stopfeed"
	"github.com/almograve/trmnl-barcelona-bus/foundation/metrics"
	"github.com/gorilla/mux"
)

// cacheControl matches how quickly upstream predictions move: fresh for tens
// of seconds with a short stale-while-revalidate window.
const cacheControl = "s-maxage=15, stale-while-revalidate=45"

// defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

// ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// AggregateResponse is the caller-facing response body.
type AggregateResponse struct {
	Title        string                `json:"title"`
	UpdatedAt    string                `json:"updated_at"`
	UpdatedLocal string                `json:"updated_local,omitempty"`
	Stops        []stopfeed.StopResult `json:"stops"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// busArrivalsHandler holds data needed to respond to and log stop arrival requests
type busArrivalsHandler struct {
	log       *logger.Logger
	service   *stopfeed.Service
	collector *metrics.Collector
	title     string
	location  *time.Location
}

// busArrivalsHandler factory
func makeBusArrivalsHandler(log *logger.Logger,
	service *stopfeed.Service,
	collector *metrics.Collector,
	title string,
	location *time.Location) *busArrivalsHandler {
	return &busArrivalsHandler{
		log:       log,
		service:   service,
		collector: collector,
		title:     title,
		location:  location,
	}
}

// ServeHTTP implements busArrivalsHandler's http.Handler interface
func (b *busArrivalsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	defer func() {
		b.collector.RequestDuration.Observe(time.Since(started).Seconds())
	}()

	stopID := strings.TrimSpace(r.FormValue("stop_id"))
	if stopID == "" {
		b.writeError(w, http.StatusBadRequest, "Missing stop_id")
		return
	}

	prefer := strings.TrimSpace(r.FormValue("prefer"))
	if !stopfeed.ValidPreference(prefer) {
		b.writeError(w, http.StatusBadRequest, "prefer must be \"web\" or \"official\"")
		return
	}

	// A request that cannot possibly succeed without the official credentials
	// is a server configuration problem, not a per-source failure.
	if !b.service.HasCredentials() && (prefer == stopfeed.PreferOfficial || !b.service.HasWebFeed()) {
		b.writeError(w, http.StatusInternalServerError, "Server missing TMB credentials")
		return
	}

	stopIDs := []string{stopID}
	if secondary := strings.TrimSpace(r.FormValue("secondary_stop_id")); secondary != "" {
		stopIDs = append(stopIDs, secondary)
	}
	b.collector.StopsRequested.Add(float64(len(stopIDs)))

	stops := b.service.AggregateStops(r.Context(), stopfeed.Request{
		StopIDs: stopIDs,
		Prefer:  prefer,
		Debug:   strings.ToLower(r.FormValue("debug")) == "true",
	})

	now := time.Now()
	response := AggregateResponse{
		Title:     b.title,
		UpdatedAt: now.UTC().Format(time.RFC3339),
		Stops:     stops,
	}
	if b.location != nil {
		response.UpdatedLocal = now.In(b.location).Format("15:04")
	}

	w.Header().Set("Cache-Control", cacheControl)
	b.writeJSON(w, http.StatusOK, response)
}

// writeJSON marshals body as json to http.ResponseWriter
func (b *busArrivalsHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		b.log.Printf("Error marshaling response to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	byteCount, err := w.Write(jsonData)
	if err != nil {
		b.log.Printf("Error writing json response: %s", err)
		return
	}
	b.log.Printf("wrote %d bytes in json response.", byteCount)
}

func (b *busArrivalsHandler) writeError(w http.ResponseWriter, status int, message string) {
	b.writeJSON(w, status, errorResponse{Error: message})
}

// recoverMiddleware converts an unanticipated panic anywhere in a handler into
// a bare 500 so no upstream debug internals leak to callers.
func recoverMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("recovered from panic serving %s: %v", r.URL.Path, rec)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"Unexpected error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// createServer creates configured http.Server for responding to stop arrival requests
func createServer(log *logger.Logger,
	service *stopfeed.Service,
	collector *metrics.Collector,
	title string,
	location *time.Location,
	host string,
	httpPort int) *http.Server {

	arrivalsHandler := makeBusArrivalsHandler(log, service, collector, title, location)

	r := mux.NewRouter()
	r.Use(recoverMiddleware(log))
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/api/bus", arrivalsHandler).Methods(http.MethodGet)
	r.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr: strings.Join([]string{host, strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

// runWebService starts up the bus arrivals web service, and terminates on shutdown signal
func runWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	service *stopfeed.Service,
	collector *metrics.Collector,
	title string,
	location *time.Location,
	host string,
	httpPort int,
	shutdownSignal chan bool,
) {
	wg.Add(1)
	defer wg.Done()
	srv := createServer(log, service, collector, title, location, host, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()
	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}

// StartService brings up the web service. Exits on shutdown signal
func StartService(log *logger.Logger,
	service *stopfeed.Service,
	collector *metrics.Collector,
	title string,
	location *time.Location,
	host string,
	httpPort int,
	shutdownSignal chan os.Signal) {

	wg := sync.WaitGroup{}

	webServiceShutdown := make(chan bool, 1)

	go runWebService(log, &wg, service, collector, title, location, host, httpPort, webServiceShutdown)

	<-shutdownSignal
	log.Printf("Exiting on shutdown signal, shutting down web service")
	webServiceShutdown <- true
	wg.Wait()
	log.Printf("Web service shut down, exiting bus api service")
}
