package stopfeed

import (
	logger "log"
	"net/http"
	"time"

	"github.com/almograve/trmnl-barcelona-bus/foundation/fetch"
)

// Source identifiers as they appear in caller-facing results.
const (
	SourceWeb      = "web"
	SourceOfficial = "official"
	SourceNone     = "none"
)

// Config contains all configurable parameters of the aggregation engine.
type Config struct {
	// WebFeedURL is the base url of the undocumented web portal feed. Empty
	// disables the web source.
	WebFeedURL string
	// OfficialFeedURL is the base url of the official TMB feed; the stop
	// identifier is appended as a path segment.
	OfficialFeedURL string
	// AppID and AppKey are the official feed credentials. When either is empty
	// the official source fails fast without a network call.
	AppID  string
	AppKey string
	// UpstreamTimeout bounds each upstream call.
	UpstreamTimeout time.Duration
	// MaxLines caps the number of line summaries returned per stop.
	MaxLines int
	// Location renders local clock times in line summaries. Nil disables them.
	Location *time.Location
}

// Service queries both upstream feeds for requested stops and aggregates their
// predictions. All state is configuration; every request owns its own data.
type Service struct {
	log     *logger.Logger
	client  *http.Client
	cfg     Config
	observe func(source string, ok bool)
	now     func() time.Time
}

// NewService creates a Service. observe is called once per upstream query with
// its outcome and may be nil.
func NewService(log *logger.Logger, cfg Config, observe func(source string, ok bool)) *Service {
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = fetch.DefaultTimeout
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = 12
	}
	if observe == nil {
		observe = func(string, bool) {}
	}
	return &Service{
		log:     log,
		client:  fetch.NewClient(cfg.UpstreamTimeout),
		cfg:     cfg,
		observe: observe,
		now:     time.Now,
	}
}

// HasCredentials reports whether the official feed credentials are configured.
func (s *Service) HasCredentials() bool {
	return s.cfg.AppID != "" && s.cfg.AppKey != ""
}

// HasWebFeed reports whether a web portal feed url is configured.
func (s *Service) HasWebFeed() bool {
	return s.cfg.WebFeedURL != ""
}
