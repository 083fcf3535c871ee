package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/almograve/trmnl-barcelona-bus/app/bus-api/busapi"
	"github.com/almograve/trmnl-barcelona-bus/business/stopfeed"
	"github.com/almograve/trmnl-barcelona-bus/foundation/metrics"
	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "BUS_API : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// pull optional .env into the environment before parsing config
	_ = godotenv.Load()

	var cfg struct {
		conf.Version
		Args conf.Args
		Web  struct {
			Host string `conf:"default:0.0.0.0"`
			Port int    `conf:"default:8080"`
		}
		Feeds struct {
			WebFeedUrl      string `conf:"default:https://www.tmb.cat/api/ibus/stops"`
			OfficialFeedUrl string `conf:"default:https://api.tmb.cat/v1/itransit/bus/parades"`
			TimeoutSeconds  int    `conf:"default:5"`
			MaxLines        int    `conf:"default:12"`
		}
		TMB struct {
			AppId  string `conf:"noprint"`
			AppKey string `conf:"noprint"`
		}
		Response struct {
			Title    string `conf:"default:Barcelona buses"`
			Timezone string `conf:"default:Europe/Madrid"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Aggregate upcoming bus arrivals per stop from TMB feeds"
	const prefix = "BUSAPI"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			printUsage(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	location, err := time.LoadLocation(cfg.Response.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone %q: %w", cfg.Response.Timezone, err)
	}

	if cfg.TMB.AppId == "" || cfg.TMB.AppKey == "" {
		log.Println("main: TMB credentials not configured, official feed disabled")
	}

	// =========================================================================
	// Start Service

	collector := metrics.NewCollector()

	service := stopfeed.NewService(log, stopfeed.Config{
		WebFeedURL:      cfg.Feeds.WebFeedUrl,
		OfficialFeedURL: cfg.Feeds.OfficialFeedUrl,
		AppID:           cfg.TMB.AppId,
		AppKey:          cfg.TMB.AppKey,
		UpstreamTimeout: time.Duration(cfg.Feeds.TimeoutSeconds) * time.Second,
		MaxLines:        cfg.Feeds.MaxLines,
		Location:        location,
	}, collector.ObserveUpstream)

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	busapi.StartService(log, service, collector, cfg.Response.Title, location,
		cfg.Web.Host, cfg.Web.Port, shutdown)
	return nil
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
