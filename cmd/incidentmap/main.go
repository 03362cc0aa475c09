// Command incidentmap generates an interactive property-crime map from a
// municipal police incident CSV export. One invocation is one resolution
// pass: load the geocode cache, fill misses through Nominatim, persist the
// cache, and write the map artifact.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/incident-map-etl/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/incident-map-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/incident-map-etl/internal/adapter/kafka"
	"github.com/couchcryptid/incident-map-etl/internal/adapter/leaflet"
	"github.com/couchcryptid/incident-map-etl/internal/adapter/nominatim"
	"github.com/couchcryptid/incident-map-etl/internal/config"
	"github.com/couchcryptid/incident-map-etl/internal/geocache"
	"github.com/couchcryptid/incident-map-etl/internal/observability"
	"github.com/couchcryptid/incident-map-etl/internal/pipeline"
)

func main() {
	var (
		inputCSV   string
		outputHTML string
		cachePath  string
		targetYear int
	)

	rootCmd := &cobra.Command{
		Use:          "incidentmap",
		Short:        "Generate an interactive property-crime map from a police incident export",
		Long:         "incidentmap filters a municipal police incident CSV to property crimes in a target year,\nresolves zip codes to coordinates through a persistent geocode cache backed by Nominatim,\nand renders the aggregate as a static Leaflet HTML map.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), inputCSV, outputHTML, cachePath, targetYear)
		},
	}

	rootCmd.Flags().StringVarP(&inputCSV, "input", "i", "", "incident CSV path (overrides INPUT_CSV)")
	rootCmd.Flags().StringVarP(&outputHTML, "output", "o", "", "map artifact path (overrides OUTPUT_HTML)")
	rootCmd.Flags().StringVarP(&cachePath, "cache", "c", "", "geocode cache path (overrides GEOCODE_CACHE)")
	rootCmd.Flags().IntVarP(&targetYear, "year", "y", 0, "target year (overrides TARGET_YEAR)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, inputCSV, outputHTML, cachePath string, targetYear int) error {
	// A .env file is optional for local runs.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if inputCSV != "" {
		cfg.InputCSV = inputCSV
	}
	if outputHTML != "" {
		cfg.OutputHTML = outputHTML
	}
	if cachePath != "" {
		cfg.CachePath = cachePath
	}
	if targetYear != 0 {
		cfg.TargetYear = targetYear
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	geocoder, err := nominatim.NewClient(cfg.NominatimBaseURL, cfg.NominatimUserAgent, cfg.GeocodeQualifier, cfg.GeocodeTimeout, logger)
	if err != nil {
		return fmt.Errorf("construct geocoder: %w", err)
	}
	resolver, err := geocache.NewResolver(geocoder, cfg.GeocodeDelay, logger, metrics)
	if err != nil {
		return fmt.Errorf("construct resolver: %w", err)
	}

	source := csvfile.NewReader(cfg.InputCSV, logger)
	renderer := leaflet.NewRenderer(cfg.OutputHTML, leaflet.Options{
		Title:       cfg.MapTitle,
		Subtitle:    cfg.MapSubtitle,
		Attribution: cfg.MapSource,
		CenterLat:   cfg.MapCenterLat,
		CenterLon:   cfg.MapCenterLon,
		Zoom:        cfg.MapZoom,
	}, logger)

	var publisher pipeline.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = kafkaPublisher
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(source, resolver, renderer, publisher, cfg.CachePath, cfg.TargetYear, logger, metrics)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("debug http server error", "error", err)
			}
		}()
	}

	runErr := p.Run(runCtx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("debug http server shutdown error", "error", err)
		}
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		return runErr
	}
	return nil
}
