package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/apetrei/meteotab/internal/archive"
	"github.com/apetrei/meteotab/internal/cache"
	"github.com/apetrei/meteotab/internal/circuitbreaker"
	"github.com/apetrei/meteotab/internal/config"
	"github.com/apetrei/meteotab/internal/frame"
	"github.com/apetrei/meteotab/internal/httpapi"
	"github.com/apetrei/meteotab/internal/observability"
	"github.com/apetrei/meteotab/internal/openmeteo"
	"github.com/apetrei/meteotab/internal/pipeline"
	"github.com/apetrei/meteotab/internal/preview"
	"github.com/apetrei/meteotab/internal/validation"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var (
		configPath      = flag.String("config", "", "path to YAML config file")
		vars            = flag.String("vars", "", "comma-separated hourly variables, e.g. temperature_2m,rain")
		lat             = flag.Float64("lat", 0, "latitude")
		lon             = flag.Float64("lon", 0, "longitude")
		startDate       = flag.String("start-date", "", "start date YYYY-MM-DD")
		endDate         = flag.String("end-date", "", "end date YYYY-MM-DD")
		previewColumn   = flag.String("preview", "", "column to chart after the run")
		graphType       = flag.String("graph", string(preview.Linear), "preview graph type")
		listen          = flag.Bool("listen", false, "keep refreshing and serve the frame over HTTP")
		archiveRoot     = flag.String("archive-root", "", "load local CSV archive from this directory instead of the API")
		archiveStations = flag.String("archive-stations", "", "comma-separated station names for the archive")
	)
	flag.Parse()

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	if setFlags["lat"] {
		cfg.Latitude = *lat
	}
	if setFlags["lon"] {
		cfg.Longitude = *lon
	}
	if setFlags["vars"] {
		cfg.HourlyVariables = strings.Split(*vars, ",")
	}
	if setFlags["start-date"] {
		cfg.StartDate = *startDate
	}
	if setFlags["end-date"] {
		cfg.EndDate = *endDate
	}

	if *archiveRoot != "" {
		runArchive(logger, *archiveRoot, *archiveStations, *previewColumn, *graphType)
		return
	}

	if err := validation.ValidateCoordinates(cfg.Latitude, cfg.Longitude); err != nil {
		logger.Fatal("coordinates", zap.Error(err))
	}
	hourly, err := validation.ValidateVariables(cfg.HourlyVariables)
	if err != nil {
		logger.Fatal("hourly variables", zap.Error(err))
	}
	if err := validation.ValidateDateRange(cfg.StartDate, cfg.EndDate); err != nil {
		logger.Fatal("date range", zap.Error(err))
	}

	meteoClient, err := openmeteo.NewClientWithRetry(
		cfg.APIURL,
		cfg.APITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		logger.Fatal("meteo client", zap.Error(err))
	}

	if cfg.BreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			Timeout:          cfg.BreakerTimeout,
			Component:        "meteo_api",
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition("meteo_api", from.String(), to.String())
				observability.SetCircuitBreakerStateGauge("meteo_api", float64(to))
			},
		})
		meteoClient.SetCircuitBreaker(cb)
		observability.SetCircuitBreakerStateGauge("meteo_api", 0)
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.BreakerFailureThreshold),
			zap.Duration("timeout", cfg.BreakerTimeout))
	}

	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		meteoClient.SetCache(mc, cfg.CacheTTL, "memcached")
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		meteoClient.SetCache(cache.NewInMemoryCache(), cfg.CacheTTL, "in_memory")
		logger.Info("cache backend: in_memory")
	}

	eng, engErr := frame.DetectEngine(cfg.TabularEngine)
	if engErr != nil {
		logger.Info("tabular engine unavailable; frames will be row-oriented")
	}

	fetcher := pipeline.FetcherFunc(func(ctx context.Context, q openmeteo.Query) (frame.Response, error) {
		return meteoClient.FetchHourly(ctx, q)
	})
	p := pipeline.New(fetcher, eng, logger)
	query := openmeteo.Query{
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Hourly:    hourly,
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
	}

	if *listen {
		serve(logger, cfg, p, query, memcacheCloser)
		return
	}

	result, err := p.Run(context.Background(), query)
	if err != nil {
		logger.Fatal("pipeline run", zap.Error(err))
	}
	logger.Info("run complete",
		zap.String("mode", result.Mode),
		zap.Int("materialized", result.Materialized),
		zap.Int("dropped", result.Dropped))

	if *previewColumn != "" {
		renderPreview(logger, result.Data, *previewColumn, *graphType)
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	closeMemcached(logger, memcacheCloser)
}

// serve runs the periodic refresher and the HTTP surface until a signal
// arrives, then shuts down gracefully.
func serve(logger *zap.Logger, cfg *config.Config, p *pipeline.Pipeline, query openmeteo.Query, memcacheCloser *cache.MemcachedCache) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresher := pipeline.NewRefresher(p, query, logger)
	go func() {
		if err := refresher.Run(ctx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("refresher stopped", zap.Error(err))
		}
	}()

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httpapi.NewHandler(refresher, logger)
	router := httpapi.NewRouter(handler, limiter, logger, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	closeMemcached(logger, memcacheCloser)
	logger.Info("shutdown complete")
}

// runArchive loads the local CSV archive, cleans it, and prints a summary.
func runArchive(logger *zap.Logger, root, stations, previewColumn, graphType string) {
	names := strings.Split(stations, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	if stations == "" || len(names) == 0 {
		logger.Fatal("archive mode requires --archive-stations")
	}

	loader := archive.NewLoader(root, names, logger)
	table, err := loader.Load()
	if err != nil {
		logger.Fatal("archive load", zap.Error(err))
	}
	cleaned := frame.Clean(table)
	logger.Info("archive cleaned",
		zap.Int("rows", cleaned.Len()),
		zap.Int("dropped", table.Len()-cleaned.Len()))

	if previewColumn != "" {
		renderPreview(logger, cleaned, previewColumn, graphType)
	}
}

func renderPreview(logger *zap.Logger, data frame.Dataset, column, graphTypeName string) {
	gt, err := preview.ParseGraphType(graphTypeName)
	if err != nil {
		logger.Error("preview", zap.Error(err))
		return
	}
	values, err := preview.ColumnValues(data, column)
	if err != nil {
		logger.Error("preview", zap.Error(err))
		return
	}
	chart, err := preview.Render(values, gt, preview.Options{Height: 12, Caption: column})
	if err != nil {
		logger.Error("preview", zap.Error(err))
		return
	}
	fmt.Println(chart)
}

func closeMemcached(logger *zap.Logger, mc *cache.MemcachedCache) {
	if mc == nil {
		return
	}
	if err := mc.Close(); err != nil {
		logger.Error("memcached close", zap.Error(err))
	}
}
