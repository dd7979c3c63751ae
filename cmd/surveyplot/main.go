package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"survey-plan/internal/config"
	"survey-plan/internal/db"
	"survey-plan/internal/export"
	"survey-plan/internal/metrics"
	"survey-plan/internal/plan"
	"survey-plan/internal/publisher"
	"survey-plan/internal/render"
	"survey-plan/internal/server"
	"survey-plan/internal/survey"
)

const plotFileName = "pelan_lengkap.svg"

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	configureLogger(logger, cfg)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.Display.GridInterval, cfg.Display.StationLabelOffset)
		srv := mcol.Serve(cfg.MetricsAddr, logger)
		defer shutdown(srv)
	}

	// Optional NATS publisher for pass summaries
	var notifier plan.Notifier
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol), logger)
		if err != nil {
			logger.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		notifier = pub
	}

	// Optional station database
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		logger.Info("station database connected")
	}

	runner := plan.NewRunner(logger, wrapRunnerMetrics(mcol), notifier)

	if cfg.HTTPAddr != "" {
		serve(ctx, cfg, runner, sqlDB, logger)
		return
	}

	if err := runOnce(ctx, cfg, runner, logger); err != nil {
		logger.Errorf("❌ %v", err)
		os.Exit(1)
	}
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	if strings.EqualFold(cfg.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// runOnce plots INPUT_FILE and writes the GeoJSON export and SVG plot into OUTPUT_DIR.
func runOnce(ctx context.Context, cfg *config.Config, runner *plan.Runner, logger *logrus.Logger) error {
	res, err := runner.Run(ctx, survey.FileSource{Path: cfg.InputFile}, cfg.Display)
	if err != nil {
		return err
	}
	var svg bytes.Buffer
	if err := render.WriteSVG(&svg, res.Plan, res.Options); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	geoPath := filepath.Join(cfg.OutputDir, export.FileName)
	if err := os.WriteFile(geoPath, res.GeoJSON, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", geoPath, err)
	}
	svgPath := filepath.Join(cfg.OutputDir, plotFileName)
	if err := os.WriteFile(svgPath, svg.Bytes(), 0o644); err != nil {
		// A failed pass leaves no partial output behind.
		_ = os.Remove(geoPath)
		return fmt.Errorf("write %s: %w", svgPath, err)
	}

	m := res.Summary.Metrics()
	logger.WithFields(logrus.Fields{
		"area_m2":    m["area_m2"],
		"area_acres": m["area_acres"],
		"stations":   m["station_count"],
		"status":     m["status"],
		"geojson":    geoPath,
		"plot":       svgPath,
	}).Info("plan written")
	return nil
}

func serve(ctx context.Context, cfg *config.Config, runner *plan.Runner, sqlDB *sql.DB, logger *logrus.Logger) {
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	h := server.NewHandler(runner, sqlDB, cfg.Display, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()
	logger.Infof("http listening on %s", cfg.HTTPAddr)

	// Block until context cancelled
	<-ctx.Done()
	shutdown(srv)
	logger.Info("shutdown complete")
}

func shutdown(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// wrapRunnerMetrics avoids handing the runner a typed nil.
func wrapRunnerMetrics(c *metrics.Collector) plan.Metrics {
	if c == nil {
		return nil
	}
	return c
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
