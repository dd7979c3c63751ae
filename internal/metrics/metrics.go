package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Collector struct {
	reg *prometheus.Registry

	Passes     *prometheus.CounterVec // status label: Closed|Error
	PassErrors *prometheus.CounterVec // kind label: input|source|internal

	Stations     prometheus.Histogram
	PassDuration prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	GridInterval       prometheus.Gauge
	StationLabelOffset prometheus.Gauge
}

func NewCollector(gridInterval, stationLabelOffset float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surveyplot_passes_total",
			Help: "Completed plot passes by closure status.",
		}, []string{"status"}),
		PassErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surveyplot_pass_errors_total",
			Help: "Failed plot passes by error kind.",
		}, []string{"kind"}),
		Stations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "surveyplot_stations",
			Help:    "Stations per completed pass.",
			Buckets: []float64{3, 4, 6, 8, 12, 16, 24, 32, 64, 128},
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "surveyplot_pass_duration_seconds",
			Help:    "Duration of a full load, compute and layout pass.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "surveyplot_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "surveyplot_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "surveyplot_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "surveyplot_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		GridInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "surveyplot_default_grid_interval",
			Help: "Configured default grid interval in coordinate units.",
		}),
		StationLabelOffset: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "surveyplot_default_station_label_offset",
			Help: "Configured default station label offset in coordinate units.",
		}),
	}

	reg.MustRegister(
		c.Passes, c.PassErrors,
		c.Stations, c.PassDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.GridInterval, c.StationLabelOffset,
	)

	c.GridInterval.Set(gridInterval)
	c.StationLabelOffset.Set(stationLabelOffset)

	return c
}

// PassCompleted records a successful pass.
func (c *Collector) PassCompleted(status string, stations int, d time.Duration) {
	c.Passes.WithLabelValues(status).Inc()
	c.Stations.Observe(float64(stations))
	c.PassDuration.Observe(d.Seconds())
}

// PassFailed records a pass that reported an error.
func (c *Collector) PassFailed(kind string) {
	c.PassErrors.WithLabelValues(kind).Inc()
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server error")
		}
	}()
	logger.Infof("metrics listening on %s", addr)
	return srv
}
