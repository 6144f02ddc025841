package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Share metrics
	BatchesCreatedTotal prometheus.Counter
	TextsRecordedTotal  prometheus.Counter
	BatchesEvictedTotal prometheus.Counter
	HistoryClearsTotal  prometheus.Counter

	// Transfer metrics
	UploadsReceivedTotal  prometheus.Counter
	UploadBytesTotal      prometheus.Counter
	DownloadsServedTotal  *prometheus.CounterVec
	DownloadErrorsTotal   *prometheus.CounterVec
	ReceivedFilesPruned   prometheus.Counter

	// Realtime metrics
	ClientsConnected        prometheus.Gauge
	BroadcastsSentTotal     *prometheus.CounterVec
	BroadcastsDroppedTotal  prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		BatchesCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "share_batches_created_total",
				Help: "Total number of file batches shared from the desktop",
			},
		),
		TextsRecordedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "share_texts_recorded_total",
				Help: "Total number of text snippets shared from the desktop",
			},
		),
		BatchesEvictedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "share_batches_evicted_total",
				Help: "Total number of batches evicted by the retention cap",
			},
		),
		HistoryClearsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "share_history_clears_total",
				Help: "Total number of explicit history clears",
			},
		),

		UploadsReceivedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transfer_uploads_received_total",
				Help: "Total number of files received from LAN peers",
			},
		),
		UploadBytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transfer_upload_bytes_total",
				Help: "Total bytes received from LAN peers",
			},
		),
		DownloadsServedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfer_downloads_served_total",
				Help: "Total number of downloads served",
			},
			[]string{"kind"}, // file, zip
		),
		DownloadErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfer_download_errors_total",
				Help: "Total number of failed downloads",
			},
			[]string{"kind", "reason"},
		),
		ReceivedFilesPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transfer_received_files_pruned_total",
				Help: "Total number of received files removed by retention cleanup",
			},
		),

		ClientsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "realtime_clients_connected",
				Help: "Number of currently connected realtime clients",
			},
		),
		BroadcastsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_broadcasts_sent_total",
				Help: "Total number of events delivered to realtime clients",
			},
			[]string{"event"},
		),
		BroadcastsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_broadcasts_dropped_total",
				Help: "Total number of events dropped due to slow clients",
			},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.BatchesCreatedTotal)
	m.registry.MustRegister(m.TextsRecordedTotal)
	m.registry.MustRegister(m.BatchesEvictedTotal)
	m.registry.MustRegister(m.HistoryClearsTotal)

	m.registry.MustRegister(m.UploadsReceivedTotal)
	m.registry.MustRegister(m.UploadBytesTotal)
	m.registry.MustRegister(m.DownloadsServedTotal)
	m.registry.MustRegister(m.DownloadErrorsTotal)
	m.registry.MustRegister(m.ReceivedFilesPruned)

	m.registry.MustRegister(m.ClientsConnected)
	m.registry.MustRegister(m.BroadcastsSentTotal)
	m.registry.MustRegister(m.BroadcastsDroppedTotal)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
