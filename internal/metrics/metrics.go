// Package metrics exposes demuxer counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VCDUsReceived counts frames accepted into the pipeline, fill included.
	VCDUsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrit_vcdus_received_total",
		Help: "VCDU frames received from the input source.",
	})

	FillFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrit_fill_frames_total",
		Help: "Fill VCDUs (VCID 63) discarded.",
	})

	PacketsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrit_packets_dropped_total",
		Help: "VCDUs lost according to the continuity counter.",
	})

	UnknownSpacecraft = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrit_unknown_spacecraft_total",
		Help: "Frames discarded for a spacecraft id mismatch.",
	})

	CRCErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrit_cppdu_crc_errors_total",
		Help: "CP_PDUs whose CRC trailer did not match.",
	})

	LengthErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrit_cppdu_length_errors_total",
		Help: "CP_PDUs whose payload length did not match the declared length.",
	})

	FilesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrit_files_emitted_total",
		Help: "xRIT files written to the output tree.",
	})

	FilesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrit_files_skipped_total",
		Help: "Transport files dropped for a final length mismatch.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xrit_intake_queue_depth",
		Help: "VCDUs waiting in the intake queue.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
