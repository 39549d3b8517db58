package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwarp_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pwarp_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Solver metrics
	solvesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwarp_homography_solves_total",
			Help: "Total number of homography solves",
		},
		[]string{"source", "status"}, // source: http, websocket; status: ok, singular_matrix, malformed_input
	)

	solveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pwarp_homography_solve_duration_seconds",
			Help:    "Homography solve duration in seconds",
			Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 1e-2},
		},
		[]string{"source"},
	)

	reprojectionError = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pwarp_homography_reprojection_error",
			Help:    "Maximum corner reprojection error of solved homographies",
			Buckets: []float64{1e-15, 1e-13, 1e-11, 1e-9, 1e-7, 1e-5},
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwarp_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, frame_minute
	)

	requestBodyBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pwarp_request_body_bytes",
			Help:    "Size of request bodies in bytes",
			Buckets: []float64{64, 256, 1024, 4 * 1024, 16 * 1024, 64 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pwarp_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwarp_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)

	projectorSkipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pwarp_projector_skips_total",
			Help: "Total number of tracking ticks whose upload was skipped",
		},
	)
)
