package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	display       projection.Display
	solver        homography.Solver
	conditionWarn float64
	corsOrigin    string
	maxBodyBytes  int64
	timeoutSec    int
	version       string
	rateLimiter   *RateLimiter
	frameLimiter  *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host          string
	Port          int
	CORSOrigin    string
	MaxBodyKB     int64
	TimeoutSec    int
	Display       projection.Display
	Solver        homography.Solver
	ConditionWarn float64
	RateLimit     RateLimitConfig
	Version       string
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	// FramesPerMinute caps /ws/track frames per client (0 = unlimited).
	FramesPerMinute   int
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// HomographyRequest is the body of POST /v1/homography.
//
// Src defaults to the unit-square source corners. When Resolution is set the
// destination points are pixels and are normalized before solving.
type HomographyRequest struct {
	Src        []utils.Point          `json:"src,omitempty"`
	Dst        []utils.Point          `json:"dst"`
	Resolution *projection.Resolution `json:"resolution,omitempty"`
}

// HomographyResult carries the solved coefficients and shader rows.
type HomographyResult struct {
	Coefficients      homography.Coefficients `json:"coefficients"`
	M0                [3]float64              `json:"m0"`
	M1                [3]float64              `json:"m1"`
	M2                [3]float64              `json:"m2"`
	ReprojectionError float64                 `json:"reprojection_error"`
	Affine            bool                    `json:"affine"`
	Folded            bool                    `json:"folded"`
}

// HomographyResponse is returned by POST /v1/homography.
type HomographyResponse struct {
	Success bool `json:"success"`
	*HomographyResult
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// LayoutResponse is returned by GET /v1/layout.
type LayoutResponse struct {
	Display projection.Display `json:"display"`
	Layout  projection.Layout  `json:"layout"`
}

// NewServer creates a new homography server instance.
func NewServer(config Config) (*Server, error) {
	if err := config.Display.Validate(); err != nil {
		return nil, fmt.Errorf("invalid display: %w", err)
	}
	maxBody := config.MaxBodyKB
	if maxBody <= 0 {
		maxBody = 64
	}

	s := &Server{
		display:       config.Display,
		solver:        config.Solver,
		conditionWarn: config.ConditionWarn,
		corsOrigin:    config.CORSOrigin,
		maxBodyBytes:  maxBody * 1024,
		timeoutSec:    config.TimeoutSec,
		version:       config.Version,
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter("requests", Limits{
			PerMinute: rl.RequestsPerMinute,
			PerHour:   rl.RequestsPerHour,
			PerDay:    rl.MaxRequestsPerDay,
		})
		if rl.FramesPerMinute > 0 {
			s.frameLimiter = NewRateLimiter("frames", Limits{PerMinute: rl.FramesPerMinute})
		}
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/v1/homography", s.withTimeout(s.corsMiddleware(s.rateLimitMiddleware(s.homographyHandler))))
	mux.HandleFunc("/v1/layout", s.corsMiddleware(s.layoutHandler))
	mux.HandleFunc("/ws/track", s.trackWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// withTimeout bounds request handling by the configured timeout.
func (s *Server) withTimeout(h http.HandlerFunc) http.Handler {
	if s.timeoutSec <= 0 {
		return h
	}
	return http.TimeoutHandler(h, time.Duration(s.timeoutSec)*time.Second, `{"success":false,"error":"request timed out"}`)
}
