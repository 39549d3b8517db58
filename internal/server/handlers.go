package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// Error types reported to clients.
const (
	errTypeInvalidRequest = "invalid_request"
	errTypeMalformedInput = "malformed_input"
	errTypeSingularMatrix = "singular_matrix"
	errTypeInternal       = "internal_error"
	errTypeRateLimited    = "rate_limited"
)

// errorType classifies a solve error for clients and metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, homography.ErrSingularMatrix):
		return errTypeSingularMatrix
	case errors.Is(err, homography.ErrMalformedInput):
		return errTypeMalformedInput
	default:
		return errTypeInternal
	}
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// layoutHandler returns the scene layout for the configured display.
func (s *Server) layoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	layout, err := s.display.Layout()
	if err != nil {
		s.writeErrorResponse(w, err.Error(), errTypeInternal, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, LayoutResponse{Display: s.display, Layout: layout})
}

// homographyHandler solves a single homography.
func (s *Server) homographyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.ContentLength > 0 {
		requestBodyBytes.Observe(float64(r.ContentLength))
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req HomographyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeErrorResponse(w, "Request body too large", errTypeInvalidRequest, http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse request: %v", err), errTypeInvalidRequest, http.StatusBadRequest)
		return
	}

	corr, err := req.correspondences()
	if err != nil {
		s.writeErrorResponse(w, err.Error(), errorType(err), http.StatusBadRequest)
		return
	}

	start := time.Now()
	h, err := homography.ComputeWith(s.solver, corr)
	solveDuration.WithLabelValues("http").Observe(time.Since(start).Seconds())
	if err != nil {
		typ := errorType(err)
		solvesTotal.WithLabelValues("http", typ).Inc()
		status := http.StatusBadRequest
		if typ == errTypeSingularMatrix {
			status = http.StatusUnprocessableEntity
		}
		slog.Debug("Homography solve failed", "error", err, "error_type", typ)
		s.writeErrorResponse(w, err.Error(), typ, status)
		return
	}
	solvesTotal.WithLabelValues("http", "ok").Inc()

	if s.conditionWarn > 0 {
		if c := homography.Condition(corr); c > s.conditionWarn {
			slog.Warn("Ill-conditioned homography request", "condition", c, "threshold", s.conditionWarn)
		}
	}

	result := newHomographyResult(corr, h)
	reprojectionError.Observe(result.ReprojectionError)
	s.writeJSON(w, http.StatusOK, HomographyResponse{Success: true, HomographyResult: result})
}

// correspondences pairs the request points, normalizing pixel destinations.
func (req *HomographyRequest) correspondences() ([]homography.Correspondence, error) {
	src := req.Src
	if len(src) == 0 {
		corners := projection.SourceCorners()
		src = corners[:]
	}

	dst := req.Dst
	if req.Resolution != nil {
		if err := req.Resolution.Validate(); err != nil {
			return nil, &homography.MalformedInputError{Reason: err.Error()}
		}
		dst = make([]utils.Point, len(req.Dst))
		for i, p := range req.Dst {
			dst[i] = req.Resolution.Normalize(p)
		}
	}

	return homography.Pair(src, dst)
}

func newHomographyResult(corr []homography.Correspondence, h homography.Coefficients) *HomographyResult {
	return &HomographyResult{
		Coefficients:      h,
		M0:                h.M0(),
		M1:                h.M1(),
		M2:                h.M2(),
		ReprojectionError: homography.Reprojection(corr, h),
		Affine:            h.IsAffine(0),
		Folded:            homography.Folded(corr),
	}
}

// writeJSON encodes v before writing the status line, so an encoding failure
// still produces a well-formed 500 response.
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		statusCode = http.StatusInternalServerError
		data, _ = json.Marshal(HomographyResponse{Error: "failed to encode response", ErrorType: errTypeInternal})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, errType string, statusCode int) {
	s.writeJSON(w, statusCode, HomographyResponse{
		Success:   false,
		Error:     message,
		ErrorType: errType,
	})
}
