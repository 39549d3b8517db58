package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pwarp/internal/homography"
	"github.com/MeKo-Tech/pwarp/internal/projection"
	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Tracking clients are engines and tools, not browsers
		return true
	},
}

// Message types on the tracking socket.
const (
	msgFrame    = "frame"
	msgStats    = "stats"
	msgUniforms = "uniforms"
	msgSkip     = "skip"
	msgError    = "error"
)

// TrackRequest is a client message on /ws/track.
type TrackRequest struct {
	Type string `json:"type"`
	// Corners are the pixel positions of the surface corners in top-left,
	// top-right, bottom-left, bottom-right order.
	Corners []utils.Point `json:"corners,omitempty"`
}

// TrackResponse is a server message on /ws/track.
type TrackResponse struct {
	Type      string            `json:"type"`
	Seq       uint64            `json:"seq,omitempty"`
	M0        *[3]float64       `json:"m0,omitempty"`
	M1        *[3]float64       `json:"m1,omitempty"`
	M2        *[3]float64       `json:"m2,omitempty"`
	Stats     *projection.Stats `json:"stats,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorType string            `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// uniformFrame collects the rows uploaded by one projector tick.
type uniformFrame map[string][3]float64

func (f uniformFrame) SetVector(name string, v [3]float64) error {
	f[name] = v
	return nil
}

// trackSession is the per-connection projector state.
type trackSession struct {
	projector *projection.Projector
	uniforms  uniformFrame
	seq       uint64
	clientID  string
}

func (s *Server) newTrackSession(clientID string) (*trackSession, error) {
	uniforms := make(uniformFrame, 3)
	p, err := projection.NewProjector(uniforms, projection.Options{
		Resolution:    s.display.Resolution,
		Solver:        s.solver,
		ConditionWarn: s.conditionWarn,
	})
	if err != nil {
		return nil, err
	}
	return &trackSession{projector: p, uniforms: uniforms, clientID: clientID}, nil
}

// trackWebSocketHandler streams per-tick homography updates.
func (s *Server) trackWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	session, err := s.newTrackSession(getClientIP(r))
	if err != nil {
		s.sendTrackResponse(conn, TrackResponse{Type: msgError, Error: err.Error(), ErrorType: errTypeInternal})
		return
	}

	s.handleWebSocketConnection(conn, session)

	st := session.projector.Stats()
	slog.Info("WebSocket connection closed", "remote_addr", r.RemoteAddr,
		"ticks", st.Ticks, "uploads", st.Uploads, "skips", st.Skips)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn, session *trackSession) {
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	// Send ping messages to keep connection alive
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if messageType == websocket.TextMessage {
			s.handleTrackMessage(conn, session, data)
		}
	}
}

// handleTrackMessage processes one client message.
func (s *Server) handleTrackMessage(conn WebSocketConnWriter, session *trackSession, data []byte) {
	var req TrackRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendTrackResponse(conn, TrackResponse{
			Type:      msgError,
			Error:     fmt.Sprintf("Failed to parse request: %v", err),
			ErrorType: errTypeInvalidRequest,
		})
		return
	}

	switch req.Type {
	case msgFrame:
		if err := s.checkFrameLimit(session); err != nil {
			s.sendTrackResponse(conn, TrackResponse{Type: msgError, Seq: session.seq, Error: err.Error(), ErrorType: errTypeRateLimited})
			return
		}
		s.sendTrackResponse(conn, s.processFrame(session, req.Corners))
	case msgStats:
		st := session.projector.Stats()
		s.sendTrackResponse(conn, TrackResponse{Type: msgStats, Seq: session.seq, Stats: &st})
	default:
		s.sendTrackResponse(conn, TrackResponse{
			Type:      msgError,
			Error:     "Unsupported message type: " + req.Type,
			ErrorType: errTypeInvalidRequest,
		})
	}
}

// checkFrameLimit charges one frame to the session's client. Rejected frames
// do not tick the projector.
func (s *Server) checkFrameLimit(session *trackSession) error {
	if s.frameLimiter == nil {
		return nil
	}
	err := s.frameLimiter.CheckRateLimit(session.clientID)
	if err != nil {
		var rle *RateLimitError
		if errors.As(err, &rle) {
			rateLimitHits.WithLabelValues("frame_" + rle.Type).Inc()
		}
		slog.Warn("Frame rate limit exceeded", "client", session.clientID, "error", err)
	}
	return err
}

// processFrame runs one projector tick and builds the reply.
func (s *Server) processFrame(session *trackSession, corners []utils.Point) TrackResponse {
	session.seq++
	seq := session.seq

	if len(corners) != homography.Corners {
		solvesTotal.WithLabelValues("websocket", errTypeMalformedInput).Inc()
		projectorSkipsTotal.Inc()
		err := &homography.MalformedInputError{
			Reason: fmt.Sprintf("expected %d corners, got %d", homography.Corners, len(corners)),
		}
		return TrackResponse{Type: msgSkip, Seq: seq, Error: err.Error(), ErrorType: errTypeMalformedInput}
	}

	start := time.Now()
	_, err := session.projector.Update([4]utils.Point(corners))
	solveDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())
	if err != nil {
		typ := errorType(err)
		solvesTotal.WithLabelValues("websocket", typ).Inc()
		projectorSkipsTotal.Inc()
		return TrackResponse{Type: msgSkip, Seq: seq, Error: err.Error(), ErrorType: typ}
	}
	solvesTotal.WithLabelValues("websocket", "ok").Inc()

	m0 := session.uniforms[projection.UniformM0]
	m1 := session.uniforms[projection.UniformM1]
	m2 := session.uniforms[projection.UniformM2]
	return TrackResponse{Type: msgUniforms, Seq: seq, M0: &m0, M1: &m1, M2: &m2}
}

// sendTrackResponse sends a response message over WebSocket.
func (s *Server) sendTrackResponse(conn WebSocketConnWriter, response TrackResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
