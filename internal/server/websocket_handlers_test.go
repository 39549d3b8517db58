package server

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pwarp/internal/utils"
)

// mockWebSocketConn records written messages.
type mockWebSocketConn struct {
	sent [][]byte
}

func (m *mockWebSocketConn) WriteMessage(_ int, data []byte) error {
	m.sent = append(m.sent, data)
	return nil
}

func (m *mockWebSocketConn) last(t *testing.T) TrackResponse {
	t.Helper()
	require.NotEmpty(t, m.sent)
	var resp TrackResponse
	require.NoError(t, json.Unmarshal(m.sent[len(m.sent)-1], &resp))
	return resp
}

var fullFramePixels = []utils.Point{{X: 0, Y: 1000}, {X: 1000, Y: 1000}, {X: 0, Y: 0}, {X: 1000, Y: 0}}

func frameMessage(t *testing.T, corners []utils.Point) []byte {
	t.Helper()
	data, err := json.Marshal(TrackRequest{Type: msgFrame, Corners: corners})
	require.NoError(t, err)
	return data
}

func newTestSession(t *testing.T) (*Server, *trackSession) {
	t.Helper()
	s, err := NewServer(Config{Display: testDisplay()})
	require.NoError(t, err)
	session, err := s.newTrackSession("10.0.0.1")
	require.NoError(t, err)
	return s, session
}

func TestHandleTrackMessage_Frame(t *testing.T) {
	s, session := newTestSession(t)
	conn := &mockWebSocketConn{}

	s.handleTrackMessage(conn, session, frameMessage(t, fullFramePixels))

	resp := conn.last(t)
	assert.Equal(t, msgUniforms, resp.Type)
	assert.Equal(t, uint64(1), resp.Seq)
	require.NotNil(t, resp.M0)
	assert.Equal(t, [3]float64{1, 0, 0}, *resp.M0)
	assert.Equal(t, [3]float64{0, 1, 0}, *resp.M1)
	assert.Equal(t, [3]float64{0, 0, 1}, *resp.M2)
}

func TestHandleTrackMessage_FrameRateLimit(t *testing.T) {
	s, err := NewServer(Config{
		Display:   testDisplay(),
		RateLimit: RateLimitConfig{Enabled: true, FramesPerMinute: 1},
	})
	require.NoError(t, err)
	session, err := s.newTrackSession("10.0.0.1")
	require.NoError(t, err)
	conn := &mockWebSocketConn{}

	s.handleTrackMessage(conn, session, frameMessage(t, fullFramePixels))
	assert.Equal(t, msgUniforms, conn.last(t).Type)

	s.handleTrackMessage(conn, session, frameMessage(t, fullFramePixels))
	resp := conn.last(t)
	assert.Equal(t, msgError, resp.Type)
	assert.Equal(t, errTypeRateLimited, resp.ErrorType)
	assert.Contains(t, resp.Error, "rate limit exceeded for minute")
	assert.Equal(t, uint64(1), resp.Seq)
	assert.Equal(t, uint64(1), session.projector.Stats().Ticks)

	// Stats requests are not frames.
	s.handleTrackMessage(conn, session, []byte(`{"type":"stats"}`))
	assert.Equal(t, msgStats, conn.last(t).Type)

	// Another client has its own budget.
	other, err := s.newTrackSession("10.0.0.2")
	require.NoError(t, err)
	s.handleTrackMessage(conn, other, frameMessage(t, fullFramePixels))
	assert.Equal(t, msgUniforms, conn.last(t).Type)
}

func TestHandleTrackMessage_SkipsSingularFrame(t *testing.T) {
	s, session := newTestSession(t)
	conn := &mockWebSocketConn{}

	s.handleTrackMessage(conn, session, frameMessage(t, fullFramePixels))
	s.handleTrackMessage(conn, session, frameMessage(t, make([]utils.Point, 4)))

	resp := conn.last(t)
	assert.Equal(t, msgSkip, resp.Type)
	assert.Equal(t, uint64(2), resp.Seq)
	assert.Equal(t, errTypeSingularMatrix, resp.ErrorType)
	assert.Nil(t, resp.M0)

	// The last good uniforms stay current.
	h, ok := session.projector.Last()
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 0, 0}, h.M0())
	assert.Equal(t, [3]float64{1, 0, 0}, session.uniforms["_M0"])
}

func TestHandleTrackMessage_WrongCornerCount(t *testing.T) {
	s, session := newTestSession(t)
	conn := &mockWebSocketConn{}

	s.handleTrackMessage(conn, session, frameMessage(t, fullFramePixels[:3]))

	resp := conn.last(t)
	assert.Equal(t, msgSkip, resp.Type)
	assert.Equal(t, errTypeMalformedInput, resp.ErrorType)
	assert.Contains(t, resp.Error, "expected 4 corners, got 3")
}

func TestHandleTrackMessage_Stats(t *testing.T) {
	s, session := newTestSession(t)
	conn := &mockWebSocketConn{}

	s.handleTrackMessage(conn, session, frameMessage(t, fullFramePixels))
	s.handleTrackMessage(conn, session, frameMessage(t, make([]utils.Point, 4)))
	s.handleTrackMessage(conn, session, []byte(`{"type":"stats"}`))

	resp := conn.last(t)
	assert.Equal(t, msgStats, resp.Type)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, uint64(2), resp.Stats.Ticks)
	assert.Equal(t, uint64(1), resp.Stats.Uploads)
	assert.Equal(t, uint64(1), resp.Stats.Skips)
}

func TestHandleTrackMessage_InvalidRequests(t *testing.T) {
	s, session := newTestSession(t)

	tests := []struct {
		name string
		data string
		want string
	}{
		{"invalid json", `{"type":`, "Failed to parse request"},
		{"unknown type", `{"type":"image"}`, "Unsupported message type: image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockWebSocketConn{}
			s.handleTrackMessage(conn, session, []byte(tt.data))

			resp := conn.last(t)
			assert.Equal(t, msgError, resp.Type)
			assert.Equal(t, errTypeInvalidRequest, resp.ErrorType)
			assert.Contains(t, resp.Error, tt.want)
		})
	}
}

func TestTrackWebSocket_EndToEnd(t *testing.T) {
	ts := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/track"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	keystone := []utils.Point{{X: 100, Y: 900}, {X: 900, Y: 900}, {X: 0, Y: 0}, {X: 1000, Y: 0}}
	require.NoError(t, conn.WriteJSON(TrackRequest{Type: msgFrame, Corners: keystone}))

	var reply TrackResponse
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, msgUniforms, reply.Type)
	assert.Equal(t, uint64(1), reply.Seq)
	require.NotNil(t, reply.M2)
	assert.InDelta(t, 0.25, reply.M2[1], 1e-12)
	assert.Equal(t, 1.0, reply.M2[2])

	require.NoError(t, conn.WriteJSON(TrackRequest{Type: msgFrame, Corners: make([]utils.Point, 4)}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, msgSkip, reply.Type)
	assert.Equal(t, uint64(2), reply.Seq)
}
