package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/logger"
	"github.com/evyataryagoni/itemlocator/internal/metrics"
	"github.com/evyataryagoni/itemlocator/internal/search"
	"github.com/evyataryagoni/itemlocator/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	liveWriteWait      = 10 * time.Second
	liveMaxMessageSize = 4096
	liveSendBuffer     = 32
)

// Client frame types
const (
	frameQuery   = "query"
	frameClear   = "clear"
	frameRefresh = "refresh"
	frameOrigin  = "origin"
)

// Server frame types
const (
	frameState = "state"
	frameError = "error"
)

// liveRequest is a frame sent by the client
type liveRequest struct {
	Type      string   `json:"type"`
	Text      string   `json:"text,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// liveMessage is a frame sent to the client
type liveMessage struct {
	Type    string        `json:"type"`
	Session string        `json:"session,omitempty"`
	State   *search.State `json:"state,omitempty"`
	Error   string        `json:"error,omitempty"`

	// MinQueryLength is only sent with the first frame of a session
	MinQueryLength int `json:"minQueryLength,omitempty"`
}

// LiveHandler serves search-as-you-type sessions over WebSocket.
// Every connection owns one search.Orchestrator; its state changes are
// pushed to the client in order.
type LiveHandler struct {
	service  *service.SearchService
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics // optional
	logger   *logger.Logger
}

// NewLiveHandler creates a live search handler. m may be nil.
func NewLiveHandler(svc *service.SearchService, m *metrics.Metrics, log *logger.Logger) *LiveHandler {
	if log == nil {
		log = logger.NewDefault()
	}
	return &LiveHandler{
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // the app is served from other origins
			},
		},
		metrics: m,
		logger:  log.WithComponent("LiveHandler"),
	}
}

// Live handles GET /v1/search/live
// @Summary      Live search session
// @Description  WebSocket. Send {"type":"query","text":"..."}, {"type":"clear"}, {"type":"refresh"} or {"type":"origin","latitude":..,"longitude":..}. Every state change arrives as {"type":"state","session":"...","state":{...}}, the first one also carrying minQueryLength; rejected frames as {"type":"error","error":"..."}.
// @Tags         Search
// @Success      101
// @Failure      429  {object}   models.ErrorResponse  "Rate limit exceeded"
// @Router       /v1/search/live [get]
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.logger.Warn().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	sessionID := uuid.New().String()
	log := h.logger.WithSession(sessionID)
	log.Info().Str("remote_addr", r.RemoteAddr).Msg("Live search session opened")
	if h.metrics != nil {
		h.metrics.LiveSessionsOpen.Inc()
	}

	out := make(chan liveMessage, liveSendBuffer)
	done := make(chan struct{})    // closed when the session ends
	stopped := make(chan struct{}) // closed when the writer exits
	send := func(msg liveMessage) {
		select {
		case out <- msg:
		case <-stopped:
		}
	}

	go func() {
		defer close(stopped)
		h.writeLoop(conn, out, done, log)
	}()

	session := h.service.NewSession(sessionID, func(state search.State) {
		send(liveMessage{Type: frameState, Session: sessionID, State: &state})
	})

	initial := session.State()
	send(liveMessage{
		Type:           frameState,
		Session:        sessionID,
		State:          &initial,
		MinQueryLength: h.service.MinQueryLength(),
	})

	defer func() {
		session.Close()
		close(done)
		<-stopped
		conn.Close()

		if h.metrics != nil {
			h.metrics.LiveSessionsOpen.Dec()
		}
		log.Info().Msg("Live search session closed")
	}()

	conn.SetReadLimit(liveMaxMessageSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var req liveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			send(liveMessage{Type: frameError, Error: "invalid message: expected a JSON object"})
			continue
		}

		if msg := h.dispatch(session, req); msg != "" {
			send(liveMessage{Type: frameError, Error: msg})
		}
	}
}

// dispatch applies one client frame to the session and returns an error
// message for the client, or "" on success
func (h *LiveHandler) dispatch(session *search.Orchestrator, req liveRequest) string {
	var err error
	switch req.Type {
	case frameQuery:
		err = session.UpdateQuery(req.Text)
	case frameClear:
		err = session.ClearSearch()
	case frameRefresh:
		err = session.RefreshSearch()
	case frameOrigin:
		origin, msg := h.parseOrigin(req)
		if msg != "" {
			return msg
		}
		err = session.SetOrigin(origin)
	default:
		return "unknown message type: " + req.Type
	}

	if err != nil {
		return err.Error()
	}
	return ""
}

// parseOrigin reads an origin frame; both coordinates absent clears the origin
func (h *LiveHandler) parseOrigin(req liveRequest) (*geo.Coordinate, string) {
	if req.Latitude == nil && req.Longitude == nil {
		return nil, ""
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, errBadCoordinates.Error()
	}

	origin := &geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := h.service.ValidateOrigin(origin); err != nil {
		return nil, err.Error()
	}
	return origin, ""
}

// writeLoop is the only writer on conn
func (h *LiveHandler) writeLoop(conn *websocket.Conn, out <-chan liveMessage, done <-chan struct{}, log *logger.Logger) {
	for {
		select {
		case msg := <-out:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Msg("Failed to write live search frame")
				// unblocks the read loop so the session shuts down
				conn.Close()
				return
			}
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
