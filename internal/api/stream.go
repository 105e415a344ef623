package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const (
	streamWriteWait  = 10 * time.Second
	streamIdleWait   = 5 * time.Minute
	maxStreamMessage = 64 * 1024
)

// handleStream upgrades the connection and scores one sample per incoming
// message until the client disconnects. Message format matches the predict
// endpoint; per-message faults produce an error frame, not a disconnect.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/stream"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.requestInc(endpoint, http.StatusBadRequest)
		return
	}
	s.requestInc(endpoint, http.StatusOK)
	if s.metrics != nil {
		s.metrics.ActiveStreams.Inc()
	}

	sessionID := uuid.NewString()
	log.Info().Str("session_id", sessionID).Msg("scoring stream opened")

	defer func() {
		conn.Close()
		if s.metrics != nil {
			s.metrics.ActiveStreams.Dec()
		}
		log.Info().Str("session_id", sessionID).Msg("scoring stream closed")
	}()

	conn.SetReadLimit(maxStreamMessage)

	// Client pings keep an otherwise idle session alive.
	conn.SetPingHandler(func(appData string) error {
		if err := conn.SetReadDeadline(time.Now().Add(streamIdleWait)); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(streamWriteWait))
	})

	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamIdleWait)); err != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("stream read failed")
			}
			return
		}

		var req PredictRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if !s.writeStreamError(conn, "invalid message: "+err.Error(), req.RequestID) {
				return
			}
			continue
		}
		if err := req.Validate(s.opts.MaxHistoryPatterns); err != nil {
			if !s.writeStreamError(conn, err.Error(), req.RequestID) {
				return
			}
			continue
		}
		if req.RequestID == "" {
			req.RequestID = uuid.NewString()
		}

		start := time.Now()
		result, err := s.engine.Predict(req.Features, req.HistoricalPatterns)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("stream prediction failed")
			if !s.writeStreamError(conn, "prediction failed: "+err.Error(), req.RequestID) {
				return
			}
			continue
		}

		resp := s.predictResponse(req, result, start)
		s.audit(req, resp)
		if err := s.writeStreamJSON(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) writeStreamJSON(conn *websocket.Conn, body any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(body)
}

func (s *Server) writeStreamError(conn *websocket.Conn, msg, requestID string) bool {
	err := s.writeStreamJSON(conn, ErrorResponse{Error: msg, RequestID: requestID})
	return err == nil
}
