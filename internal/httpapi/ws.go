package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/voxturn/internal/observability"
)

const (
	wsGreeting     = "👋 Connected to WebSocket echo server. Send me something!"
	wsReadLimit    = 64 << 10
	wsIdleTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleEchoWS greets the client and echoes every text frame back.
func (s *Server) handleEchoWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := observability.Logger(r.Context())
	log.Info("websocket client connected", slog.String("remote", r.RemoteAddr))
	defer log.Info("websocket client disconnected", slog.String("remote", r.RemoteAddr))

	if err := s.writeText(conn, wsGreeting); err != nil {
		return
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", slog.Any("err", err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		s.metrics.ObserveWSMessage("inbound")
		if err := s.writeText(conn, "Echo: "+string(data)); err != nil {
			return
		}
	}
}

func (s *Server) writeText(conn *websocket.Conn, text string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return err
	}
	s.metrics.ObserveWSMessage("outbound")
	return nil
}
