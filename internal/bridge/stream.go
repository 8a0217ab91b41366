package bridge

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"convrt/internal/events"
	"convrt/internal/logging"
)

const (
	streamBatch = 100
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     allowedOrigin,
}

// handleEvents upgrades to a websocket and pushes bus events as JSON text
// frames. ?since=<seq> resumes after a known sequence; ?run=<id> narrows the
// stream to one run.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		s.writeError(w, http.StatusNotFound, "event stream disabled")
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	runID := strings.TrimSpace(query.Get("run"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.readPump(conn, cancel)
	go s.pingLoop(ctx, conn)

	cursor := since
	for {
		batch, _, err := s.bus.Since(ctx, cursor, streamBatch, true)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Debug("event stream ended", logging.Error(err))
			}
			return
		}
		for _, evt := range batch {
			cursor = evt.Seq
			if runID != "" && evt.RunID != runID {
				continue
			}
			if err := s.writeEvent(conn, evt); err != nil {
				s.logger.Debug("event stream write failed", logging.Error(err))
				return
			}
		}
	}
}

// readPump discards client frames and cancels the stream when the peer goes away.
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, evt events.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(evt)
}
