package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/service"
	ws "github.com/stemsi/qbank-console/internal/websocket"
)

const keepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams composition workflow events.
type WSHandler struct {
	compositionService *service.CompositionService
	log                zerolog.Logger
	upgrader           websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(compositionService *service.CompositionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		compositionService: compositionService,
		log:                log.With().Str("component", "ws_handler").Logger(),
		upgrader:           buildUpgrader(allowedOrigins),
	}
}

// CompositionEvents godoc
// WS /ws/v1/compositions/:id/events?token=
// Sends a session snapshot, then forwards every workflow event of the
// session (batch progress, failures) as it is published.
func (h *WSHandler) CompositionEvents(c *gin.Context) {
	creator := middleware.GetCreator(c)
	sessionID := c.Param("id")
	ctx := c.Request.Context()

	sess, err := h.compositionService.Get(ctx, sessionID, creator)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	pubsub, err := h.compositionService.Subscribe(ctx, sessionID, creator)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	defer pubsub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", sessionID).
		Str("teacher_id", creator.ID).
		Logger()
	wsLog.Info().Msg("Client attached to composition events")

	if err := ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Session: sess}); err != nil {
		return
	}

	// The reader owns all client messages; replies go through the writer loop.
	requests := make(chan ws.Action, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case requests <- msg.Action:
			default:
			}
		}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ch := pubsub.Channel()
	for {
		var werr error
		select {
		case <-done:
			return
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			werr = ws.WriteWorkflow(conn, msg.Payload)

		case action := <-requests:
			werr = h.handleRequest(ctx, conn, action, sessionID, creator)

		case <-keepAlive.C:
			werr = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		}
		if werr != nil {
			wsLog.Debug().Err(werr).Msg("Write failed")
			return
		}
	}
}

func (h *WSHandler) handleRequest(ctx context.Context, conn *websocket.Conn, action ws.Action, sessionID string, creator model.Creator) error {
	switch action {
	case ws.ActionPing:
		return ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
	case ws.ActionSnapshot:
		sess, err := h.compositionService.Get(ctx, sessionID, creator)
		if err != nil {
			return ws.WriteError(conn, "session is no longer available")
		}
		return ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Session: sess})
	default:
		return ws.WriteError(conn, "unknown action")
	}
}
