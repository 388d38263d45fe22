package socket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/playperu/sketchroom/internal/hub"
)

// Disconnect reasons handed to the dispatcher.
const (
	ReasonClient  = "client"
	ReasonServer  = "server"
	ReasonNetwork = "network"
)

const (
	readLimit    = 4 << 20 // full canvas snapshots arrive as data URIs
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
)

// Dispatcher consumes decoded client events.
type Dispatcher interface {
	Dispatch(connID, event string, data json.RawMessage)
	Disconnect(connID, reason string)
}

type Handler struct {
	hub            *hub.Hub
	dispatcher     Dispatcher
	originPatterns []string
	logger         *slog.Logger
}

// NewHandler serves the event socket. With no origin patterns any origin is
// accepted.
func NewHandler(logger *slog.Logger, h *hub.Hub, d Dispatcher, originPatterns []string) *Handler {
	return &Handler{hub: h, dispatcher: d, originPatterns: originPatterns, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.serve)
	return r
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: len(h.originPatterns) == 0,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	c := h.hub.Register()
	logger := h.logger.With("conn_id", c.ID)
	logger.Info("socket connected", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var serverClosed atomic.Bool
	go h.writeLoop(ctx, conn, c, &serverClosed, logger)

	reason := h.readLoop(ctx, conn, c, &serverClosed, logger)

	h.dispatcher.Disconnect(c.ID, reason)
	h.hub.Unregister(c)
	logger.Info("socket disconnected", "reason", reason)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, c *hub.Conn, serverClosed *atomic.Bool, logger *slog.Logger) string {
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			logger.Debug("websocket read ended", "error", err)
			return classify(err, serverClosed.Load())
		}
		if typ != websocket.MessageText {
			continue
		}

		var env hub.Envelope
		if err := json.Unmarshal(msg, &env); err != nil || env.Event == "" {
			logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		h.dispatcher.Dispatch(c.ID, env.Event, env.Data)
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, c *hub.Conn, serverClosed *atomic.Bool, logger *slog.Logger) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Done():
			serverClosed.Store(true)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case frame := <-c.Messages():
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				logger.Debug("websocket write failed", "error", err)
				conn.CloseNow()
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				logger.Debug("websocket ping failed", "error", err)
				conn.CloseNow()
				return
			}
		}
	}
}

// classify maps the error that ended a read loop to a disconnect reason.
func classify(err error, serverClosed bool) string {
	if serverClosed {
		return ReasonServer
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return ReasonClient
	case websocket.StatusPolicyViolation, websocket.StatusMessageTooBig:
		return ReasonServer
	case -1:
		if errors.Is(err, context.Canceled) {
			return ReasonServer
		}
		return ReasonNetwork
	default:
		return ReasonClient
	}
}
