package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Dispatch applies one inbound event from connection connID. Rejections are
// logged, and those carrying a *RoomError are also reported to the sender.
// A panicking handler is recovered so the connection keeps being served.
func (e *Engine) Dispatch(connID, event string, data json.RawMessage) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("event handler panicked", "event", event, "conn_id", connID, "panic", p)
		}
	}()

	e.report(connID, event, e.handle(connID, event, data))
}

func (e *Engine) handle(connID, event string, data json.RawMessage) error {
	switch event {
	case EventUserJoined:
		return e.handleUserJoined(connID, data)
	case EventLeaveRoom:
		return e.handleLeaveRoom(connID, data)
	case EventCanvasDrawing:
		return e.handleCanvasDrawing(connID, data)
	case EventCanvasFullSync:
		return e.handleCanvasFullSync(connID, data)
	case EventSendMessage:
		return e.handleSendMessage(connID, data)
	case EventStartRound:
		return e.handleStartRound(connID, data)
	case EventSetTotalRounds:
		return e.handleSetTotalRounds(connID, data)
	case EventWordChosen:
		return e.handleWordChosen(connID, data)
	case EventCorrectGuess:
		return e.handleCorrectGuess(connID, data)
	case EventRequestSnapshot:
		return e.handleRequestSnapshot(connID, data)
	case EventDisconnecting, EventDisconnect:
		e.Disconnect(connID, "client")
		return nil
	default:
		return fmt.Errorf("unknown event %q: %w", event, ErrInvalidPayload)
	}
}

func (e *Engine) report(connID, event string, err error) {
	if err == nil {
		return
	}

	var roomErr *RoomError
	if errors.As(err, &roomErr) {
		e.emit.Send(connID, EventRoomError, roomErrorPayload{Type: roomErr.Type, Message: roomErr.Message})
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		e.logger.Debug("event throttled", "event", event, "conn_id", connID, "error", err)
	case errors.Is(err, ErrInvalidState):
		e.logger.Info("event rejected", "event", event, "conn_id", connID, "error", err)
	default:
		e.logger.Warn("event rejected", "event", event, "conn_id", connID, "error", err)
	}
}

// Disconnect removes connID from every room it joined. reason is one of
// client, server or network and is only logged.
func (e *Engine) Disconnect(connID, reason string) {
	rooms := e.emit.RoomsOf(connID)
	e.logger.Info("connection gone", "conn_id", connID, "reason", reason, "rooms", len(rooms))
	for _, roomID := range rooms {
		if err := e.leave(connID, roomID); err != nil {
			e.logger.Debug("leave on disconnect", "conn_id", connID, "room_id", roomID, "error", err)
		}
	}
	e.forgetLimiters(connID)
}
