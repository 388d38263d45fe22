package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var imageDataPrefixes = []string{
	"data:image/png;base64,",
	"data:image/jpeg;base64,",
	"data:image/webp;base64,",
}

// notFoundAsRoomError upgrades a missing-room error so the sender hears
// about it.
func notFoundAsRoomError(err error) error {
	var roomErr *RoomError
	if errors.Is(err, ErrNotFound) && !errors.As(err, &roomErr) {
		return fmt.Errorf("%w: %w", roomNotFound(), err)
	}
	return err
}

func (e *Engine) handleUserJoined(connID string, data json.RawMessage) error {
	var p userJoinedPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	name := strings.TrimSpace(p.Name)
	if name == "" || p.UserID == "" || p.RoomID == "" || p.Host == nil {
		return invalidData("name, userId, roomId and host are required")
	}
	roomID, userID := string(p.RoomID), string(p.UserID)

	return e.rooms.WithOrCreate(roomID, func(room *Room) error {
		previousRef := ""
		if existing := room.participant(userID); existing != nil {
			previousRef = existing.TransportRef
		}

		participant, reconnected := room.AddOrReconcileParticipant(userID, name, *p.Host, connID)
		if reconnected && previousRef != "" && previousRef != connID {
			e.emit.Leave(room.id, previousRef)
		}
		e.emit.Join(room.id, connID)

		e.emit.Broadcast(room.id, EventUpdateUsersOnline, room.participants())
		e.emit.Send(connID, EventTotalRoundsUpdated, totalRoundsUpdated{TotalRounds: room.totalRounds})
		e.emit.Send(connID, EventRoundUpdate, room.round)

		e.logger.Info("user joined",
			"room_id", room.id,
			"user_id", userID,
			"conn_id", connID,
			"host", participant.Host,
			"reconnected", reconnected,
		)
		return nil
	})
}

func (e *Engine) handleLeaveRoom(connID string, data json.RawMessage) error {
	var p roomPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" {
		return invalidData("roomId is required")
	}
	return e.leave(connID, string(p.RoomID))
}

// leave removes the participant behind connID from roomID and repairs the
// room: deletion when empty, a new host when the host left, rotation when the
// last missing guesser left.
func (e *Engine) leave(connID, roomID string) error {
	return e.rooms.With(roomID, func(room *Room) error {
		res := room.RemoveParticipant(connID)
		e.emit.Leave(room.id, connID)
		if !res.Found {
			return fmt.Errorf("connection %s in room %s: %w", connID, room.id, ErrNotFound)
		}

		e.emit.Broadcast(room.id, EventUserLeft, res.Removed)
		e.logger.Info("user left", "room_id", room.id, "user_id", res.Removed.UserID, "conn_id", connID)

		if res.Emptied {
			e.rooms.Remove(room)
			e.observer.RoomClosed(room.id)
			e.logger.Info("room closed", "room_id", room.id)
			return nil
		}

		e.emit.Broadcast(room.id, EventUpdateUsersOnline, room.participants())

		if res.Promoted != nil {
			// The drawer is gone, so the sub-round is abandoned.
			room.stopTimer()
			room.resetSubRound()
			e.emit.Broadcast(room.id, EventHostChanged, *res.Promoted)
			e.emit.Broadcast(room.id, EventStopTimer, nil)
			e.emit.Broadcast(room.id, EventResetCanvas, nil)
			return nil
		}

		if room.currentWord != "" && room.allGuessed() {
			e.changeHost(room)
		}
		return nil
	})
}

func (e *Engine) handleCanvasDrawing(connID string, data json.RawMessage) error {
	var p canvasDrawingPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" || len(p.DrawingCommands) == 0 {
		return fmt.Errorf("canvasDrawing needs roomId and drawingCommands: %w", ErrInvalidPayload)
	}
	if !e.limitersFor(connID).draw.AllowN(e.now(), 1) {
		return fmt.Errorf("canvasDrawing from %s: %w", connID, ErrRateLimited)
	}

	return e.rooms.With(string(p.RoomID), func(room *Room) error {
		if room.participantByRef(connID) == nil {
			return fmt.Errorf("connection %s is not in room %s: %w", connID, room.id, ErrUnauthorized)
		}
		e.emit.BroadcastExcept(room.id, connID, EventCanvasDrawing, canvasDrawingRelay{
			DrawingCommands: p.DrawingCommands,
			Timestamp:       e.now().UnixMilli(),
			ClientTimestamp: p.Timestamp,
			SenderID:        connID,
		})
		return nil
	})
}

func (e *Engine) handleCanvasFullSync(connID string, data json.RawMessage) error {
	var p canvasFullSyncPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" || !hasImagePrefix(p.ImageData) {
		return fmt.Errorf("canvasFullSync needs roomId and an image data URI: %w", ErrInvalidPayload)
	}
	if !e.limitersFor(connID).sync.AllowN(e.now(), 1) {
		return fmt.Errorf("canvasFullSync from %s: %w", connID, ErrRateLimited)
	}

	return e.rooms.With(string(p.RoomID), func(room *Room) error {
		if room.participantByRef(connID) == nil {
			return fmt.Errorf("connection %s is not in room %s: %w", connID, room.id, ErrUnauthorized)
		}
		e.emit.BroadcastExcept(room.id, connID, EventCanvasFullSync, canvasFullSyncRelay{
			ImageData: p.ImageData,
			SenderID:  connID,
		})
		return nil
	})
}

func hasImagePrefix(s string) bool {
	for _, prefix := range imageDataPrefixes {
		if strings.HasPrefix(s, prefix) && len(s) > len(prefix) {
			return true
		}
	}
	return false
}

func (e *Engine) handleSendMessage(connID string, data json.RawMessage) error {
	var p roomPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" {
		return fmt.Errorf("sendMessage needs roomId: %w", ErrInvalidPayload)
	}

	return e.rooms.With(string(p.RoomID), func(room *Room) error {
		if room.participantByRef(connID) == nil {
			return fmt.Errorf("connection %s is not in room %s: %w", connID, room.id, ErrUnauthorized)
		}
		e.emit.Broadcast(room.id, EventReceiveMessage, data)
		return nil
	})
}

func (e *Engine) handleStartRound(connID string, data json.RawMessage) error {
	var p startRoundPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" {
		return invalidData("roomId is required")
	}

	err := e.rooms.With(string(p.RoomID), func(room *Room) error {
		if p.UserID != "" {
			if h := room.host(); h == nil || h.UserID != string(p.UserID) {
				return fmt.Errorf("user %s is not the host of room %s: %w", p.UserID, room.id, ErrUnauthorized)
			}
		}

		room.gameInProgress = true
		room.resetSubRound()
		room.wordChoices = e.words.Pick(wordChoiceCount)

		e.emit.Broadcast(room.id, EventRandomWords, room.wordChoices)
		e.startTimer(room)
		e.emit.Broadcast(room.id, EventStartTimer, nil)
		e.emit.Broadcast(room.id, EventRoundUpdate, room.round)

		e.logger.Info("round started", "room_id", room.id, "round", room.round, "conn_id", connID)
		return nil
	})
	return notFoundAsRoomError(err)
}

func (e *Engine) handleSetTotalRounds(connID string, data json.RawMessage) error {
	var p setTotalRoundsPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" {
		return invalidData("roomId is required")
	}
	rounds, ok := parseRounds(p.TotalRounds)
	if !ok {
		return &RoomError{
			Kind:    ErrInvalidPayload,
			Type:    "invalid_rounds",
			Message: fmt.Sprintf("totalRounds must be an integer between %d and %d", minTotalRounds, maxTotalRounds),
		}
	}

	err := e.rooms.With(string(p.RoomID), func(room *Room) error {
		h := room.host()
		if h == nil || p.UserID == "" || h.UserID != string(p.UserID) {
			return fmt.Errorf("user %q may not change rounds in room %s: %w", p.UserID, room.id, ErrUnauthorized)
		}
		if room.gameInProgress {
			return &RoomError{
				Kind:    ErrInvalidState,
				Type:    "game_in_progress",
				Message: "rounds cannot change while a game is in progress",
			}
		}

		room.totalRounds = rounds
		e.emit.Broadcast(room.id, EventTotalRoundsUpdated, totalRoundsUpdated{TotalRounds: rounds})
		e.logger.Info("total rounds set", "room_id", room.id, "total_rounds", rounds, "conn_id", connID)
		return nil
	})
	return notFoundAsRoomError(err)
}

func (e *Engine) handleWordChosen(connID string, data json.RawMessage) error {
	var p wordChosenPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	word := strings.TrimSpace(p.Word)
	if p.RoomID == "" || word == "" {
		return fmt.Errorf("wordChosen needs roomId and word: %w", ErrInvalidPayload)
	}

	return e.rooms.With(string(p.RoomID), func(room *Room) error {
		if p.UserID != "" {
			if h := room.host(); h == nil || h.UserID != string(p.UserID) {
				return fmt.Errorf("user %s is not the host of room %s: %w", p.UserID, room.id, ErrUnauthorized)
			}
		}
		if !room.isWordChoice(word) {
			return fmt.Errorf("word %q was not offered in room %s: %w", word, room.id, ErrInvalidPayload)
		}

		room.currentWord = word
		room.correctGuesses = nil
		room.firstGuessUserID = ""
		room.guessPositions = nil

		e.emit.Broadcast(room.id, EventChosenWord, word)
		e.logger.Info("word chosen", "room_id", room.id, "difficulty", Classify(word), "conn_id", connID)
		return nil
	})
}

func (e *Engine) handleCorrectGuess(connID string, data json.RawMessage) error {
	var p correctGuessPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" || p.UserID == "" {
		return fmt.Errorf("correctGuess needs roomId and userId: %w", ErrInvalidPayload)
	}
	userID := string(p.UserID)

	return e.rooms.With(string(p.RoomID), func(room *Room) error {
		if room.currentWord == "" {
			return fmt.Errorf("no word in play in room %s: %w", room.id, ErrNotFound)
		}
		guesser := room.participant(userID)
		if guesser == nil {
			return fmt.Errorf("user %s in room %s: %w", userID, room.id, ErrNotFound)
		}
		if guesser.Host {
			return fmt.Errorf("host %s cannot guess: %w", userID, ErrUnauthorized)
		}

		now := e.now()
		if last, ok := room.lastGuessTimestamps[userID]; ok && now.Sub(last) < e.scoring.MinGuessInterval {
			return fmt.Errorf("guess from %s after %s: %w", userID, now.Sub(last), ErrRateLimited)
		}
		if room.hasGuessed(userID) {
			return fmt.Errorf("user %s already guessed: %w", userID, ErrInvalidState)
		}
		room.lastGuessTimestamps[userID] = now

		switch {
		case p.Guess != nil:
			if !strings.EqualFold(strings.TrimSpace(*p.Guess), room.currentWord) {
				return fmt.Errorf("wrong guess from %s: %w", userID, ErrInvalidPayload)
			}
		case e.requireGuessText:
			return fmt.Errorf("guess text required from %s: %w", userID, ErrInvalidPayload)
		}

		e.scoreGuess(room, guesser)
		if room.allGuessed() {
			e.changeHost(room)
		}
		return nil
	})
}

// scoreGuess records an accepted guess and broadcasts the award.
func (e *Engine) scoreGuess(room *Room, guesser *Participant) {
	remaining := 0
	if room.timer != nil {
		remaining = room.remainingTime
	}
	timeTaken := max(e.scoring.RoundTime-remaining, 0)

	room.guessPositions = append(room.guessPositions, guesser.UserID)
	position := len(room.guessPositions)
	if room.firstGuessUserID == "" {
		room.firstGuessUserID = guesser.UserID
	}

	consecutive := room.consecutiveGuesses[guesser.UserID]
	room.consecutiveGuesses[guesser.UserID] = consecutive + 1

	score := e.scoring.ScoreGuesser(remaining, Classify(room.currentWord), consecutive, position, room.round)
	room.correctGuesses = append(room.correctGuesses, CorrectGuess{UserID: guesser.UserID, TimeTaken: timeTaken})
	guesser.Score += score.Total

	e.emit.Broadcast(room.id, EventCorrectGuess, guesser.UserID)
	e.emit.Broadcast(room.id, EventPlayerScoring, playerScoring{
		UserID:    guesser.UserID,
		UserName:  guesser.Name,
		ScoreData: score,
		NewTotal:  guesser.Score,
	})
	scores := room.scores()
	e.emit.Broadcast(room.id, EventUpdateScores, scores)
	e.observer.ScoresUpdated(room.id, scores)

	e.logger.Info("correct guess",
		"room_id", room.id,
		"user_id", guesser.UserID,
		"position", position,
		"points", score.Total,
	)
}

func (e *Engine) handleRequestSnapshot(connID string, data json.RawMessage) error {
	var p roomPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.RoomID == "" {
		return invalidData("roomId is required")
	}

	err := e.rooms.With(string(p.RoomID), func(room *Room) error {
		if room.participantByRef(connID) == nil {
			return fmt.Errorf("connection %s is not in room %s: %w", connID, room.id, ErrUnauthorized)
		}
		e.emit.Send(connID, EventRoomSnapshot, roomSnapshot{
			RoomID:         room.id,
			Users:          room.participants(),
			Round:          room.round,
			TotalRounds:    room.totalRounds,
			GameInProgress: room.gameInProgress,
			RemainingTime:  room.remainingTime,
			TimerRunning:   room.timer != nil,
			WordChosen:     room.currentWord != "",
		})
		return nil
	})
	return notFoundAsRoomError(err)
}
