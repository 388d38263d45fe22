package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Inbound event names.
const (
	EventUserJoined      = "userJoined"
	EventLeaveRoom       = "leaveRoom"
	EventDisconnecting   = "disconnecting"
	EventCanvasDrawing   = "canvasDrawing"
	EventCanvasFullSync  = "canvasFullSync"
	EventSendMessage     = "sendMessage"
	EventStartRound      = "startRound"
	EventSetTotalRounds  = "setTotalRounds"
	EventWordChosen      = "wordChosen"
	EventCorrectGuess    = "correctGuess"
	EventDisconnect      = "disconnect"
	EventRequestSnapshot = "requestSnapshot"
)

// Outbound event names not shared with an inbound one.
const (
	EventUpdateUsersOnline  = "updateUsersOnline"
	EventTotalRoundsUpdated = "totalRoundsUpdated"
	EventRoundUpdate        = "roundUpdate"
	EventUserLeft           = "userLeft"
	EventHostChanged        = "hostChanged"
	EventStartTimer         = "startTimer"
	EventStopTimer          = "stopTimer"
	EventTimerUpdate        = "timerUpdate"
	EventResetCanvas        = "resetCanvas"
	EventRandomWords        = "randomWords"
	EventChosenWord         = "chosenWord"
	EventPlayerScoring      = "playerScoring"
	EventHostScoring        = "hostScoring"
	EventUpdateScores       = "updateScores"
	EventGameEnded          = "gameEnded"
	EventRoomError          = "roomError"
	EventReceiveMessage     = "receiveMessage"
	EventRoomSnapshot       = "roomSnapshot"
)

// flexID accepts either a JSON string or a JSON number, since browser clients
// send numeric user IDs.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

type userJoinedPayload struct {
	Name   string `json:"name"`
	UserID flexID `json:"userId"`
	RoomID flexID `json:"roomId"`
	Host   *bool  `json:"host"`
}

type roomPayload struct {
	RoomID flexID `json:"roomId"`
}

type canvasDrawingPayload struct {
	RoomID          flexID            `json:"roomId"`
	DrawingCommands []json.RawMessage `json:"drawingCommands"`
	Timestamp       int64             `json:"timestamp"`
}

type canvasFullSyncPayload struct {
	RoomID    flexID `json:"roomId"`
	ImageData string `json:"imageData"`
}

type startRoundPayload struct {
	RoomID flexID `json:"roomId"`
	UserID flexID `json:"userId"`
}

type setTotalRoundsPayload struct {
	RoomID      flexID      `json:"roomId"`
	TotalRounds json.Number `json:"totalRounds"`
	UserID      flexID      `json:"userId"`
}

type wordChosenPayload struct {
	RoomID flexID `json:"roomId"`
	Word   string `json:"word"`
	UserID flexID `json:"userId"`
}

type correctGuessPayload struct {
	RoomID flexID  `json:"roomId"`
	UserID flexID  `json:"userId"`
	Guess  *string `json:"guess"`
}

// decode unmarshals an event payload, wrapping failures in ErrInvalidPayload.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return invalidData("missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return invalidData("malformed payload: " + err.Error())
	}
	return nil
}

// parseRounds accepts integers in [minTotalRounds, maxTotalRounds]. Strings
// holding an integer are tolerated the way a lenient client would send them.
func parseRounds(n json.Number) (int, bool) {
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, false
	}
	return v, v >= minTotalRounds && v <= maxTotalRounds
}

type totalRoundsUpdated struct {
	TotalRounds int `json:"totalRounds"`
}

type canvasDrawingRelay struct {
	DrawingCommands []json.RawMessage `json:"drawingCommands"`
	Timestamp       int64             `json:"timestamp"`
	ClientTimestamp int64             `json:"clientTimestamp,omitempty"`
	SenderID        string            `json:"senderId"`
}

type canvasFullSyncRelay struct {
	ImageData string `json:"imageData"`
	SenderID  string `json:"senderId"`
}

type playerScoring struct {
	UserID    string       `json:"userId"`
	UserName  string       `json:"userName"`
	ScoreData GuesserScore `json:"scoreData"`
	NewTotal  int          `json:"newTotal"`
}

type hostScoring struct {
	HostName  string     `json:"hostName"`
	UserID    string     `json:"userId"`
	Score     int        `json:"score"`
	Word      string     `json:"word"`
	ScoreData *HostScore `json:"scoreData,omitempty"`
}

type gameEnded struct {
	FinalRankings []Ranking `json:"finalRankings"`
	TotalRounds   int       `json:"totalRounds"`
}

type roomErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// roomSnapshot lets a reconnecting client rebuild its view in one message.
type roomSnapshot struct {
	RoomID         string        `json:"roomId"`
	Users          []Participant `json:"users"`
	Round          int           `json:"round"`
	TotalRounds    int           `json:"totalRounds"`
	GameInProgress bool          `json:"gameInProgress"`
	RemainingTime  int           `json:"remainingTime"`
	TimerRunning   bool          `json:"timerRunning"`
	WordChosen     bool          `json:"wordChosen"`
}
