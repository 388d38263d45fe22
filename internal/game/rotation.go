package game

// changeHost hands the pencil to the next participant in join order, scores
// the outgoing host and ends the game once every round has been played. The
// caller holds the room lock.
func (e *Engine) changeHost(room *Room) {
	n := len(room.users)
	if n < 2 {
		e.logger.Warn("cannot rotate host", "room_id", room.id, "participants", n)
		return
	}

	cur := room.hostIndex()
	if cur < 0 {
		e.logger.Error("room has no host", "room_id", room.id)
		room.users[0].Host = true
		e.emit.Broadcast(room.id, EventHostChanged, *room.users[0])
		return
	}

	next := (cur + 1) % n
	outgoing := room.users[cur]
	outgoing.Host = false
	room.users[next].Host = true

	roundAdvanced := next == 0
	if roundAdvanced {
		room.round++
	}
	if room.round > room.totalRounds {
		e.endGame(room)
		return
	}

	e.emit.Broadcast(room.id, EventUpdateUsersOnline, room.participants())
	e.emit.Broadcast(room.id, EventHostChanged, *room.users[next])
	e.emit.Broadcast(room.id, EventStopTimer, nil)
	e.emit.Broadcast(room.id, EventResetCanvas, nil)
	if roundAdvanced {
		e.emit.Broadcast(room.id, EventRoundUpdate, room.round)
	}

	word := room.currentWord
	award := hostScoring{HostName: outgoing.Name, UserID: outgoing.UserID, Word: word}
	if len(room.correctGuesses) == 0 {
		award.Score = e.scoring.ParticipationPoints
	} else {
		hs := e.scoring.ScoreHost(room.correctGuesses, n, Classify(word))
		award.Score = hs.Total
		award.ScoreData = &hs
	}
	outgoing.Score += award.Score
	e.emit.Broadcast(room.id, EventHostScoring, award)

	guessed := make(map[string]bool, len(room.correctGuesses))
	for _, g := range room.correctGuesses {
		guessed[g.UserID] = true
	}
	room.resetSubRound()
	for _, p := range room.users {
		if !guessed[p.UserID] {
			room.consecutiveGuesses[p.UserID] = 0
		}
	}

	scores := room.scores()
	e.emit.Broadcast(room.id, EventUpdateScores, scores)
	e.observer.ScoresUpdated(room.id, scores)
	room.stopTimer()

	e.logger.Info("host changed",
		"room_id", room.id,
		"round", room.round,
		"host", room.users[next].UserID,
		"host_award", award.Score,
	)
}

// endGame publishes the final standings and resets the room for a new game
// with the same players.
func (e *Engine) endGame(room *Room) {
	room.gameEnded = true
	rankings := room.rankings()

	e.emit.Broadcast(room.id, EventGameEnded, gameEnded{FinalRankings: rankings, TotalRounds: room.totalRounds})
	room.stopTimer()
	e.emit.Broadcast(room.id, EventStopTimer, nil)

	e.observer.GameEnded(GameResult{
		RoomID:      room.id,
		TotalRounds: room.totalRounds,
		EndedAt:     e.now(),
		Rankings:    rankings,
	})
	e.logger.Info("game ended", "room_id", room.id, "total_rounds", room.totalRounds, "winner", rankings[0].UserID)

	room.resetForNewGame()
	scores := room.scores()
	e.emit.Broadcast(room.id, EventUpdateUsersOnline, room.participants())
	e.emit.Broadcast(room.id, EventHostChanged, *room.users[0])
	e.emit.Broadcast(room.id, EventRoundUpdate, room.round)
	e.emit.Broadcast(room.id, EventUpdateScores, scores)
	e.observer.ScoresUpdated(room.id, scores)
}
