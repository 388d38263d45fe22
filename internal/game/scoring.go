package game

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SpeedTier awards a time-bonus multiplier to guesses made within MaxSeconds.
type SpeedTier struct {
	Name       string
	MaxSeconds int
	Multiplier float64
}

// StreakTier multiplies the whole award once a guesser reaches MinCount
// consecutive correct sub-rounds.
type StreakTier struct {
	Name       string
	MinCount   int
	Multiplier float64
}

// Scoring is the single source of every scoring and pacing constant. Scalar
// fields can be overridden from the environment; the tier tables are fixed
// at construction.
type Scoring struct {
	RoundTime        int           `env:"ROUND_TIME"`
	MinGuessInterval time.Duration `env:"MIN_GUESS_INTERVAL"`

	BasePoints            float64 `env:"BASE_POINTS"`
	TimeMultiplier        float64 `env:"TIME_MULTIPLIER"`
	DifficultyMultipliers map[Difficulty]float64
	SpeedTiers            [4]SpeedTier // ascending by MaxSeconds
	SlowMultiplier        float64      `env:"SLOW_MULTIPLIER"`
	PositionBonuses       [5]float64   // rank 1..5
	StreakTiers           [4]StreakTier // descending by MinCount
	ConsecutiveBonusRate  float64      `env:"CONSECUTIVE_BONUS_RATE"`
	RoundProgressionRate  float64      `env:"ROUND_PROGRESSION_RATE"`

	HostBasePoints          float64 `env:"HOST_BASE_POINTS"`
	HostTimeBonus           float64 `env:"HOST_TIME_BONUS"`
	HostParticipationWeight float64 `env:"HOST_PARTICIPATION_WEIGHT"`
	ParticipationPoints     int     `env:"PARTICIPATION_POINTS"`
}

// DefaultScoring returns the reference constants.
func DefaultScoring() Scoring {
	return Scoring{
		RoundTime:        60,
		MinGuessInterval: 2000 * time.Millisecond,

		BasePoints:     100,
		TimeMultiplier: 3,
		DifficultyMultipliers: map[Difficulty]float64{
			DifficultyEasy:     1.0,
			DifficultyMedium:   1.25,
			DifficultyHard:     1.5,
			DifficultyExpert:   2.0,
			DifficultyCompound: 1.75,
		},
		SpeedTiers: [4]SpeedTier{
			{Name: "lightning", MaxSeconds: 10, Multiplier: 3.0},
			{Name: "fast", MaxSeconds: 20, Multiplier: 2.0},
			{Name: "quick", MaxSeconds: 35, Multiplier: 1.5},
			{Name: "normal", MaxSeconds: 50, Multiplier: 1.0},
		},
		SlowMultiplier:  0.5,
		PositionBonuses: [5]float64{100, 75, 50, 25, 10},
		StreakTiers: [4]StreakTier{
			{Name: "epic", MinCount: 12, Multiplier: 2.0},
			{Name: "large", MinCount: 8, Multiplier: 1.75},
			{Name: "medium", MinCount: 5, Multiplier: 1.5},
			{Name: "small", MinCount: 3, Multiplier: 1.25},
		},
		ConsecutiveBonusRate: 0.1,
		RoundProgressionRate: 0.1,

		HostBasePoints:          50,
		HostTimeBonus:           2,
		HostParticipationWeight: 50,
		ParticipationPoints:     25,
	}
}

// Validate reports configuration that would make scoring meaningless.
func (s Scoring) Validate() error {
	var errs []error
	if s.RoundTime <= 0 {
		errs = append(errs, fmt.Errorf("round time must be positive, got %d", s.RoundTime))
	}
	if s.MinGuessInterval < 0 {
		errs = append(errs, fmt.Errorf("min guess interval must not be negative, got %s", s.MinGuessInterval))
	}
	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert, DifficultyCompound} {
		if m, ok := s.DifficultyMultipliers[d]; !ok || m < 0 {
			errs = append(errs, fmt.Errorf("difficulty multiplier for %s missing or negative", d))
		}
	}
	for i := 1; i < len(s.SpeedTiers); i++ {
		if s.SpeedTiers[i].MaxSeconds <= s.SpeedTiers[i-1].MaxSeconds {
			errs = append(errs, fmt.Errorf("speed tier %q must be slower than %q", s.SpeedTiers[i].Name, s.SpeedTiers[i-1].Name))
		}
	}
	for i := 1; i < len(s.StreakTiers); i++ {
		if s.StreakTiers[i].MinCount >= s.StreakTiers[i-1].MinCount {
			errs = append(errs, fmt.Errorf("streak tier %q must start below %q", s.StreakTiers[i].Name, s.StreakTiers[i-1].Name))
		}
	}
	return errors.Join(errs...)
}

// GuesserScore is the itemized award for one correct guess. Only Total is
// applied to the participant; the rest is sent to clients for display.
type GuesserScore struct {
	Total            int        `json:"total"`
	Difficulty       Difficulty `json:"difficulty"`
	TimeTaken        int        `json:"timeTaken"`
	SpeedCategory    string     `json:"speedCategory"`
	BasePoints       float64    `json:"basePoints"`
	TimeBonus        float64    `json:"timeBonus"`
	PositionBonus    float64    `json:"positionBonus"`
	GuessPosition    int        `json:"guessPosition"`
	ConsecutiveBonus float64    `json:"consecutiveBonus"`
	RoundBonus       float64    `json:"roundBonus"`
	Streak           string     `json:"streak,omitempty"`
	StreakMultiplier float64    `json:"streakMultiplier"`
}

// HostScore is the itemized award for the outgoing host of a sub-round.
type HostScore struct {
	Total              int        `json:"total"`
	Difficulty         Difficulty `json:"difficulty"`
	BasePoints         float64    `json:"basePoints"`
	TimeBonus          float64    `json:"timeBonus"`
	ParticipationRate  float64    `json:"participationRate"`
	ParticipationBonus float64    `json:"participationBonus"`
	AverageTime        float64    `json:"averageTime"`
}

// ScoreGuesser computes the award for a correct guess made with remaining
// seconds left on the clock. position is 1-based; consecutive is the number of
// earlier sub-rounds in a row the guesser got right.
func (s Scoring) ScoreGuesser(remaining int, difficulty Difficulty, consecutive, position, round int) GuesserScore {
	timeTaken := max(s.RoundTime-remaining, 0)
	base := s.BasePoints * s.DifficultyMultipliers[difficulty]

	speedName, speedMult := s.speedTier(timeTaken)
	timeBonus := math.Max(0, float64(remaining)*s.TimeMultiplier*speedMult)

	var positionBonus float64
	if position >= 1 && position <= len(s.PositionBonuses) {
		positionBonus = s.PositionBonuses[position-1]
	}

	consecutiveBonus := base * float64(consecutive) * s.ConsecutiveBonusRate
	roundBonus := base * float64(max(round-1, 0)) * s.RoundProgressionRate

	streakName, streakMult := s.streakTier(consecutive)
	total := math.Round((base + timeBonus + positionBonus + consecutiveBonus + roundBonus) * streakMult)

	return GuesserScore{
		Total:            int(total),
		Difficulty:       difficulty,
		TimeTaken:        timeTaken,
		SpeedCategory:    speedName,
		BasePoints:       base,
		TimeBonus:        timeBonus,
		PositionBonus:    positionBonus,
		GuessPosition:    position,
		ConsecutiveBonus: consecutiveBonus,
		RoundBonus:       roundBonus,
		Streak:           streakName,
		StreakMultiplier: streakMult,
	}
}

// ScoreHost computes the outgoing host's award from the sub-round's correct
// guesses. Callers award ParticipationPoints instead when guesses is empty.
func (s Scoring) ScoreHost(guesses []CorrectGuess, totalParticipants int, difficulty Difficulty) HostScore {
	if len(guesses) == 0 {
		return HostScore{Difficulty: difficulty}
	}

	var rate float64
	if guessers := totalParticipants - 1; guessers > 0 {
		rate = float64(len(guesses)) / float64(guessers)
	}

	var sum float64
	for _, g := range guesses {
		sum += float64(g.TimeTaken)
	}
	avg := sum / float64(len(guesses))

	base := s.HostBasePoints * s.DifficultyMultipliers[difficulty]
	timeBonus := math.Max(0, (float64(s.RoundTime)-avg)*s.HostTimeBonus)
	participationBonus := rate * s.HostParticipationWeight

	return HostScore{
		Total:              int(math.Round(base + timeBonus + participationBonus)),
		Difficulty:         difficulty,
		BasePoints:         base,
		TimeBonus:          timeBonus,
		ParticipationRate:  rate,
		ParticipationBonus: participationBonus,
		AverageTime:        avg,
	}
}

func (s Scoring) speedTier(timeTaken int) (string, float64) {
	for _, t := range s.SpeedTiers {
		if timeTaken <= t.MaxSeconds {
			return t.Name, t.Multiplier
		}
	}
	return "slow", s.SlowMultiplier
}

func (s Scoring) streakTier(consecutive int) (string, float64) {
	for _, t := range s.StreakTiers {
		if consecutive >= t.MinCount {
			return t.Name, t.Multiplier
		}
	}
	return "", 1.0
}
