package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		word string
		want Difficulty
	}{
		{"", DifficultyEasy},
		{"Cat", DifficultyEasy},
		{"Lion", DifficultyEasy},
		{"Apple", DifficultyMedium},
		{"iPhone", DifficultyMedium},
		{"Elephant", DifficultyHard},
		{"Mountain", DifficultyHard},
		{"Butterfly", DifficultyExpert},
		{"Helicopter", DifficultyExpert},
		{"New York", DifficultyCompound},
		{"ice-cream", DifficultyCompound},
		{"McDonaldsBurger", DifficultyCompound},
		{"Café", DifficultyCompound},
		{"R2D2", DifficultyCompound},
		{"Кошка", DifficultyCompound},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.word))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for _, w := range DefaultWords() {
		assert.Equal(t, Classify(w), Classify(w), w)
	}
}
