package game

// Difficulty is the tier a word falls into for scoring.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyExpert   Difficulty = "expert"
	DifficultyCompound Difficulty = "compound"
)

// Classify maps a word to its difficulty tier. Anything that is not a plain
// run of Latin letters, or that reads like a multi-word proper name
// ("McDonaldsBurger"), is compound; everything else is tiered by length.
func Classify(word string) Difficulty {
	upperAfterFirst := 0
	for i, r := range word {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				upperAfterFirst++
			}
		default:
			// Hyphens, spaces, digits and non-Latin scripts all land here.
			return DifficultyCompound
		}
	}
	if upperAfterFirst >= 2 {
		return DifficultyCompound
	}

	// Only ASCII letters remain, so the byte length is the letter count.
	switch n := len(word); {
	case n >= 9:
		return DifficultyExpert
	case n >= 7:
		return DifficultyHard
	case n >= 5:
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}
