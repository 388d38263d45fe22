package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordListPick(t *testing.T) {
	words := []string{"Cat", "Dog", "Sun", "Tree", "Moon"}
	list := seededWords(words)

	for range 20 {
		got := list.Pick(3)
		require.Len(t, got, 3)
		seen := map[string]bool{}
		for _, w := range got {
			assert.Contains(t, words, w)
			assert.False(t, seen[w], "duplicate %q", w)
			seen[w] = true
		}
	}
	assert.Equal(t, []string{"Cat", "Dog", "Sun", "Tree", "Moon"}, words, "source list is untouched")
}

func TestWordListPickMoreThanAvailable(t *testing.T) {
	list := seededWords([]string{"Cat", "Dog"})
	assert.ElementsMatch(t, []string{"Cat", "Dog"}, list.Pick(3))
	assert.Empty(t, seededWords(nil).Pick(3))
}

func TestParseWords(t *testing.T) {
	in := "# animals\nCat\n\n  Dog  \ncat\nNew York\n"
	got, err := ParseWords(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat", "Dog", "New York"}, got)
}

func TestLoadWords(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("Apple\nBanana\n"), 0o644))
	got, err := LoadWords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana"}, got)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = LoadWords(empty)
	assert.ErrorContains(t, err, "empty")

	_, err = LoadWords(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultWords(t *testing.T) {
	words := DefaultWords()
	assert.GreaterOrEqual(t, len(words), wordChoiceCount)
	assert.NotContains(t, words, "")
}
