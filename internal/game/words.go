package game

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
)

//go:embed words.txt
var defaultWords string

// WordPicker offers the host a set of distinct candidate words.
type WordPicker interface {
	Pick(n int) []string
}

// WordList picks uniformly without replacement from a fixed list.
type WordList struct {
	words []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWordList returns a picker over words. A nil rng uses a randomly seeded
// source.
func NewWordList(words []string, rng *rand.Rand) *WordList {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &WordList{words: words, rng: rng}
}

// Pick returns min(n, len) distinct words in random order.
func (w *WordList) Pick(n int) []string {
	n = min(n, len(w.words))
	if n <= 0 {
		return []string{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Partial Fisher-Yates over an index slice keeps the source list intact.
	idx := make([]int, len(w.words))
	for i := range idx {
		idx[i] = i
	}
	out := make([]string, n)
	for i := range n {
		j := i + w.rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = w.words[idx[i]]
	}
	return out
}

// Len returns the number of candidate words.
func (w *WordList) Len() int { return len(w.words) }

// DefaultWords returns the built-in word list.
func DefaultWords() []string {
	words, _ := ParseWords(strings.NewReader(defaultWords))
	return words
}

// LoadWords reads a word list file.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening word list: %w", err)
	}
	defer f.Close()

	words, err := ParseWords(f)
	if err != nil {
		return nil, fmt.Errorf("reading word list %s: %w", path, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list %s is empty", path)
	}
	return words, nil
}

// ParseWords reads one word per line, skipping blank lines, lines starting
// with '#' and repeats.
func ParseWords(r io.Reader) ([]string, error) {
	var words []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		key := strings.ToLower(word)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}
