package game

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// Dictionary holds the pool of words a match can draw from.
type Dictionary struct {
	words []string
}

// LoadDictionary reads a newline-separated word list from path. Blank
// lines are skipped.
func LoadDictionary(path string) (*Dictionary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dictionary %s: %w", path, err)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dictionary %s: %w", path, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("dictionary %s contains no words", path)
	}

	return &Dictionary{words: words}, nil
}

// Size returns the number of words in the dictionary.
func (d *Dictionary) Size() int {
	return len(d.words)
}

// Sample picks n distinct words uniformly at random.
func (d *Dictionary) Sample(n int) ([]string, error) {
	if n > len(d.words) {
		return nil, fmt.Errorf("cannot sample %d words from a dictionary of %d", n, len(d.words))
	}

	sample := make([]string, 0, n)
	for _, i := range rand.Perm(len(d.words))[:n] {
		sample = append(sample, d.words[i])
	}
	return sample, nil
}
