// internal/words/words.go
//
// Word validity capabilities used to adjudicate challenges.
//
// Responsibilities:
//   - Dictionary: a case-insensitive word set loaded from a file or from the embedded
//     default list.
//   - Static / Func: fixed-answer and function adapters (tests, external services).
//
// Loading behavior (LoadDictionary):
//  1. If path is set, read one word per line from that file.
//  2. Otherwise fall back to the embedded assets/words.txt list.
//
// Lines that are empty, start with '#', or contain non-letters are skipped.

package words

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/robalobadob/wordcards/assets"
)

// Dictionary is an immutable set of upper-case words.
type Dictionary struct {
	set map[string]struct{}
}

// NewDictionary builds a dictionary from list; invalid entries are dropped.
func NewDictionary(list []string) *Dictionary {
	d := &Dictionary{set: make(map[string]struct{}, len(list))}
	for _, w := range list {
		if n, err := Normalize(w); err == nil {
			d.set[n] = struct{}{}
		}
	}
	return d
}

// LoadDictionary reads the word list at path, or the embedded default when path is empty.
func LoadDictionary(path string) (*Dictionary, error) {
	var (
		list []string
		err  error
	)
	if path != "" {
		list, err = readWordFile(path)
	} else {
		list, err = readEmbedded()
	}
	if err != nil {
		return nil, err
	}
	d := NewDictionary(list)
	if d.Len() == 0 {
		return nil, errors.New("words: dictionary is empty")
	}
	return d, nil
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLines(f)
}

func readEmbedded() ([]string, error) {
	f, err := assets.WordList()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// Valid reports whether word is in the dictionary.
func (d *Dictionary) Valid(_ context.Context, word string) (bool, error) {
	_, ok := d.set[strings.ToUpper(strings.TrimSpace(word))]
	return ok, nil
}

// Len returns the number of words loaded.
func (d *Dictionary) Len() int { return len(d.set) }

// Static answers every lookup with the same verdict.
type Static bool

// Valid implements the validity capability.
func (s Static) Valid(context.Context, string) (bool, error) { return bool(s), nil }

// Func adapts an ordinary function, e.g. a client for an external word service.
type Func func(ctx context.Context, word string) (bool, error)

// Valid calls f.
func (f Func) Valid(ctx context.Context, word string) (bool, error) { return f(ctx, word) }
