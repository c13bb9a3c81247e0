// Package parser extracts study cards from Markdown notes.
//
// A card starts at a "Q:" line. "A:" and "C:" lines start the back and the
// context, and a "T:" line lists comma-separated tags. Lines that follow a
// field continue it until the next prefix, a "---" separator or the next
// card. Text outside a card is ignored.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

type field int

const (
	none   field = iota // between cards
	front
	back
	context
	closed // inside a card, after its tags line
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"Q:", front},
	{"A:", back},
	{"C:", context},
}

const (
	tagsPrefix = "T:"
	separator  = "---"
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cards, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cards, nil
}

type cardBuilder struct {
	cards   []domain.Card
	current domain.Card
	field   field
	lines   []string
}

// flushField stores the buffered lines into the field being read.
func (b *cardBuilder) flushField() {
	if len(b.lines) == 0 {
		return
	}
	content := strings.TrimRight(strings.Join(b.lines, "\n"), "\n ")
	switch b.field {
	case front:
		b.current.Front = content
	case back:
		b.current.Back = content
	case context:
		b.current.Context = content
	}
	b.lines = nil
}

// finishCard closes the current card. Cards without a front are dropped.
func (b *cardBuilder) finishCard() {
	b.flushField()
	if b.current.Front != "" {
		b.cards = append(b.cards, b.current)
	}
	b.current = domain.Card{}
	b.field = none
}

// Parse reads from an io.Reader and extracts all cards.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	b := &cardBuilder{}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			b.finishCard()
			continue
		}

		if rest, ok := strings.CutPrefix(line, tagsPrefix); ok && b.field != none {
			b.flushField()
			b.current.Tags = parseTags(rest)
			b.field = closed
			continue
		}

		matched := false
		for _, p := range prefixes {
			rest, ok := strings.CutPrefix(line, p.prefix)
			if !ok {
				continue
			}
			matched = true
			if p.field == front && b.field != none {
				b.finishCard() // A new question always starts a new card
			} else {
				b.flushField()
			}
			b.field = p.field
			b.lines = append(b.lines, strings.TrimPrefix(rest, " "))
			break
		}
		if matched {
			continue
		}

		if b.field != none && b.field != closed {
			b.lines = append(b.lines, line)
		}
	}

	b.finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.cards, nil
}

func parseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
