// Package knol gives each card a stable identity derived from its content,
// so that the same card found again in a source maps onto the same review
// record.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

// Normalize joins the card's front, back and context after cleaning each
// part: lowercased, line endings unified, runs of blanks within a line
// collapsed and surrounding whitespace trimmed. Tags do not participate, so
// retagging a card keeps its review history.
func Normalize(card domain.Card) string {
	parts := []string{normalizePart(card.Front), normalizePart(card.Back), normalizePart(card.Context)}
	// NUL never survives normalizePart, so parts cannot bleed into each other.
	return strings.Join(parts, fieldSeparator)
}

const fieldSeparator = "\x00"

func normalizePart(part string) string {
	p := strings.ToLower(strings.ReplaceAll(part, fieldSeparator, ""))
	p = strings.ReplaceAll(p, "\r\n", "\n")
	lines := strings.Split(p, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Hash returns the hex SHA-256 of the card's normalized content.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}

// Assign sets the Hash of every card in place and returns the cards.
func Assign(cards []domain.Card) []domain.Card {
	for i := range cards {
		cards[i].Hash = Hash(cards[i])
	}
	return cards
}
