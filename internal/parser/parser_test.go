package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
		expectedCtx   string
		expectedTags  []string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedFront: "What is the capital of France?",
			expectedBack:  "Paris",
		},
		{
			name:          "Simple Q, A, and C",
			input:         "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			expectedCards: 1,
			expectedFront: "What is 1+1?",
			expectedBack:  "2",
			expectedCtx:   "Basic arithmetic",
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedFront: "What are the primary colors?",
			expectedBack:  "Red\nBlue\nYellow",
		},
		{
			name: "Two Cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "Tags close the card fields",
			input: `Q: What does SM-2 stand for?
A: SuperMemo 2
T: SRS, Algorithms ,
This line is prose, not part of the answer.`,
			expectedCards: 1,
			expectedFront: "What does SM-2 stand for?",
			expectedBack:  "SuperMemo 2",
			expectedTags:  []string{"srs", "algorithms"},
		},
		{
			name:          "Separator ends a card",
			input:         "Q: One\nA: 1\n---\nNotes between cards\nQ: Two\nA: 2",
			expectedCards: 2,
		},
		{
			name:          "Answer without question is dropped",
			input:         "A: orphan answer",
			expectedCards: 0,
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedFront: "Question",
			expectedBack:  "Answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}

			if tc.expectedCards == 1 {
				card := cards[0]
				if card.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, card.Front)
				}
				if card.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, card.Back)
				}
				if card.Context != tc.expectedCtx {
					t.Errorf("Expected Context to be '%s', but got '%s'", tc.expectedCtx, card.Context)
				}
				if strings.Join(card.Tags, ",") != strings.Join(tc.expectedTags, ",") {
					t.Errorf("Expected Tags to be %v, but got %v", tc.expectedTags, card.Tags)
				}
			}
		})
	}
}

func TestParseTwoCardsContent(t *testing.T) {
	cards, err := Parse(strings.NewReader("Q: First\nA: one\n\nQ: Second\nA: two\n"))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, but got %d", len(cards))
	}
	if cards[0].Back != "one" {
		t.Errorf("Expected trailing blank lines to be trimmed, but got '%s'", cards[0].Back)
	}
	if cards[1].Front != "Second" || cards[1].Back != "two" {
		t.Errorf("Unexpected second card %+v", cards[1])
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.md")
	if err := os.WriteFile(path, []byte("Q: Ping\nA: Pong\n"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	cards, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].Back != "Pong" {
		t.Errorf("Unexpected cards %+v", cards)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
