package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/conorfennell/recall/internal/session"
	"github.com/conorfennell/recall/internal/sm2"
)

var ratingKeys = map[string]sm2.Quality{
	"a": sm2.Again,
	"h": sm2.Hard,
	"g": sm2.Good,
	"e": sm2.Easy,
}

// runReview drives sess from the terminal: each card's front is shown, the
// back follows on Enter, and a rating key moves to the next card. A failed
// save re-presents the same card. "q" or end of input stops early.
func runReview(ctx context.Context, sess *session.Session, in io.Reader, out io.Writer, now func() time.Time) error {
	if sess.State() == session.Empty {
		fmt.Fprintln(out, "Nothing is due. Come back later.")
		return nil
	}

	scanner := bufio.NewScanner(in)
	prompt := func(msg string) (string, bool) {
		fmt.Fprint(out, msg)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		cur, ok := sess.Current()
		if !ok {
			break
		}
		fmt.Fprintf(out, "\n[%d/%d] %s\n", sess.Completed()+1, sess.Total(), cur.Card.Front)
		if cur.Card.Context != "" {
			fmt.Fprintf(out, "(%s)\n", cur.Card.Context)
		}
		if _, ok := prompt("Press Enter to show the answer..."); !ok {
			return scanner.Err()
		}
		fmt.Fprintln(out, cur.Card.Back)

		preview := sm2.Preview(cur.State, now())
		options := fmt.Sprintf("[a]gain %dd  [h]ard %dd  [g]ood %dd  [e]asy %dd  [q]uit > ",
			preview[sm2.Again].Interval, preview[sm2.Hard].Interval, preview[sm2.Good].Interval, preview[sm2.Easy].Interval)

		for {
			input, ok := prompt(options)
			if !ok {
				return scanner.Err()
			}
			if strings.EqualFold(input, "q") {
				printSummary(out, sess)
				return nil
			}
			q, ok := ratingKeys[strings.ToLower(input)]
			if !ok {
				var err error
				if q, err = sm2.ParseQuality(input); err != nil {
					fmt.Fprintln(out, "Choose a, h, g or e.")
					continue
				}
			}

			next, err := sess.Rate(ctx, q)
			if errors.Is(err, session.ErrStore) {
				fmt.Fprintf(out, "Could not save the rating (%v). Try again.\n", err)
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s. %s.\n", q, sm2.DescribeDue(next.DueDate, now()))
			break
		}
	}
	printSummary(out, sess)
	return nil
}

func printSummary(out io.Writer, sess *session.Session) {
	stats := sess.Stats()
	fmt.Fprintf(out, "\nReviewed %d of %d (%.0f%%). Again %d, Hard %d, Good %d, Easy %d.\n",
		sess.Completed(), sess.Total(), sess.Progress(), stats.Again, stats.Hard, stats.Good, stats.Easy)
}
