package session

import "github.com/conorfennell/recall/internal/sm2"

// Stats counts the ratings given during a session.
type Stats struct {
	Again int `json:"again"`
	Hard  int `json:"hard"`
	Good  int `json:"good"`
	Easy  int `json:"easy"`
}

func (s *Stats) add(q sm2.Quality) {
	switch q {
	case sm2.Again:
		s.Again++
	case sm2.Hard:
		s.Hard++
	case sm2.Good:
		s.Good++
	case sm2.Easy:
		s.Easy++
	}
}

// Count returns the tally for a single rating.
func (s Stats) Count(q sm2.Quality) int {
	switch q {
	case sm2.Again:
		return s.Again
	case sm2.Hard:
		return s.Hard
	case sm2.Good:
		return s.Good
	case sm2.Easy:
		return s.Easy
	}
	return 0
}

// Total is the number of ratings recorded.
func (s Stats) Total() int {
	return s.Again + s.Hard + s.Good + s.Easy
}
