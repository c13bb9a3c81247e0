package sm2

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Quality is the reviewer's self-assessed recall for a single review.
//
// The numeric values feed the ease formula directly. The set is sparse:
// 2 is not a member and is rejected like any other out-of-range value.
type Quality int

const (
	Again Quality = 1 // Complete failure to recall.
	Hard  Quality = 3 // Recalled only after seeing the answer.
	Good  Quality = 4 // Recalled correctly with hesitation.
	Easy  Quality = 5 // Recalled perfectly.
)

// Qualities lists every valid rating in ascending order.
var Qualities = [...]Quality{Again, Hard, Good, Easy}

var (
	qualityNames = map[Quality]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}
	qualityByKey = map[string]Quality{
		"again": Again,
		"hard":  Hard,
		"good":  Good,
		"easy":  Easy,
	}
)

var (
	_ fmt.Stringer             = Quality(0)
	_ json.Marshaler           = Quality(0)
	_ json.Unmarshaler         = (*Quality)(nil)
	_ encoding.TextMarshaler   = Quality(0)
	_ encoding.TextUnmarshaler = (*Quality)(nil)
)

// String returns the rating label ("Again", "Hard", "Good", "Easy").
// For invalid values it returns "Quality(n)".
func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// IsValid reports whether q is one of Again, Hard, Good or Easy.
func (q Quality) IsValid() bool {
	_, ok := qualityNames[q]
	return ok
}

// Validate returns ErrInvalidQuality when q is not a member of the rating set.
func (q Quality) Validate() error {
	if !q.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}
	return nil
}

// ParseQuality accepts either a label (case-insensitive) or its numeric value.
func ParseQuality(s string) (Quality, error) {
	s = strings.TrimSpace(s)
	if q, ok := qualityByKey[strings.ToLower(s)]; ok {
		return q, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
	q := Quality(n)
	if err := q.Validate(); err != nil {
		return 0, err
	}
	return q, nil
}

// MarshalText implements encoding.TextMarshaler.
func (q Quality) MarshalText() ([]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return []byte(qualityNames[q]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quality) UnmarshalText(text []byte) error {
	v, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// MarshalJSON encodes the rating as its label.
func (q Quality) MarshalJSON() ([]byte, error) {
	text, err := q.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON accepts a label string or a bare number.
func (q *Quality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return q.UnmarshalText([]byte(s))
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidQuality, data)
	}
	v := Quality(n)
	if err := v.Validate(); err != nil {
		return err
	}
	*q = v
	return nil
}
