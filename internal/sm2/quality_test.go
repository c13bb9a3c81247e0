package sm2

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestQualityValues(t *testing.T) {
	want := map[Quality]int{Again: 1, Hard: 3, Good: 4, Easy: 5}
	for q, n := range want {
		if int(q) != n {
			t.Errorf("Expected %s to be %d, but got %d", q, n, int(q))
		}
	}
}

func TestQualityIsValid(t *testing.T) {
	for _, q := range Qualities {
		if !q.IsValid() {
			t.Errorf("Expected %s to be valid", q)
		}
	}
	for _, n := range []int{-1, 0, 2, 6} {
		q := Quality(n)
		if q.IsValid() {
			t.Errorf("Expected Quality(%d) to be invalid", n)
		}
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuality) {
			t.Errorf("Expected ErrInvalidQuality for %d, but got %v", n, err)
		}
	}
	if got := Quality(2).String(); got != "Quality(2)" {
		t.Errorf("Expected String() of 2 to be 'Quality(2)', but got '%s'", got)
	}
}

func TestParseQuality(t *testing.T) {
	testCases := []struct {
		input   string
		want    Quality
		wantErr bool
	}{
		{"Again", Again, false},
		{"hard", Hard, false},
		{" GOOD ", Good, false},
		{"5", Easy, false},
		{"1", Again, false},
		{"2", 0, true},
		{"0", 0, true},
		{"meh", 0, true},
		{"", 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseQuality(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidQuality) {
					t.Errorf("Expected ErrInvalidQuality, but got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQuality() returned an unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %s, but got %s", tc.want, got)
			}
		})
	}
}

func TestQualityJSON(t *testing.T) {
	data, err := json.Marshal(Hard)
	if err != nil {
		t.Fatalf("Marshal returned an unexpected error: %v", err)
	}
	if string(data) != `"Hard"` {
		t.Errorf("Expected \"Hard\", but got %s", data)
	}

	var body struct {
		Quality Quality `json:"quality"`
	}
	if err := json.Unmarshal([]byte(`{"quality": 4}`), &body); err != nil {
		t.Fatalf("Unmarshal of a number returned an unexpected error: %v", err)
	}
	if body.Quality != Good {
		t.Errorf("Expected Good, but got %s", body.Quality)
	}
	if err := json.Unmarshal([]byte(`{"quality": "easy"}`), &body); err != nil {
		t.Fatalf("Unmarshal of a label returned an unexpected error: %v", err)
	}
	if body.Quality != Easy {
		t.Errorf("Expected Easy, but got %s", body.Quality)
	}
	if err := json.Unmarshal([]byte(`{"quality": 2}`), &body); !errors.Is(err, ErrInvalidQuality) {
		t.Errorf("Expected ErrInvalidQuality for 2, but got %v", err)
	}
	if _, err := json.Marshal(Quality(2)); err == nil {
		t.Error("Expected marshaling Quality(2) to fail")
	}
}
