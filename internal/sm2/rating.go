package sm2

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strings"
)

// Rating is the three-level recall signal collected from the user.
type Rating string

const (
	Hard   Rating = "hard"
	Medium Rating = "medium"
	Easy   Rating = "easy"
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Rating("")
	_ json.Unmarshaler         = (*Rating)(nil)
	_ encoding.TextMarshaler   = Rating("")
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// Ratings lists every valid rating from weakest to strongest.
func Ratings() []Rating {
	return []Rating{Hard, Medium, Easy}
}

// IsValid reports whether r is one of Hard, Medium or Easy.
func (r Rating) IsValid() bool {
	switch r {
	case Hard, Medium, Easy:
		return true
	}
	return false
}

func (r Rating) String() string {
	return string(r)
}

// ParseRating accepts a rating name in any letter case.
func ParseRating(s string) (Rating, error) {
	r := Rating(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRating, string(r))
	}
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRating, data)
	}
	return r.UnmarshalText([]byte(s))
}

// Quality is the 0-5 recall grade of the classic SM-2 algorithm.
type Quality int

const (
	Blackout            Quality = iota // Complete failure to recall.
	Incorrect                          // Wrong, but the answer felt familiar.
	IncorrectEasyRecall                // Wrong, but the answer seemed easy once shown.
	CorrectDifficult                   // Correct with serious difficulty.
	CorrectHesitant                    // Correct after hesitation.
	Perfect                            // Perfect, instant recall.
)

// MaxQuality is the highest grade on the SM-2 scale.
const MaxQuality = Perfect

// IsValid reports whether q lies on the 0-5 scale.
func (q Quality) IsValid() bool {
	return q >= Blackout && q <= MaxQuality
}

// Successful reports whether q counts as a successful recall.
func (q Quality) Successful() bool {
	return q >= CorrectDifficult
}

// Policy maps the three UI ratings onto SM-2 qualities.
type Policy struct {
	Hard   Quality `json:"hard" koanf:"hard"`
	Medium Quality `json:"medium" koanf:"medium"`
	Easy   Quality `json:"easy" koanf:"easy"`
}

// DefaultPolicy maps hard, medium and easy to 3, 4 and 5: every UI rating
// is a successful recall and only the ease adjustment differs.
func DefaultPolicy() Policy {
	return Policy{Hard: CorrectDifficult, Medium: CorrectHesitant, Easy: Perfect}
}

// Validate checks that every quality is on the scale and that the mapping is
// monotonic (hard <= medium <= easy).
func (p Policy) Validate() error {
	for _, q := range []Quality{p.Hard, p.Medium, p.Easy} {
		if !q.IsValid() {
			return fmt.Errorf("%w: quality %d outside 0-%d", ErrInvalidPolicy, q, MaxQuality)
		}
	}
	if p.Hard > p.Medium || p.Medium > p.Easy {
		return fmt.Errorf("%w: hard=%d medium=%d easy=%d is not monotonic", ErrInvalidPolicy, p.Hard, p.Medium, p.Easy)
	}
	return nil
}

// Quality returns the SM-2 quality for r.
func (p Policy) Quality(r Rating) (Quality, error) {
	switch r {
	case Hard:
		return p.Hard, nil
	case Medium:
		return p.Medium, nil
	case Easy:
		return p.Easy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, string(r))
}
