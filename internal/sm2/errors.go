package sm2

import "errors"

// Sentinel errors for the sm2 package.
var (
	ErrInvalidRating = errors.New("sm2: invalid rating")
	ErrInvalidPolicy = errors.New("sm2: invalid rating policy")
)
