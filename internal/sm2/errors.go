package sm2

import "errors"

// Sentinel errors for the sm2 package.
var (
	ErrInvalidQuality = errors.New("sm2: invalid quality")
	ErrInvalidState   = errors.New("sm2: invalid review state")
)
