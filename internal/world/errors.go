package world

import "errors"

var (
	// ErrWorldGenerationExhausted reports that a static region could not be
	// placed within the configured attempt budget.
	ErrWorldGenerationExhausted = errors.New("world generation exhausted")
	// ErrInvalidConfiguration reports dimensions or counts that cannot fit.
	ErrInvalidConfiguration = errors.New("invalid world configuration")
)
