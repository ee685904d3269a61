package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidFilter   = errors.New("invalid filter")
	ErrEmptyName       = errors.New("opportunity name cannot be empty")
	ErrMissingIdentity = errors.New("opportunity needs a url or a name")

	// Search result errors
	ErrInvalidRank  = errors.New("rank must be >= 1")
	ErrInvalidScore = errors.New("score must be >= 0")
)
