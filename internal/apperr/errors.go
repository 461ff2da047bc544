package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNotLoaded     = errors.New("dataset not loaded")
	ErrUnknownType   = errors.New("unknown publication type")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidParams = errors.New("invalid search parameters")
)
