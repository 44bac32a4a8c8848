// Package apperrors holds the sentinel errors the engines surface to the HTTP
// layer. Controllers map them with errors.Is: not found -> 404, invalid input
// -> 400, conflict -> 409, anything else -> 500.
package apperrors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)
