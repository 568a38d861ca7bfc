package models

import "errors"

// Error taxonomy shared by services and stores. Wrap with fmt.Errorf("%w: ...")
// to attach a message that is safe to show to the caller.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrPayloadTooLarge = errors.New("payload too large")
)
