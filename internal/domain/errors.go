package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrExpired              = errors.New("hold expired")
	ErrInvalidState         = errors.New("invalid state")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
)
