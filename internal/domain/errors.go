package domain

import "github.com/cockroachdb/errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnavailable    = errors.New("service unavailable")
	ErrDeliveryFailed = errors.New("delivery failed")
)
