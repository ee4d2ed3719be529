package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("invalid input")
	ErrProviderUnavailable = errors.New("no provider configured")
	ErrProviderRejected    = errors.New("provider rejected submission")
	ErrTransientPoll       = errors.New("transient poll failure")
)
