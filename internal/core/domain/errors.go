package domain

import "errors"

var (
	ErrStreamNotFound      = errors.New("stream not found")
	ErrStreamExists        = errors.New("stream already exists")
	ErrStreamNotLive       = errors.New("stream is not live")
	ErrInvalidTransition   = errors.New("invalid stream status transition")
	ErrIdentityNotFound    = errors.New("identity not found")
	ErrInvalidStreamStatus = errors.New("invalid stream status")
)
