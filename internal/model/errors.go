package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Moderation session errors
	ErrSessionNotFound     = errors.New("moderation session not found")
	ErrExecutionInFlight   = errors.New("execution attempt already in flight")
	ErrNothingAwaitingGate = errors.New("no operation awaiting confirmation")
	ErrNothingToRetry      = errors.New("no failed attempt to retry")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
