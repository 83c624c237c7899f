package shared

import "errors"

var (
	ErrNoLogger              = errors.New("no logger provided")
	ErrNoSurface             = errors.New("no editing surface provided")
	ErrNoDocumentID          = errors.New("no document id provided")
	ErrSessionAlreadyRunning = errors.New("session already running")
	ErrSessionClosed         = errors.New("session closed")
	ErrSessionNotSynced      = errors.New("session not synced")
	ErrNotReady              = errors.New("readiness not declared")
	ErrAlreadyReady          = errors.New("readiness already declared")
	ErrSurfaceAlreadySet     = errors.New("editing surface already set")
	ErrNotifierAlreadySet    = errors.New("notifier already set")
	ErrRHandlerAlreadySet    = errors.New("roster handler already set")
	ErrReadOnly              = errors.New("surface is read-only")
)
