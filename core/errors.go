package orchestration

import "errors"

var (
	ErrSessionStarting  = errors.New("session is already starting")
	ErrSessionActive    = errors.New("session is already active")
	ErrTokenUnavailable = errors.New("access token unavailable")
	ErrMicrophoneDenied = errors.New("microphone access denied")
	ErrConnectionFailed = errors.New("failed to connect to avatar service")
	// ErrStartAborted is returned by a Start that was ended before it
	// completed.
	ErrStartAborted = errors.New("session start aborted")

	ErrNoActiveSession          = errors.New("no active session")
	ErrModeTransition           = errors.New("mode transition failed")
	ErrModeTransitionInProgress = errors.New("mode transition already in progress")

	ErrEmptyMessage    = errors.New("message is empty")
	ErrVoiceModeActive = errors.New("typed messages are disabled in voice mode")
	ErrSendFailed      = errors.New("failed to send message")

	ErrClosed = errors.New("orchestrator closed")
)
