package transcript

import "time"

// Session is the transcript of one finished avatar session as kept by an
// archive.
type Session struct {
	ID string
	// RemoteID is the session ID assigned by the avatar service, empty when
	// the session never got that far.
	RemoteID  string
	StartedAt time.Time
	EndedAt   time.Time
	Messages  []Message
}
