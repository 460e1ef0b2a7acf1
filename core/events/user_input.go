package events

const (
	// KindUserStart identifies the user starting to talk.
	KindUserStart Kind = "user_input.start"
	// KindUserStop identifies the user stopping talking.
	KindUserStop Kind = "user_input.stop"
	// KindUserTranscript identifies a transcribed user voice turn.
	KindUserTranscript Kind = "user_input.transcript"
)

// UserStart marks when the remote side detects the user talking.
type UserStart struct{ Base }

// NewUserStart creates a user start event.
func NewUserStart() UserStart {
	return UserStart{Base: NewBase(KindUserStart)}
}

// UserStop marks when the remote side detects the user stopped talking.
type UserStop struct{ Base }

// NewUserStop creates a user stop event.
func NewUserStop() UserStop {
	return UserStop{Base: NewBase(KindUserStop)}
}

// UserTranscript carries the transcription of a user voice turn.
type UserTranscript struct {
	Base
	Text string
}

// NewUserTranscript creates a user transcript event.
func NewUserTranscript(text string) UserTranscript {
	return UserTranscript{Base: NewBase(KindUserTranscript), Text: text}
}
