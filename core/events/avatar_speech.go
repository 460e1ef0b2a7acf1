package events

const (
	// KindAvatarStartTalking identifies the avatar starting to speak.
	KindAvatarStartTalking Kind = "avatar_speech.started"
	// KindAvatarStopTalking identifies the avatar finishing speaking.
	KindAvatarStopTalking Kind = "avatar_speech.stopped"
	// KindAvatarFragment identifies a partial text chunk of the avatar utterance.
	KindAvatarFragment Kind = "avatar_speech.fragment"
	// KindAvatarEndOfMessage identifies the end of the avatar utterance text.
	KindAvatarEndOfMessage Kind = "avatar_speech.end_of_message"
)

// AvatarStartTalking marks when the avatar starts speaking.
type AvatarStartTalking struct{ Base }

// NewAvatarStartTalking creates an avatar start talking event.
func NewAvatarStartTalking() AvatarStartTalking {
	return AvatarStartTalking{Base: NewBase(KindAvatarStartTalking)}
}

// AvatarStopTalking marks when the avatar stops speaking.
type AvatarStopTalking struct{ Base }

// NewAvatarStopTalking creates an avatar stop talking event.
func NewAvatarStopTalking() AvatarStopTalking {
	return AvatarStopTalking{Base: NewBase(KindAvatarStopTalking)}
}

// AvatarFragment carries a partial text chunk of what the avatar is saying.
// Chunks do not align with words or sentences.
type AvatarFragment struct {
	Base
	Text string
}

// NewAvatarFragment creates an avatar fragment event.
func NewAvatarFragment(text string) AvatarFragment {
	return AvatarFragment{Base: NewBase(KindAvatarFragment), Text: text}
}

// AvatarEndOfMessage marks the end of the current avatar utterance.
type AvatarEndOfMessage struct{ Base }

// NewAvatarEndOfMessage creates an avatar end of message event.
func NewAvatarEndOfMessage() AvatarEndOfMessage {
	return AvatarEndOfMessage{Base: NewBase(KindAvatarEndOfMessage)}
}
