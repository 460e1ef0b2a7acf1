package orchestration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/fragments"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

const voiceTurnBacklog = 16

// sessionContext is everything that belongs to one session attempt. Event
// handlers capture the context they were registered for and ignore events
// once it is no longer the orchestrator's pending or live session.
//
// All fields are guarded by Orchestrator.mu.
type sessionContext struct {
	id        string
	startedAt time.Time

	// ctx scopes work done on behalf of the session outside of a user call,
	// it is cancelled on teardown.
	ctx    context.Context
	cancel context.CancelFunc

	client       avatar.Client
	info         *avatar.SessionInfo
	stream       *avatar.MediaStream
	unsubscribes []func()

	mode        Mode
	switching   bool
	accumulator *fragments.Accumulator

	userTalking   bool
	avatarTalking bool
	sending       int

	microphoneHeld bool
	acquiring      bool
	listening      bool
	disconnected   bool

	// voiceTurns queues locally transcribed turns for the avatar in the
	// order they were transcribed. One forwarder drains it per session.
	voiceTurns chan string
	forwarding bool

	messages []transcript.Message
}

func newSessionContext() *sessionContext {
	ctx, cancel := context.WithCancel(context.Background())
	return &sessionContext{
		id:          uuid.NewString(),
		startedAt:   time.Now(),
		ctx:         ctx,
		cancel:      cancel,
		mode:        TextMode,
		accumulator: fragments.NewAccumulator(),
		voiceTurns:  make(chan string, voiceTurnBacklog),
	}
}

func (sc *sessionContext) remoteID() string {
	if sc.info == nil {
		return ""
	}
	return sc.info.SessionID
}

// detach drops the event subscriptions and buffered fragments of the
// session. It is safe to call more than once.
func (sc *sessionContext) detach() {
	for _, unsubscribe := range sc.unsubscribes {
		unsubscribe()
	}
	sc.unsubscribes = nil
	sc.accumulator.Reset()
	sc.cancel()
}
