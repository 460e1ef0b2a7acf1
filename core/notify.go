package orchestration

import (
	"log/slog"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

// notifications collects callbacks while the orchestrator lock is held so
// they can run after it is released. Callbacks are free to call back into
// the orchestrator.
type notifications []func()

func (n *notifications) add(f func()) {
	*n = append(*n, f)
}

func (n notifications) run() {
	for _, f := range n {
		f()
	}
}

func (o *Orchestrator) notifyTranscript(n *notifications, message transcript.Message) {
	if callback := o.callbacks.onTranscript; callback != nil {
		n.add(func() { callback(message) })
	}
}

func (o *Orchestrator) notifyMode(n *notifications, mode Mode) {
	if callback := o.callbacks.onModeChanged; callback != nil {
		n.add(func() { callback(mode) })
	}
}

// notifyState must be called with o.mu held.
func (o *Orchestrator) notifyState(n *notifications) {
	if callback := o.callbacks.onStateChanged; callback != nil {
		state := o.stateLocked()
		n.add(func() { callback(state) })
	}
}

func (o *Orchestrator) notifyUserTalking(n *notifications, talking bool) {
	if callback := o.callbacks.onUserTalking; callback != nil {
		n.add(func() { callback(talking) })
	}
}

func (o *Orchestrator) notifyAvatarTalking(n *notifications, talking bool) {
	if callback := o.callbacks.onAvatarTalking; callback != nil {
		n.add(func() { callback(talking) })
	}
}

func (o *Orchestrator) notifyStreamReady(n *notifications, stream avatar.MediaStream) {
	if callback := o.callbacks.onStreamReady; callback != nil {
		n.add(func() { callback(stream) })
	}
}

func (o *Orchestrator) notifySessionEnded(n *notifications, reason string) {
	if callback := o.callbacks.onSessionEnded; callback != nil {
		n.add(func() { callback(reason) })
	}
}

// diagnose reports a failure that the caller does not return. It is logged
// immediately and handed to the diagnostic callback once n runs.
func (o *Orchestrator) diagnose(n *notifications, err error) {
	logger.Warn("avatar session diagnostic", slog.String("error", err.Error()))
	if callback := o.callbacks.onDiagnostic; callback != nil {
		n.add(func() { callback(err) })
	}
}
