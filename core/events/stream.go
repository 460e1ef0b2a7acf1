package events

const (
	// KindStreamReady identifies the media stream becoming available.
	KindStreamReady Kind = "stream.ready"
	// KindStreamDisconnected identifies loss of the remote session.
	KindStreamDisconnected Kind = "stream.disconnected"
)

// StreamReady carries the media room details of a freshly started session.
type StreamReady struct {
	Base
	URL         string
	AccessToken string
}

// NewStreamReady creates a stream ready event.
func NewStreamReady(url, accessToken string) StreamReady {
	return StreamReady{Base: NewBase(KindStreamReady), URL: url, AccessToken: accessToken}
}

// StreamDisconnected marks a remote-initiated end of the session.
type StreamDisconnected struct {
	Base
	Reason string
}

// NewStreamDisconnected creates a stream disconnected event.
func NewStreamDisconnected(reason string) StreamDisconnected {
	return StreamDisconnected{Base: NewBase(KindStreamDisconnected), Reason: reason}
}
