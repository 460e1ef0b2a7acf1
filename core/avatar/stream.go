package avatar

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MediaStream references the live media room of a session. It is only ever
// handed out by value; the orchestrator keeps the authoritative copy.
type MediaStream struct {
	URL         string
	AccessToken string
	Room        string
	Identity    string
	ExpiresAt   time.Time
}

type roomClaims struct {
	Name  string `json:"name"`
	Video struct {
		Room string `json:"room"`
	} `json:"video"`
	jwt.RegisteredClaims
}

// NewMediaStream builds a stream handle and reads the room details from the
// access token. The token's signature belongs to the media server and is not
// verified here; a token that is not a JWT only leaves the details empty.
func NewMediaStream(url, accessToken string) (MediaStream, error) {
	if url == "" {
		return MediaStream{}, fmt.Errorf("media stream url is empty")
	}

	stream := MediaStream{URL: url, AccessToken: accessToken}
	if accessToken == "" {
		return stream, nil
	}

	claims := roomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return stream, nil
	}

	stream.Room = claims.Video.Room
	stream.Identity = claims.Name
	if stream.Identity == "" {
		stream.Identity = claims.Subject
	}
	if claims.ExpiresAt != nil {
		stream.ExpiresAt = claims.ExpiresAt.Time
	}

	return stream, nil
}

// Expired reports whether the room token has expired at now. Streams without
// a known expiry never expire.
func (s MediaStream) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
