// Package audio defines local microphone access. Implementations live in the
// miniaudio and portaudio subpackages.
package audio

import (
	"context"
	"errors"
)

var (
	ErrNotAcquired = errors.New("microphone not acquired")
	ErrClosed      = errors.New("microphone closed")
)

// Microphone grants and returns access to the input device without
// producing audio.
type Microphone interface {
	Acquire(ctx context.Context) error
	Release() error
}

// Capture is a microphone that can stream what it records.
type Capture interface {
	Microphone
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() EncodingInfo
}
