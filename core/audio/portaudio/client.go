// Package portaudio provides a microphone backed by PortAudio.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio"
)

const DefaultBufferSize = 512

type Client struct {
	bufferSize int

	mu      sync.Mutex
	stream  *portaudio.Stream
	in      []int16
	stop    context.CancelFunc
	stopped chan struct{}
}

func NewClient(bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Client{bufferSize: bufferSize}
}

// Acquire initializes PortAudio and opens a mono input stream on the
// default device.
func (c *Client) Acquire(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	in := make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(audio.DefaultChannels, 0, audio.DefaultSampleRate, c.bufferSize, in)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open PortAudio stream: %w", err)
	}

	c.stream = stream
	c.in = in
	return nil
}

func (c *Client) Release() error {
	if err := c.StopCapture(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return nil
	}

	err := c.stream.Close()
	c.stream = nil
	c.in = nil
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = termErr
	}
	if err != nil {
		return fmt.Errorf("failed to release PortAudio stream: %w", err)
	}
	return nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.Acquire(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)
	c.stop = cancel
	c.stopped = make(chan struct{})
	go c.read(captureCtx, c.stream, c.in, onAudio, c.stopped)
	return nil
}

func (c *Client) read(ctx context.Context, stream *portaudio.Stream, in []int16, onAudio func(audio []byte), stopped chan struct{}) {
	defer close(stopped)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := stream.Read(); err != nil {
				log.Printf("Failed to read from PortAudio stream: %v", err)
				continue
			}

			audioBuffer := bytes.Buffer{}
			_ = binary.Write(&audioBuffer, binary.LittleEndian, in)
			onAudio(audioBuffer.Bytes())
		}
	}
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	stop := c.stop
	stopped := c.stopped
	stream := c.stream
	c.stop = nil
	c.stopped = nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	stop()
	<-stopped

	if err := stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop PortAudio stream: %w", err)
	}
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.DefaultEncodingInfo()
}
