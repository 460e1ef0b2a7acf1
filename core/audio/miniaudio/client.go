// Package miniaudio provides a microphone backed by miniaudio through malgo.
package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	captureClient

	closeOnce sync.Once
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	return &Client{audioContext: audioCtx}, nil
}

// Acquire opens the default capture device. Missing devices and denied
// access surface here.
func (c *Client) Acquire(_ context.Context) error {
	return c.captureClient.Init(c.audioContext)
}

// Release closes the capture device, stopping any capture in progress.
func (c *Client) Release() error {
	return c.captureClient.Uninit()
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	if !c.captureClient.Initialized() {
		if err := c.Acquire(ctx); err != nil {
			return err
		}
	}
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.DefaultEncodingInfo()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.captureClient.Uninit()
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
	})
}
