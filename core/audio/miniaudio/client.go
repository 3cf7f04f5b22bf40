// Package miniaudio captures microphone audio through malgo for the local
// publishing stream.
package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/ansnik/halo-core/core/audio"
	"github.com/gen2brain/malgo"
)

// Client is a capture-only microphone client. It satisfies the coordinator's
// MicrophoneCapture surface: Stream runs the device for the lifetime of the
// session context and Close releases the device and its audio context.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	mu      sync.Mutex
	device  *malgo.Device
	onAudio func(audio []byte)
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}

	client := &Client{audioContext: audioCtx}

	if err := client.initDevice(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

func (c *Client) initDevice() error {
	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(audio.DefaultSampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(c.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			c.mu.Lock()
			onAudio := c.onAudio
			c.mu.Unlock()
			if onAudio != nil {
				onAudio(pInput[:n])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.mu.Lock()
	c.device = device
	c.mu.Unlock()
	return nil
}

// Stream starts the capture device and delivers frames to onAudio until ctx
// is done, then stops the device. Only one Stream may run at a time.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	if c.device == nil {
		c.mu.Unlock()
		return fmt.Errorf("capture device not initialized")
	}
	if c.device.IsStarted() {
		c.mu.Unlock()
		return fmt.Errorf("capture already running")
	}
	c.onAudio = onAudio
	if err := c.device.Start(); err != nil {
		c.onAudio = nil
		c.mu.Unlock()
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	c.mu.Unlock()

	<-ctx.Done()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAudio = nil
	if c.device != nil && c.device.IsStarted() {
		if err := c.device.Stop(); err != nil {
			return fmt.Errorf("failed to stop capture device: %w", err)
		}
	}
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onAudio = nil
	c.mu.Unlock()

	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
