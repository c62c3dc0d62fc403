package proctor

import (
	"context"
	"errors"
)

// ErrNoDevice is returned when no capture hardware is present.
var ErrNoDevice = errors.New("no capture device")

// Stream is an acquired audio and video capture.
type Stream interface {
	// Sources names the devices backing the stream.
	Sources() []string
	// Release gives the devices back. It is safe to call more than once.
	Release() error
}

// CaptureDevice requests camera and microphone access. Acquire may block;
// the monitor always calls it off the session's goroutine.
type CaptureDevice interface {
	Acquire(ctx context.Context) (Stream, error)
}

// NoDevice is a CaptureDevice that always fails with ErrNoDevice.
type NoDevice struct{}

func (NoDevice) Acquire(context.Context) (Stream, error) { return nil, ErrNoDevice }
