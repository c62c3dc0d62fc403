//go:build !linux && !darwin

package proctor

import "context"

// DeviceProbe has no capture support on this platform.
type DeviceProbe struct {
	VideoGlob string
	AudioGlob string
}

// NewDeviceProbe returns a probe that always reports ErrNoDevice.
func NewDeviceProbe() DeviceProbe { return DeviceProbe{} }

func (DeviceProbe) Acquire(context.Context) (Stream, error) { return nil, ErrNoDevice }
