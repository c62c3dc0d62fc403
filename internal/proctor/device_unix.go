//go:build linux || darwin

package proctor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// DeviceProbe acquires capture by opening the first video node and the
// first audio capture node found by its glob patterns. The nodes are held
// open, read-only and non-blocking, until Release.
type DeviceProbe struct {
	VideoGlob string
	AudioGlob string
}

// NewDeviceProbe returns a probe for the usual Linux device nodes.
func NewDeviceProbe() DeviceProbe {
	return DeviceProbe{
		VideoGlob: "/dev/video*",
		AudioGlob: "/dev/snd/pcmC*D*c",
	}
}

func (p DeviceProbe) Acquire(ctx context.Context) (Stream, error) {
	s := &fdStream{}
	for _, pattern := range []string{p.VideoGlob, p.AudioGlob} {
		if err := ctx.Err(); err != nil {
			s.Release()
			return nil, err
		}
		if err := s.openFirst(pattern); err != nil {
			s.Release()
			return nil, err
		}
	}
	return s, nil
}

type fdStream struct {
	mu    sync.Mutex
	fds   []int
	paths []string
}

func (s *fdStream) openFirst(pattern string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: nothing matches %s", ErrNoDevice, pattern)
	}
	var errs []error
	for _, path := range matches {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			errs = append(errs, fmt.Errorf("open %s: %w", path, err))
			continue
		}
		s.fds = append(s.fds, fd)
		s.paths = append(s.paths, path)
		return nil
	}
	return errors.Join(errs...)
}

func (s *fdStream) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (s *fdStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, fd := range s.fds {
		if err := unix.Close(fd); err != nil {
			errs = append(errs, err)
		}
	}
	s.fds = nil
	return errors.Join(errs...)
}
