package sysfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// pollSlice bounds each poll(2) so cancellation is noticed
const pollSlice = 500 * time.Millisecond

// HWChangedNotifier reports brightness changes made by the firmware, such
// as the Fn hotkey. The kernel raises POLLPRI on brightness_hw_changed;
// writes made through the brightness attribute do not trigger it
// This implements the ports.ChangeNotifier interface
type HWChangedNotifier struct {
	path string
}

// NewHWChangedNotifier watches the LED directory dir
func NewHWChangedNotifier(dir string) *HWChangedNotifier {
	return &HWChangedNotifier{path: filepath.Join(dir, hwChangedFile)}
}

// Available reports whether the driver exposes brightness_hw_changed
func (n *HWChangedNotifier) Available() bool {
	_, err := os.Stat(n.path)
	return err == nil
}

// Subscribe blocks until ctx is cancelled or the attribute fails
func (n *HWChangedNotifier) Subscribe(ctx context.Context, changes chan<- struct{}) error {
	fd, err := unix.Open(n.path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", n.path, err)
	}
	defer unix.Close(fd)

	buf := make([]byte, 16)
	// The attribute has to be read once before poll reports anything
	if err := rearm(fd, buf); err != nil {
		return err
	}

	log.Info().Str("path", n.path).Msg("watching hardware brightness changes")

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLPRI | unix.POLLERR}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fds[0].Revents = 0
		ready, err := unix.Poll(fds, int(pollSlice.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to poll %s: %w", n.path, err)
		}
		if ready == 0 || fds[0].Revents&(unix.POLLPRI|unix.POLLERR) == 0 {
			continue
		}

		if err := rearm(fd, buf); err != nil {
			return err
		}

		select {
		case changes <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// rearm reads the attribute from the start. ENODATA means no hardware
// change has happened yet
func rearm(fd int, buf []byte) error {
	if _, err := unix.Pread(fd, buf, 0); err != nil && !errors.Is(err, unix.ENODATA) {
		return fmt.Errorf("failed to read brightness_hw_changed: %w", err)
	}
	return nil
}
