// Package evdev reads key activity from Linux input devices
// (/dev/input/event*) with github.com/holoplot/go-evdev
package evdev

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	evdev "github.com/holoplot/go-evdev"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// DefaultDir is where udev creates input device nodes
const DefaultDir = "/dev/input"

// settleDelay gives udev time to apply permissions to a new node
const settleDelay = 200 * time.Millisecond

// Keyboard describes one detected keyboard
type Keyboard struct {
	Path string
	Name string
}

// ListKeyboards opens every event node in dir and returns the keyboards
func ListKeyboards(dir string) ([]Keyboard, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "event*"))
	if err != nil {
		return nil, err
	}

	var kbds []Keyboard
	for _, path := range paths {
		dev, err := openKeyboard(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("skipping input device")
			continue
		}
		kbds = append(kbds, Keyboard{Path: path, Name: deviceName(dev)})
		dev.Close()
	}
	return kbds, nil
}

// Source implements ports.ActivitySource over every keyboard in a
// directory. With hot-plug enabled, keyboards attached later are picked
// up through fsnotify
type Source struct {
	dir     string
	hotplug bool

	mu      sync.Mutex
	devices map[string]*evdev.InputDevice
}

// NewSource reads keyboards under dir
func NewSource(dir string, hotplug bool) *Source {
	return &Source{
		dir:     dir,
		hotplug: hotplug,
		devices: make(map[string]*evdev.InputDevice),
	}
}

// Subscribe blocks until ctx is cancelled. Without hot-plug it fails once
// the last keyboard is gone; with hot-plug it fails if the directory
// watch breaks
func (s *Source) Subscribe(ctx context.Context, events chan<- domain.KeyEvent) error {
	var watcher *fsnotify.Watcher
	if s.hotplug {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create input watcher: %w", err)
		}
		defer w.Close()
		if err := w.Add(s.dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", s.dir, err)
		}
		watcher = w
	}

	var wg sync.WaitGroup
	detached := make(chan string, 8)
	defer func() {
		s.closeAll()
		wg.Wait()
	}()

	attach := func(path string) {
		dev, err := openKeyboard(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("not a keyboard")
			return
		}
		if !s.track(path, dev) {
			dev.Close()
			return
		}
		log.Info().Str("path", path).Str("name", deviceName(dev)).Msg("keyboard attached")

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.read(ctx, dev, path, events)
			if ctx.Err() == nil {
				log.Warn().Err(err).Str("path", path).Msg("keyboard detached")
			}
			s.untrack(path)
			select {
			case detached <- path:
			default:
			}
		}()
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, "event*"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		attach(path)
	}
	if s.count() == 0 && !s.hotplug {
		return fmt.Errorf("%w: no keyboard found under %s", domain.ErrDeviceUnavailable, s.dir)
	}

	var (
		fsEvents <-chan fsnotify.Event
		fsErrors <-chan error
	)
	if watcher != nil {
		fsEvents, fsErrors = watcher.Events, watcher.Errors
	}

	for {
		select {
		case ev, ok := <-fsEvents:
			if !ok {
				return errors.New("input watcher closed")
			}
			if !ev.Has(fsnotify.Create) || !strings.HasPrefix(filepath.Base(ev.Name), "event") {
				continue
			}
			select {
			case <-time.After(settleDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			attach(ev.Name)

		case err, ok := <-fsErrors:
			if !ok {
				return errors.New("input watcher closed")
			}
			return fmt.Errorf("input watcher failed: %w", err)

		case <-detached:
			if !s.hotplug && s.count() == 0 {
				return fmt.Errorf("%w: all keyboards detached", domain.ErrDeviceUnavailable)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// read forwards key events from one device until it fails
func (s *Source) read(ctx context.Context, dev *evdev.InputDevice, path string, events chan<- domain.KeyEvent) error {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			return err
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		select {
		case events <- toKeyEvent(ev, path):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Source) track(path string, dev *evdev.InputDevice) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[path]; ok {
		return false
	}
	s.devices[path] = dev
	return true
}

func (s *Source) untrack(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dev, ok := s.devices[path]; ok {
		dev.Close()
		delete(s.devices, path)
	}
}

func (s *Source) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

// closeAll unblocks every reader
func (s *Source) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, dev := range s.devices {
		dev.Close()
		delete(s.devices, path)
	}
}

func openKeyboard(path string) (*evdev.InputDevice, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}
	if !isKeyboard(dev.CapableEvents(evdev.EV_KEY)) {
		dev.Close()
		return nil, fmt.Errorf("%s has no typing keys", path)
	}
	return dev, nil
}

func deviceName(dev *evdev.InputDevice) string {
	name, err := dev.Name()
	if err != nil {
		return "unknown"
	}
	return name
}

func eventTime(ev *evdev.InputEvent) time.Time {
	return time.Unix(int64(ev.Time.Sec), int64(ev.Time.Usec)*int64(time.Microsecond))
}
