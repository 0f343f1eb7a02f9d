package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/adapters/command"
	"github.com/quentinrf/kbdlightd/internal/adapters/evdev"
	"github.com/quentinrf/kbdlightd/internal/adapters/gpio"
	"github.com/quentinrf/kbdlightd/internal/adapters/memory"
	"github.com/quentinrf/kbdlightd/internal/adapters/mock"
	"github.com/quentinrf/kbdlightd/internal/adapters/poll"
	"github.com/quentinrf/kbdlightd/internal/adapters/sqlite"
	"github.com/quentinrf/kbdlightd/internal/adapters/sysfs"
	"github.com/quentinrf/kbdlightd/internal/adapters/upower"
	"github.com/quentinrf/kbdlightd/internal/config"
	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

// backend is the device side of the engine: something to command and
// something that reports changes made behind its back
type backend struct {
	name     string
	device   ports.DeviceControl
	notifier ports.ChangeNotifier
}

// openBackend builds the configured device and its change notifier
func openBackend(c config.Config) (*backend, error) {
	switch c.Device.Backend {
	case config.BackendAuto:
		be, err := openSysfs(c.Device)
		if err == nil {
			return be, nil
		}
		if !errors.Is(err, domain.ErrCapabilityMissing) {
			return nil, err
		}
		log.Info().Err(err).Msg("no sysfs keyboard backlight, trying UPower")
		return openUPower()

	case config.BackendSysfs:
		return openSysfs(c.Device)

	case config.BackendUPower:
		return openUPower()

	case config.BackendCommand:
		dev, err := command.NewDevice(c.CommandSet())
		if err != nil {
			return nil, err
		}
		return polled("command", dev, c.Device.PollInterval), nil

	case config.BackendGPIO:
		dev, err := gpio.Open(c.Device.GPIOPin)
		if err != nil {
			return nil, err
		}
		if c.Device.GPIONotify == "" {
			return polled("gpio", dev, c.Device.PollInterval), nil
		}
		notifier, err := gpio.OpenEdgeNotifier(c.Device.GPIONotify)
		if err != nil {
			dev.Close()
			return nil, err
		}
		return &backend{name: "gpio", device: dev, notifier: notifier}, nil

	case config.BackendMock:
		levels, err := c.Levels()
		if err != nil {
			return nil, err
		}
		return &backend{name: "mock", device: mock.NewFakeDevice(levels.MinOn), notifier: mock.NewFakeNotifier()}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Device.Backend)
}

func openSysfs(dc config.DeviceConfig) (*backend, error) {
	dir := dc.SysfsDir
	if dir == "" {
		found, err := sysfs.FindKeyboard(dc.SysfsRoot)
		if err != nil {
			return nil, err
		}
		dir = found
	}

	dev := sysfs.NewDevice(dir)
	hw := sysfs.NewHWChangedNotifier(dir)
	if !hw.Available() {
		log.Info().Str("led", dir).Msg("driver has no brightness_hw_changed, polling for external changes")
		return polled("sysfs", dev, dc.PollInterval), nil
	}
	return &backend{name: "sysfs", device: dev, notifier: hw}, nil
}

func openUPower() (*backend, error) {
	kbd, err := upower.Connect()
	if err != nil {
		return nil, err
	}
	return &backend{name: "upower", device: kbd, notifier: kbd}, nil
}

// polled wraps a device without change events in a poll watcher, which
// serves as both device and notifier
func polled(name string, dev ports.DeviceControl, interval time.Duration) *backend {
	w := poll.NewWatcher(dev, interval, nil)
	return &backend{name: name, device: w, notifier: w}
}

// openActivity builds the key activity source
func openActivity(c config.Config) ports.ActivitySource {
	if c.Input.Source == config.InputTypist {
		log.Warn().Msg("using simulated typist instead of real keyboards (dev mode only)")
		return mock.NewTypist(8, 2*c.Engine.Timeout)
	}
	return evdev.NewSource(c.Input.Dir, c.Input.Hotplug)
}

// openJournal builds the transition repository. The returned func closes it
func openJournal(jc config.JournalConfig) (domain.TransitionRepository, func(), error) {
	switch jc.Store {
	case config.JournalSQLite:
		if err := os.MkdirAll(filepath.Dir(jc.Path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		r, err := sqlite.NewTransitionRepository(jc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite journal %s: %w", jc.Path, err)
		}
		log.Info().Str("db_path", jc.Path).Msg("initialized SQLite journal")
		return r, func() { r.Close() }, nil
	default:
		log.Info().Msg("initialized in-memory journal")
		return memory.NewTransitionRepository(), func() {}, nil
	}
}
