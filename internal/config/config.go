// Package config loads daemon settings: defaults, then an optional TOML
// file, then KBDLIGHT_* environment overrides. CLI flags are applied last
// by the caller
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/adapters/command"
	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/pkg/tlsconfig"
)

// Backends
const (
	BackendAuto    = "auto" // sysfs when a kbd_backlight LED exists, else UPower
	BackendSysfs   = "sysfs"
	BackendUPower  = "upower"
	BackendCommand = "command"
	BackendGPIO    = "gpio"
	BackendMock    = "mock"
)

// Activity inputs
const (
	InputEvdev  = "evdev"
	InputTypist = "typist" // simulated typing, for development
)

// Journal stores
const (
	JournalMemory = "memory"
	JournalSQLite = "sqlite"
)

// Level presets
const (
	LevelsLED = "led"
	LevelsWMI = "wmi"
)

// Config holds application configuration
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Device  DeviceConfig  `toml:"device"`
	Input   InputConfig   `toml:"input"`
	Control ControlConfig `toml:"control"`
	Ops     OpsConfig     `toml:"ops"`
	Journal JournalConfig `toml:"journal"`
	Logging LoggingConfig `toml:"logging"`
}

// EngineConfig holds the domain parameters
type EngineConfig struct {
	Timeout       time.Duration `toml:"timeout"`
	FallbackLevel int           `toml:"fallback_level"` // 0 uses the lowest on level
}

// DeviceConfig selects and configures the backlight backend
type DeviceConfig struct {
	Backend      string           `toml:"backend"`
	Levels       string           `toml:"levels"` // "led" | "wmi"; empty picks by backend
	SysfsRoot    string           `toml:"sysfs_root"`
	SysfsDir     string           `toml:"sysfs_dir"` // explicit LED dir, skips discovery
	PollInterval time.Duration    `toml:"poll_interval"`
	Command      command.Commands `toml:"command"` // empty uses the Lenovo WMI preset
	GPIOPin      string           `toml:"gpio_pin"`
	GPIONotify   string           `toml:"gpio_notify_pin"` // optional hotkey sense line
}

// InputConfig selects the activity source
type InputConfig struct {
	Source  string `toml:"source"`
	Dir     string `toml:"dir"`
	Hotplug bool   `toml:"hotplug"`
}

// ControlConfig configures the gRPC control service
type ControlConfig struct {
	Addr    string `toml:"addr"`
	TLSCert string `toml:"tls_cert"` // path to this side's certificate
	TLSKey  string `toml:"tls_key"`  // path to this side's private key
	TLSCA   string `toml:"tls_ca"`   // path to the CA certificate
}

// TLS returns the mTLS file set
func (c ControlConfig) TLS() tlsconfig.Files {
	return tlsconfig.Files{Cert: c.TLSCert, Key: c.TLSKey, CA: c.TLSCA}
}

// OpsConfig configures the ops HTTP server. An empty Addr disables it
type OpsConfig struct {
	Addr    string `toml:"addr"`
	Metrics bool   `toml:"metrics"`
}

// JournalConfig configures the transition journal
type JournalConfig struct {
	Store     string        `toml:"store"`
	Path      string        `toml:"path"` // SQLite database file (used when Store=sqlite)
	Retention time.Duration `toml:"retention"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" | "json"
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Timeout: 30 * time.Second,
		},
		Device: DeviceConfig{
			Backend:      BackendAuto,
			SysfsRoot:    "/sys/class/leds",
			PollInterval: 2 * time.Second,
		},
		Input: InputConfig{
			Source:  InputEvdev,
			Dir:     "/dev/input",
			Hotplug: true,
		},
		Control: ControlConfig{
			Addr: "127.0.0.1:50051",
		},
		Ops: OpsConfig{
			Addr:    "127.0.0.1:9185",
			Metrics: true,
		},
		Journal: JournalConfig{
			Store:     JournalMemory,
			Path:      filepath.Join(stateHome(), "kbdlightd", "journal.db"),
			Retention: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath is the config file read when none is named
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "kbdlightd", "config.toml")
}

// Load builds the configuration. path names the TOML file; when empty,
// KBDLIGHT_CONFIG and then DefaultPath are tried and a missing file is
// not an error
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("KBDLIGHT_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file: %w", err)
		}
	} else {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		for _, key := range md.Undecoded() {
			log.Warn().Str("key", key.String()).Str("path", path).Msg("unknown config key")
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv reads overrides from environment variables. Unparseable values
// are logged and ignored
func applyEnv(cfg *Config) {
	envString("KBDLIGHT_BACKEND", &cfg.Device.Backend)
	envString("KBDLIGHT_LEVELS", &cfg.Device.Levels)
	envString("KBDLIGHT_SYSFS_DIR", &cfg.Device.SysfsDir)
	envDuration("KBDLIGHT_POLL_INTERVAL", &cfg.Device.PollInterval)
	envString("KBDLIGHT_GPIO_PIN", &cfg.Device.GPIOPin)
	envString("KBDLIGHT_GPIO_NOTIFY_PIN", &cfg.Device.GPIONotify)

	envDuration("KBDLIGHT_TIMEOUT", &cfg.Engine.Timeout)
	envInt("KBDLIGHT_FALLBACK_LEVEL", &cfg.Engine.FallbackLevel)

	envString("KBDLIGHT_INPUT", &cfg.Input.Source)
	envString("KBDLIGHT_INPUT_DIR", &cfg.Input.Dir)
	envBool("KBDLIGHT_HOTPLUG", &cfg.Input.Hotplug)

	envString("KBDLIGHT_GRPC_ADDR", &cfg.Control.Addr)
	envString("KBDLIGHT_TLS_CERT", &cfg.Control.TLSCert)
	envString("KBDLIGHT_TLS_KEY", &cfg.Control.TLSKey)
	envString("KBDLIGHT_TLS_CA", &cfg.Control.TLSCA)

	envString("KBDLIGHT_OPS_ADDR", &cfg.Ops.Addr)
	envBool("KBDLIGHT_METRICS", &cfg.Ops.Metrics)

	envString("KBDLIGHT_JOURNAL", &cfg.Journal.Store)
	envString("KBDLIGHT_DB_PATH", &cfg.Journal.Path)
	envDuration("KBDLIGHT_RETENTION", &cfg.Journal.Retention)

	envString("KBDLIGHT_LOG_LEVEL", &cfg.Logging.Level)
	envString("KBDLIGHT_LOG_FORMAT", &cfg.Logging.Format)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Warn().Err(err).Str("env", key).Msg("ignoring invalid duration")
			return
		}
		*dst = d
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Warn().Err(err).Str("env", key).Msg("ignoring invalid integer")
			return
		}
		*dst = n
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn().Err(err).Str("env", key).Msg("ignoring invalid boolean")
			return
		}
		*dst = b
	}
}

// Validate rejects settings the daemon cannot run with
func (c Config) Validate() error {
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout)
	}
	if c.Engine.FallbackLevel < 0 {
		return fmt.Errorf("%w: fallback_level %d", domain.ErrInvalidLevel, c.Engine.FallbackLevel)
	}

	switch c.Device.Backend {
	case BackendAuto, BackendSysfs, BackendUPower, BackendMock:
	case BackendCommand:
		if err := c.CommandSet().Validate(); err != nil {
			return err
		}
	case BackendGPIO:
		if c.Device.GPIOPin == "" {
			return errors.New("gpio backend needs device.gpio_pin")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Device.Backend)
	}
	if _, err := c.Levels(); err != nil {
		return err
	}
	if c.Device.PollInterval <= 0 {
		return fmt.Errorf("device.poll_interval must be positive, got %s", c.Device.PollInterval)
	}

	switch c.Input.Source {
	case InputEvdev, InputTypist:
	default:
		return fmt.Errorf("unknown input source %q", c.Input.Source)
	}

	switch c.Journal.Store {
	case JournalMemory, JournalSQLite:
	default:
		return fmt.Errorf("unknown journal store %q", c.Journal.Store)
	}
	if c.Journal.Retention < 0 {
		return fmt.Errorf("journal.retention must not be negative, got %s", c.Journal.Retention)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	if c.Control.Addr == "" {
		return errors.New("control.addr must be set")
	}
	return c.Control.TLS().Validate()
}

// Levels returns the level encoding for the configured backend
func (c Config) Levels() (domain.LevelRange, error) {
	switch c.Device.Levels {
	case LevelsLED:
		return domain.LEDLevels, nil
	case LevelsWMI:
		return domain.WMILevels, nil
	case "":
		if c.Device.Backend == BackendCommand {
			return domain.WMILevels, nil
		}
		return domain.LEDLevels, nil
	}
	return domain.LevelRange{}, fmt.Errorf("unknown level preset %q", c.Device.Levels)
}

// CommandSet returns the configured commands, or the Lenovo WMI preset
func (c Config) CommandSet() command.Commands {
	cmds := c.Device.Command
	if len(cmds.Check) == 0 && len(cmds.Get) == 0 && len(cmds.Set) == 0 {
		return command.LenovoWMI()
	}
	return cmds
}

func stateHome() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state")
}
