// Package command controls the backlight by running external programs,
// for vendor interfaces that have no kernel driver, like the Lenovo
// lighting WMI method reached through PowerShell
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// LevelPlaceholder is replaced by the level in Set arguments
const LevelPlaceholder = "{level}"

// Commands are the argument vectors run for each operation. Check is
// optional; Get must print the level on stdout
type Commands struct {
	Check []string `toml:"check"`
	Get   []string `toml:"get"`
	Set   []string `toml:"set"`
}

const lenovoClass = "LENOVO_LIGHTING_METHOD"

// LenovoWMI returns the PowerShell commands for Lenovo laptops. Levels
// use domain.WMILevels: 0 unsupported, 1 off, 2 and up on
func LenovoWMI() Commands {
	ps := func(script string) []string {
		return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", script}
	}
	object := `(Get-WmiObject -namespace root\WMI -class ` + lenovoClass + `)`
	return Commands{
		Check: ps(`if (-not (Get-WmiObject -namespace root\WMI -class ` + lenovoClass + `)) { exit 1 }`),
		Get:   ps(object + `.Get_Lighting_Current_Status(0).Current_Brightness_Level`),
		Set:   ps(object + `.Set_Lighting_Current_Status(0,0,` + LevelPlaceholder + `)`),
	}
}

// Validate checks that Get and Set are usable
func (c Commands) Validate() error {
	if len(c.Get) == 0 {
		return errors.New("command backend needs a get command")
	}
	if len(c.Set) == 0 {
		return errors.New("command backend needs a set command")
	}
	for _, arg := range c.Set {
		if strings.Contains(arg, LevelPlaceholder) {
			return nil
		}
	}
	return fmt.Errorf("set command must contain %s", LevelPlaceholder)
}

// Device implements ports.DeviceControl by spawning processes
type Device struct {
	cmds Commands
}

// NewDevice creates a command-driven device
func NewDevice(cmds Commands) (*Device, error) {
	if err := cmds.Validate(); err != nil {
		return nil, err
	}
	return &Device{cmds: cmds}, nil
}

// CheckCapability runs the check command, if any. A non-zero exit means
// the vendor interface is missing
func (d *Device) CheckCapability(ctx context.Context) error {
	if len(d.cmds.Check) == 0 {
		return nil
	}
	if _, err := run(ctx, d.cmds.Check); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCapabilityMissing, err)
	}
	log.Info().Str("command", d.cmds.Check[0]).Msg("backlight command interface found")
	return nil
}

// Level runs the get command and parses its output
func (d *Device) Level(ctx context.Context) (domain.Level, error) {
	out, err := run(ctx, d.cmds.Get)
	if err != nil {
		return 0, err
	}

	text := strings.TrimSpace(string(out))
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: get command printed %q", domain.ErrInvalidLevel, text)
	}
	return domain.Level(n), nil
}

// SetLevel runs the set command with the level substituted
func (d *Device) SetLevel(ctx context.Context, level domain.Level) error {
	argv := make([]string, len(d.cmds.Set))
	for i, arg := range d.cmds.Set {
		argv[i] = strings.ReplaceAll(arg, LevelPlaceholder, strconv.Itoa(int(level)))
	}
	_, err := run(ctx, argv)
	return err
}

// Close is a no-op
func (d *Device) Close() error {
	return nil
}

func run(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", argv[0], err)
	}
	return out, nil
}
