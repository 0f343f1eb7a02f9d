// Package upower drives the keyboard backlight through UPower's
// org.freedesktop.UPower.KbdBacklight interface on the system bus
package upower

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

const (
	busName    = "org.freedesktop.UPower"
	objectPath = dbus.ObjectPath("/org/freedesktop/UPower/KbdBacklight")
	iface      = "org.freedesktop.UPower.KbdBacklight"

	methodGet    = iface + ".GetBrightness"
	methodSet    = iface + ".SetBrightness"
	methodGetMax = iface + ".GetMaxBrightness"

	signalChanged = "BrightnessChangedWithSource"

	// sourceInternal marks changes made by the hardware itself (hotkey),
	// as opposed to SetBrightness calls
	sourceInternal = "internal"
)

// KbdBacklight implements ports.DeviceControl and ports.ChangeNotifier
// over D-Bus
type KbdBacklight struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a private system bus connection
func Connect() (*KbdBacklight, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to system bus: %w", domain.ErrDeviceUnavailable, err)
	}
	return New(conn), nil
}

// New uses an existing bus connection
func New(conn *dbus.Conn) *KbdBacklight {
	return &KbdBacklight{
		conn: conn,
		obj:  conn.Object(busName, objectPath),
	}
}

// CheckCapability asks UPower for the maximum brightness. Machines
// without a keyboard backlight fail here
func (k *KbdBacklight) CheckCapability(ctx context.Context) error {
	var maxLevel int32
	if err := k.obj.CallWithContext(ctx, methodGetMax, 0).Store(&maxLevel); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCapabilityMissing, err)
	}
	if maxLevel <= 0 {
		return fmt.Errorf("%w: UPower reports max brightness %d", domain.ErrCapabilityMissing, maxLevel)
	}

	log.Info().Int32("max_brightness", maxLevel).Msg("UPower keyboard backlight found")
	return nil
}

// Level returns the current brightness
func (k *KbdBacklight) Level(ctx context.Context) (domain.Level, error) {
	var level int32
	if err := k.obj.CallWithContext(ctx, methodGet, 0).Store(&level); err != nil {
		return 0, fmt.Errorf("failed to get brightness: %w", err)
	}
	return domain.Level(level), nil
}

// SetLevel sets the brightness
func (k *KbdBacklight) SetLevel(ctx context.Context, level domain.Level) error {
	if call := k.obj.CallWithContext(ctx, methodSet, 0, int32(level)); call.Err != nil {
		return fmt.Errorf("failed to set brightness: %w", call.Err)
	}
	return nil
}

// Subscribe forwards hardware-initiated BrightnessChangedWithSource
// signals until ctx is cancelled or the bus connection drops
func (k *KbdBacklight) Subscribe(ctx context.Context, changes chan<- struct{}) error {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember(signalChanged),
	}
	if err := k.conn.AddMatchSignalContext(ctx, match...); err != nil {
		return fmt.Errorf("failed to add match rule: %w", err)
	}
	defer k.conn.RemoveMatchSignal(match...)

	signals := make(chan *dbus.Signal, 10)
	k.conn.Signal(signals)
	defer k.conn.RemoveSignal(signals)

	log.Info().Str("interface", iface).Msg("listening for brightness signals")

	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return errors.New("system bus connection closed")
			}
			if !isHardwareChange(sig) {
				continue
			}
			select {
			case changes <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the bus connection
func (k *KbdBacklight) Close() error {
	return k.conn.Close()
}

func isHardwareChange(sig *dbus.Signal) bool {
	if sig == nil || sig.Path != objectPath || sig.Name != iface+"."+signalChanged {
		return false
	}
	if len(sig.Body) < 2 {
		return false
	}
	source, ok := sig.Body[1].(string)
	return ok && source == sourceInternal
}
