package ports

import "context"

// ChangeNotifier reports brightness changes made outside this process
// (hardware hotkey, vendor utility)
// This is a PORT - adapters (sysfs hw_changed, UPower signals, polling, mock) will implement it
type ChangeNotifier interface {
	// Subscribe blocks, sending one notification per observed change,
	// until ctx is cancelled or the underlying stream fails
	// Notifications carry no payload; receivers re-query the device
	Subscribe(ctx context.Context, changes chan<- struct{}) error
}
