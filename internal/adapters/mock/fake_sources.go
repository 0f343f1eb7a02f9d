package mock

import (
	"context"
	"time"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

const fakeBuffer = 16

// FakeActivity is a key source driven by the test
// This implements the ports.ActivitySource interface
type FakeActivity struct {
	events chan domain.KeyEvent
	fail   chan error
}

// NewFakeActivity creates an idle source
func NewFakeActivity() *FakeActivity {
	return &FakeActivity{
		events: make(chan domain.KeyEvent, fakeBuffer),
		fail:   make(chan error, 1),
	}
}

// Subscribe forwards events until ctx is cancelled or Fail is called
func (a *FakeActivity) Subscribe(ctx context.Context, out chan<- domain.KeyEvent) error {
	for {
		select {
		case ev := <-a.events:
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err := <-a.fail:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Press emits a key press
func (a *FakeActivity) Press(key domain.Key) {
	a.Send(domain.KeyEvent{Key: key, Pressed: true, Time: time.Now(), Device: "fake"})
}

// Send emits an arbitrary event
func (a *FakeActivity) Send(ev domain.KeyEvent) {
	a.events <- ev
}

// Fail ends the subscription with err (nil means a clean end of stream)
func (a *FakeActivity) Fail(err error) {
	a.fail <- err
}

// FakeNotifier is a change notification source driven by the test
// This implements the ports.ChangeNotifier interface
type FakeNotifier struct {
	changes chan struct{}
	fail    chan error
}

// NewFakeNotifier creates a silent notifier
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{
		changes: make(chan struct{}, fakeBuffer),
		fail:    make(chan error, 1),
	}
}

// Subscribe forwards notifications until ctx is cancelled or Fail is called
func (n *FakeNotifier) Subscribe(ctx context.Context, out chan<- struct{}) error {
	for {
		select {
		case <-n.changes:
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err := <-n.fail:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Notify reports one external change
func (n *FakeNotifier) Notify() {
	n.changes <- struct{}{}
}

// Fail ends the subscription with err
func (n *FakeNotifier) Fail(err error) {
	n.fail <- err
}
