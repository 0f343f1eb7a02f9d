// Package metrics exposes engine counters. The engine only sees the
// Recorder interface; NoopRecorder is the default when metrics are off
package metrics

import "time"

// KeyResult classifies how the activity loop handled a key event
type KeyResult string

const (
	KeyQualifying KeyResult = "qualifying"
	KeyExcluded   KeyResult = "excluded"
	KeyIgnored    KeyResult = "ignored" // release, or engine disabled
)

// Recorder defines observability hooks for the backlight engine
type Recorder interface {
	IncDecision(on bool, cause string)
	IncWrite(success bool)
	ObserveWriteDuration(d time.Duration)
	IncKeyEvent(result KeyResult)
	IncNotification(success bool)
	SetState(level int, intent, enabled bool)
}

// NoopRecorder is a Recorder that does nothing
type NoopRecorder struct{}

func (NoopRecorder) IncDecision(bool, string) {}
func (NoopRecorder) IncWrite(bool) {}
func (NoopRecorder) ObserveWriteDuration(time.Duration) {}
func (NoopRecorder) IncKeyEvent(KeyResult) {}
func (NoopRecorder) IncNotification(bool) {}
func (NoopRecorder) SetState(int, bool, bool) {}
