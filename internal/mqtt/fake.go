package mqtt

import (
	"sync"

	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/sensor"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Readings contains the JSON payloads published for poll results.
	Readings [][]byte

	// Colors contains the JSON payloads published for LED changes.
	Colors [][]byte

	// PublishError, if set, is returned by every publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishReading records the reading payload.
func (f *FakePublisher) PublishReading(res sensor.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatReading(res)
	if err != nil {
		return err
	}
	f.Readings = append(f.Readings, payload)
	return nil
}

// PublishColor records the color payload.
func (f *FakePublisher) PublishColor(change led.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatColor(change)
	if err != nil {
		return err
	}
	f.Colors = append(f.Colors, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Counts returns how many readings and colors were recorded.
func (f *FakePublisher) Counts() (readings, colors int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Readings), len(f.Colors)
}
