// Package mqtt publishes panel telemetry to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/sensor"
)

// Topic suffixes appended to the configured prefix.
const (
	TopicDHT = "dht"
	TopicLED = "led"
)

// Publisher publishes panel events.
type Publisher interface {
	// PublishReading sends a sensor poll result.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(res sensor.Result) error

	// PublishColor sends a requested LED color.
	PublishColor(change led.Change) error

	// Close disconnects from the broker.
	Close() error
}

// ReadingPayload is the JSON body published on <prefix>/dht.
type ReadingPayload struct {
	Timestamp   string   `json:"timestamp"`
	OK          bool     `json:"ok"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// ColorPayload is the JSON body published on <prefix>/led.
type ColorPayload struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
	Button    string `json:"button"`
	R         uint8  `json:"r"`
	G         uint8  `json:"g"`
	B         uint8  `json:"b"`
}

// FormatReading creates the JSON payload for a poll result.
func FormatReading(res sensor.Result) ([]byte, error) {
	p := ReadingPayload{
		Timestamp: res.At.UTC().Format(time.RFC3339),
		OK:        res.OK(),
	}
	switch {
	case res.Err != nil:
		p.Error = res.Err.Error()
	case res.Reading.Failed():
		p.Error = "sensor error"
		if s, ok := res.Reading.Error.(string); ok {
			p.Error = s
		}
	default:
		t, h := res.Reading.Temperature, res.Reading.Humidity
		p.Temperature, p.Humidity = &t, &h
	}
	return json.Marshal(p)
}

// FormatColor creates the JSON payload for an LED change.
func FormatColor(change led.Change) ([]byte, error) {
	c := change.State.Color
	return json.Marshal(ColorPayload{
		Timestamp: change.At.UTC().Format(time.RFC3339),
		RequestID: change.RequestID,
		Button:    string(change.Button),
		R:         c.R,
		G:         c.G,
		B:         c.B,
	})
}
