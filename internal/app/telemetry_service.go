package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/eventbus"
	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/mqtt"
	"github.com/dokzlo13/espanel/internal/sensor"
)

// TelemetryService forwards readings and LED changes to MQTT.
type TelemetryService struct {
	publisher mqtt.Publisher
}

// NewTelemetryService subscribes the publisher to the bus.
func NewTelemetryService(p mqtt.Publisher, bus *eventbus.Bus) *TelemetryService {
	s := &TelemetryService{publisher: p}

	bus.Subscribe(eventbus.EventTypeReading, func(e eventbus.Event) {
		if res, ok := e.Payload.(sensor.Result); ok {
			if err := s.publisher.PublishReading(res); err != nil {
				log.Warn().Err(err).Msg("Failed to publish reading")
			}
		}
	})
	bus.Subscribe(eventbus.EventTypeLED, func(e eventbus.Event) {
		if change, ok := e.Payload.(led.Change); ok {
			if err := s.publisher.PublishColor(change); err != nil {
				log.Warn().Err(err).Msg("Failed to publish LED color")
			}
		}
	})
	return s
}

// Close disconnects the publisher.
func (s *TelemetryService) Close() {
	if err := s.publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("MQTT close error")
	}
}
