package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/config"
	"github.com/dokzlo13/espanel/internal/eventbus"
	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/ledger"
	"github.com/dokzlo13/espanel/internal/sensor"
)

// HistoryService records panel events in the ledger and prunes old entries.
type HistoryService struct {
	cfg    *config.Config
	ledger *ledger.Ledger
}

// NewHistoryService subscribes the ledger to the bus.
func NewHistoryService(cfg *config.Config, l *ledger.Ledger, bus *eventbus.Bus) *HistoryService {
	s := &HistoryService{cfg: cfg, ledger: l}
	bus.Subscribe(eventbus.EventTypeReading, s.recordReading)
	bus.Subscribe(eventbus.EventTypeLED, s.recordLED)
	bus.Subscribe(eventbus.EventTypeStream, s.recordStream)
	return s
}

func (s *HistoryService) recordReading(e eventbus.Event) {
	res, ok := e.Payload.(sensor.Result)
	if !ok {
		return
	}

	var err error
	switch {
	case res.Err != nil:
		err = s.ledger.Append(ledger.EventReadingFailed, "", res.At, map[string]any{"error": res.Err.Error()})
	case res.Reading.Failed():
		err = s.ledger.Append(ledger.EventReadingFailed, "", res.At, map[string]any{"error": res.Reading.Error})
	default:
		err = s.ledger.Append(ledger.EventReading, "", res.At, map[string]any{
			"temperature": res.Reading.Temperature,
			"humidity":    res.Reading.Humidity,
		})
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to record reading")
	}
}

func (s *HistoryService) recordLED(e eventbus.Event) {
	change, ok := e.Payload.(led.Change)
	if !ok {
		return
	}
	c := change.State.Color
	err := s.ledger.Append(ledger.EventLEDRequested, change.RequestID, change.At, map[string]any{
		"button": string(change.Button),
		"r":      c.R,
		"g":      c.G,
		"b":      c.B,
	})
	if err != nil {
		log.Error().Err(err).Str("request_id", change.RequestID).Msg("Failed to record LED request")
	}
}

func (s *HistoryService) recordStream(e eventbus.Event) {
	if err := s.ledger.Append(ledger.EventStreamLoaded, "", e.At, nil); err != nil {
		log.Error().Err(err).Msg("Failed to record stream load")
	}
}

// Run prunes entries past the retention period on the cleanup interval.
func (s *HistoryService) Run(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	ticker := time.NewTicker(s.cfg.Ledger.CleanupInterval.Duration())
	defer ticker.Stop()

	s.cleanup(retention)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(retention)
		}
	}
}

func (s *HistoryService) cleanup(retention time.Duration) {
	n, err := s.ledger.DeleteOlderThan(retention)
	if err != nil {
		log.Error().Err(err).Msg("Ledger cleanup failed")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Ledger cleanup")
	}
}
