package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/config"
	"github.com/dokzlo13/espanel/internal/db"
	"github.com/dokzlo13/espanel/internal/device"
	"github.com/dokzlo13/espanel/internal/eventbus"
	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/ledger"
	"github.com/dokzlo13/espanel/internal/mqtt"
	"github.com/dokzlo13/espanel/internal/sensor"
	"github.com/dokzlo13/espanel/internal/stream"
	"github.com/dokzlo13/espanel/internal/view"
	"github.com/dokzlo13/espanel/internal/web"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// SessionID identifies this panel session in the history.
	SessionID string

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus
	Device *device.Client

	// Panel components
	Doc    *view.Document
	Stream *stream.Switch
	Sensor *sensor.Poller
	LED    *led.Controller
	Hub    *web.Hub

	// High-level services
	Panel     *PanelService
	History   *HistoryService
	Telemetry *TelemetryService

	wg sync.WaitGroup
}

// ServiceOption customizes NewServices.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	publisher mqtt.Publisher
}

// WithPublisher uses p for telemetry instead of dialing the configured broker.
func WithPublisher(p mqtt.Publisher) ServiceOption {
	return func(o *serviceOptions) { o.publisher = p }
}

// NewServices creates all services with proper dependency injection.
// A panel element that cannot be resolved is returned as an error.
func NewServices(cfg *config.Config, opts ...ServiceOption) (*Services, error) {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Services{
		cfg:       cfg,
		SessionID: uuid.NewString(),
	}

	if cfg.Ledger.Enabled {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB, s.SessionID)
	}

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Device = device.NewClient(cfg.Device.Address, cfg.Device.Timeout.Duration()).
		WithStreamURL(cfg.Panel.StreamURL)

	// Panel components, in the order the page initializes them
	s.Doc = view.NewPanel()
	s.Hub = web.NewHub()
	s.Doc.OnChange(s.Hub.Broadcast)

	var err error
	if s.Stream, err = stream.NewSwitch(s.Doc, s.Device); err != nil {
		s.Close()
		return nil, err
	}
	if s.Sensor, err = sensor.NewPoller(s.Doc, s.Device, cfg.Sensor.Interval.Duration()); err != nil {
		s.Close()
		return nil, err
	}
	if s.LED, err = led.NewController(s.Doc, s.Device); err != nil {
		s.Close()
		return nil, err
	}

	s.Sensor.OnResult(func(res sensor.Result) {
		s.Bus.Publish(eventbus.EventTypeReading, res)
	})
	s.LED.OnChange(func(change led.Change) {
		s.Bus.Publish(eventbus.EventTypeLED, change)
	})

	if s.Ledger != nil {
		s.History = NewHistoryService(cfg, s.Ledger, s.Bus)
	}

	publisher := o.publisher
	if publisher == nil && cfg.MQTT.Enabled() {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT unavailable, telemetry disabled")
		} else {
			publisher = p
		}
	}
	if publisher != nil {
		s.Telemetry = NewTelemetryService(publisher, s.Bus)
	}

	s.Panel = NewPanelService(cfg, s.Doc, s.LED, s.Hub)

	return s, nil
}

// Start starts all background services.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	s.goRun(func() {
		s.Stream.Run(ctx)
		select {
		case <-s.Stream.Loaded():
			s.Bus.Publish(eventbus.EventTypeStream, nil)
		default:
		}
	})
	s.goRun(func() { s.Sensor.Run(ctx) })
	s.goRun(func() { s.Panel.Run(ctx, onFatalError) })

	if s.History != nil {
		s.goRun(func() { s.History.Run(ctx) })
	}

	return nil
}

func (s *Services) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Stop waits for background services to return, then releases resources.
// The context passed to Start must already be cancelled.
func (s *Services) Stop() error {
	timeout := s.cfg.GetShutdownTimeout()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.LED.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn().Dur("timeout", timeout).Msg("Services did not stop in time")
	}

	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Telemetry != nil {
		s.Telemetry.Close()
	}
	if s.Device != nil {
		s.Device.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
