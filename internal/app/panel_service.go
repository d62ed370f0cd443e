package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/config"
	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/view"
	"github.com/dokzlo13/espanel/internal/web"
)

// PanelService wraps the panel HTTP server.
type PanelService struct {
	cfg    *config.Config
	server *web.Server
}

// NewPanelService creates a new PanelService.
func NewPanelService(cfg *config.Config, doc *view.Document, leds *led.Controller, hub *web.Hub) *PanelService {
	server := web.NewServer(cfg.Panel.Addr, doc, leds, hub, cfg.Panel.StreamURL)
	return &PanelService{
		cfg:    cfg,
		server: server,
	}
}

// Server returns the underlying HTTP server.
func (s *PanelService) Server() *web.Server {
	return s.server
}

// Run serves the panel until ctx is cancelled. A listen failure is fatal.
func (s *PanelService) Run(ctx context.Context, onFatalError func(error)) {
	if err := s.server.Run(ctx, s.cfg.GetShutdownTimeout()); err != nil {
		log.Error().Err(err).Msg("Panel server error")
		if onFatalError != nil {
			onFatalError(err)
		}
	}
}
