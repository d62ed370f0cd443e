// Package stream swaps the camera placeholder for the live stream once the
// stream has loaded.
package stream

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/view"
)

// Prober opens the camera stream and returns nil once it has loaded.
type Prober interface {
	ProbeStream(ctx context.Context) error
}

// Switch hides the placeholder container and shows the stream element the
// first time the stream loads. If it never loads the placeholder stays.
type Switch struct {
	prober      Prober
	stream      *view.Element
	placeholder *view.Element

	once   sync.Once
	loaded chan struct{}
}

// NewSwitch resolves the stream and placeholder elements in doc.
func NewSwitch(doc *view.Document, prober Prober) (*Switch, error) {
	els, err := doc.Elements(view.CameraStream, view.Container)
	if err != nil {
		return nil, err
	}
	return &Switch{
		prober:      prober,
		stream:      els[0],
		placeholder: els[1],
		loaded:      make(chan struct{}),
	}, nil
}

// Run probes the stream once. On success the view is switched; on failure
// nothing changes.
func (s *Switch) Run(ctx context.Context) {
	if err := s.prober.ProbeStream(ctx); err != nil {
		log.Debug().Err(err).Msg("Camera stream did not load")
		return
	}
	s.OnLoad()
}

// OnLoad performs the switch. Only the first call has an effect.
func (s *Switch) OnLoad() {
	s.once.Do(func() {
		s.placeholder.SetDisplay(view.DisplayNone)
		s.stream.SetDisplay(view.DisplayBlock)
		close(s.loaded)
		log.Info().Msg("Camera stream loaded")
	})
}

// Loaded is closed once the stream has loaded.
func (s *Switch) Loaded() <-chan struct{} {
	return s.loaded
}
