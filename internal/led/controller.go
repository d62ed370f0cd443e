package led

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/device"
	"github.com/dokzlo13/espanel/internal/view"
)

// Notifier sends a color to the LED.
type Notifier interface {
	SetColor(ctx context.Context, color device.Color) error
}

// Change describes one button press and its outcome.
type Change struct {
	RequestID string
	Button    Button
	State     State
	At        time.Time
}

// Controller owns the session's LED state and the four button elements.
// Presses are serialized; the /led request each press issues is sent in the
// background, unordered relative to other presses, and its result never
// affects the state or the buttons.
type Controller struct {
	mu        sync.Mutex
	state     State
	notifier  Notifier
	buttons   map[Button]*view.Element
	observers []func(Change)

	inflight sync.WaitGroup
}

// NewController resolves the button elements in doc and renders the initial
// state onto them. No request is sent at construction.
func NewController(doc *view.Document, notifier Notifier) (*Controller, error) {
	c := &Controller{
		state:    InitialState(),
		notifier: notifier,
		buttons:  make(map[Button]*view.Element, len(Buttons)),
	}
	for _, b := range Buttons {
		el, err := doc.Element(string(b))
		if err != nil {
			return nil, err
		}
		c.buttons[b] = el
	}
	c.syncButtons()
	return c, nil
}

// OnChange registers fn to be called after every press. fn runs while the
// controller is locked and must not block or press buttons.
func (c *Controller) OnChange(fn func(Change)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Press applies button b, sends the new color and updates the buttons. The
// request outlives ctx's cancellation so that a press from a short-lived
// HTTP request still reaches the board.
func (c *Controller) Press(ctx context.Context, b Button) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Apply(c.state, b)
	change := Change{
		RequestID: uuid.NewString(),
		Button:    b,
		State:     c.state,
		At:        time.Now(),
	}

	log.Debug().
		Str("button", string(b)).
		Str("color", c.state.Color.String()).
		Str("last", c.state.Last.String()).
		Msg("Button pressed")

	c.send(context.WithoutCancel(ctx), change)
	c.syncButtons()

	for _, fn := range c.observers {
		fn(change)
	}
	return c.state
}

func (c *Controller) send(ctx context.Context, change Change) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := c.notifier.SetColor(ctx, change.State.Color); err != nil {
			log.Debug().
				Err(err).
				Str("request_id", change.RequestID).
				Msg("LED request failed")
		}
	}()
}

// Wait blocks until every /led request issued so far has returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// syncButtons must be called with c.mu held.
func (c *Controller) syncButtons() {
	for _, b := range Buttons {
		c.buttons[b].ToggleClass(view.ClassActive, Active(c.state.Color, b))
	}
}
