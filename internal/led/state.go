// Package led implements the RGB LED toggle panel: four buttons driving a
// color state machine whose result is pushed to the board's /led endpoint.
package led

import (
	"fmt"

	"github.com/dokzlo13/espanel/internal/device"
	"github.com/dokzlo13/espanel/internal/view"
)

// Button identifies one of the four panel buttons.
type Button string

const (
	ButtonRed   Button = view.BtnRed
	ButtonGreen Button = view.BtnGreen
	ButtonBlue  Button = view.BtnBlue
	ButtonOff   Button = view.BtnOff
)

// Buttons lists every button in display order.
var Buttons = []Button{ButtonRed, ButtonGreen, ButtonBlue, ButtonOff}

// ParseButton maps an element identifier to a Button.
func ParseButton(id string) (Button, error) {
	b := Button(id)
	if _, ok := transitions[b]; !ok {
		return "", fmt.Errorf("unknown button %q", id)
	}
	return b, nil
}

// State is the session's LED state: the requested color and the color the
// off button restores.
type State struct {
	Color device.Color `json:"color"`
	Last  device.Color `json:"last"`
}

// InitialState is the state at panel start: LED off, white as restore target.
func InitialState() State {
	return State{Color: device.Black, Last: device.White}
}

// Transition computes the state after a button press.
type Transition func(State) State

var transitions = map[Button]Transition{
	ButtonRed:   toggleChannel(func(c *device.Color) *uint8 { return &c.R }),
	ButtonGreen: toggleChannel(func(c *device.Color) *uint8 { return &c.G }),
	ButtonBlue:  toggleChannel(func(c *device.Color) *uint8 { return &c.B }),
	ButtonOff:   togglePower,
}

// Apply returns the state after pressing b. Unknown buttons leave s unchanged.
func Apply(s State, b Button) State {
	t, ok := transitions[b]
	if !ok {
		return s
	}
	return t(s)
}

// toggleChannel flips one channel between off and full, then records the
// result as the restore color even when the result is black.
func toggleChannel(channel func(*device.Color) *uint8) Transition {
	return func(s State) State {
		ch := channel(&s.Color)
		if *ch > 0 {
			*ch = device.ChannelOff
		} else {
			*ch = device.ChannelOn
		}
		s.Last = s.Color
		return s
	}
}

func togglePower(s State) State {
	if s.Color.IsOff() {
		s.Color = s.Last
		return s
	}
	s.Last = s.Color
	s.Color = device.Black
	return s
}

// Active reports whether button b should render as pressed for color c.
func Active(c device.Color, b Button) bool {
	switch b {
	case ButtonRed:
		return c.R > 0
	case ButtonGreen:
		return c.G > 0
	case ButtonBlue:
		return c.B > 0
	case ButtonOff:
		return c.IsOff()
	}
	return false
}
