package device

import (
	"errors"
	"fmt"
)

// Channel levels the panel drives the LED to.
const (
	ChannelOff uint8 = 0
	ChannelOn  uint8 = 255
)

// Color is an RGB LED color as sent to /led.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Black and White are the all-off and all-on colors.
var (
	Black = Color{}
	White = Color{R: ChannelOn, G: ChannelOn, B: ChannelOn}
)

// IsOff reports whether every channel is zero.
func (c Color) IsOff() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// Query encodes the color as the r, g and b query parameters, in that order.
func (c Color) Query() string {
	return fmt.Sprintf("r=%d&g=%d&b=%d", c.R, c.G, c.B)
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Reading is one /dht response.
type Reading struct {
	// Error holds the board's error value when it could not read the sensor.
	Error       any     `json:"error,omitempty"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Failed reports whether the board flagged the reading as an error. JSON
// null, false, 0 and "" are not errors; any other value is.
func (r Reading) Failed() bool {
	switch v := r.Error.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

var errIncomplete = errors.New("reading has no temperature or humidity")

type rawReading struct {
	Error       any      `json:"error"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

func (raw rawReading) reading() (Reading, error) {
	r := Reading{Error: raw.Error}
	if r.Failed() {
		return r, nil
	}
	if raw.Temperature == nil || raw.Humidity == nil {
		return Reading{}, errIncomplete
	}
	r.Temperature = *raw.Temperature
	r.Humidity = *raw.Humidity
	return r, nil
}
