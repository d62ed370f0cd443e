// Package simulator imitates the ESP32 camera board's HTTP surface: the DHT
// sensor endpoint, the LED endpoint and the MJPEG camera stream.
package simulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/device"
)

// SensorErrorMessage is what the firmware reports when the DHT read fails.
const SensorErrorMessage = "Failed to read from DHT sensor"

const streamBoundary = "123456789000000000000987654321"

// Board is an in-memory board. It is safe for concurrent use.
type Board struct {
	mu          sync.Mutex
	reading     device.Reading
	sensorFails bool
	dhtDelay    time.Duration
	colors      []device.Color
	dhtCalls    int
	frame       []byte
	frameDelay  time.Duration
	streamDown  bool
}

// NewBoard creates a board reporting 21.0°C / 50.0% with a working camera.
func NewBoard() *Board {
	return &Board{
		reading:    device.Reading{Temperature: 21, Humidity: 50},
		frame:      placeholderJPEG,
		frameDelay: 100 * time.Millisecond,
	}
}

// SetReading sets the values served by /dht and clears any sensor failure.
func (b *Board) SetReading(temperature, humidity float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reading = device.Reading{Temperature: temperature, Humidity: humidity}
	b.sensorFails = false
}

// SetSensorFailure makes /dht answer with the firmware's error body.
func (b *Board) SetSensorFailure(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sensorFails = fail
}

// SetDHTDelay delays every /dht response.
func (b *Board) SetDHTDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dhtDelay = d
}

// SetStreamDown makes /stream answer 503.
func (b *Board) SetStreamDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamDown = down
}

// Colors returns every color received on /led, in arrival order.
func (b *Board) Colors() []device.Color {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]device.Color(nil), b.colors...)
}

// DHTCalls returns how many /dht requests were served.
func (b *Board) DHTCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dhtCalls
}

// Handler returns the board's HTTP handler.
func (b *Board) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+device.PathDHT, b.handleDHT)
	mux.HandleFunc("GET "+device.PathLED, b.handleLED)
	mux.HandleFunc("GET "+device.PathStream, b.handleStream)
	return mux
}

func (b *Board) handleDHT(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.dhtCalls++
	reading, fails, delay := b.reading, b.sensorFails, b.dhtDelay
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if fails {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": SensorErrorMessage})
		return
	}
	json.NewEncoder(w).Encode(reading)
}

func (b *Board) handleLED(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var c device.Color
	for _, ch := range []struct {
		key string
		dst *uint8
	}{{"r", &c.R}, {"g", &c.G}, {"b", &c.B}} {
		v, err := strconv.ParseUint(q.Get(ch.key), 10, 8)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid %s", ch.key), http.StatusBadRequest)
			return
		}
		*ch.dst = uint8(v)
	}

	b.mu.Lock()
	b.colors = append(b.colors, c)
	b.mu.Unlock()

	log.Debug().Str("color", c.String()).Msg("Simulated LED set")
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("OK"))
}

func (b *Board) handleStream(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	down, frame, delay := b.streamDown, b.frame, b.frameDelay
	b.mu.Unlock()

	if down {
		http.Error(w, "camera capture failed", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace;boundary="+streamBoundary)
	flusher, _ := w.(http.Flusher)

	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		if _, err := fmt.Fprintf(w, "\r\n--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(frame)); err != nil {
			return
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// placeholderJPEG is a minimal JPEG (SOI + EOI) used as the stream frame.
var placeholderJPEG = []byte{0xFF, 0xD8, 0xFF, 0xD9}
