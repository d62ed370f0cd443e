// Package sensor polls the board's DHT endpoint and renders temperature and
// humidity into the panel.
package sensor

import (
	"context"
	"math"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/espanel/internal/device"
	"github.com/dokzlo13/espanel/internal/view"
)

// ErrorText replaces both values when a reading fails.
const ErrorText = "Erreur"

// DefaultInterval is the polling period.
const DefaultInterval = 5 * time.Second

// Fetcher reads the sensor.
type Fetcher interface {
	FetchReading(ctx context.Context) (device.Reading, error)
}

// Result is the outcome of one poll.
type Result struct {
	Reading device.Reading
	Err     error
	At      time.Time
}

// OK reports whether the poll produced values.
func (r Result) OK() bool {
	return r.Err == nil && !r.Reading.Failed()
}

// Poller fetches readings on a fixed interval. Polls are independent: a slow
// response does not delay the next tick, and a late response may overwrite
// a newer one.
type Poller struct {
	fetcher     Fetcher
	interval    time.Duration
	temperature *view.Element
	humidity    *view.Element

	mu        sync.RWMutex
	observers []func(Result)
	inflight  sync.WaitGroup
}

// NewPoller resolves the value elements in doc. A zero interval uses
// DefaultInterval.
func NewPoller(doc *view.Document, fetcher Fetcher, interval time.Duration) (*Poller, error) {
	els, err := doc.Elements(view.TemperatureValue, view.HumidityValue)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:     fetcher,
		interval:    interval,
		temperature: els[0],
		humidity:    els[1],
	}, nil
}

// OnResult registers fn to receive every poll result after it is rendered.
func (p *Poller) OnResult(fn func(Result)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// FetchDhtData performs one poll and renders its outcome.
func (p *Poller) FetchDhtData(ctx context.Context) {
	reading, err := p.fetcher.FetchReading(ctx)
	if err != nil && ctx.Err() != nil {
		// Shutting down; leave the last values in place.
		return
	}
	res := Result{Reading: reading, Err: err, At: time.Now()}

	switch {
	case err != nil:
		log.Error().Err(err).Msg("Sensor request failed")
		p.render(ErrorText, ErrorText)
	case reading.Failed():
		log.Warn().Interface("error", reading.Error).Msg("Sensor reported an error")
		p.render(ErrorText, ErrorText)
	default:
		p.render(FormatValue(reading.Temperature), FormatValue(reading.Humidity))
	}

	p.mu.RLock()
	observers := p.observers
	p.mu.RUnlock()
	for _, fn := range observers {
		fn(res)
	}
}

// Run polls once immediately and then every interval until ctx is cancelled.
// Each poll runs in its own goroutine; Run waits for them before returning.
func (p *Poller) Run(ctx context.Context) {
	log.Info().Dur("interval", p.interval).Msg("Starting sensor poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.inflight.Wait()

	p.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Sensor poller stopped")
			return
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

func (p *Poller) spawn(ctx context.Context) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.FetchDhtData(ctx)
	}()
}

func (p *Poller) render(temperature, humidity string) {
	p.temperature.SetText(temperature)
	p.humidity.SetText(humidity)
}

var half = big.NewFloat(0.5)

// FormatValue renders v with exactly one fractional digit. The decision is
// made on the exact binary value of v, and an exact tie rounds away from
// zero: 21.25 gives "21.3" while 0.15 (just below 0.15) gives "0.1".
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	// 64 extra bits keep v*10 exact.
	scaled := new(big.Float).SetPrec(128).SetFloat64(v)
	scaled.Mul(scaled, big.NewFloat(10))
	tenths, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(scaled, new(big.Float).SetInt(tenths))
	if frac.Cmp(half) >= 0 {
		tenths.Add(tenths, big.NewInt(1))
	}

	digits := tenths.String()
	if len(digits) < 2 {
		digits = "0" + digits
	}
	return sign + digits[:len(digits)-1] + "." + digits[len(digits)-1:]
}
