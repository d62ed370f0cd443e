// Package device talks to the ESP32 camera board over its HTTP endpoints.
package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Board endpoint paths.
const (
	PathDHT    = "/dht"
	PathLED    = "/led"
	PathStream = "/stream"
)

// ErrStatus is returned when the board answers with a non-200 status.
var ErrStatus = errors.New("unexpected status code")

// Client provides access to the board's sensor, LED and stream endpoints
type Client struct {
	address    string
	streamURL  string
	httpClient *http.Client
}

// NewClient creates a new board client. A zero timeout leaves requests
// bounded only by their context.
func NewClient(address string, timeout time.Duration) *Client {
	return &Client{
		address:    address,
		streamURL:  address + PathStream,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithStreamURL overrides the camera stream location. It must be the URL
// the panel page embeds, so the probe sees what browsers see.
func (c *Client) WithStreamURL(url string) *Client {
	c.streamURL = url
	return c
}

// StreamURL returns the probed camera stream URL.
func (c *Client) StreamURL() string {
	return c.streamURL
}

// Address returns the board base URL.
func (c *Client) Address() string {
	return c.address
}

// Close closes idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) get(ctx context.Context, path, rawQuery string) (*http.Response, error) {
	u := c.address + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return c.do(ctx, u)
}

func (c *Client) do(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// FetchReading performs GET /dht and decodes the JSON body. A reading whose
// error flag is set is returned as-is; only transport and decode failures
// produce an error.
func (c *Client) FetchReading(ctx context.Context) (Reading, error) {
	resp, err := c.get(ctx, PathDHT, "")
	if err != nil {
		return Reading{}, fmt.Errorf("request %s: %w", PathDHT, err)
	}
	defer resp.Body.Close()

	var raw rawReading
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Reading{}, fmt.Errorf("decode %s: %w", PathDHT, err)
	}
	return raw.reading()
}

// SetColor performs GET /led?r=&g=&b=. The response body is discarded.
func (c *Client) SetColor(ctx context.Context, color Color) error {
	resp, err := c.get(ctx, PathLED, color.Query())
	if err != nil {
		return fmt.Errorf("request %s: %w", PathLED, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Debug().
		Str("color", color.String()).
		Int("status", resp.StatusCode).
		Msg("LED color sent")
	return nil
}

// ProbeStream opens the camera stream and returns once the board has
// answered with 200 and at least one byte of the stream. The connection is
// closed afterwards.
func (c *Client) ProbeStream(ctx context.Context) error {
	resp, err := c.do(ctx, c.streamURL)
	if err != nil {
		return fmt.Errorf("request stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	var b [1]byte
	if _, err := io.ReadFull(resp.Body, b[:]); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
