package app

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/espanel/internal/config"
	"github.com/dokzlo13/espanel/internal/device"
	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/ledger"
	"github.com/dokzlo13/espanel/internal/mqtt"
	"github.com/dokzlo13/espanel/internal/simulator"
	"github.com/dokzlo13/espanel/internal/view"
)

func testConfig(t *testing.T, boardURL string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
device:
  address: ` + boardURL + `
  timeout: 2s
panel:
  addr: 127.0.0.1:0
sensor:
  interval: 20ms
database:
  path: ":memory:"
ledger:
  enabled: true
shutdown_timeout: 2s
`))
	require.NoError(t, err)
	return cfg
}

func TestServices_EndToEnd(t *testing.T) {
	board := simulator.NewBoard()
	board.SetReading(21.456, 55.01)
	boardSrv := httptest.NewServer(board.Handler())
	defer boardSrv.Close()

	pub := mqtt.NewFakePublisher()
	s, err := NewServices(testConfig(t, boardSrv.URL), WithPublisher(pub))
	require.NoError(t, err)

	// Startup renders the buttons without touching /led.
	snap := s.Doc.Snapshot()
	assert.True(t, snap.Active(view.BtnOff))
	assert.False(t, snap.Active(view.BtnRed))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, func(err error) { t.Errorf("fatal: %v", err) }))

	require.Eventually(t, func() bool {
		snap := s.Doc.Snapshot()
		return snap.Text(view.TemperatureValue) == "21.5" &&
			snap.Text(view.HumidityValue) == "55.0" &&
			snap.Visible(view.CameraStream) &&
			!snap.Visible(view.Container)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, board.Colors())

	board.SetSensorFailure(true)
	require.Eventually(t, func() bool {
		return s.Doc.Snapshot().Text(view.TemperatureValue) == "Erreur"
	}, 2*time.Second, 10*time.Millisecond)

	s.LED.Press(ctx, led.ButtonRed)
	s.LED.Press(ctx, led.ButtonOff)
	s.LED.Wait()
	assert.ElementsMatch(t, []device.Color{{R: 255}, device.Black}, board.Colors())

	require.Eventually(t, func() bool {
		entries, err := s.Ledger.GetByType(ledger.EventLEDRequested, 10)
		return err == nil && len(entries) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, colors := pub.Counts()
		return colors == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, s.Stop())
	assert.True(t, pub.Closed)
}

func TestServices_HistoryRecordsReadingsAndStream(t *testing.T) {
	board := simulator.NewBoard()
	boardSrv := httptest.NewServer(board.Handler())
	defer boardSrv.Close()

	s, err := NewServices(testConfig(t, boardSrv.URL))
	require.NoError(t, err)
	assert.Nil(t, s.Telemetry)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, nil))

	require.Eventually(t, func() bool {
		readings, err := s.Ledger.GetByType(ledger.EventReading, 10)
		if err != nil || len(readings) == 0 {
			return false
		}
		loads, err := s.Ledger.GetByType(ledger.EventStreamLoaded, 10)
		return err == nil && len(loads) == 1
	}, 2*time.Second, 10*time.Millisecond)

	readings, err := s.Ledger.GetByType(ledger.EventReading, 1)
	require.NoError(t, err)
	assert.Equal(t, 21.0, readings[0].Payload["temperature"])
	assert.Equal(t, s.SessionID, readings[0].SessionID)

	cancel()
	require.NoError(t, s.Stop())
}

func TestServices_StreamDownKeepsPlaceholder(t *testing.T) {
	board := simulator.NewBoard()
	board.SetStreamDown(true)
	boardSrv := httptest.NewServer(board.Handler())
	defer boardSrv.Close()

	s, err := NewServices(testConfig(t, boardSrv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, nil))

	require.Eventually(t, func() bool {
		return s.Doc.Snapshot().Text(view.TemperatureValue) == "21.0"
	}, 2*time.Second, 10*time.Millisecond)

	snap := s.Doc.Snapshot()
	assert.True(t, snap.Visible(view.Container))
	assert.False(t, snap.Visible(view.CameraStream))

	cancel()
	require.NoError(t, s.Stop())
}

func TestServices_ProbesPanelStreamURL(t *testing.T) {
	board := simulator.NewBoard()
	boardSrv := httptest.NewServer(board.Handler())
	defer boardSrv.Close()

	camera := simulator.NewBoard()
	camera.SetStreamDown(true)
	cameraSrv := httptest.NewServer(camera.Handler())
	defer cameraSrv.Close()

	cfg := testConfig(t, boardSrv.URL)
	cfg.Panel.StreamURL = cameraSrv.URL + "/stream"

	s, err := NewServices(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Panel.StreamURL, s.Device.StreamURL())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, nil))

	require.Eventually(t, func() bool {
		return s.Doc.Snapshot().Text(view.TemperatureValue) == "21.0"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, s.Stop())

	// The board's own stream works, but the page embeds the camera URL.
	snap := s.Doc.Snapshot()
	assert.True(t, snap.Visible(view.Container))
	assert.False(t, snap.Visible(view.CameraStream))
}
