package device_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/espanel/internal/device"
	"github.com/dokzlo13/espanel/internal/simulator"
)

func newBoard(t *testing.T) (*simulator.Board, *device.Client) {
	t.Helper()
	board := simulator.NewBoard()
	ts := httptest.NewServer(board.Handler())
	t.Cleanup(ts.Close)
	return board, device.NewClient(ts.URL, 2*time.Second)
}

func TestFetchReading(t *testing.T) {
	board, client := newBoard(t)
	board.SetReading(21.456, 55.01)

	r, err := client.FetchReading(context.Background())
	require.NoError(t, err)
	assert.False(t, r.Failed())
	assert.InDelta(t, 21.456, r.Temperature, 1e-9)
	assert.InDelta(t, 55.01, r.Humidity, 1e-9)
}

func TestFetchReading_SensorError(t *testing.T) {
	board, client := newBoard(t)
	board.SetSensorFailure(true)

	r, err := client.FetchReading(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Failed())
	assert.Equal(t, simulator.SensorErrorMessage, r.Error)
}

func TestFetchReading_BadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not_json", "<html>oops</html>"},
		{"null", "null"},
		{"missing_humidity", `{"temperature": 20}`},
		{"falsy_error_no_values", `{"error": false}`},
		{"wrong_type", `{"temperature": "hot", "humidity": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := device.NewClient(ts.URL, time.Second).FetchReading(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestFetchReading_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	_, err := device.NewClient(addr, time.Second).FetchReading(context.Background())
	assert.Error(t, err)
}

func TestSetColor(t *testing.T) {
	board, client := newBoard(t)

	require.NoError(t, client.SetColor(context.Background(), device.Color{R: 255}))
	require.NoError(t, client.SetColor(context.Background(), device.White))

	assert.Equal(t, []device.Color{{R: 255}, device.White}, board.Colors())
}

func TestSetColor_QueryOrder(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RequestURI()
	}))
	defer ts.Close()

	err := device.NewClient(ts.URL, time.Second).SetColor(context.Background(), device.Color{R: 255, B: 255})
	require.NoError(t, err)
	assert.Equal(t, "/led?r=255&g=0&b=255", got)
}

func TestProbeStream(t *testing.T) {
	board, client := newBoard(t)
	require.NoError(t, client.ProbeStream(context.Background()))

	board.SetStreamDown(true)
	assert.ErrorIs(t, client.ProbeStream(context.Background()), device.ErrStatus)
}

func TestProbeStream_CustomURL(t *testing.T) {
	board, client := newBoard(t)
	board.SetStreamDown(true)

	camera := simulator.NewBoard()
	cameraSrv := httptest.NewServer(camera.Handler())
	t.Cleanup(cameraSrv.Close)

	client.WithStreamURL(cameraSrv.URL + "/stream")
	assert.Equal(t, cameraSrv.URL+"/stream", client.StreamURL())
	require.NoError(t, client.ProbeStream(context.Background()))

	client.WithStreamURL(cameraSrv.URL + "/missing")
	assert.ErrorIs(t, client.ProbeStream(context.Background()), device.ErrStatus)
}

func TestReadingFailed(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{float64(0), false},
		{float64(1), true},
		{"", false},
		{"boom", true},
		{map[string]any{}, true},
		{[]any{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, device.Reading{Error: tt.value}.Failed(), "%#v", tt.value)
	}
}
