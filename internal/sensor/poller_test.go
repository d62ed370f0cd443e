package sensor

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dokzlo13/espanel/internal/device"
	"github.com/dokzlo13/espanel/internal/simulator"
	"github.com/dokzlo13/espanel/internal/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type fetchFunc func(ctx context.Context) (device.Reading, error)

func (f fetchFunc) FetchReading(ctx context.Context) (device.Reading, error) {
	return f(ctx)
}

func newPoller(t *testing.T, f Fetcher, interval time.Duration) (*Poller, *view.Document) {
	t.Helper()
	doc := view.NewPanel()
	p, err := NewPoller(doc, f, interval)
	require.NoError(t, err)
	return p, doc
}

func newBoardClient(t *testing.T) (*simulator.Board, *device.Client) {
	t.Helper()
	board := simulator.NewBoard()
	ts := httptest.NewServer(board.Handler())
	t.Cleanup(ts.Close)
	client := device.NewClient(ts.URL, time.Second)
	t.Cleanup(func() { client.Close() })
	return board, client
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{21.456, "21.5"},
		{55.01, "55.0"},
		{0, "0.0"},
		{-3.04, "-3.0"},
		{100, "100.0"},
		{19.96, "20.0"},
		{21.25, "21.3"},
		{0.25, "0.3"},
		{-0.25, "-0.3"},
		{0.75, "0.8"},
		{0.15, "0.1"},
		{0.05, "0.1"},
		{-0.04, "-0.0"},
		{1234.5, "1234.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in), "%v", tt.in)
	}
}

func TestFetchDhtData_Values(t *testing.T) {
	board, client := newBoardClient(t)
	board.SetReading(21.456, 55.01)
	p, doc := newPoller(t, client, 0)

	p.FetchDhtData(context.Background())

	snap := doc.Snapshot()
	assert.Equal(t, "21.5", snap.Text(view.TemperatureValue))
	assert.Equal(t, "55.0", snap.Text(view.HumidityValue))
}

func TestFetchDhtData_ErrorFlag(t *testing.T) {
	board, client := newBoardClient(t)
	board.SetSensorFailure(true)
	p, doc := newPoller(t, client, 0)

	var got []Result
	p.OnResult(func(r Result) { got = append(got, r) })
	p.FetchDhtData(context.Background())

	snap := doc.Snapshot()
	assert.Equal(t, ErrorText, snap.Text(view.TemperatureValue))
	assert.Equal(t, ErrorText, snap.Text(view.HumidityValue))
	require.Len(t, got, 1)
	assert.False(t, got[0].OK())
	assert.NoError(t, got[0].Err)
}

func TestFetchDhtData_TransportFailure(t *testing.T) {
	p, doc := newPoller(t, fetchFunc(func(context.Context) (device.Reading, error) {
		return device.Reading{}, errors.New("connection refused")
	}), 0)

	temp, err := doc.Element(view.TemperatureValue)
	require.NoError(t, err)
	temp.SetText("20.0")

	p.FetchDhtData(context.Background())

	snap := doc.Snapshot()
	assert.Equal(t, ErrorText, snap.Text(view.TemperatureValue))
	assert.Equal(t, ErrorText, snap.Text(view.HumidityValue))
}

func TestFetchDhtData_RecoversAfterError(t *testing.T) {
	board, client := newBoardClient(t)
	p, doc := newPoller(t, client, 0)

	board.SetSensorFailure(true)
	p.FetchDhtData(context.Background())
	assert.Equal(t, ErrorText, doc.Snapshot().Text(view.HumidityValue))

	board.SetReading(18.24, 40.55)
	p.FetchDhtData(context.Background())
	assert.Equal(t, "18.2", doc.Snapshot().Text(view.TemperatureValue))
}

func TestNewPoller_MissingElement(t *testing.T) {
	_, err := NewPoller(view.NewDocument(view.TemperatureValue), fetchFunc(nil), 0)
	assert.ErrorIs(t, err, view.ErrNoElement)
}

func TestRun_ImmediateThenInterval(t *testing.T) {
	var calls atomic.Int32
	p, doc := newPoller(t, fetchFunc(func(context.Context) (device.Reading, error) {
		calls.Add(1)
		return device.Reading{Temperature: 22, Humidity: 45}, nil
	}), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return doc.Snapshot().Text(view.TemperatureValue) == "22.0"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	<-done
}

func TestRun_ContinuesAfterFailures(t *testing.T) {
	var calls atomic.Int32
	p, doc := newPoller(t, fetchFunc(func(context.Context) (device.Reading, error) {
		if calls.Add(1) < 3 {
			return device.Reading{}, errors.New("timeout")
		}
		return device.Reading{Temperature: 19.95, Humidity: 60}, nil
	}), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		return doc.Snapshot().Text(view.HumidityValue) == "60.0"
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestRun_NoOverlapControl(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	p, _ := newPoller(t, fetchFunc(func(ctx context.Context) (device.Reading, error) {
		started.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
			return device.Reading{}, ctx.Err()
		}
		return device.Reading{}, nil
	}), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	// Several polls start while the first is still blocked.
	assert.Eventually(t, func() bool { return started.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
	close(release)
}

func TestRun_CancelledPollKeepsValues(t *testing.T) {
	p, doc := newPoller(t, fetchFunc(func(ctx context.Context) (device.Reading, error) {
		<-ctx.Done()
		return device.Reading{}, ctx.Err()
	}), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.Equal(t, "--", doc.Snapshot().Text(view.TemperatureValue))
}
