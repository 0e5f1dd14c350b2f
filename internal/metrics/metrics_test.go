package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/lap_timer/internal/lap"
	"github.com/relabs-tech/lap_timer/internal/ranger"
)

func TestObserveDistance(t *testing.T) {
	m := New()
	m.ObserveDistance(87.5)
	m.ObserveDistance(ranger.NoEcho)
	m.ObserveDistance(ranger.NoEcho)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RangingTimeouts))
	assert.Equal(t, 87.5, testutil.ToFloat64(m.Distance))
}

func TestRecorderObserver(t *testing.T) {
	m := New()
	rec := lap.NewRecorder(lap.Discard, lap.DefaultThresholds, lap.WithObserver(m))
	rec.Reset(lap.Normal)
	start := time.Now()
	rec.Enter(start)
	rec.Enter(start.Add(2 * time.Second))
	rec.Enter(start.Add(5 * time.Second))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.GateEntries))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LapsRecorded))
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.LastLapSeconds), 1e-9)
}

func TestCountNotifications(t *testing.T) {
	m := New()
	var got []string
	n := m.CountNotifications(lap.NotifierFunc(func(msg string) { got = append(got, msg) }))

	for _, msg := range []string{"start", "0.00,0.00,0.00,0.00", "1.00,0.00,0.00,0.00", "pong", "end"} {
		n.Notify(msg)
	}

	assert.Len(t, got, 5)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("laps")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("end")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("pong")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.CommandHandled("reset")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `laptimer_commands_total{command="reset"} 1`)
}
