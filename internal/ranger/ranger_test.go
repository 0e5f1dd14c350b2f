package ranger

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// fakeClock only moves when an echo edge is simulated.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

// edge is one level change on the echo line, after the previous one.
type edge struct {
	after time.Duration
	level gpio.Level
}

func rise(after time.Duration) edge { return edge{after, gpio.High} }
func fall(after time.Duration) edge { return edge{after, gpio.Low} }

// echoPin replays scripted edges on a fake clock instead of waiting on real
// hardware. Edges the pin is not armed for pass by unreported. Arming for
// the rising edge starts the script over.
type echoPin struct {
	gpiotest.Pin
	clock *fakeClock
	edges []edge
	next  int
	armed gpio.Edge
	modes []gpio.Edge
}

func (p *echoPin) In(_ gpio.Pull, e gpio.Edge) error {
	p.armed = e
	p.modes = append(p.modes, e)
	if e == gpio.RisingEdge {
		p.next = 0
	}
	return nil
}

func (p *echoPin) wants(l gpio.Level) bool {
	switch p.armed {
	case gpio.RisingEdge:
		return l == gpio.High
	case gpio.FallingEdge:
		return l == gpio.Low
	default:
		return true
	}
}

func (p *echoPin) WaitForEdge(timeout time.Duration) bool {
	var waited time.Duration
	for p.next < len(p.edges) {
		e := p.edges[p.next]
		waited += e.after
		if waited > timeout {
			break
		}
		p.next++
		if p.wants(e.level) {
			p.clock.t = p.clock.t.Add(waited)
			return true
		}
	}
	p.next = len(p.edges)
	p.clock.t = p.clock.t.Add(timeout)
	return false
}

// badTrigger accepts the initial Low from the constructor and fails after.
type badTrigger struct {
	gpiotest.Pin
	fail bool
}

func (p *badTrigger) Out(l gpio.Level) error {
	if p.fail {
		return errors.New("gpio: write failed")
	}
	return p.Pin.Out(l)
}

func newTestSensor(t *testing.T, edges ...edge) (*HCSR04, *echoPin) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(0, 0)}
	trig := &gpiotest.Pin{N: "trig"}
	echo := &echoPin{Pin: gpiotest.Pin{N: "echo"}, clock: clock, edges: edges}
	s, err := NewHCSR04(trig, echo, 30*time.Millisecond)
	require.NoError(t, err)
	s.now = clock.now
	return s, echo
}

func TestPulseToCentimeters(t *testing.T) {
	// 58µs per centimetre round trip, per the datasheet.
	assert.InDelta(t, 100.0, PulseToCentimeters(5882*time.Microsecond), 0.01)
	assert.Equal(t, 0.0, PulseToCentimeters(0))
}

func TestHCSR04_Measure(t *testing.T) {
	s, echo := newTestSensor(t, rise(200*time.Microsecond), fall(5882*time.Microsecond))
	assert.InDelta(t, 100.0, s.Measure(), 0.01)
	assert.Equal(t, []gpio.Edge{gpio.RisingEdge, gpio.FallingEdge}, echo.modes)
}

func TestHCSR04_NoEchoTimesOut(t *testing.T) {
	s, _ := newTestSensor(t)
	assert.Equal(t, NoEcho, s.Measure())
}

func TestHCSR04_PulseTooLong(t *testing.T) {
	// Rising edge arrives, but the pulse outlasts the remaining budget.
	s, _ := newTestSensor(t, rise(10*time.Millisecond), fall(25*time.Millisecond))
	assert.Equal(t, NoEcho, s.Measure())
}

func TestHCSR04_StaleFallingEdgeIsSkipped(t *testing.T) {
	// The previous pulse was still high when its sample timed out.
	s, _ := newTestSensor(t,
		fall(100*time.Microsecond),
		rise(200*time.Microsecond),
		fall(5882*time.Microsecond))
	assert.InDelta(t, 100.0, s.Measure(), 0.01)
}

func TestHCSR04_TriggerFailure(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	trig := &badTrigger{Pin: gpiotest.Pin{N: "trig"}}
	echo := &echoPin{
		Pin:   gpiotest.Pin{N: "echo"},
		clock: &fakeClock{t: time.Unix(0, 0)},
		edges: []edge{rise(200 * time.Microsecond), fall(5882 * time.Microsecond)},
	}
	s, err := NewHCSR04(trig, echo, 30*time.Millisecond)
	require.NoError(t, err)
	s.now = echo.clock.now

	trig.fail = true
	assert.Equal(t, NoEcho, s.Measure())
	assert.Equal(t, 0, echo.next, "no echo wait after a failed trigger")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "ranger: trigger pulse", hook.LastEntry().Message)
}

func TestHCSR04_RepeatedMeasurements(t *testing.T) {
	s, _ := newTestSensor(t, rise(time.Millisecond), fall(2941*time.Microsecond))
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 50.0, s.Measure(), 0.01, "measurement %d", i)
	}
}

func TestNewHCSR04_RejectsZeroTimeout(t *testing.T) {
	_, err := NewHCSR04(&gpiotest.Pin{N: "t"}, &gpiotest.Pin{N: "e"}, 0)
	assert.Error(t, err)
}

func TestLookupHCSR04(t *testing.T) {
	trig := &gpiotest.Pin{N: "LAPTIMER_TRIG", Num: 904}
	echo := &gpiotest.Pin{N: "LAPTIMER_ECHO", Num: 905}
	require.NoError(t, gpioreg.Register(trig))
	require.NoError(t, gpioreg.Register(echo))
	t.Cleanup(func() {
		gpioreg.Unregister(trig.Name())
		gpioreg.Unregister(echo.Name())
	})

	s, err := lookupHCSR04("LAPTIMER_TRIG", "LAPTIMER_ECHO", 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, gpio.Low, trig.Read())
	assert.NoError(t, s.Halt())

	_, err = lookupHCSR04("LAPTIMER_NOPE", "LAPTIMER_ECHO", 30*time.Millisecond)
	assert.Error(t, err)
	_, err = lookupHCSR04("LAPTIMER_TRIG", "LAPTIMER_NOPE", 30*time.Millisecond)
	assert.Error(t, err)
}

func TestSimulated(t *testing.T) {
	s := NewSimulated(10*time.Second, 300*time.Millisecond)
	base := s.start
	cases := []struct {
		offset time.Duration
		want   float64
	}{
		{0, 40},
		{299 * time.Millisecond, 40},
		{300 * time.Millisecond, 250},
		{9 * time.Second, 250},
		{10*time.Second + 100*time.Millisecond, 40},
	}
	for _, c := range cases {
		s.now = func() time.Time { return base.Add(c.offset) }
		assert.Equal(t, c.want, s.Measure(), "offset %s", c.offset)
	}
}

func TestScripted(t *testing.T) {
	s := NewScripted(150, 90)
	assert.Equal(t, 2, s.Remaining())
	assert.Equal(t, 150.0, s.Measure())
	assert.Equal(t, 90.0, s.Measure())
	assert.Equal(t, NoEcho, s.Measure())
	assert.Equal(t, 0, s.Remaining())
}
