package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/lap_timer/internal/lap"
)

type sink struct{ msgs []string }

func (s *sink) Notify(msg string) { s.msgs = append(s.msgs, msg) }

type tally map[string]int

func (t tally) CommandHandled(name string) { t[name]++ }

func newGate() (*lap.Recorder, *sink, *Interpreter) {
	s := &sink{}
	rec := lap.NewRecorder(s, lap.DefaultThresholds)
	return rec, s, New(rec, s)
}

func TestHandle_Reset(t *testing.T) {
	rec, s, in := newGate()

	assert.True(t, in.Handle("reset"))

	st := rec.State()
	assert.True(t, st.Armed)
	assert.Equal(t, lap.Normal, st.Mode)
	assert.Equal(t, lap.LapSet{}, st.Laps)
	assert.Equal(t, []string{"0.00,0.00,0.00,0.00"}, s.msgs)
}

func TestHandle_Test(t *testing.T) {
	rec, s, in := newGate()

	assert.True(t, in.Handle("test"))

	st := rec.State()
	assert.True(t, st.Armed)
	assert.Equal(t, lap.Rolling, st.Mode)
	assert.Equal(t, []string{"0.00,0.00,0.00,0.00"}, s.msgs)
}

func TestHandle_Stop(t *testing.T) {
	rec, s, in := newGate()
	in.Handle("reset")
	now := time.Now()
	rec.Enter(now)
	rec.Enter(now.Add(1500 * time.Millisecond))
	s.msgs = nil

	assert.True(t, in.Handle("stop"))

	st := rec.State()
	assert.False(t, st.Armed)
	assert.InDelta(t, 1.5, st.Laps[0], 1e-9, "stop keeps recorded laps")
	assert.Empty(t, s.msgs)
}

func TestHandle_PingDoesNotTouchState(t *testing.T) {
	rec, s, in := newGate()
	in.Handle("test")
	rec.Enter(time.Now())
	before := rec.State()
	s.msgs = nil

	assert.True(t, in.Handle("ping"))

	assert.Equal(t, before, rec.State())
	assert.Equal(t, []string{"pong"}, s.msgs)
}

func TestHandle_UnknownIsIgnored(t *testing.T) {
	rec, s, in := newGate()
	in.Handle("reset")
	now := time.Now()
	rec.Step(50, now)
	rec.Step(50, now.Add(2*time.Second))
	before := rec.State()
	s.msgs = nil

	for _, cmd := range []string{"", "RESET", "reset\n", " stop", "pong", "start", "laps"} {
		assert.False(t, in.Handle(cmd), "%q", cmd)
	}

	assert.Equal(t, before, rec.State())
	assert.Empty(t, s.msgs)
}

func TestHandle_CountsRecognisedCommands(t *testing.T) {
	_, _, in := newGate()
	c := tally{}
	in.WithCounter(c)

	for _, cmd := range []string{"ping", "ping", "stop", "bogus", "reset"} {
		in.Handle(cmd)
	}

	assert.Equal(t, tally{"ping": 2, "stop": 1, "reset": 1}, c)
}

type turnLog struct {
	depth int
	calls int
}

func (s *turnLog) Do(fn func()) {
	s.depth++
	s.calls++
	fn()
	s.depth--
}

func TestHandle_RunsInsideSerializer(t *testing.T) {
	s := &sink{}
	turn := &turnLog{}
	rec := lap.NewRecorder(lap.NotifierFunc(func(msg string) {
		assert.Equal(t, 1, turn.depth, "%q sent outside the serializer", msg)
		s.Notify(msg)
	}), lap.DefaultThresholds)
	in := New(rec, lap.NotifierFunc(func(msg string) {
		assert.Equal(t, 1, turn.depth, "%q sent outside the serializer", msg)
		s.Notify(msg)
	})).WithSerializer(turn)

	assert.True(t, in.Handle("reset"))
	assert.True(t, in.Handle("ping"))
	assert.False(t, in.Handle("bogus"))

	assert.Equal(t, 3, turn.calls)
	assert.Equal(t, []string{"0.00,0.00,0.00,0.00", "pong"}, s.msgs)
}
