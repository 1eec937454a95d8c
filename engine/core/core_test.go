package core

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetLogOutput(io.Discard)
}

type codedErr struct{}

func (codedErr) Error() string      { return "device removed" }
func (codedErr) ResultCode() int64 { return 0x887A0005 }

func TestFatalPanicsWithFatalError(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		fe, ok := r.(*FatalError)
		require.True(t, ok)
		assert.Equal(t, "CreateBuffer", fe.Op)
		assert.Equal(t, int64(0x887A0005), fe.Code)
		assert.Contains(t, fe.Error(), "0x887A0005")
		var c codedErr
		assert.True(t, errors.As(fe, &c))
	}()
	Fatal("CreateBuffer", codedErr{})
}

func TestFatalLogsMessageVerbatim(t *testing.T) {
	var out bytes.Buffer
	SetLogOutput(&out)
	defer SetLogOutput(io.Discard)

	assert.Panics(t, func() { Fatal("Compile", errors.New("expected 100% of %d inputs")) })
	assert.Contains(t, out.String(), "expected 100% of %d inputs")
	assert.NotContains(t, out.String(), "%!")
}

func TestAssert(t *testing.T) {
	assert.NotPanics(t, func() { Assert(true, "op", "never") })
	defer func() {
		fe := recover().(*FatalError)
		assert.ErrorIs(t, fe, ErrAssertion)
		assert.Contains(t, fe.Error(), "slot 3")
	}()
	Assert(false, "op", "slot %d", 3)
}

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, l)

	l, err = ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, l)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestEventBus(t *testing.T) {
	eb := NewEventBus()
	var got []uint32
	first := &struct{ n int }{}
	second := &struct{ n int }{}

	assert.True(t, eb.Register(EVENT_CODE_RESIZED, first, func(ctx EventContext) bool {
		se := ctx.Data.(*SystemEvent)
		got = append(got, se.WindowWidth)
		return false
	}))
	assert.False(t, eb.Register(EVENT_CODE_RESIZED, first, func(EventContext) bool { return true }))
	assert.True(t, eb.Register(EVENT_CODE_RESIZED, second, func(EventContext) bool { return true }))

	handled := eb.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 640, WindowHeight: 480}})
	assert.True(t, handled)
	assert.Equal(t, []uint32{640}, got)

	assert.True(t, eb.Unregister(EVENT_CODE_RESIZED, second))
	assert.False(t, eb.Unregister(EVENT_CODE_RESIZED, second))
	assert.False(t, eb.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 800}}))
	assert.Equal(t, []uint32{640, 800}, got)

	assert.False(t, eb.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	// 101 frames of 10ms cross the one second mark once.
	for i := 0; i < 71; i++ {
		m.Update(0.010)
	}
	assert.Equal(t, 100.0, m.FPS())
}

func TestClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	assert.Equal(t, 0.0, c.Elapsed())

	c.Start()
	now = now.Add(1500 * time.Millisecond)
	c.Update()
	assert.InDelta(t, 1.5, c.Elapsed(), 1e-9)

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	assert.InDelta(t, 1.5, c.Elapsed(), 1e-9)
}
