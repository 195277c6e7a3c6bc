package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testIncrement int32 = 100

type mockActuator struct {
	mock.Mock
}

func (m *mockActuator) MoveBy(delta int32) {
	m.Called(delta)
}

// recordingSink keeps every reply in order
type recordingSink struct {
	replies []string
}

func (s *recordingSink) WriteReply(reply []byte) {
	s.replies = append(s.replies, string(reply))
}

func newTestDispatcher() (*Dispatcher, *mockActuator, *recordingSink) {
	actuator := new(mockActuator)
	sink := &recordingSink{}
	return New(actuator, sink, testIncrement), actuator, sink
}

func TestDispatchLX200Replies(t *testing.T) {
	tests := []struct {
		name  string
		token string
		reply string
	}{
		{name: "right ascension", token: ":GR#", reply: "12:00:00#"},
		{name: "declination", token: ":GD#", reply: "+45*00#"},
		{name: "sync with terminator", token: ":CM#", reply: "M31 EXCALIBUR#"},
		{name: "sync without terminator", token: ":CM", reply: "M31 EXCALIBUR#"},
		{name: "declination inside noise", token: "xyz:GD#abc", reply: "+45*00#"},
		{name: "right ascension after noise", token: "\x06\x00:GR#", reply: "12:00:00#"},
		{name: "RA wins over Dec", token: ":GD#:GR#", reply: "12:00:00#"},
		{name: "RA wins over sync", token: ":CM:GR#", reply: "12:00:00#"},
		{name: "Dec wins over sync", token: ":CM#:GD#", reply: "+45*00#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, actuator, sink := newTestDispatcher()

			d.Dispatch([]byte(tt.token))

			assert.Equal(t, []string{tt.reply}, sink.replies)
			actuator.AssertNotCalled(t, "MoveBy", mock.Anything)
		})
	}
}

func TestDispatchFocusMoves(t *testing.T) {
	tests := []struct {
		name  string
		token string
		delta int32
	}{
		{name: "increment", token: "F+", delta: testIncrement},
		{name: "decrement", token: "F-", delta: -testIncrement},
		{name: "increment with noise", token: "..F+..", delta: testIncrement},
		{name: "increment wins over decrement", token: "F-F+", delta: testIncrement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, actuator, sink := newTestDispatcher()
			actuator.On("MoveBy", tt.delta).Once()

			d.Dispatch([]byte(tt.token))

			actuator.AssertExpectations(t)
			actuator.AssertNumberOfCalls(t, "MoveBy", 1)
			assert.Empty(t, sink.replies)
		})
	}
}

func TestDispatchUnmatchedIsSilent(t *testing.T) {
	for _, token := range []string{"hello", "", ":GR", ":GD", "F", "+F", ":Cm#", ":gr#", "\x00\xff"} {
		d, actuator, sink := newTestDispatcher()

		d.Dispatch([]byte(token))

		actuator.AssertNotCalled(t, "MoveBy", mock.Anything)
		assert.Empty(t, sink.replies, "token %q", token)
	}
}

func TestDispatchBothChainsFire(t *testing.T) {
	d, actuator, sink := newTestDispatcher()
	actuator.On("MoveBy", testIncrement).Once()

	d.Dispatch([]byte("F+:GR#"))

	actuator.AssertExpectations(t)
	assert.Equal(t, []string{"12:00:00#"}, sink.replies)
}

func TestDispatchIsIdempotent(t *testing.T) {
	d, actuator, sink := newTestDispatcher()
	actuator.On("MoveBy", -testIncrement).Twice()

	for i := 0; i < 2; i++ {
		d.Dispatch([]byte("F-"))
		d.Dispatch([]byte(":GD#"))
	}

	actuator.AssertExpectations(t)
	assert.Equal(t, []string{"+45*00#", "+45*00#"}, sink.replies)
}

func TestDispatchNilCollaborators(t *testing.T) {
	d := New(nil, nil, testIncrement)

	assert.NotPanics(t, func() {
		d.Dispatch([]byte("F+"))
		d.Dispatch([]byte(":GR#"))
	})
}

func TestClassify(t *testing.T) {
	d := New(nil, nil, testIncrement)

	match := d.Classify([]byte("F-:CM"))
	require.NotNil(t, match.Focus)
	require.NotNil(t, match.LX200)
	assert.Equal(t, "focus-decrement", match.Focus.Name)
	assert.Equal(t, "sync", match.LX200.Name)
	assert.False(t, match.None())

	assert.True(t, d.Classify([]byte("hello")).None())
}

func TestClassifyReturnsCopies(t *testing.T) {
	d := New(nil, nil, testIncrement)

	match := d.Classify([]byte(":GR#"))
	require.NotNil(t, match.LX200)
	match.LX200.Reply = "tampered#"

	sink := &recordingSink{}
	New(nil, sink, testIncrement).Dispatch([]byte(":GR#"))
	assert.Equal(t, []string{"12:00:00#"}, sink.replies)
	assert.Equal(t, "12:00:00#", d.Classify([]byte(":GR#")).LX200.Reply)
}

func TestRulesOrder(t *testing.T) {
	d := New(nil, nil, testIncrement)

	var names []string
	for _, rule := range d.Rules() {
		names = append(names, rule.Name)
	}

	assert.Equal(t, []string{
		"focus-increment",
		"focus-decrement",
		"get-right-ascension",
		"get-declination",
		"sync",
	}, names)
	assert.Equal(t, testIncrement, d.Increment())
}

func TestDispatchLogsIgnoredTokens(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := New(nil, nil, testIncrement, WithLogger(zap.New(core)))

	d.Dispatch([]byte("hello"))
	d.Dispatch([]byte(":GD#"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "token ignored", entries[0].Message)
	assert.Equal(t, "lx200 reply", entries[1].Message)
	assert.Equal(t, "get-declination", entries[1].ContextMap()["rule"])
}
