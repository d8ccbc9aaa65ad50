package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ErrScriptExhausted is returned by Mock.Read once every scripted
// entry has been consumed and another read is attempted; it indicates
// a test's script is shorter than the code path under test.
var ErrScriptExhausted = errors.New("transport: mock read script exhausted")

// ReadEvent is one scripted response to a single Mock.Read call.
// Every FILINK phase transition reads exactly one byte, so one event
// corresponds to one byte of wire protocol, timeout or not.
type ReadEvent struct {
	Timeout bool
	Data    byte
}

// Byte builds a ReadEvent that returns a single byte.
func Byte(b byte) ReadEvent { return ReadEvent{Data: b} }

// Bytes builds one ReadEvent per byte of bs, in order.
func Bytes(bs ...byte) []ReadEvent {
	events := make([]ReadEvent, len(bs))
	for i, b := range bs {
		events[i] = Byte(b)
	}
	return events
}

// TimedOut builds a ReadEvent that reports a read timeout.
func TimedOut() ReadEvent { return ReadEvent{Timeout: true} }

// Mock is a scripted Transport for unit tests. It yields a
// predetermined sequence of byte-or-timeout responses on Read and
// records every WriteAll call; AssertDone pins both halves of the
// contract at once, per the three properties the test suite requires:
// every scripted input must be consumed, and the write log must match
// exactly.
type Mock struct {
	reads  []ReadEvent
	pos    int
	writes []byte
}

// NewMock creates a Mock scripted with the given sequence of reads.
// Additional reads can be queued later with Queue, useful when a test
// needs to react to an intermediate write before scripting the rest.
func NewMock(reads ...ReadEvent) *Mock {
	return &Mock{reads: reads}
}

// Queue appends more scripted read events.
func (m *Mock) Queue(events ...ReadEvent) {
	m.reads = append(m.reads, events...)
}

// WriteAll records p onto the write log.
func (m *Mock) WriteAll(p []byte) error {
	m.writes = append(m.writes, p...)
	return nil
}

// Read consumes the next scripted event, ignoring the requested
// timeout (the mock is purely script-driven, not time-driven).
func (m *Mock) Read(buf []byte, _ time.Duration) (int, error) {
	if m.pos >= len(m.reads) {
		return 0, ErrScriptExhausted
	}
	e := m.reads[m.pos]
	m.pos++
	if e.Timeout {
		return 0, ErrTimeout
	}
	if len(buf) == 0 {
		return 0, nil
	}
	buf[0] = e.Data
	return 1, nil
}

// Writes returns a copy of the recorded write log.
func (m *Mock) Writes() []byte {
	out := make([]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Pending reports how many scripted read events remain unconsumed.
func (m *Mock) Pending() int {
	return len(m.reads) - m.pos
}

// AssertDone fails t unless every scripted read was consumed and the
// recorded write log equals expectedWrites exactly.
func (m *Mock) AssertDone(t *testing.T, expectedWrites []byte) {
	t.Helper()
	assert.Equal(t, 0, m.Pending(), "not all scripted reads were consumed")
	assert.Equal(t, expectedWrites, m.writes, "write log does not match expected wire bytes")
}
