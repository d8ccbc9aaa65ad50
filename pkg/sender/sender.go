// Package sender implements the FILINK sender state machine: it
// announces readiness, negotiates with the receiver, and streams an
// ordered list of files as short-filename headers followed by
// checksummed 128-byte blocks.
package sender

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/filink/filink/pkg/transport"
	"github.com/filink/filink/pkg/wire"
)

// Timeouts fixed by the protocol (spec §5): 5s for the initial
// handshake, 2s for every other read.
const (
	handshakeTimeout = 5 * time.Second
	phaseTimeout     = 2 * time.Second
)

// ErrNoFiles is returned by New when given an empty file list — the
// protocol has nothing to transmit, and this is fatal before any I/O.
var ErrNoFiles = errors.New("sender: no files to send")

// Phase names a state of the sender's finite-state machine. The zero
// value is PhaseInitialHandshake, the phase New creates every engine in.
type Phase int

const (
	PhaseInitialHandshake Phase = iota
	PhaseSendGood
	PhaseRequestFilename
	PhaseTransmitFilename
	PhaseEndFilename
	PhaseCheckMoreData
	PhaseTransmitBlock
	PhaseSendChecksum
	PhaseEndFile
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialHandshake:
		return "InitialHandshake"
	case PhaseSendGood:
		return "SendGood"
	case PhaseRequestFilename:
		return "RequestFilename"
	case PhaseTransmitFilename:
		return "TransmitFilename"
	case PhaseEndFilename:
		return "EndFilename"
	case PhaseCheckMoreData:
		return "CheckMoreData"
	case PhaseTransmitBlock:
		return "TransmitBlock"
	case PhaseSendChecksum:
		return "SendChecksum"
	case PhaseEndFile:
		return "EndFile"
	case PhaseComplete:
		return "Complete"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseError is a fatal error surfaced with the phase it occurred in,
// per spec.md §7's diagnostic requirement.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("sender: %s: %v", e.Phase, e.Err) }
func (e *PhaseError) Unwrap() error { return e.Err }

func phaseErr(p Phase, err error) error { return &PhaseError{Phase: p, Err: err} }

// Outcome is the result of a single Step call.
type Outcome int

const (
	// Pending means the engine made progress (or benignly retried)
	// and the driver loop should call Step again.
	Pending Outcome = iota
	// Complete means the session ended normally (XOFF sent after the
	// last file).
	Complete
)

// Option configures a Sender at construction time.
type Option func(*Sender)

// WithByteDelay sets the per-byte inter-character send delay, a
// throughput knob for the receiver's UART with no protocol semantics
// (0-255ms; values outside that range are clamped).
func WithByteDelay(delay time.Duration) Option {
	return func(s *Sender) {
		if delay < 0 {
			delay = 0
		}
		if delay > 255*time.Millisecond {
			delay = 255 * time.Millisecond
		}
		s.byteDelay = delay
	}
}

// WithLogger attaches a logger; debug-level logging emits one line per
// stimulus and per response (spec.md §7). A nil logger discards all
// output, as the default does.
func WithLogger(logger *log.Logger) Option {
	return func(s *Sender) {
		if logger == nil {
			logger = discardLogger()
		}
		s.log = logger
	}
}

// Sender is the sending half of a FILINK session. It owns its
// Transport and, once opened, the current source file for its entire
// lifetime; Close releases both.
type Sender struct {
	transport transport.Transport
	log       *log.Logger
	byteDelay time.Duration

	files []string // remaining files, head is the one in flight

	current *os.File
	name    wire.ShortName
	cursor  int

	block      [wire.BlockSize]byte
	checksum   byte
	retransmit bool

	phase Phase
}

// New creates a Sender for transmitting files (in order) over t. It
// takes ownership of t. An empty files list is rejected immediately,
// before any I/O occurs, per spec.md's "Empty file list at send time"
// edge case.
func New(t transport.Transport, files []string, opts ...Option) (*Sender, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	cp := make([]string, len(files))
	copy(cp, files)

	s := &Sender{
		transport: t,
		log:       discardLogger(),
		files:     cp,
		phase:     PhaseInitialHandshake,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Phase reports the engine's current state, mainly useful for tests
// and diagnostics.
func (s *Sender) Phase() Phase { return s.phase }

// Close releases the transport (if it implements io.Closer) and any
// open source file. It is safe to call multiple times.
func (s *Sender) Close() error {
	var err error
	if s.current != nil {
		err = s.current.Close()
		s.current = nil
	}
	if closer, ok := s.transport.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Step performs the I/O for the current phase's stimulus-response
// pair and advances the state machine. Callers loop until Step returns
// Complete or a non-nil error.
func (s *Sender) Step() (Outcome, error) {
	switch s.phase {
	case PhaseInitialHandshake:
		return s.stepInitialHandshake()
	case PhaseSendGood:
		return s.stepSendGood()
	case PhaseRequestFilename:
		return s.stepRequestFilename()
	case PhaseTransmitFilename:
		return s.stepTransmitFilename()
	case PhaseEndFilename:
		return s.stepEndFilename()
	case PhaseCheckMoreData:
		return s.stepCheckMoreData()
	case PhaseTransmitBlock:
		return s.stepTransmitBlock()
	case PhaseSendChecksum:
		return s.stepSendChecksum()
	case PhaseEndFile:
		return s.stepEndFile()
	case PhaseComplete:
		return Complete, nil
	default:
		return Pending, phaseErr(s.phase, fmt.Errorf("unreachable phase"))
	}
}

func (s *Sender) writeByte(b byte) error {
	s.log.Debugf("[SENDER][TX] phase=%s byte=%#x", s.phase, b)
	if err := transport.WriteByte(s.transport, b); err != nil {
		return phaseErr(s.phase, err)
	}
	return nil
}

func (s *Sender) write(p []byte) error {
	if err := s.transport.WriteAll(p); err != nil {
		return phaseErr(s.phase, err)
	}
	return nil
}

// readByte reads one byte within the given timeout. benignTimeout
// controls whether a timeout is benign (timedOut=true, nil error) or
// fatal (timedOut=true, non-nil error); every phase but
// InitialHandshake is fatal on timeout.
func (s *Sender) readByte(timeout time.Duration, benignTimeout bool) (b byte, timedOut bool, err error) {
	b, err = transport.ReadByte(s.transport, timeout)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			if benignTimeout {
				return 0, true, nil
			}
			return 0, true, phaseErr(s.phase, err)
		}
		return 0, false, phaseErr(s.phase, err)
	}
	s.log.Debugf("[SENDER][RX] phase=%s byte=%#x", s.phase, b)
	return b, false, nil
}
