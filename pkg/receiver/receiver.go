// Package receiver implements the FILINK receiver state machine: it
// waits for the sender's readiness announcement, then for each
// announced file echoes the short filename, opens an output file, and
// verifies and acknowledges each incoming 128-byte block.
package receiver

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

const (
	handshakeTimeout = 5 * time.Second
	phaseTimeout     = 2 * time.Second
)

// Phase names a state of the receiver's finite-state machine.
type Phase int

const (
	PhaseInitialHandshake Phase = iota
	PhaseWaitGood
	PhaseWaitFileOrEnd
	PhaseReceiveFilename
	PhaseEndFilename
	PhaseWaitBlockOrEOF
	PhaseReceiveBlock
	PhaseVerifyChecksum
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialHandshake:
		return "InitialHandshake"
	case PhaseWaitGood:
		return "WaitGood"
	case PhaseWaitFileOrEnd:
		return "WaitFileOrEnd"
	case PhaseReceiveFilename:
		return "ReceiveFilename"
	case PhaseEndFilename:
		return "EndFilename"
	case PhaseWaitBlockOrEOF:
		return "WaitBlockOrEOF"
	case PhaseReceiveBlock:
		return "ReceiveBlock"
	case PhaseVerifyChecksum:
		return "VerifyChecksum"
	case PhaseComplete:
		return "Complete"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseError is a fatal error surfaced with the phase it occurred in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("receiver: %s: %v", e.Phase, e.Err) }
func (e *PhaseError) Unwrap() error { return e.Err }

func phaseErr(p Phase, err error) error { return &PhaseError{Phase: p, Err: err} }

// Outcome is the result of a single Step call.
type Outcome int

const (
	Pending Outcome = iota
	Complete
)

// Option configures a Receiver at construction time.
type Option func(*Receiver)

// WithLogger attaches a logger; a nil logger discards all output, as
// the default does.
func WithLogger(logger *log.Logger) Option {
	return func(r *Receiver) {
		if logger == nil {
			logger = discardLogger()
		}
		r.log = logger
	}
}

// Receiver is the receiving half of a FILINK session. It owns its
// Transport and, once opened, the current destination file; Close
// releases both.
type Receiver struct {
	transport transport.Transport
	log       *log.Logger
	outputDir string

	current *os.File
	name    wire.ShortName
	cursor  int

	block         [wire.BlockSize]byte
	bytesReceived int
	checksum      byte

	phase Phase
}

func discardLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

// New creates a Receiver that writes incoming files into outputDir. It
// takes ownership of t.
func New(t transport.Transport, outputDir string, opts ...Option) *Receiver {
	r := &Receiver{
		transport: t,
		log:       discardLogger(),
		outputDir: outputDir,
		phase:     PhaseInitialHandshake,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Phase reports the engine's current state.
func (r *Receiver) Phase() Phase { return r.phase }

// Close releases the transport (if it implements io.Closer) and any
// open destination file. Safe to call multiple times.
func (r *Receiver) Close() error {
	var err error
	if r.current != nil {
		err = r.current.Close()
		r.current = nil
	}
	if closer, ok := r.transport.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Step performs the I/O for the current phase and advances the state
// machine. Callers loop until Step returns Complete or a non-nil error.
func (r *Receiver) Step() (Outcome, error) {
	switch r.phase {
	case PhaseInitialHandshake:
		return r.stepInitialHandshake()
	case PhaseWaitGood:
		return r.stepWaitGood()
	case PhaseWaitFileOrEnd:
		return r.stepWaitFileOrEnd()
	case PhaseReceiveFilename:
		return r.stepReceiveFilename()
	case PhaseEndFilename:
		return r.stepEndFilename()
	case PhaseWaitBlockOrEOF:
		return r.stepWaitBlockOrEOF()
	case PhaseReceiveBlock:
		return r.stepReceiveBlock()
	case PhaseVerifyChecksum:
		return r.stepVerifyChecksum()
	case PhaseComplete:
		return Complete, nil
	default:
		return Pending, phaseErr(r.phase, fmt.Errorf("unreachable phase"))
	}
}

func (r *Receiver) writeByte(b byte) error {
	r.log.Debugf("[RECEIVER][TX] phase=%s byte=%#x", r.phase, b)
	if err := transport.WriteByte(r.transport, b); err != nil {
		return phaseErr(r.phase, err)
	}
	return nil
}

// readByte reads one byte within timeout. Every receiver phase but
// InitialHandshake treats a timeout as fatal.
func (r *Receiver) readByte(timeout time.Duration, benignTimeout bool) (b byte, timedOut bool, err error) {
	b, err = transport.ReadByte(r.transport, timeout)
	if err != nil {
		if isTimeout(err) {
			if benignTimeout {
				return 0, true, nil
			}
			return 0, true, phaseErr(r.phase, err)
		}
		return 0, false, phaseErr(r.phase, err)
	}
	r.log.Debugf("[RECEIVER][RX] phase=%s byte=%#x", r.phase, b)
	return b, false, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, transport.ErrTimeout)
}
