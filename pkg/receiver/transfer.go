package receiver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/filink/filink/pkg/wire"
)

// createDestination resolves name's canonical form against dir and
// creates it for writing. It refuses a canonicalized name that is
// empty or would escape dir — an unspecified edge (spec.md §9c) that
// would otherwise let a crafted filename write outside the output
// directory.
func createDestination(dir string, name wire.ShortName) (*os.File, error) {
	rel := name.CanonicalPath()
	if rel == "" {
		return nil, errors.New("receiver: empty canonicalized filename")
	}
	if strings.ContainsRune(rel, filepath.Separator) || rel == "." || rel == ".." {
		return nil, fmt.Errorf("receiver: unsafe canonicalized filename %q", rel)
	}
	path := filepath.Join(dir, rel)
	return os.Create(path)
}

// WaitBlockOrEOF: STX starts a new block, ETX closes the current file
// and returns to waiting for the next file or session end. Any other
// byte is a protocol violation answered with NAK.
func (r *Receiver) stepWaitBlockOrEOF() (Outcome, error) {
	b, timedOut, err := r.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	switch b {
	case wire.STX:
		if err := r.writeByte(wire.PROCEED); err != nil {
			return Pending, err
		}
		r.bytesReceived = 0
		r.checksum = 0
		r.phase = PhaseReceiveBlock
		return Pending, nil
	case wire.ETX:
		if r.current != nil {
			_ = r.current.Close()
			r.current = nil
		}
		r.phase = PhaseWaitFileOrEnd
		return Pending, nil
	default:
		if err := r.writeByte(wire.NAK); err != nil {
			return Pending, err
		}
		return Pending, nil
	}
}

// ReceiveBlock: read the 128 payload bytes one at a time, folding each
// into the running checksum, then move on to verifying it against the
// sender's transmitted checksum byte.
func (r *Receiver) stepReceiveBlock() (Outcome, error) {
	for r.bytesReceived < wire.BlockSize {
		b, timedOut, err := r.readByte(phaseTimeout, false)
		if err != nil {
			return Pending, err
		}
		if timedOut {
			return Pending, nil
		}
		r.block[r.bytesReceived] = b
		r.bytesReceived++
		r.checksum ^= b
	}
	r.phase = PhaseVerifyChecksum
	return Pending, nil
}

// VerifyChecksum: compare the sender's checksum byte against the
// running fold. A match writes the block and acknowledges GOOD; a
// mismatch discards the block (without writing) and asks for a
// retransmit with BAD. There is no retry cap — an adversarial peer
// could loop forever, which is accepted by design (spec.md §7).
func (r *Receiver) stepVerifyChecksum() (Outcome, error) {
	b, timedOut, err := r.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	if b == r.checksum {
		if r.current != nil {
			if _, err := r.current.Write(r.block[:]); err != nil {
				return Pending, phaseErr(r.phase, err)
			}
		}
		if err := r.writeByte(wire.GOOD); err != nil {
			return Pending, err
		}
	} else {
		if err := r.writeByte(wire.BAD); err != nil {
			return Pending, err
		}
	}
	r.phase = PhaseWaitBlockOrEOF
	return Pending, nil
}
