package sender

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/filink/filink/pkg/wire"
)

func openSource(path string) (*os.File, error) {
	return os.Open(path)
}

// CheckMoreData: either reuse the last block (retransmit) or read the
// next 128 bytes from the source file, padding a short final block
// with 0x1A and recomputing its checksum. An empty read (EOF, and not
// a retransmit) ends the file instead of sending another block.
func (s *Sender) stepCheckMoreData() (Outcome, error) {
	if !s.retransmit {
		buf := make([]byte, wire.BlockSize)
		n, readErr := readFull(s.current, buf)
		if readErr != nil {
			return Pending, phaseErr(s.phase, readErr)
		}
		if n == 0 {
			if err := s.writeByte(wire.ETX); err != nil {
				return Pending, err
			}
			s.phase = PhaseEndFile
			return Pending, nil
		}
		padded := wire.PadBlock(buf[:n])
		copy(s.block[:], padded)
		s.checksum = wire.Fold(s.block[:])
	}

	if err := s.writeByte(wire.STX); err != nil {
		return Pending, err
	}
	b, timedOut, err := s.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	if b == wire.PROCEED {
		s.phase = PhaseTransmitBlock
		return Pending, nil
	}
	// Any other byte: the receiver is not ready for this block yet.
	// Go-back-one: resend the same buffered block rather than pulling
	// more data from the file.
	s.retransmit = true
	return Pending, nil
}

// TransmitBlock: write the 128 buffered bytes one at a time, honoring
// the configured inter-character delay, then move on to sending the
// checksum. This is the protocol's one unilateral, non-ping-pong leg.
func (s *Sender) stepTransmitBlock() (Outcome, error) {
	for _, b := range s.block {
		if err := s.write([]byte{b}); err != nil {
			return Pending, err
		}
		if s.byteDelay > 0 {
			time.Sleep(s.byteDelay)
		}
	}
	s.phase = PhaseSendChecksum
	return Pending, nil
}

// SendChecksum: send the block's checksum byte and wait for the
// receiver's verdict: GOOD accepts the block and advances, BAD
// requests an uncapped retransmit of the same block.
func (s *Sender) stepSendChecksum() (Outcome, error) {
	if err := s.writeByte(s.checksum); err != nil {
		return Pending, err
	}
	b, timedOut, err := s.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	switch b {
	case wire.GOOD:
		s.retransmit = false
		s.phase = PhaseCheckMoreData
	case wire.BAD:
		s.retransmit = true
		s.phase = PhaseCheckMoreData
	}
	return Pending, nil
}

// EndFile: close the current file and drop it from the queue. If more
// files remain, restart the per-file exchange; otherwise announce
// XOFF and end the session.
func (s *Sender) stepEndFile() (Outcome, error) {
	if s.current != nil {
		_ = s.current.Close()
		s.current = nil
	}
	s.files = s.files[1:]
	if len(s.files) == 0 {
		if err := s.writeByte(wire.XOFF); err != nil {
			return Pending, err
		}
		s.phase = PhaseComplete
		return Complete, nil
	}
	s.phase = PhaseRequestFilename
	return Pending, nil
}

// readFull reads up to len(buf) bytes from f, returning (n, nil) even
// at a clean EOF rather than treating it as an error condition — the
// sender's CheckMoreData phase needs to tell "no more data" apart from
// a real I/O failure, not from "short final block".
func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
