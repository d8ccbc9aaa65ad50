package sender

import (
	"github.com/filink/filink/pkg/wire"
)

// InitialHandshake: send SENDER_READY, wait up to 5s for
// RECEIVER_READY. A timeout here is benign (the receiver simply
// hasn't started yet); any other byte is ignored and the handshake is
// retried.
func (s *Sender) stepInitialHandshake() (Outcome, error) {
	if err := s.writeByte(wire.SenderReady); err != nil {
		return Pending, err
	}
	b, timedOut, err := s.readByte(handshakeTimeout, true)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		s.log.Warn("[SENDER] handshake timeout, receiver not ready")
		return Pending, nil
	}
	if b == wire.ReceiverReady {
		s.phase = PhaseSendGood
	}
	return Pending, nil
}

// SendGood: unconditionally announce GOOD and move on to requesting
// the first filename.
func (s *Sender) stepSendGood() (Outcome, error) {
	if err := s.writeByte(wire.GOOD); err != nil {
		return Pending, err
	}
	s.phase = PhaseRequestFilename
	return Pending, nil
}

// RequestFilename: send EOT, wait for the receiver's BS. On success,
// load the short filename for the file at the head of the queue and
// begin the byte-by-byte echo exchange.
func (s *Sender) stepRequestFilename() (Outcome, error) {
	if err := s.writeByte(wire.EOT); err != nil {
		return Pending, err
	}
	b, timedOut, err := s.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil // unreachable: readByte with benignTimeout=false always errors on timeout
	}
	if b == wire.BS {
		s.name = wire.EncodeShortName(s.files[0])
		s.cursor = 0
		s.phase = PhaseTransmitFilename
	}
	return Pending, nil
}

// TransmitFilename: send the filename byte at cursor and expect it
// echoed back exactly. A mismatch restarts the whole exchange from
// RequestFilename (spec.md's filename-echo-mismatch recovery).
func (s *Sender) stepTransmitFilename() (Outcome, error) {
	sent := s.name[s.cursor]
	if err := s.writeByte(sent); err != nil {
		return Pending, err
	}
	echo, timedOut, err := s.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	if echo == sent {
		s.cursor++
		if s.cursor == wire.FilenameSize {
			s.phase = PhaseEndFilename
		}
		return Pending, nil
	}
	s.cursor = 0
	s.phase = PhaseRequestFilename
	return Pending, nil
}

// EndFilename: send ENQ, wait for the receiver's TAB acknowledgement,
// then open the source file and start streaming its data blocks.
func (s *Sender) stepEndFilename() (Outcome, error) {
	if err := s.writeByte(wire.ENQ); err != nil {
		return Pending, err
	}
	b, timedOut, err := s.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	if b == wire.TAB {
		f, err := openSource(s.files[0])
		if err != nil {
			return Pending, phaseErr(s.phase, err)
		}
		s.current = f
		s.retransmit = false
		s.phase = PhaseCheckMoreData
		return Pending, nil
	}
	s.cursor = 0
	s.phase = PhaseRequestFilename
	return Pending, nil
}
