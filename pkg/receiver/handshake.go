package receiver

import "github.com/filink/filink/pkg/wire"

// InitialHandshake: wait up to 5s for SENDER_READY. A timeout is
// benign; any other byte is logged and ignored.
func (r *Receiver) stepInitialHandshake() (Outcome, error) {
	b, timedOut, err := r.readByte(handshakeTimeout, true)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	if b != wire.SenderReady {
		r.log.Warn("[RECEIVER] not ready: unexpected handshake byte")
		return Pending, nil
	}
	if err := r.writeByte(wire.ReceiverReady); err != nil {
		return Pending, err
	}
	r.phase = PhaseWaitGood
	return Pending, nil
}

// WaitGood: wait for the sender's GOOD before entering the per-file
// loop.
func (r *Receiver) stepWaitGood() (Outcome, error) {
	b, timedOut, err := r.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	if b == wire.GOOD {
		r.phase = PhaseWaitFileOrEnd
	}
	return Pending, nil
}

// WaitFileOrEnd: the sender announces either another file (EOT) or
// the end of the session (XOFF). Anything else is a protocol
// violation, answered with ERROR and retried.
func (r *Receiver) stepWaitFileOrEnd() (Outcome, error) {
	b, timedOut, err := r.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	switch b {
	case wire.EOT:
		if err := r.writeByte(wire.BS); err != nil {
			return Pending, err
		}
		r.cursor = 0
		r.phase = PhaseReceiveFilename
		return Pending, nil
	case wire.XOFF:
		r.phase = PhaseComplete
		return Complete, nil
	default:
		if err := r.writeByte(wire.ERROR); err != nil {
			return Pending, err
		}
		return Pending, nil
	}
}

// ReceiveFilename: accumulate the 11-byte short filename one echoed
// byte at a time. Any byte below 0x20 is a protocol violation that
// restarts the file-or-end wait.
func (r *Receiver) stepReceiveFilename() (Outcome, error) {
	b, timedOut, err := r.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	if b < 0x20 {
		if err := r.writeByte(wire.ERROR); err != nil {
			return Pending, err
		}
		r.cursor = 0
		r.phase = PhaseWaitFileOrEnd
		return Pending, nil
	}
	r.name[r.cursor] = b
	if err := r.writeByte(b); err != nil {
		return Pending, err
	}
	r.cursor++
	if r.cursor == wire.FilenameSize {
		r.phase = PhaseEndFilename
	}
	return Pending, nil
}

// EndFilename: on ENQ, canonicalize the filename and attempt to
// create the output file. File-create failure is not fatal: the
// receiver reports ERROR and silently skips the file (spec.md's open
// question 9a).
func (r *Receiver) stepEndFilename() (Outcome, error) {
	b, timedOut, err := r.readByte(phaseTimeout, false)
	if err != nil {
		return Pending, err
	}
	if timedOut {
		return Pending, nil
	}
	if b != wire.ENQ {
		if err := r.writeByte(wire.ERROR); err != nil {
			return Pending, err
		}
		r.cursor = 0
		r.phase = PhaseWaitFileOrEnd
		return Pending, nil
	}

	f, err := createDestination(r.outputDir, r.name)
	if err != nil {
		r.log.Warnf("[RECEIVER] could not create destination file: %v", err)
		if werr := r.writeByte(wire.ERROR); werr != nil {
			return Pending, werr
		}
		r.cursor = 0
		r.phase = PhaseWaitFileOrEnd
		return Pending, nil
	}
	r.current = f
	if err := r.writeByte(wire.TAB); err != nil {
		return Pending, err
	}
	r.phase = PhaseWaitBlockOrEOF
	return Pending, nil
}
