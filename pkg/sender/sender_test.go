package sender

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filink/filink/pkg/transport"
	"github.com/filink/filink/pkg/wire"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func runToCompletion(t *testing.T, s *Sender, maxSteps int) {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		outcome, err := s.Step()
		require.NoError(t, err)
		if outcome == Complete {
			return
		}
	}
	t.Fatalf("sender did not complete within %d steps", maxSteps)
}

// Scenario 1 from spec.md §8: a single small file.
func TestSender_SingleSmallFile(t *testing.T) {
	path := writeTempFile(t, "test.txt", []byte("Test data"))
	name := wire.EncodeShortName(path)

	block := wire.PadBlock([]byte("Test data"))
	checksum := wire.Fold(block)

	reads := []transport.ReadEvent{transport.Byte(wire.ReceiverReady), transport.Byte(wire.BS)}
	for _, b := range name {
		reads = append(reads, transport.Byte(b))
	}
	reads = append(reads, transport.Byte(wire.TAB), transport.Byte(wire.PROCEED), transport.Byte(wire.GOOD))
	mock := transport.NewMock(reads...)

	s, err := New(mock, []string{path})
	require.NoError(t, err)
	defer s.Close()

	runToCompletion(t, s, 64)

	var want []byte
	want = append(want, wire.SenderReady, wire.GOOD, wire.EOT)
	want = append(want, name[:]...)
	want = append(want, wire.ENQ, wire.STX)
	want = append(want, block...)
	want = append(want, checksum, wire.ETX, wire.XOFF)

	mock.AssertDone(t, want)
}

// Scenario 2: a corrupted checksum byte on the first attempt triggers
// exactly one retransmit of the same block.
func TestSender_ChecksumRetransmit(t *testing.T) {
	path := writeTempFile(t, "test.txt", []byte("Test data"))
	name := wire.EncodeShortName(path)

	block := wire.PadBlock([]byte("Test data"))
	checksum := wire.Fold(block)

	reads := []transport.ReadEvent{transport.Byte(wire.ReceiverReady), transport.Byte(wire.BS)}
	for _, b := range name {
		reads = append(reads, transport.Byte(b))
	}
	reads = append(reads,
		transport.Byte(wire.TAB),
		transport.Byte(wire.PROCEED),
		transport.Byte(wire.BAD), // corrupted checksum -> retransmit
		transport.Byte(wire.PROCEED),
		transport.Byte(wire.GOOD),
	)
	mock := transport.NewMock(reads...)

	s, err := New(mock, []string{path})
	require.NoError(t, err)
	defer s.Close()

	runToCompletion(t, s, 64)

	var want []byte
	want = append(want, wire.SenderReady, wire.GOOD, wire.EOT)
	want = append(want, name[:]...)
	want = append(want, wire.ENQ, wire.STX)
	want = append(want, block...)
	want = append(want, checksum)
	want = append(want, wire.STX) // retransmit: no file re-read, same block + checksum
	want = append(want, block...)
	want = append(want, checksum, wire.ETX, wire.XOFF)

	mock.AssertDone(t, want)
}

// Scenario 3: a file of exactly three full blocks has no padding.
func TestSender_MultiBlockExactFit(t *testing.T) {
	content := make([]byte, wire.BlockSize*3)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := writeTempFile(t, "big.bin", content)
	name := wire.EncodeShortName(path)

	reads := []transport.ReadEvent{transport.Byte(wire.ReceiverReady), transport.Byte(wire.BS)}
	for _, b := range name {
		reads = append(reads, transport.Byte(b))
	}
	reads = append(reads, transport.Byte(wire.TAB))
	for i := 0; i < 3; i++ {
		reads = append(reads, transport.Byte(wire.PROCEED), transport.Byte(wire.GOOD))
	}
	mock := transport.NewMock(reads...)

	s, err := New(mock, []string{path})
	require.NoError(t, err)
	defer s.Close()

	runToCompletion(t, s, 64)

	var want []byte
	want = append(want, wire.SenderReady, wire.GOOD, wire.EOT)
	want = append(want, name[:]...)
	want = append(want, wire.ENQ)
	for i := 0; i < 3; i++ {
		chunk := content[i*wire.BlockSize : (i+1)*wire.BlockSize]
		want = append(want, wire.STX)
		want = append(want, chunk...)
		want = append(want, wire.Fold(chunk))
	}
	want = append(want, wire.ETX, wire.XOFF)

	mock.AssertDone(t, want)
}

// Scenario 4: two files are transmitted back to back, one XOFF at the
// very end.
func TestSender_MultipleFiles(t *testing.T) {
	path1 := writeTempFile(t, "first.txt", []byte("first"))
	path2 := writeTempFile(t, "second.txt", []byte("second"))
	name1 := wire.EncodeShortName(path1)
	name2 := wire.EncodeShortName(path2)
	block1 := wire.PadBlock([]byte("first"))
	block2 := wire.PadBlock([]byte("second"))

	var reads []transport.ReadEvent
	reads = append(reads, transport.Byte(wire.ReceiverReady), transport.Byte(wire.BS))
	for _, b := range name1 {
		reads = append(reads, transport.Byte(b))
	}
	reads = append(reads, transport.Byte(wire.TAB), transport.Byte(wire.PROCEED), transport.Byte(wire.GOOD))
	reads = append(reads, transport.Byte(wire.BS))
	for _, b := range name2 {
		reads = append(reads, transport.Byte(b))
	}
	reads = append(reads, transport.Byte(wire.TAB), transport.Byte(wire.PROCEED), transport.Byte(wire.GOOD))
	mock := transport.NewMock(reads...)

	s, err := New(mock, []string{path1, path2})
	require.NoError(t, err)
	defer s.Close()

	runToCompletion(t, s, 128)

	var want []byte
	want = append(want, wire.SenderReady, wire.GOOD, wire.EOT)
	want = append(want, name1[:]...)
	want = append(want, wire.ENQ, wire.STX)
	want = append(want, block1...)
	want = append(want, wire.Fold(block1), wire.ETX)
	want = append(want, wire.EOT)
	want = append(want, name2[:]...)
	want = append(want, wire.ENQ, wire.STX)
	want = append(want, block2...)
	want = append(want, wire.Fold(block2), wire.ETX, wire.XOFF)

	mock.AssertDone(t, want)
}

// Scenario 5: the receiver is not there yet, so the first handshake
// read times out; the sender must retry without error.
func TestSender_HandshakeRetryOnTimeout(t *testing.T) {
	path := writeTempFile(t, "test.txt", []byte("x"))
	name := wire.EncodeShortName(path)
	block := wire.PadBlock([]byte("x"))

	reads := []transport.ReadEvent{transport.TimedOut(), transport.Byte(wire.ReceiverReady), transport.Byte(wire.BS)}
	for _, b := range name {
		reads = append(reads, transport.Byte(b))
	}
	reads = append(reads, transport.Byte(wire.TAB), transport.Byte(wire.PROCEED), transport.Byte(wire.GOOD))
	mock := transport.NewMock(reads...)

	s, err := New(mock, []string{path})
	require.NoError(t, err)
	defer s.Close()

	runToCompletion(t, s, 64)

	var want []byte
	want = append(want, wire.SenderReady, wire.SenderReady, wire.GOOD, wire.EOT)
	want = append(want, name[:]...)
	want = append(want, wire.ENQ, wire.STX)
	want = append(want, block...)
	want = append(want, wire.Fold(block), wire.ETX, wire.XOFF)

	mock.AssertDone(t, want)
}

// Scenario 6: a filename echo mismatch on the first character restarts
// the whole filename exchange from RequestFilename.
func TestSender_FilenameEchoMismatchRestarts(t *testing.T) {
	path := writeTempFile(t, "m.txt", []byte("y"))
	name := wire.EncodeShortName(path)
	block := wire.PadBlock([]byte("y"))

	reads := []transport.ReadEvent{
		transport.Byte(wire.ReceiverReady),
		transport.Byte(wire.BS),
		transport.Byte('K'), // mismatched echo of name[0]
		transport.Byte(wire.BS),
	}
	for _, b := range name {
		reads = append(reads, transport.Byte(b))
	}
	reads = append(reads, transport.Byte(wire.TAB), transport.Byte(wire.PROCEED), transport.Byte(wire.GOOD))
	mock := transport.NewMock(reads...)

	s, err := New(mock, []string{path})
	require.NoError(t, err)
	defer s.Close()

	runToCompletion(t, s, 64)

	var want []byte
	want = append(want, wire.SenderReady, wire.GOOD, wire.EOT, name[0], wire.EOT)
	want = append(want, name[:]...)
	want = append(want, wire.ENQ, wire.STX)
	want = append(want, block...)
	want = append(want, wire.Fold(block), wire.ETX, wire.XOFF)

	mock.AssertDone(t, want)
}

func TestNew_EmptyFileListIsFatal(t *testing.T) {
	mock := transport.NewMock()
	_, err := New(mock, nil)
	require.ErrorIs(t, err, ErrNoFiles)
}
