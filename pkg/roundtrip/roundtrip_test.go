// Package roundtrip exercises a live Sender and Receiver against each
// other over an in-memory Pipe, the end-to-end complement to the
// per-phase mock tests in pkg/sender and pkg/receiver.
package roundtrip

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filink/filink/pkg/receiver"
	"github.com/filink/filink/pkg/sender"
	"github.com/filink/filink/pkg/transport"
	"github.com/filink/filink/pkg/wire"
)

// driveSender runs s to completion, sending any error on errCh.
func driveSender(s *sender.Sender, errCh chan<- error) {
	for {
		outcome, err := s.Step()
		if err != nil {
			errCh <- err
			return
		}
		if outcome == sender.Complete {
			errCh <- nil
			return
		}
	}
}

// driveReceiver runs r to completion, sending any error on errCh.
func driveReceiver(r *receiver.Receiver, errCh chan<- error) {
	for {
		outcome, err := r.Step()
		if err != nil {
			errCh <- err
			return
		}
		if outcome == receiver.Complete {
			errCh <- nil
			return
		}
	}
}

func TestRoundTrip_SingleFile(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	content := []byte("hello, filink")
	srcPath := filepath.Join(srcDir, "greeting.txt")
	require.NoError(t, os.WriteFile(srcPath, content, 0o644))

	senderSide, receiverSide := transport.NewPipe()
	s, err := sender.New(senderSide, []string{srcPath})
	require.NoError(t, err)
	r := receiver.New(receiverSide, dstDir)

	senderErr := make(chan error, 1)
	receiverErr := make(chan error, 1)
	go driveSender(s, senderErr)
	go driveReceiver(r, receiverErr)

	select {
	case err := <-senderErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not complete")
	}
	select {
	case err := <-receiverErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("receiver did not complete")
	}

	name := wire.EncodeShortName(srcPath)
	got, err := os.ReadFile(filepath.Join(dstDir, name.CanonicalPath()))
	require.NoError(t, err)
	require.Equal(t, wire.PadBlock(content), got)
}

func TestRoundTrip_MultipleFilesWithExactBlockBoundary(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	small := []byte("tiny")
	exact := make([]byte, wire.BlockSize*2)
	for i := range exact {
		exact[i] = byte(i % 256)
	}

	smallPath := filepath.Join(srcDir, "small.txt")
	exactPath := filepath.Join(srcDir, "exact.bin")
	require.NoError(t, os.WriteFile(smallPath, small, 0o644))
	require.NoError(t, os.WriteFile(exactPath, exact, 0o644))

	senderSide, receiverSide := transport.NewPipe()
	s, err := sender.New(senderSide, []string{smallPath, exactPath})
	require.NoError(t, err)
	r := receiver.New(receiverSide, dstDir)

	senderErr := make(chan error, 1)
	receiverErr := make(chan error, 1)
	go driveSender(s, senderErr)
	go driveReceiver(r, receiverErr)

	select {
	case err := <-senderErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not complete")
	}
	select {
	case err := <-receiverErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("receiver did not complete")
	}

	smallName := wire.EncodeShortName(smallPath)
	exactName := wire.EncodeShortName(exactPath)

	gotSmall, err := os.ReadFile(filepath.Join(dstDir, smallName.CanonicalPath()))
	require.NoError(t, err)
	require.Equal(t, wire.PadBlock(small), gotSmall)

	gotExact, err := os.ReadFile(filepath.Join(dstDir, exactName.CanonicalPath()))
	require.NoError(t, err)
	require.Equal(t, exact, gotExact)
}
