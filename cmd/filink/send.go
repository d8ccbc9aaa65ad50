package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/filink/filink/pkg/sender"
	"github.com/filink/filink/pkg/transport"
)

func sendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <file>...",
		Short: "Send one or more files to a waiting receiver",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(args)
		},
	}
}

func runSend(files []string) error {
	cfg, err := resolvePortConfig()
	if err != nil {
		return err
	}
	port, err := transport.OpenSerial(cfg)
	if err != nil {
		return err
	}

	logger := newLogger()
	s, err := sender.New(port, files,
		sender.WithLogger(logger),
		sender.WithByteDelay(time.Duration(flagDelayMS)*time.Millisecond),
	)
	if err != nil {
		port.Close()
		return err
	}
	defer s.Close()

	for {
		outcome, err := s.Step()
		if err != nil {
			return fmt.Errorf("send failed in phase %s: %w", s.Phase(), err)
		}
		if outcome == sender.Complete {
			return nil
		}
	}
}
