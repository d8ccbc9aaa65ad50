package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filink/filink/pkg/receiver"
	"github.com/filink/filink/pkg/transport"
)

func receiveCommand() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Wait for an incoming file transfer and write files to a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReceive(outputDir)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory to write received files into")
	return cmd
}

func runReceive(outputDir string) error {
	cfg, err := resolvePortConfig()
	if err != nil {
		return err
	}
	port, err := transport.OpenSerial(cfg)
	if err != nil {
		return err
	}

	logger := newLogger()
	r := receiver.New(port, outputDir, receiver.WithLogger(logger))
	defer r.Close()

	for {
		outcome, err := r.Step()
		if err != nil {
			return fmt.Errorf("receive failed in phase %s: %w", r.Phase(), err)
		}
		if outcome == receiver.Complete {
			return nil
		}
	}
}
