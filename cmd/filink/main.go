// Command filink sends and receives files over an RS-232 line using
// the FILINK half-duplex, byte-at-a-time transfer protocol.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagPort     string
	flagBaud     int
	flagDataBits int
	flagParity   string
	flagStopBits int
	flagDelayMS  int
	flagProfile  string
	flagDebug    bool
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "filink",
		Short: "Transfer files over a serial line with the FILINK protocol",
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagPort, "port", "", "serial device path, e.g. /dev/ttyUSB0")
	pf.IntVar(&flagBaud, "baud", 9600, "baud rate")
	pf.IntVar(&flagDataBits, "data-bits", 8, "data bits (5-8)")
	pf.StringVar(&flagParity, "parity", "none", "parity: none, odd, or even")
	pf.IntVar(&flagStopBits, "stop-bits", 1, "stop bits (1 or 2)")
	pf.IntVar(&flagDelayMS, "delay", 0, "per-byte send delay in milliseconds (0-255)")
	pf.StringVar(&flagProfile, "profile", "", "named port profile to use instead of the flags above")
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(sendCommand())
	root.AddCommand(receiveCommand())
	root.AddCommand(profileCommand())
	return root
}

func newLogger() *log.Logger {
	logger := log.New()
	if flagDebug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
