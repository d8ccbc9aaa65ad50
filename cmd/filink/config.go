package main

import (
	"fmt"
	"time"

	"github.com/filink/filink/pkg/ioconfig"
	"github.com/filink/filink/pkg/transport"
)

// resolvePortConfig builds a SerialConfig either from a saved profile
// (--profile) or from the individual --port/--baud/... flags.
func resolvePortConfig() (transport.SerialConfig, error) {
	if flagProfile != "" {
		path, err := ioconfig.DefaultPath()
		if err != nil {
			return transport.SerialConfig{}, err
		}
		profiles, err := ioconfig.Load(path)
		if err != nil {
			return transport.SerialConfig{}, err
		}
		p, ok := profiles[flagProfile]
		if !ok {
			return transport.SerialConfig{}, fmt.Errorf("no such profile %q", flagProfile)
		}
		return p.SerialConfig, nil
	}

	if flagPort == "" {
		return transport.SerialConfig{}, fmt.Errorf("--port is required (or pass --profile)")
	}
	parity, err := parseParity(flagParity)
	if err != nil {
		return transport.SerialConfig{}, err
	}
	stopBits, err := parseStopBits(flagStopBits)
	if err != nil {
		return transport.SerialConfig{}, err
	}
	return transport.SerialConfig{
		Device:      flagPort,
		BaudRate:    flagBaud,
		DataBits:    flagDataBits,
		Parity:      parity,
		StopBits:    stopBits,
		ReadTimeout: 2 * time.Second,
	}, nil
}

// resolvePortConfigFromFlagsOnly builds a SerialConfig from the raw
// --port/--baud/... flags, ignoring --profile. Used by "profile save",
// which would otherwise just read back the profile it is about to
// overwrite.
func resolvePortConfigFromFlagsOnly() (transport.SerialConfig, error) {
	if flagPort == "" {
		return transport.SerialConfig{}, fmt.Errorf("--port is required")
	}
	parity, err := parseParity(flagParity)
	if err != nil {
		return transport.SerialConfig{}, err
	}
	stopBits, err := parseStopBits(flagStopBits)
	if err != nil {
		return transport.SerialConfig{}, err
	}
	return transport.SerialConfig{
		Device:      flagPort,
		BaudRate:    flagBaud,
		DataBits:    flagDataBits,
		Parity:      parity,
		StopBits:    stopBits,
		ReadTimeout: 2 * time.Second,
	}, nil
}

func parseParity(s string) (transport.Parity, error) {
	switch s {
	case "none", "":
		return transport.ParityNone, nil
	case "odd":
		return transport.ParityOdd, nil
	case "even":
		return transport.ParityEven, nil
	default:
		return 0, fmt.Errorf("unrecognized parity %q (want none, odd, or even)", s)
	}
}

func parseStopBits(n int) (int, error) {
	switch n {
	case 1, 2:
		return n, nil
	default:
		return 0, fmt.Errorf("unrecognized stop bits %d (want 1 or 2)", n)
	}
}

func parityName(p transport.Parity) string {
	switch p {
	case transport.ParityOdd:
		return "odd"
	case transport.ParityEven:
		return "even"
	default:
		return "none"
	}
}
