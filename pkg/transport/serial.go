package transport

import (
	"errors"
	"fmt"
	"os"
	"time"

	serial "github.com/daedaluz/goserial"
)

// Parity selects the line parity mode of a serial port.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// SerialConfig describes how to open and configure a real RS-232 port.
// Discovering the device path and choosing these values is the CLI's
// job (spec.md's "external collaborator"); this struct is the contract
// between that collaborator and the core transport.
type SerialConfig struct {
	Device      string
	BaudRate    int
	DataBits    int // 5..8
	Parity      Parity
	StopBits    int // 1 or 2
	ReadTimeout time.Duration
}

// Serial is a Transport backed by an actual serial port, built on the
// raw-mode termios configuration the pack's serial driver exposes.
type Serial struct {
	port *serial.Port
}

var baudRates = map[int]serial.CFlag{
	50: serial.B50, 75: serial.B75, 110: serial.B110, 134: serial.B134,
	150: serial.B150, 200: serial.B200, 300: serial.B300, 600: serial.B600,
	1200: serial.B1200, 1800: serial.B1800, 2400: serial.B2400, 4800: serial.B4800,
	9600: serial.B9600, 19200: serial.B19200, 38400: serial.B38400,
	57600: serial.B57600, 115200: serial.B115200, 230400: serial.B230400,
	460800: serial.B460800, 921600: serial.B921600,
}

var dataBits = map[int]serial.CFlag{
	5: serial.CS5, 6: serial.CS6, 7: serial.CS7, 8: serial.CS8,
}

// OpenSerial opens and configures a serial port for FILINK use: raw
// mode, no flow control, the given baud/data/parity/stop settings, and
// a bounded-read read timeout.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	baud, ok := baudRates[cfg.BaudRate]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported baud rate %d", cfg.BaudRate)
	}
	size, ok := dataBits[cfg.DataBits]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported data bits %d", cfg.DataBits)
	}

	opts := serial.NewOptions().SetReadTimeout(cfg.ReadTimeout)
	port, err := serial.Open(cfg.Device, opts)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Device, err)
	}

	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: read termios for %s: %w", cfg.Device, err)
	}
	attrs.MakeRaw()
	attrs.Cflag &^= serial.CSIZE | serial.PARENB | serial.PARODD | serial.CSTOPB
	attrs.Cflag |= size | serial.CREAD | serial.CLOCAL
	switch cfg.Parity {
	case ParityOdd:
		attrs.Cflag |= serial.PARENB | serial.PARODD
	case ParityEven:
		attrs.Cflag |= serial.PARENB
	}
	if cfg.StopBits == 2 {
		attrs.Cflag |= serial.CSTOPB
	}
	attrs.SetSpeed(baud)

	if err := port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: configure termios for %s: %w", cfg.Device, err)
	}

	return &Serial{port: port}, nil
}

// WriteAll implements Transport.
func (s *Serial) WriteAll(p []byte) error {
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return fmt.Errorf("transport: write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// Read implements Transport, mapping the port driver's deadline-style
// errors onto ErrTimeout so engines never need to inspect OS errors.
func (s *Serial) Read(buf []byte, timeout time.Duration) (int, error) {
	n, err := s.port.ReadTimeout(buf, timeout)
	if err != nil {
		if isTimeoutErr(err) {
			return 0, ErrTimeout
		}
		return 0, fmt.Errorf("transport: read: %w", err)
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

// Close releases the underlying port.
func (s *Serial) Close() error {
	return s.port.Close()
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}
