package periph

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// SerialMode selects the transceiver wired to the port.
type SerialMode string

// Serial transceiver modes. RS485 is half-duplex; driver enable is
// handled by the transceiver hardware, not here.
const (
	SerialRS232 SerialMode = "rs232"
	SerialRS485 SerialMode = "rs485"
)

// IsValid reports whether m is a known serial mode.
func (m SerialMode) IsValid() bool {
	return m == SerialRS232 || m == SerialRS485
}

// Serial port limits and defaults.
const (
	DefaultBaud = 115200
	MinBaud     = 9600
	MaxBaud     = 921600
)

// Serial configuration errors.
var (
	ErrInvalidSerialMode = errors.New("periph: invalid serial mode")
	ErrInvalidBaud       = errors.New("periph: baud rate out of range")
	ErrPortClosed        = errors.New("periph: serial port closed")
)

// SerialConfig configures the serial port.
type SerialConfig struct {
	// Device is the host serial device path.
	Device string `yaml:"device"`

	// Mode selects RS232 or RS485. Defaults to RS232.
	Mode SerialMode `yaml:"mode"`

	// Baud is the line rate. Defaults to 115200.
	Baud int `yaml:"baud"`

	// ReadTimeout bounds blocking reads. Zero blocks indefinitely.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Validate checks the configuration and fills defaults in place.
func (c *SerialConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = SerialRS232
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSerialMode, c.Mode)
	}
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.Baud < MinBaud || c.Baud > MaxBaud {
		return fmt.Errorf("%w: %d", ErrInvalidBaud, c.Baud)
	}
	return nil
}

// SerialPort is an open serial port.
//
// Thread Safety: Read and Write may run concurrently with each other;
// Close is safe to call at any time and more than once.
type SerialPort struct {
	mu     sync.Mutex
	port   *serial.Port
	mode   SerialMode
	closed bool
}

// OpenSerial validates the configuration and opens the port.
func OpenSerial(cfg SerialConfig) (*SerialPort, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", cfg.Device, err)
	}
	return &SerialPort{port: port, mode: cfg.Mode}, nil
}

// Mode returns the configured transceiver mode.
func (p *SerialPort) Mode() SerialMode {
	return p.mode
}

// Read reads from the port.
func (p *SerialPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	port := p.port
	p.mu.Unlock()
	return port.Read(buf)
}

// Write writes to the port.
func (p *SerialPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	port := p.port
	p.mu.Unlock()
	return port.Write(data)
}

// Flush discards unread input and unsent output.
func (p *SerialPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	return p.port.Flush()
}

// Close closes the port. Repeated calls are no-ops.
func (p *SerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}
