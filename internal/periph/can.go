package periph

import (
	"errors"
	"fmt"
)

// CAN bitrate limits.
const (
	MinCANBitrate     = 25000
	MaxCANBitrate     = 1000000
	DefaultCANBitrate = 500000
)

// ErrInvalidBitrate is returned for bitrates outside the supported range.
var ErrInvalidBitrate = errors.New("periph: CAN bitrate out of range")

// CANConfig configures the CAN interface.
type CANConfig struct {
	// Interface is the host CAN interface name.
	Interface string `yaml:"interface"`

	// Bitrate in bits per second, 25 kbit/s to 1 Mbit/s.
	Bitrate int `yaml:"bitrate"`
}

// Validate checks the configuration and fills defaults in place.
func (c *CANConfig) Validate() error {
	if c.Interface == "" {
		c.Interface = "can0"
	}
	if c.Bitrate == 0 {
		c.Bitrate = DefaultCANBitrate
	}
	if c.Bitrate < MinCANBitrate || c.Bitrate > MaxCANBitrate {
		return fmt.Errorf("%w: %d", ErrInvalidBitrate, c.Bitrate)
	}
	return nil
}

// CANFrame is one classic CAN frame.
type CANFrame struct {
	ID       uint32
	Extended bool
	Data     []byte
}

// CANBus is the transport behind the CAN surface. The socketcan-backed
// implementation lives with the platform adapters; tests use in-memory
// fakes.
type CANBus interface {
	Send(frame CANFrame) error
	Receive() (CANFrame, error)
	Close() error
}
