// Package config holds the validated invocation record for h_slcand.
// The record is built from the command line once at startup and is
// read-only afterwards; validation completes before any device is
// touched.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// DevPrefix is the standard device directory prepended to bare TTY names.
const DevPrefix = "/dev/"

// MaxUARTSpeed is the highest UART baud rate the SLCAN adapters accept.
const MaxUARTSpeed = 6000000

// maxBTRLen bounds the bit-timing register string sent to the firmware.
const maxBTRLen = 8

// FlowControl selects the UART flow control mode.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowHW
	FlowSW
)

// Options is the configuration record produced from the command line.
// Raw string fields hold the arguments as given; Validate checks them
// and fills the derived fields.
type Options struct {
	TTY            string // device path, normalized by Validate
	Name           string // optional CAN interface name
	SendOpen       bool
	SendClose      bool
	SendListen     bool
	SendReadStatus bool
	Speed          string // one-character CAN bit-rate index
	UARTSpeed      string // raw -S argument
	FlowType       string // raw -t argument, "hw" or "sw"
	BTR            string // bit-timing register string
	Foreground     bool

	// Derived by Validate.
	Baud uint32
	Flow FlowControl
}

// Validate checks every field, normalizes the TTY path and fills the
// derived Baud and Flow fields. It must succeed before any resource is
// opened.
func (o *Options) Validate() error {
	if o.TTY == "" {
		return fmt.Errorf("no TTY device given")
	}
	o.TTY = NormalizeTTYPath(o.TTY)

	if len(o.Speed) > 1 {
		return fmt.Errorf("CAN speed must be a single bit-rate index, got %q", o.Speed)
	}
	if len(o.BTR) > maxBTRLen {
		return fmt.Errorf("bit time register value %q exceeds %d characters", o.BTR, maxBTRLen)
	}
	// IFNAMSIZ counts the trailing NUL.
	if len(o.Name) > unix.IFNAMSIZ-1 {
		return fmt.Errorf("interface name %q exceeds %d characters", o.Name, unix.IFNAMSIZ-1)
	}

	if o.UARTSpeed != "" {
		baud, err := strconv.ParseUint(o.UARTSpeed, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid UART speed %q: %w", o.UARTSpeed, err)
		}
		if baud > MaxUARTSpeed {
			return fmt.Errorf("unsupported UART speed (%d)", baud)
		}
		o.Baud = uint32(baud)
	}

	switch o.FlowType {
	case "":
		o.Flow = FlowNone
	case "hw":
		o.Flow = FlowHW
	case "sw":
		o.Flow = FlowSW
	default:
		return fmt.Errorf("unsupported flow type (%s)", o.FlowType)
	}

	return nil
}

// NormalizeTTYPath prefixes bare device names with the standard device
// directory. Already-prefixed paths pass through unchanged.
func NormalizeTTYPath(tty string) string {
	if strings.HasPrefix(tty, DevPrefix) {
		return tty
	}
	return DevPrefix + tty
}
