// Package slcan builds the short ASCII commands understood by SLCAN
// serial CAN adapters and writes them in the order the firmware
// expects.
package slcan

import (
	"fmt"
	"io"
)

// Close is the close-channel command, sent on its own during teardown
// and as a prefix before bit-rate changes.
const Close = "C\r"

// SetupSequence describes the optional commands to transmit after the
// serial port is configured. Listen takes precedence over Open when
// both are set.
type SetupSequence struct {
	Speed      string // one-character bit-rate index, empty for none
	BTR        string // bit-timing register value, empty for none
	ReadStatus bool   // read status flags to reset error states
	Listen     bool   // listen-only mode, wins over Open
	Open       bool   // open the channel
}

// Commands returns the command strings in transmission order. Speed and
// BTR are independent: if both are set, both are sent, each preceded by
// its own close command.
func (s SetupSequence) Commands() []string {
	var cmds []string
	if s.Speed != "" {
		cmds = append(cmds, fmt.Sprintf("C\rS%s\r", s.Speed))
	}
	if s.BTR != "" {
		cmds = append(cmds, fmt.Sprintf("C\rs%s\r", s.BTR))
	}
	if s.ReadStatus {
		cmds = append(cmds, "F\r")
	}
	if s.Listen {
		cmds = append(cmds, "L\r")
	} else if s.Open {
		cmds = append(cmds, "O\r")
	}
	return cmds
}

// Send writes the sequence to w, stopping at the first failed write.
func (s SetupSequence) Send(w io.Writer) error {
	for _, cmd := range s.Commands() {
		if err := writeCommand(w, cmd); err != nil {
			return err
		}
	}
	return nil
}

// SendClose writes the close command to w.
func SendClose(w io.Writer) error {
	return writeCommand(w, Close)
}

// writeCommand treats a short write the same as a failed one; the
// descriptor is non-blocking and commands are never retried.
func writeCommand(w io.Writer, cmd string) error {
	n, err := w.Write([]byte(cmd))
	if err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}
	if n < len(cmd) {
		return fmt.Errorf("write command %q: short write (%d of %d bytes)", cmd, n, len(cmd))
	}
	return nil
}
