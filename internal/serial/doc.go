// Package serial owns the TTY descriptor h_slcand works on.
//
// It opens the device, reconfigures its termios2 attributes for the
// SLCAN adapter (custom baud via BOTHER, flow control, low-latency
// receive), installs and removes the SLCAN line discipline, and
// restores the attribute snapshot taken before any mutation.
//
// Everything here is Linux-specific raw ioctl work on the descriptor;
// the package performs no buffered I/O and no reading. Commands are
// written straight to the descriptor through the io.Writer interface.
package serial
