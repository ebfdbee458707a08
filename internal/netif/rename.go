// Package netif renames the CAN netdevice the SLCAN driver registers.
package netif

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Handle is a throwaway datagram socket used purely as an ioctl handle
// for interface requests.
type Handle struct {
	fd int
}

// NewHandle opens the socket. Callers that cannot get one skip the
// rename and carry on; the netdevice then keeps its kernel-assigned
// name.
func NewHandle() (*Handle, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket for interface rename: %w", err)
	}
	return &Handle{fd: fd}, nil
}

// ifreqRename is struct ifreq with the ifr_newname union arm.
type ifreqRename struct {
	Name    [unix.IFNAMSIZ]byte
	NewName [unix.IFNAMSIZ]byte
}

// Rename renames the interface called current to next via SIOCSIFNAME.
func (h *Handle) Rename(current, next string) error {
	var req ifreqRename
	copy(req.Name[:unix.IFNAMSIZ-1], current)
	copy(req.NewName[:unix.IFNAMSIZ-1], next)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(h.fd), unix.SIOCSIFNAME, uintptr(unsafe.Pointer(&req))); errno != 0 {
		return fmt.Errorf("rename netdevice %s to %s: %w", current, next, errno)
	}
	return nil
}

// Close releases the socket.
func (h *Handle) Close() error {
	return unix.Close(h.fd)
}
