package serial

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Line discipline numbers from linux/tty.h.
const (
	nTTY   = 0  // N_TTY, the standard terminal discipline
	nSLCAN = 17 // N_SLCAN, serial line CAN
)

// AttachLineDiscipline installs the SLCAN line discipline on the
// descriptor and returns the name of the CAN netdevice the kernel
// created (or reused) for it.
func (p *Port) AttachLineDiscipline() (string, error) {
	if err := unix.IoctlSetPointerInt(p.fd, unix.TIOCSETD, nSLCAN); err != nil {
		return "", fmt.Errorf("set SLCAN line discipline on %s: %w", p.path, err)
	}
	// The slcan driver answers SIOCGIFNAME on the tty descriptor with
	// the netdevice name it registered.
	var name [unix.IFNAMSIZ]byte
	if err := ioctlPtr(p.fd, unix.SIOCGIFNAME, unsafe.Pointer(&name[0])); err != nil {
		return "", fmt.Errorf("get netdevice name for %s: %w", p.path, err)
	}
	return unix.ByteSliceToString(name[:]), nil
}

// DetachLineDiscipline restores the standard terminal discipline,
// detaching SLCAN and with it the associated netdevice.
func (p *Port) DetachLineDiscipline() error {
	if err := unix.IoctlSetPointerInt(p.fd, unix.TIOCSETD, nTTY); err != nil {
		return fmt.Errorf("reset line discipline on %s: %w", p.path, err)
	}
	return nil
}
