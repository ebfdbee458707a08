package serial

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/luhtfiimanal/h-slcand/internal/config"
)

// Port owns an open TTY descriptor together with the attribute snapshot
// needed to undo the SLCAN configuration at teardown.
type Port struct {
	fd       int
	path     string
	orig     unix.Termios // restoration snapshot, captured before any mutation
	captured bool
}

// Open opens the TTY at path in read-write, non-blocking,
// no-controlling-terminal mode. The descriptor stays non-blocking for
// its whole life; command writes are small enough to complete or fail
// outright.
func Open(path string) (*Port, error) {
	fd, err := syscall.Open(path, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Port{fd: fd, path: path}, nil
}

// Path returns the device path the port was opened with.
func (p *Port) Path() string { return p.path }

// Attributes returns the device's current termios2 state.
func (p *Port) Attributes() (*unix.Termios, error) {
	tios, err := unix.IoctlGetTermios(p.fd, unix.TCGETS2)
	if err != nil {
		return nil, fmt.Errorf("get attributes for %s: %w", p.path, err)
	}
	return tios, nil
}

// Configure reads the current attributes twice, keeps the second copy
// verbatim as the restoration snapshot, then mutates and applies the
// working copy: input flow stop/start and hardware flow cleared, baud
// switched to BOTHER with the requested speed (0 leaves the driver
// default), and the requested flow mode re-enabled on top.
func (p *Port) Configure(flow config.FlowControl, baud uint32) error {
	tios, err := unix.IoctlGetTermios(p.fd, unix.TCGETS2)
	if err != nil {
		return fmt.Errorf("get attributes for %s: %w", p.path, err)
	}
	orig, err := unix.IoctlGetTermios(p.fd, unix.TCGETS2)
	if err != nil {
		return fmt.Errorf("get attributes for %s: %w", p.path, err)
	}
	p.orig = *orig
	p.captured = true

	// Reset UART settings
	tios.Iflag &^= unix.IXOFF
	tios.Cflag &^= unix.CRTSCTS

	// Custom baud rate
	tios.Cflag &^= unix.CBAUD
	tios.Cflag |= unix.BOTHER
	tios.Ispeed = baud
	tios.Ospeed = baud

	switch flow {
	case config.FlowHW:
		tios.Cflag |= unix.CRTSCTS
	case config.FlowSW:
		tios.Iflag |= unix.IXON | unix.IXOFF
	}

	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS2, tios); err != nil {
		return fmt.Errorf("set attributes for %s: %w", p.path, err)
	}
	return nil
}

// RestoreAttributes applies the snapshot taken by Configure, returning
// the device to its pre-h_slcand state bit for bit.
func (p *Port) RestoreAttributes() error {
	if !p.captured {
		return fmt.Errorf("no attribute snapshot for %s", p.path)
	}
	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS2, &p.orig); err != nil {
		return fmt.Errorf("reset attributes for %s: %w", p.path, err)
	}
	return nil
}

// asyncLowLatency is ASYNC_LOW_LATENCY from linux/serial.h.
const asyncLowLatency = 0x2000

// serialStruct mirrors struct serial_struct from linux/serial.h, which
// x/sys/unix does not export.
type serialStruct struct {
	Type          int32
	Line          int32
	Port          uint32
	IRQ           int32
	Flags         int32
	XmitFifoSize  int32
	CustomDivisor int32
	BaudBase      int32
	CloseDelay    uint16
	IOType        byte
	_             [1]byte
	Hub6          int32
	ClosingWait   uint16
	ClosingWait2  uint16
	IomemBase     uintptr
	IomemRegShift uint16
	PortHigh      uint32
	IomapBase     uint64
}

// EnableLowLatency sets ASYNC_LOW_LATENCY on the underlying serial
// port. Since kernel 4.11 this flag is needed to get acceptable receive
// latency from USB serial drivers. Failure is expected on devices
// without a serial_struct (ptys among them) and callers treat it as a
// degraded-but-continuing condition.
func (p *Port) EnableLowLatency() error {
	var s serialStruct
	if err := ioctlPtr(p.fd, unix.TIOCGSERIAL, unsafe.Pointer(&s)); err != nil {
		return fmt.Errorf("get latency flags for %s: %w", p.path, err)
	}
	s.Flags |= asyncLowLatency
	if err := ioctlPtr(p.fd, unix.TIOCSSERIAL, unsafe.Pointer(&s)); err != nil {
		return fmt.Errorf("set latency flags for %s: %w", p.path, err)
	}
	return nil
}

// Write sends raw command bytes to the descriptor.
func (p *Port) Write(b []byte) (int, error) {
	return unix.Write(p.fd, b)
}

// Close closes the descriptor. Safe to call once only.
func (p *Port) Close() error {
	return syscall.Close(p.fd)
}

func ioctlPtr(fd int, req uint, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}
