// Package lifecycle supervises the daemon between setup and teardown:
// backgrounding, signal trapping, and the idle loop that waits for a
// stop request.
package lifecycle

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/luhtfiimanal/h-slcand/internal/logging"
)

// Supervisor holds the running flag and pending exit code. These two
// atomics are the only state shared between the signal path and the
// main flow.
type Supervisor struct {
	running  atomic.Bool
	exitCode atomic.Int32
	interval time.Duration
	log      *logging.Logger
	device   string
}

// NewSupervisor returns a running supervisor polling at the given
// interval. The device path only feeds the signal log line.
func NewSupervisor(log *logging.Logger, device string, interval time.Duration) *Supervisor {
	s := &Supervisor{interval: interval, log: log, device: device}
	s.running.Store(true)
	return s
}

// Trap installs handlers for the given signals. On receipt the signal
// is logged, the exit code set to 128+signum, and the running flag
// cleared, which makes Wait return within one polling interval.
func (s *Supervisor) Trap(signals ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		for sig := range ch {
			s.log.Notice("received signal", "signal", sig.String(), "device", s.device)
			if num, ok := sig.(syscall.Signal); ok {
				s.exitCode.Store(128 + int32(num))
			}
			s.running.Store(false)
		}
	}()
}

// Stop requests a stop with the given exit code.
func (s *Supervisor) Stop(code int) {
	s.exitCode.Store(int32(code))
	s.running.Store(false)
}

// Wait idles until the running flag clears and returns the recorded
// exit code. The loop does no work and no I/O; it only checks the flag
// once per interval.
func (s *Supervisor) Wait() int {
	for s.running.Load() {
		time.Sleep(s.interval)
	}
	return int(s.exitCode.Load())
}
