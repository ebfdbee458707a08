package lifecycle

import (
	"bytes"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/h-slcand/internal/logging"
)

func TestSupervisor_StopUnblocksWait(t *testing.T) {
	var buf bytes.Buffer
	sup := NewSupervisor(logging.NewConsole(&buf), "/dev/ttyUSB0", 10*time.Millisecond)

	codes := make(chan int, 1)
	go func() { codes <- sup.Wait() }()

	sup.Stop(0)

	select {
	case code := <-codes:
		require.Equal(t, 0, code)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for supervisor to stop")
	}
}

func TestSupervisor_SignalSetsExitCode(t *testing.T) {
	var buf bytes.Buffer
	sup := NewSupervisor(logging.NewConsole(&buf), "/dev/ttyUSB0", 10*time.Millisecond)
	sup.Trap(syscall.SIGUSR1)

	codes := make(chan int, 1)
	go func() { codes <- sup.Wait() }()

	// Give Wait a chance to enter its polling loop before signalling.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case code := <-codes:
		require.Equal(t, 128+int(syscall.SIGUSR1), code)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for supervisor to react to signal")
	}

	require.Contains(t, buf.String(), "received signal")
	require.Contains(t, buf.String(), "device=/dev/ttyUSB0")
}

func TestSupervisor_WaitReturnsWithinInterval(t *testing.T) {
	var buf bytes.Buffer
	sup := NewSupervisor(logging.NewConsole(&buf), "/dev/ttyUSB0", 10*time.Millisecond)

	start := time.Now()
	go func() {
		time.Sleep(30 * time.Millisecond)
		sup.Stop(0)
	}()
	sup.Wait()

	// One polling interval of slack past the stop request.
	require.Less(t, time.Since(start), 500*time.Millisecond)
}
