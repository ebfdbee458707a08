package serial

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/luhtfiimanal/h-slcand/internal/config"
	"github.com/luhtfiimanal/h-slcand/internal/slcan"
)

func openTestPort(t *testing.T) (*Port, *readResult) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	port, err := Open(slave.Name())
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	// Collect everything the device side receives.
	res := &readResult{data: make(chan []byte, 16), errors: make(chan error, 1)}
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := master.Read(buf)
			if err != nil {
				res.errors <- err
				return
			}
			res.data <- append([]byte(nil), buf[:n]...)
		}
	}()
	return port, res
}

type readResult struct {
	data   chan []byte
	errors chan error
}

func (r *readResult) collect(t *testing.T, want int) string {
	t.Helper()
	var got []byte
	for len(got) < want {
		select {
		case chunk := <-r.data:
			got = append(got, chunk...)
		case err := <-r.errors:
			t.Fatalf("unexpected read error: %v", err)
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout, received %q so far", got)
		}
	}
	return string(got)
}

func TestOpen_MissingDevice(t *testing.T) {
	_, err := Open("/dev/h-slcand-does-not-exist")
	require.Error(t, err)
	require.Contains(t, err.Error(), "/dev/h-slcand-does-not-exist")
}

func TestPort_ConfigureAndRestore(t *testing.T) {
	port, _ := openTestPort(t)

	before, err := port.Attributes()
	require.NoError(t, err)

	require.NoError(t, port.Configure(config.FlowSW, 0))

	after, err := port.Attributes()
	require.NoError(t, err)
	require.NotZero(t, after.Iflag&unix.IXOFF, "software flow control not enabled")
	require.NotZero(t, after.Iflag&unix.IXON)
	require.Zero(t, after.Cflag&unix.CRTSCTS)

	require.NoError(t, port.RestoreAttributes())

	restored, err := port.Attributes()
	require.NoError(t, err)
	require.Equal(t, *before, *restored, "attributes not restored bit-for-bit")
}

func TestPort_ConfigureHardwareFlow(t *testing.T) {
	port, _ := openTestPort(t)

	require.NoError(t, port.Configure(config.FlowHW, 0))

	attrs, err := port.Attributes()
	require.NoError(t, err)
	require.NotZero(t, attrs.Cflag&unix.CRTSCTS, "hardware flow control not enabled")
	require.Zero(t, attrs.Iflag&unix.IXOFF)
}

func TestPort_ConfigureNoFlow(t *testing.T) {
	port, _ := openTestPort(t)

	require.NoError(t, port.Configure(config.FlowNone, 0))

	attrs, err := port.Attributes()
	require.NoError(t, err)
	require.Zero(t, attrs.Cflag&unix.CRTSCTS)
	require.Zero(t, attrs.Iflag&unix.IXOFF)
}

func TestPort_RestoreWithoutSnapshot(t *testing.T) {
	port, _ := openTestPort(t)
	require.Error(t, port.RestoreAttributes())
}

func TestPort_CommandWrites(t *testing.T) {
	port, res := openTestPort(t)
	require.NoError(t, port.Configure(config.FlowNone, 0))

	seq := slcan.SetupSequence{Speed: "6", ReadStatus: true, Open: true}
	require.NoError(t, seq.Send(port))

	want := "C\rS6\r" + "F\r" + "O\r"
	require.Equal(t, want, res.collect(t, len(want)))

	require.NoError(t, slcan.SendClose(port))
	require.Equal(t, "C\r", res.collect(t, 2))
}

func TestPort_LowLatencyUnsupported(t *testing.T) {
	port, _ := openTestPort(t)

	// Ptys carry no serial_struct; this is the non-fatal degraded path.
	err := port.EnableLowLatency()
	require.Error(t, err)
	require.Contains(t, err.Error(), "latency flags")
}
