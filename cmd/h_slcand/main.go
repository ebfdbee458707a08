// Command h_slcand attaches the SLCAN line discipline to a serial
// device, exposing it to the kernel as a CAN network interface, and
// supervises it until told to stop, at which point the original line
// discipline and serial attributes are restored.
package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luhtfiimanal/h-slcand/internal/config"
	"github.com/luhtfiimanal/h-slcand/internal/lifecycle"
	"github.com/luhtfiimanal/h-slcand/internal/logging"
	"github.com/luhtfiimanal/h-slcand/internal/netif"
	"github.com/luhtfiimanal/h-slcand/internal/serial"
	"github.com/luhtfiimanal/h-slcand/internal/slcan"
)

const daemonName = "h_slcand"

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts := &config.Options{}
	exitCode := 0

	cmd := &cobra.Command{
		Use:     "h_slcand [flags] <tty> [canif-name]",
		Short:   "userspace daemon for the serial line CAN interface driver SLCAN",
		Version: version,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			opts.TTY = args[0]
			if len(args) == 2 {
				opts.Name = args[1]
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			code, err := supervise(opts)
			exitCode = code
			return err
		},
	}
	cmd.SilenceErrors = true

	flags := cmd.Flags()
	flags.BoolVarP(&opts.SendOpen, "open", "o", false, "send open command 'O\\r' after setup")
	flags.BoolVarP(&opts.SendClose, "close", "c", false, "send close command 'C\\r' during teardown")
	flags.BoolVarP(&opts.SendReadStatus, "read-status", "f", false, "read status flags with 'F\\r' to reset error states")
	flags.BoolVarP(&opts.SendListen, "listen", "l", false, "send listen-only command 'L\\r', overrides -o")
	flags.StringVarP(&opts.Speed, "speed", "s", "", "CAN speed 0..8")
	flags.StringVarP(&opts.UARTSpeed, "uart-speed", "S", "", "UART speed in baud")
	flags.StringVarP(&opts.FlowType, "flow", "t", "", "UART flow control type, 'hw' or 'sw'")
	flags.StringVarP(&opts.BTR, "btr", "b", "", "bit time register value")
	flags.BoolVarP(&opts.Foreground, "foreground", "F", false, "stay in foreground; no daemonize")

	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return exitCode
}

// supervise runs the whole configuration lifecycle: daemonize if
// requested, configure the TTY, send the SLCAN commands, attach the
// line discipline, rename the netdevice, idle until a stop signal, then
// tear everything back down. It returns the process exit code; a
// non-nil error means a fatal setup or teardown failure.
func supervise(opts *config.Options) (int, error) {
	// Backgrounding re-executes the binary, so it has to happen before
	// any descriptor is opened. The parent returns immediately.
	if !opts.Foreground {
		child, release, err := lifecycle.Daemonize()
		if err != nil {
			return 1, err
		}
		if !child {
			return 0, nil
		}
		defer release()
	}

	log, err := newLogger(opts.Foreground)
	if err != nil {
		return 1, err
	}

	log.Info("starting on TTY device", "device", opts.TTY)

	port, err := serial.Open(opts.TTY)
	if err != nil {
		log.Notice("failed to open TTY device", "device", opts.TTY, "error", err)
		return 1, err
	}
	defer port.Close()

	// Needed since kernel 4.11 for proper receive latency; devices
	// without a serial_struct just keep their default buffering.
	if err := port.EnableLowLatency(); err != nil {
		log.Notice("low-latency flag unavailable", "device", opts.TTY, "error", err)
	}

	if err := port.Configure(opts.Flow, opts.Baud); err != nil {
		log.Notice("cannot set attributes", "device", opts.TTY, "error", err)
		return 1, err
	}

	seq := slcan.SetupSequence{
		Speed:      opts.Speed,
		BTR:        opts.BTR,
		ReadStatus: opts.SendReadStatus,
		Listen:     opts.SendListen,
		Open:       opts.SendOpen,
	}
	if err := seq.Send(port); err != nil {
		log.Notice("command write failed", "device", opts.TTY, "error", err)
		return 1, err
	}

	netdev, err := port.AttachLineDiscipline()
	if err != nil {
		log.Notice("line discipline attach failed", "device", opts.TTY, "error", err)
		return 1, err
	}
	log.Notice("attached TTY to netdevice", "device", opts.TTY, "netdevice", netdev)

	if opts.Name != "" {
		handle, err := netif.NewHandle()
		if err != nil {
			log.Notice("rename skipped", "error", err)
		} else {
			renameErr := handle.Rename(netdev, opts.Name)
			handle.Close()
			if renameErr != nil {
				log.Notice("netdevice rename failed", "from", netdev, "to", opts.Name, "error", renameErr)
				return 1, renameErr
			}
			log.Notice("netdevice renamed", "from", netdev, "to", opts.Name)
			netdev = opts.Name
		}
	}

	// Signals are trapped in both modes so teardown always runs; the
	// original only trapped them in the foreground, leaving a
	// daemonized instance to die without restoring the TTY.
	sup := lifecycle.NewSupervisor(log, opts.TTY, time.Second)
	sup.Trap(os.Interrupt, syscall.SIGTERM)
	code := sup.Wait()

	log.Info("stopping on TTY device", "device", opts.TTY)
	if err := port.DetachLineDiscipline(); err != nil {
		log.Notice("line discipline reset failed", "device", opts.TTY, "error", err)
		return 1, err
	}
	if opts.SendClose {
		if err := slcan.SendClose(port); err != nil {
			log.Notice("command write failed", "device", opts.TTY, "error", err)
			return 1, err
		}
	}
	if err := port.RestoreAttributes(); err != nil {
		log.Notice("cannot reset attributes", "device", opts.TTY, "error", err)
		return 1, err
	}

	log.Notice("terminated", "device", opts.TTY)
	fmt.Printf("netdevice %s attached to %s stopped gracefully\n", netdev, opts.TTY)
	return code, nil
}

// newLogger selects the sink once: syslog when daemonized, priority-
// prefixed stdout in the foreground.
func newLogger(foreground bool) (*logging.Logger, error) {
	if foreground {
		return logging.NewConsole(os.Stdout), nil
	}
	return logging.NewSyslog(daemonName)
}
