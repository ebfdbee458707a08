package lifecycle

import (
	"fmt"

	daemon "github.com/sevlyar/go-daemon"
)

// Daemonize backgrounds the process by re-executing it detached from
// the controlling terminal, with the working directory moved to / and
// stdio pointed at /dev/null, matching daemon(0, 0).
//
// Because the child is a fresh execution rather than a fork of the
// current state, Daemonize must run before any device is opened; the
// child performs the entire setup itself. In the parent it returns
// child=false and the caller exits; in the daemon it returns child=true
// together with a release function to call before exiting.
func Daemonize() (child bool, release func(), err error) {
	ctx := &daemon.Context{WorkDir: "/"}
	proc, err := ctx.Reborn()
	if err != nil {
		return false, nil, fmt.Errorf("daemonize: %w", err)
	}
	if proc != nil {
		return false, func() {}, nil
	}
	return true, func() { _ = ctx.Release() }, nil
}
