// Package restart relaunches the current process through a detached helper
// that waits for the current process to exit first.
package restart

import (
	"errors"
	"os"
	"os/exec"
	"strings"

	"pkt.systems/pslog"
)

// delaySeconds is how long the helper waits before re-invoking the command line.
const delaySeconds = 1

// Relauncher spawns the helper and then exits the process.
type Relauncher struct {
	// Args is the command line to re-invoke; defaults to os.Args.
	Args []string
	// Exit terminates the process; defaults to os.Exit.
	Exit func(code int)
	// Start launches the helper; defaults to (*exec.Cmd).Start.
	Start func(cmd *exec.Cmd) error
	Log   pslog.Logger
}

// Relaunch spawns the helper and exits. It only returns when the helper could
// not be started, or when Exit is replaced by a function that returns.
func (r *Relauncher) Relaunch() error {
	args := r.Args
	if len(args) == 0 {
		args = os.Args
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return errors.New("restart: empty command line")
	}
	if exe, err := os.Executable(); err == nil && len(r.Args) == 0 {
		args = append([]string{exe}, args[1:]...)
	}
	cmd := helperCommand(args)
	detach(cmd)
	start := r.Start
	if start == nil {
		start = (*exec.Cmd).Start
	}
	if err := start(cmd); err != nil {
		return err
	}
	if r.Log != nil {
		r.Log.Info("restart helper spawned", "args", strings.Join(args, " "))
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}
	exit := r.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(0)
	return nil
}
