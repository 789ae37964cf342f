//go:build !unix && !windows

package restart

import "os/exec"

func helperCommand(args []string) *exec.Cmd {
	return exec.Command(args[0], args[1:]...)
}

func detach(*exec.Cmd) {}
