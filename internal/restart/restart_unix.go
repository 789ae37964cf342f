//go:build unix

package restart

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"
)

func helperCommand(args []string) *exec.Cmd {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	script := fmt.Sprintf("sleep %d; exec %s", delaySeconds, strings.Join(quoted, " "))
	return exec.Command("/bin/sh", "-c", script)
}

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
