//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package errors

import (
	"os"

	"golang.org/x/sys/unix"
)

// terminalColors 能取到窗口大小就是终端，unix 终端都认 ANSI
func terminalColors(f *os.File) bool {
	_, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	return err == nil
}
