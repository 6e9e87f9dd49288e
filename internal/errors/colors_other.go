//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package errors

import "os"

func terminalColors(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
