//go:build windows

package errors

import (
	"os"

	"golang.org/x/sys/windows"
)

// terminalColors 控制台句柄上打开 ANSI 转义处理（Windows 10 1511+），
// 重定向到文件或管道时 GetConsoleMode 失败
func terminalColors(f *os.File) bool {
	h := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		return true
	}
	return windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
