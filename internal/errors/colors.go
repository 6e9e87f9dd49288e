package errors

import (
	"os"

	uatomic "go.uber.org/atomic"
)

// style ANSI 转义序列
type style string

const (
	styleReset   style = "\033[0m"
	styleError   style = "\033[1;31m"
	styleWarning style = "\033[1;33m"
	styleNote    style = "\033[1;36m"
	styleHelp    style = "\033[1;32m"
	styleGutter  style = "\033[1;34m"
	styleCaret   style = "\033[31m"
)

// 诊断写到 stderr，按 stderr 检测
var colors = uatomic.NewBool(detectColors(os.Stderr))

// detectColors NO_COLOR > FORCE_COLOR > TERM=dumb > 终端检测
func detectColors(f *os.File) bool {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return false
	case os.Getenv("FORCE_COLOR") != "":
		return true
	case os.Getenv("TERM") == "dumb":
		return false
	}
	return terminalColors(f)
}

// EnableColors 之后新建的格式化器着色
func EnableColors() {
	colors.Store(true)
}

// DisableColors 之后新建的格式化器不着色
func DisableColors() {
	colors.Store(false)
}

func ColorsEnabled() bool {
	return colors.Load()
}
