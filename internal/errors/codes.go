// Package errors 提供前端的错误码、错误格式化与报告
package errors

import "github.com/tangzhangming/gfront/internal/i18n"

// ============================================================================
// 错误级别
// ============================================================================

// Level 错误级别
type Level int

const (
	LevelError   Level = iota // 错误
	LevelWarning              // 警告
	LevelNote                 // 提示
	LevelHelp                 // 帮助
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	case LevelHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ============================================================================
// 错误码
// ============================================================================

const (
	// E0001-E0099: 词法错误
	E0001 = "E0001" // 语法错误
	E0002 = "E0002" // 意外的字符
	E0003 = "E0003" // 未闭合的字符串
	E0004 = "E0004" // 未闭合的注释
	E0005 = "E0005" // 无效的数字
	E0006 = "E0006" // 未闭合的 heredoc
	E0007 = "E0007" // 无效的 Unicode 转义
	E0008 = "E0008" // 读取失败
	E0009 = "E0009" // 词法分析器内部错误
)

// ============================================================================
// 错误码信息
// ============================================================================

// ErrorInfo 错误码信息
type ErrorInfo struct {
	Code      string // 错误码
	Level     Level  // 错误级别
	MessageID string // i18n 消息 ID
	Category  string // 错误分类
}

var codeTable = map[string]ErrorInfo{
	E0001: {E0001, LevelError, "error.syntax", "syntax"},
	E0002: {E0002, LevelError, i18n.ErrUnexpectedChar, "syntax"},
	E0003: {E0003, LevelError, i18n.ErrUnterminatedString, "syntax"},
	E0004: {E0004, LevelError, i18n.ErrUnterminatedComment, "syntax"},
	E0005: {E0005, LevelError, i18n.ErrInvalidNumber, "syntax"},
	E0006: {E0006, LevelError, i18n.ErrUnterminatedHeredoc, "syntax"},
	E0007: {E0007, LevelError, i18n.ErrMalformedUnicode, "syntax"},
	E0008: {E0008, LevelError, i18n.ErrReadFailure, "io"},
	E0009: {E0009, LevelError, i18n.ErrGStringNotClosed, "internal"},
}

// GetErrorInfo 获取错误码信息
func GetErrorInfo(code string) (ErrorInfo, bool) {
	info, ok := codeTable[code]
	return info, ok
}

// IsKnownCode 检查是否为已登记的错误码
func IsKnownCode(code string) bool {
	_, ok := codeTable[code]
	return ok
}
