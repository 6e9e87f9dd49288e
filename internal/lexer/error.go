package lexer

import (
	"fmt"
	"strings"

	cerrors "github.com/tangzhangming/gfront/internal/errors"
	"github.com/tangzhangming/gfront/internal/token"
)

// ============================================================================
// 词法错误
// ============================================================================

// ErrorKind 词法错误类别
type ErrorKind int

const (
	UnexpectedChar         ErrorKind = iota // 意外字符
	UnterminatedString                      // 未闭合的字符串
	UnterminatedHeredoc                     // 未闭合的 heredoc
	UnterminatedComment                     // 未闭合的块注释
	UnterminatedExpression                  // 插值表达式 ${ 没有闭合
	MalformedUnicodeEscape                  // 非法的 Unicode 转义
	InvalidNumber                           // 无效的数字字面量
	ReadFailure                             // 读取源代码失败
	Internal                                // 内部一致性错误
)

var kindNames = [...]string{
	UnexpectedChar:         "unexpected character",
	UnterminatedString:     "unterminated string",
	UnterminatedHeredoc:    "unterminated heredoc",
	UnterminatedComment:    "unterminated comment",
	UnterminatedExpression: "unterminated expression",
	MalformedUnicodeEscape: "malformed unicode escape",
	InvalidNumber:          "invalid number",
	ReadFailure:            "read failure",
	Internal:               "internal error",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error 词法错误
//
// 每个错误对当前编译单元都是致命的。Pos/Char/Expected 供编辑器和
// 错误报告器定位问题，Char 为 EOS 表示在输入结束处出错。
type Error struct {
	Kind     ErrorKind
	Pos      token.Position
	Char     rune
	Expected []rune
	Message  string
	Err      error
}

func newError(kind ErrorKind, pos token.Position, c rune, expected []rune, msg string) *Error {
	return &Error{
		Kind:     kind,
		Pos:      pos,
		Char:     c,
		Expected: expected,
		Message:  msg,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code 返回错误码
func (e *Error) Code() string {
	switch e.Kind {
	case UnexpectedChar:
		return cerrors.E0002
	case UnterminatedString, UnterminatedExpression:
		return cerrors.E0003
	case UnterminatedComment:
		return cerrors.E0004
	case InvalidNumber:
		return cerrors.E0005
	case UnterminatedHeredoc:
		return cerrors.E0006
	case MalformedUnicodeEscape:
		return cerrors.E0007
	case ReadFailure:
		return cerrors.E0008
	case Internal:
		return cerrors.E0009
	}
	return cerrors.E0001
}

// CompileError 转换为错误报告器使用的格式
func (e *Error) CompileError() *cerrors.CompileError {
	ce := &cerrors.CompileError{
		Code:      e.Code(),
		Level:     cerrors.LevelError,
		Message:   e.Message,
		File:      e.Pos.Filename,
		Line:      e.Pos.Line,
		Column:    e.Pos.Column,
		EndColumn: e.Pos.Column + 1,
		Expected:  e.ExpectedString(),
		Cause:     e,
	}
	if e.Char == EOS {
		ce.EndColumn = e.Pos.Column
		ce.AtEnd = true
	}
	return ce
}

// ExpectedString 把期望字符集合格式化为 'a', 'b', '0'-'9'
func (e *Error) ExpectedString() string {
	return formatExpected(e.Expected)
}

func formatExpected(set []rune) string {
	var parts []string
	for i := 0; i < len(set); {
		j := i
		for j+1 < len(set) && set[j+1] == set[j]+1 {
			j++
		}
		if j-i >= 2 {
			parts = append(parts, fmt.Sprintf("%q-%q", set[i], set[j]))
		} else {
			for k := i; k <= j; k++ {
				parts = append(parts, fmt.Sprintf("%q", set[k]))
			}
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}

// describeRune 用于错误消息中的字符描述
func describeRune(c rune) string {
	switch c {
	case EOS:
		return "<EOF>"
	case '\n':
		return `'\n'`
	case '\r':
		return `'\r'`
	case '\t':
		return `'\t'`
	}
	return fmt.Sprintf("'%c'", c)
}
