package errors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	uatomic "go.uber.org/atomic"

	"github.com/tangzhangming/gfront/internal/i18n"
)

// ============================================================================
// 编译错误
// ============================================================================

// CompileError 报告器和格式化器使用的错误
//
// 列号按字符计，从 1 开始。AtEnd 表示错误位于输入结束处，
// 此时 EndColumn 等于 Column，标注没有宽度。
type CompileError struct {
	Code      string
	Level     Level
	Message   string
	File      string
	Line      int
	Column    int
	EndColumn int
	Expected  string // 期望的字符，已格式化，如 '0'-'9', '_'
	AtEnd     bool
	Hints     []string
	Cause     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// ============================================================================
// 格式化器
// ============================================================================

// Formatter 把 CompileError 渲染成带源码片段的文本
//
//	error[E0003]: unterminated string literal
//	 --> Main.groovy:2:5
//	  |
//	2 | y = "abc
//	  |     ^
//	  = help: add the closing quote
type Formatter struct {
	Colors   bool
	TabWidth int
}

// NewFormatter 创建格式化器，是否着色取当前的全局设置
func NewFormatter() *Formatter {
	return &Formatter{Colors: ColorsEnabled(), TabWidth: 4}
}

// FormatCompileError 渲染一个错误，sourceLines 为空时不显示源码
func (f *Formatter) FormatCompileError(err *CompileError, sourceLines []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", f.paint(fmt.Sprintf("%s[%s]", err.Level, err.Code), levelStyle(err.Level)), err.Message)

	gw := len(strconv.Itoa(err.Line))
	margin := strings.Repeat(" ", gw)
	fmt.Fprintf(&sb, "%s%s %s:%d:%d\n", margin, f.paint("-->", styleGutter), err.File, err.Line, err.Column)

	if text, ok := sourceLine(sourceLines, err.Line, err.AtEnd); ok {
		bar := f.paint(margin+" |", styleGutter)
		shown, start, end := f.layout(text, err.Column, err.EndColumn)
		sb.WriteString(bar + "\n")
		fmt.Fprintf(&sb, "%s %s\n", f.paint(fmt.Sprintf("%*d |", gw, err.Line), styleGutter), shown)
		fmt.Fprintf(&sb, "%s %s%s\n", bar, strings.Repeat(" ", start), f.marker(err, end-start))
	}

	help := f.paint(margin+" = help:", styleHelp)
	if err.Expected != "" {
		fmt.Fprintf(&sb, "%s %s\n", help, i18n.T(i18n.FmtExpected, err.Expected))
	}
	for _, hint := range err.Hints {
		fmt.Fprintf(&sb, "%s %s\n", help, hint)
	}
	return sb.String()
}

// marker 错误位置下方的标注
//
// 输入结束处只画一个 ^ 并注明，其余按显示宽度画 ^。
func (f *Formatter) marker(err *CompileError, width int) string {
	if err.AtEnd {
		return f.paint("^ "+i18n.T(i18n.FmtEndOfInput), styleCaret)
	}
	if width < 1 {
		width = 1
	}
	return f.paint(strings.Repeat("^", width), styleCaret)
}

// layout 展开制表符，返回显示文本以及第 from 到 to 列（不含）的显示位置
//
// 制表符对齐到 TabWidth 的倍数，宽字符占两格。超出行尾的列落在行尾。
func (f *Formatter) layout(line string, from, to int) (string, int, int) {
	tab := f.TabWidth
	if tab < 1 {
		tab = 4
	}
	if from < 1 {
		from = 1
	}
	if to <= from {
		to = from + 1
	}

	var sb strings.Builder
	start, end, width := -1, -1, 0
	col := 1
	for _, r := range line {
		if col == from {
			start = width
		}
		if col == to {
			end = width
		}
		if r == '\t' {
			n := tab - width%tab
			sb.WriteString(strings.Repeat(" ", n))
			width += n
		} else {
			sb.WriteRune(r)
			width += runewidth.RuneWidth(r)
		}
		col++
	}
	if start < 0 {
		start = width
	}
	if end < 0 {
		end = width
		if start == width {
			end = width + 1
		}
	}
	return sb.String(), start, end
}

// sourceLine 取第 n 行；以换行结尾的源码在最后一行之后结束，
// 输入结束处的错误落在那一空行上
func sourceLine(lines []string, n int, atEnd bool) (string, bool) {
	switch {
	case len(lines) == 0 || n < 1:
		return "", false
	case n <= len(lines):
		return lines[n-1], true
	case atEnd && n == len(lines)+1:
		return "", true
	}
	return "", false
}

func levelStyle(level Level) style {
	switch level {
	case LevelWarning:
		return styleWarning
	case LevelNote:
		return styleNote
	case LevelHelp:
		return styleHelp
	}
	return styleError
}

func (f *Formatter) paint(s string, st style) string {
	if !f.Colors {
		return s
	}
	return string(st) + s + string(styleReset)
}

// FormatCompileErrors 依次渲染多个错误，最后一行是错误总数
func (f *Formatter) FormatCompileErrors(errs []*CompileError, sources map[string][]string) string {
	if len(errs) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(errs)+1)
	for _, err := range errs {
		blocks = append(blocks, f.FormatCompileError(err, sources[err.File]))
	}
	blocks = append(blocks, f.paint(i18n.T(i18n.CLIFoundErrors, len(errs)), styleError)+"\n")
	return strings.Join(blocks, "\n")
}

// ============================================================================
// 全局格式化器
// ============================================================================

var defaultFormatter uatomic.Value

// SetDefaultFormatter 替换 GetDefaultFormatter 返回的格式化器
func SetDefaultFormatter(f *Formatter) {
	defaultFormatter.Store(f)
}

// GetDefaultFormatter 没有设置过时按当前颜色设置新建一个
func GetDefaultFormatter() *Formatter {
	if f, ok := defaultFormatter.Load().(*Formatter); ok && f != nil {
		return f
	}
	return NewFormatter()
}
