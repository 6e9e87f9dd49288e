package lexer

import (
	"fmt"

	"github.com/tangzhangming/gfront/internal/charstream"
	"github.com/tangzhangming/gfront/internal/i18n"
	"github.com/tangzhangming/gfront/internal/token"
)

// EOS 输入结束
const EOS = charstream.EOS

// runeSource 词法分析器的字符来源
//
// 根词法分析器直接读取 input；插值表达式内部的嵌套词法分析器
// 读取外层的 gstringLexer。
type runeSource interface {
	la(k int) rune
	consume() rune
}

// ============================================================================
// input - 根输入层
// ============================================================================
//
// input 在 CharStream 之上维护一个 5 个字符的环形缓冲区，负责：
// 1. Unicode 转义解码（\uXXXX，可以有多个 u）
// 2. 记录每个逻辑字符消耗的源字符宽度
// 3. 行列号跟踪：line/column 总是指向 la(1) 将返回的字符
//
// 读取错误和非法转义都是粘性的：缓冲区中已解码的字符仍然可以读取，
// 之后 la 只返回 EOS，错误保存在 err 中。
//
// ============================================================================

const bufSize = 5

type input struct {
	cs       charstream.CharStream
	filename string

	chars  [bufSize]rune
	widths [bufSize]int
	head   int
	count  int

	eos         bool
	err         *Error
	backslashes int // 紧邻的原始反斜杠个数

	line   int
	column int
	offset int
}

func newInput(cs charstream.CharStream, filename string) *input {
	return &input{
		cs:       cs,
		filename: filename,
		line:     1,
		column:   1,
	}
}

// pos 返回 la(1) 的位置
func (in *input) pos() token.Position {
	return token.Position{
		Filename: in.filename,
		Line:     in.line,
		Column:   in.column,
		Offset:   in.offset,
	}
}

func (in *input) la(k int) rune {
	if k < 1 || k > bufSize {
		panic(fmt.Sprintf("lexer: lookahead %d out of range", k))
	}
	for in.count < k && !in.eos && in.err == nil {
		in.fill()
	}
	if k > in.count {
		return EOS
	}
	return in.chars[(in.head+k-1)%bufSize]
}

func (in *input) consume() rune {
	c := in.la(1)
	if c == EOS {
		return EOS
	}
	w := in.widths[in.head]
	in.head = (in.head + 1) % bufSize
	in.count--
	in.offset += w
	switch c {
	case '\n':
		in.line, in.column = in.line+1, 1
	case '\r':
		// 先按换行处理，向前看时解码出错的位置才在下一行
		column := in.column
		in.line, in.column = in.line+1, 1
		if in.la(1) == '\n' {
			in.line, in.column = in.line-1, column+w
		}
	default:
		in.column += w
	}
	return c
}

// advance 计算消费字符 c 之后的行列号
//
// \r\n 只算一次换行：\r 后面紧跟 \n 时由 \n 负责换行。
func advance(line, column int, c rune, width int, next func() rune) (int, int) {
	switch c {
	case '\n':
		return line + 1, 1
	case '\r':
		if next() != '\n' {
			return line + 1, 1
		}
	}
	return line, column + width
}

// fillPos 返回下一个待解码字符的位置
func (in *input) fillPos() token.Position {
	line, column, offset := in.line, in.column, in.offset
	for i := 0; i < in.count; i++ {
		j := (in.head + i) % bufSize
		n := i + 1
		offset += in.widths[j]
		line, column = advance(line, column, in.chars[j], in.widths[j], func() rune {
			if n < in.count {
				return in.chars[(in.head+n)%bufSize]
			}
			return EOS
		})
	}
	return token.Position{Filename: in.filename, Line: line, Column: column, Offset: offset}
}

func (in *input) push(c rune, width int) {
	j := (in.head + in.count) % bufSize
	in.chars[j] = c
	in.widths[j] = width
	in.count++
}

// fill 从 CharStream 解码一个逻辑字符放入缓冲区
func (in *input) fill() {
	c, err := in.cs.LA(1)
	if err != nil {
		in.readFailed(err)
		return
	}
	if c == EOS {
		in.eos = true
		return
	}

	// 只有前面是偶数个反斜杠时，\u 才是 Unicode 转义
	if c == '\\' && in.backslashes%2 == 0 {
		u, err := in.cs.LA(2)
		if err != nil {
			in.readFailed(err)
			return
		}
		if u == 'u' {
			in.decodeEscape()
			return
		}
	}

	if _, err := in.cs.Consume(); err != nil {
		in.readFailed(err)
		return
	}
	if c == '\\' {
		in.backslashes++
	} else {
		in.backslashes = 0
	}
	in.push(c, 1)
}

// decodeEscape 解码 \u+XXXX，宽度为 1 + u 的个数 + 4
func (in *input) decodeEscape() {
	start := in.fillPos()
	if _, err := in.cs.Consume(); err != nil {
		in.readFailed(err)
		return
	}
	width := 1
	for {
		c, err := in.cs.LA(1)
		if err != nil {
			in.readFailed(err)
			return
		}
		if c != 'u' {
			break
		}
		if _, err := in.cs.Consume(); err != nil {
			in.readFailed(err)
			return
		}
		width++
	}

	var value rune
	for i := 0; i < 4; i++ {
		c, err := in.cs.LA(1)
		if err != nil {
			in.readFailed(err)
			return
		}
		d := hexValue(c)
		if d < 0 {
			p := start
			p.Column += width
			p.Offset += width
			in.err = newError(MalformedUnicodeEscape, p, c, hexDigits,
				i18n.T(i18n.ErrMalformedUnicode, describeRune(c)))
			return
		}
		if _, err := in.cs.Consume(); err != nil {
			in.readFailed(err)
			return
		}
		value = value<<4 | rune(d)
		width++
	}

	in.backslashes = 0
	in.push(value, width)
}

func (in *input) readFailed(err error) {
	in.err = &Error{
		Kind:    ReadFailure,
		Pos:     in.fillPos(),
		Char:    EOS,
		Message: i18n.T(i18n.ErrReadFailure, err),
		Err:     err,
	}
}

// ----------------------------------------------------------------------------
// 字符分类
// ----------------------------------------------------------------------------

var (
	decimalDigits = []rune("0123456789")
	hexDigits     = []rune("0123456789abcdefABCDEF")
)

func hexValue(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
