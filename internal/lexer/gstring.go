package lexer

import (
	"strings"

	"github.com/tangzhangming/gfront/internal/i18n"
	"github.com/tangzhangming/gfront/internal/token"
)

// ============================================================================
// delimitedSource - 带定界的字符来源
// ============================================================================
//
// 定界打开时，未转义的 " 被当作 EOS（字符串结束），原始换行和真正的
// 输入结束也返回 EOS 并标记为未闭合。插值表达式期间定界关闭，
// 表达式里的 " 属于嵌套字符串，不能提前结束外层字符串。
//
// ============================================================================

type delimitedSource struct {
	src          runeSource
	delimiting   bool
	escaped      bool // 上一个字符是未配对的反斜杠
	closed       bool // 结束引号已消费
	unterminated bool
}

func newDelimitedSource(src runeSource) *delimitedSource {
	return &delimitedSource{src: src, delimiting: true}
}

// setDelimiting 开关定界，重新打开时清除转义状态
func (d *delimitedSource) setDelimiting(on bool) {
	d.delimiting = on
	d.escaped = false
}

func (d *delimitedSource) la(k int) rune {
	if d.closed {
		return EOS
	}
	if !d.delimiting {
		return d.src.la(k)
	}
	escaped := d.escaped
	for i := 1; ; i++ {
		c := d.src.la(i)
		if c == EOS || c == '\n' || c == '\r' || (c == '"' && !escaped) {
			return EOS
		}
		if i == k {
			return c
		}
		escaped = c == '\\' && !escaped
	}
}

func (d *delimitedSource) consume() rune {
	c := d.la(1)
	if c == EOS {
		return EOS
	}
	d.src.consume()
	if d.delimiting {
		d.escaped = c == '\\' && !d.escaped
	}
	return c
}

// finish 在定界的 EOS 处调用：消费结束引号，返回字符串是否正常闭合
func (d *delimitedSource) finish() bool {
	if d.closed {
		return true
	}
	if d.src.la(1) == '"' {
		d.src.consume()
		d.closed = true
		return true
	}
	d.unterminated = true
	return false
}

// delimiter 能够开关定界的字符来源
type delimiter interface {
	setDelimiting(on bool)
}

// ============================================================================
// gstringLexer - 插值字符串词法分析器
// ============================================================================
//
// 状态机：
//
//	Start ──> Scan <──> Delegated
//	            │
//	            └──> Done
//
// Start:     扫描第一段文本。没有 ${ 的字符串直接产生一个 STRING；
//            否则产生 GSTRING_START（仅一次）和第一段文本。
// Scan:      遇到 ${ 时产生 GSTRING_EXPRESSION_START，关闭定界，
//            创建嵌套的表达式词法分析器；遇到 EOS 时产生 GSTRING_END（仅一次）。
// Delegated: 转发嵌套词法分析器的 token。嵌套词法分析器在未匹配的 }
//            处返回 EOF，此时重新打开定界，消费 } 并产生
//            GSTRING_EXPRESSION_END，回到 Scan。
//
// 通过 gstringLexer 消费的每个字符都记录在 full 中，GSTRING_END 的值
// 就是引号之间的完整原始文本。
//
// ============================================================================

type gstringState int

const (
	gsStart gstringState = iota
	gsScan
	gsDelegated
	gsDone
)

type gstringLexer struct {
	outer *Lexer
	src   runeSource // 通常是 *delimitedSource
	state gstringState
	start token.Position // 开始引号的位置

	full   []rune // 引号之间的全部原始文本
	expr   []rune // 当前插值表达式的原始文本
	queue  []token.Token
	nested *Lexer
}

func newGStringLexer(outer *Lexer, start token.Position) *gstringLexer {
	return &gstringLexer{
		outer: outer,
		src:   newDelimitedSource(outer.src),
		start: start,
	}
}

// finished 最后一个 token 已经产生
func (g *gstringLexer) finished() bool {
	return g.state == gsDone && len(g.queue) == 0
}

func (g *gstringLexer) la(k int) rune {
	return g.src.la(k)
}

func (g *gstringLexer) consume() rune {
	c := g.src.consume()
	if c != EOS {
		g.full = append(g.full, c)
		if g.state == gsDelegated {
			g.expr = append(g.expr, c)
		}
	}
	return c
}

func (g *gstringLexer) setDelimiting(on bool) {
	if d, ok := g.src.(delimiter); ok {
		d.setDelimiting(on)
	}
}

// closeQuote 在定界 EOS 处结束字符串
func (g *gstringLexer) closeQuote() bool {
	if d, ok := g.src.(*delimitedSource); ok {
		return d.finish()
	}
	return g.src.la(1) == EOS
}

func (g *gstringLexer) next() (token.Token, *Error) {
	for {
		if len(g.queue) > 0 {
			tok := g.queue[0]
			g.queue = g.queue[1:]
			return tok, nil
		}

		switch g.state {
		case gsStart:
			pos := g.outer.in.pos()
			value, raw := g.scanText()
			if g.la(1) == EOS {
				if !g.closeQuote() {
					return token.Token{}, g.outer.unterminatedString()
				}
				g.state = gsDone
				return token.NewWithValue(token.STRING, `"`+raw+`"`, value, g.start), nil
			}
			g.queue = append(g.queue, token.New(token.GSTRING_START, `"`, g.start))
			if raw != "" {
				g.queue = append(g.queue, token.NewWithValue(token.STRING, raw, value, pos))
			}
			g.state = gsScan

		case gsScan:
			pos := g.outer.in.pos()
			if g.la(1) == EOS {
				if !g.closeQuote() {
					return token.Token{}, g.outer.unterminatedString()
				}
				g.state = gsDone
				return token.NewWithValue(token.GSTRING_END, `"`, string(g.full), pos), nil
			}
			if g.la(1) == '$' && g.la(2) == '{' {
				g.consume()
				g.consume()
				g.setDelimiting(false)
				g.expr = g.expr[:0]
				g.nested = g.outer.newNested(g)
				g.state = gsDelegated
				return token.New(token.GSTRING_EXPRESSION_START, "${", pos), nil
			}
			value, raw := g.scanText()
			return token.NewWithValue(token.STRING, raw, value, pos), nil

		case gsDelegated:
			tok, err := g.nested.NextToken()
			if err != nil {
				return token.Token{}, err.(*Error)
			}
			if tok.Type != token.EOF {
				return tok, nil
			}
			g.setDelimiting(true)
			pos := g.outer.in.pos()
			switch c := g.la(1); c {
			case '}':
				exprText := string(g.expr)
				g.state = gsScan
				g.nested = nil
				g.consume()
				return token.NewWithValue(token.GSTRING_EXPRESSION_END, "}", exprText, pos), nil
			case EOS:
				return token.Token{}, newError(UnterminatedExpression, pos, EOS, []rune{'}'},
					i18n.T(i18n.ErrUnterminatedExpression))
			default:
				return token.Token{}, newError(Internal, pos, c, []rune{'}'},
					i18n.T(i18n.ErrGStringNotClosed, describeRune(c)))
			}

		case gsDone:
			return token.New(token.EOF, "", g.outer.in.pos()), nil
		}
	}
}

// scanText 扫描一段文本，在 ${ 或 EOS 处停止
//
// 返回解码后的值和原始文本。转义规则与普通字符串相同：
// \$ 得到 $，\\ 得到 \，一个单独的 $ 或 } 按原样保留。
func (g *gstringLexer) scanText() (string, string) {
	var value, raw strings.Builder
	for {
		c := g.la(1)
		if c == EOS || (c == '$' && g.la(2) == '{') {
			return value.String(), raw.String()
		}
		g.consume()
		raw.WriteRune(c)
		if c != '\\' {
			value.WriteRune(c)
			continue
		}
		e := g.la(1)
		if e == EOS {
			// 反斜杠后面是换行或输入结束，交给调用方报告未闭合
			return value.String(), raw.String()
		}
		g.consume()
		raw.WriteRune(e)
		value.WriteRune(unescape(e))
	}
}
