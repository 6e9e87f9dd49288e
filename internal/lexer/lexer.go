package lexer

import (
	"math/big"
	"strconv"
	"strings"
	"unicode"

	"github.com/tangzhangming/gfront/internal/charstream"
	"github.com/tangzhangming/gfront/internal/i18n"
	"github.com/tangzhangming/gfront/internal/token"
)

// ============================================================================
// Lexer - 词法分析器
// ============================================================================
//
// Lexer 从 CharStream 拉取字符，每次 NextToken 产生一个 Token。
//
// 1. 单一分派循环：看 la(1) 的字符类别，消费需要的字符，产生 token
//    或者（空白、注释）继续循环
// 2. 多字符运算符通过向前看逐级匹配，匹配不上时回退到较短的运算符
// 3. 插值字符串交给 gstringLexer 处理，期间根词法分析器只转发它的 token
// 4. 所有错误对当前编译单元都是致命的：记录后只再返回 EOF
//
// ============================================================================

// Lexer 词法分析器
type Lexer struct {
	in       *input     // 根输入（位置信息）
	src      runeSource // 字符来源
	filename string
	gstrings bool // 是否启用字符串插值

	exprMode bool // 插值表达式内部：在未匹配的 } 处结束
	depth    int  // 花括号深度（仅 exprMode）

	delegate *gstringLexer // 正在处理的插值字符串

	start token.Position // 当前 token 的起始位置
	text  []rune         // 当前 token 已消费的字符

	err    *Error
	errors []*Error
}

// Option 词法分析器选项
type Option func(*Lexer)

// WithGStrings 开关双引号字符串中的 ${...} 插值，默认开启
func WithGStrings(enabled bool) Option {
	return func(l *Lexer) {
		l.gstrings = enabled
	}
}

// ============================================================================
// 构造函数
// ============================================================================

// New 创建一个读取字符串的词法分析器
func New(source, filename string, opts ...Option) *Lexer {
	return NewFromStream(charstream.NewString(source, filename), opts...)
}

// NewFromStream 创建一个读取 CharStream 的词法分析器
//
// token 位置中的文件名取自 cs.Description()。
func NewFromStream(cs charstream.CharStream, opts ...Option) *Lexer {
	in := newInput(cs, cs.Description())
	l := &Lexer{
		in:       in,
		src:      in,
		filename: cs.Description(),
		gstrings: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// newNested 创建插值表达式内部的词法分析器，字符来自外层插值字符串
func (l *Lexer) newNested(src runeSource) *Lexer {
	return &Lexer{
		in:       l.in,
		src:      src,
		filename: l.filename,
		gstrings: l.gstrings,
		exprMode: true,
	}
}

// ============================================================================
// 公共方法
// ============================================================================

// NextToken 返回下一个 token
//
// 输入结束时返回 EOF。出错后返回 EOF 和同一个错误，之后的调用也一样。
func (l *Lexer) NextToken() (token.Token, error) {
	if l.err != nil {
		return l.eof(), l.err
	}
	if l.delegate != nil {
		return l.fromDelegate()
	}
	tok, err := l.scan()
	if err != nil {
		return l.fail(err)
	}
	return tok, nil
}

// ScanTokens 扫描整个编译单元，返回的序列以 EOF 结束
//
// 出错时返回出错前的 token 和错误。
func (l *Lexer) ScanTokens() ([]token.Token, error) {
	var tokens []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

// Errors 返回所有词法错误
func (l *Lexer) Errors() []*Error {
	return l.errors
}

// HasErrors 检查是否有错误
func (l *Lexer) HasErrors() bool {
	return len(l.errors) > 0
}

// Filename 返回源文件名
func (l *Lexer) Filename() string {
	return l.filename
}

// Close 关闭底层 CharStream
func (l *Lexer) Close() error {
	return l.in.cs.Close()
}

// ============================================================================
// 字符操作
// ============================================================================

func (l *Lexer) la(k int) rune {
	return l.src.la(k)
}

func (l *Lexer) consume() rune {
	c := l.src.consume()
	if c != EOS {
		l.text = append(l.text, c)
	}
	return c
}

// mark 记录下一个 token 的起始位置
func (l *Lexer) mark() {
	l.start = l.in.pos()
	l.text = l.text[:0]
}

func (l *Lexer) emit(t token.TokenType) token.Token {
	return token.New(t, string(l.text), l.start)
}

func (l *Lexer) emitValue(t token.TokenType, value interface{}) token.Token {
	return token.NewWithValue(t, string(l.text), value, l.start)
}

// op 消费 n 个字符并产生运算符 token
func (l *Lexer) op(n int, t token.TokenType) (token.Token, *Error) {
	for i := 0; i < n; i++ {
		l.consume()
	}
	return l.emit(t), nil
}

func (l *Lexer) eof() token.Token {
	return token.New(token.EOF, "", l.in.pos())
}

// fail 记录致命错误
//
// 输入层的错误（读取失败、非法转义）如果发生在更早的位置，
// 它才是真正的原因，优先报告它。
func (l *Lexer) fail(err *Error) (token.Token, error) {
	if ie := l.in.err; ie != nil && ie != err && ie.Pos.Offset <= err.Pos.Offset {
		err = ie
	}
	l.err = err
	l.errors = append(l.errors, err)
	l.delegate = nil
	return l.eof(), err
}

// unexpected 在当前位置报告意外字符
func (l *Lexer) unexpected(expected []rune) *Error {
	c := l.la(1)
	var msg string
	switch {
	case len(expected) == 0:
		msg = i18n.T(i18n.ErrUnexpectedChar, describeRune(c))
	case c == EOS:
		msg = i18n.T(i18n.ErrUnexpectedEOS, formatExpected(expected))
	default:
		msg = i18n.T(i18n.ErrUnexpectedCharExpected, describeRune(c), formatExpected(expected))
	}
	return newError(UnexpectedChar, l.in.pos(), c, expected, msg)
}

// ============================================================================
// 核心扫描逻辑
// ============================================================================

func (l *Lexer) scan() (token.Token, *Error) {
	for {
		l.mark()
		c := l.la(1)

		switch c {

		// ----------------------------------------------------------
		// 输入结束
		// ----------------------------------------------------------
		case EOS:
			if l.in.err != nil {
				return token.Token{}, l.in.err
			}
			return l.eof(), nil

		// ----------------------------------------------------------
		// 空白与换行
		// ----------------------------------------------------------
		case ' ', '\t', '\f':
			l.consume()
			continue

		case '\n':
			return l.op(1, token.NEWLINE)

		case '\r':
			if l.la(2) == '\n' {
				return l.op(2, token.NEWLINE)
			}
			return l.op(1, token.NEWLINE)

		// ----------------------------------------------------------
		// 注释
		// ----------------------------------------------------------
		case '#':
			l.lineComment()
			continue

		case '/':
			switch l.la(2) {
			case '/':
				l.lineComment()
				continue
			case '*':
				if err := l.blockComment(); err != nil {
					return token.Token{}, err
				}
				continue
			case '=':
				return l.op(2, token.DIVIDE_EQUAL)
			}
			return l.op(1, token.DIVIDE)

		// ----------------------------------------------------------
		// 分隔符
		// ----------------------------------------------------------
		case '(':
			return l.op(1, token.LEFT_PAREN)
		case ')':
			return l.op(1, token.RIGHT_PAREN)
		case '[':
			return l.op(1, token.LEFT_SQUARE)
		case ']':
			return l.op(1, token.RIGHT_SQUARE)
		case ',':
			return l.op(1, token.COMMA)
		case ';':
			return l.op(1, token.SEMICOLON)
		case ':':
			return l.op(1, token.COLON)
		case '?':
			return l.op(1, token.QUESTION)
		case '@':
			return l.op(1, token.AT)
		case '~':
			return l.op(1, token.BIT_NOT)

		case '{':
			if l.exprMode {
				l.depth++
			}
			return l.op(1, token.LEFT_CURLY)

		case '}':
			// 插值表达式在未匹配的 } 处结束，} 留给外层插值字符串
			if l.exprMode {
				if l.depth == 0 {
					return l.eof(), nil
				}
				l.depth--
			}
			return l.op(1, token.RIGHT_CURLY)

		// ----------------------------------------------------------
		// 运算符
		// ----------------------------------------------------------
		case '!':
			if l.la(2) == '=' {
				if l.la(3) == '=' {
					return l.op(3, token.COMPARE_NOT_IDENTICAL)
				}
				return l.op(2, token.COMPARE_NOT_EQUAL)
			}
			return l.op(1, token.NOT)

		case '=':
			switch l.la(2) {
			case '=':
				switch l.la(3) {
				case '=':
					return l.op(3, token.COMPARE_IDENTICAL)
				case '~':
					return l.op(3, token.MATCH_REGEX)
				}
				return l.op(2, token.COMPARE_EQUAL)
			case '~':
				return l.op(2, token.FIND_REGEX)
			}
			return l.op(1, token.EQUAL)

		case '&':
			switch l.la(2) {
			case '&':
				if l.la(3) == '=' {
					return l.op(3, token.LOGICAL_AND_EQUAL)
				}
				return l.op(2, token.LOGICAL_AND)
			case '=':
				return l.op(2, token.BIT_AND_EQUAL)
			}
			return l.op(1, token.BIT_AND)

		case '|':
			switch l.la(2) {
			case '|':
				if l.la(3) == '=' {
					return l.op(3, token.LOGICAL_OR_EQUAL)
				}
				return l.op(2, token.LOGICAL_OR)
			case '=':
				return l.op(2, token.BIT_OR_EQUAL)
			}
			return l.op(1, token.BIT_OR)

		case '^':
			if l.la(2) == '=' {
				return l.op(2, token.BIT_XOR_EQUAL)
			}
			return l.op(1, token.BIT_XOR)

		case '+':
			switch l.la(2) {
			case '+':
				return l.op(2, token.PLUS_PLUS)
			case '=':
				return l.op(2, token.PLUS_EQUAL)
			}
			return l.op(1, token.PLUS)

		case '-':
			switch l.la(2) {
			case '-':
				return l.op(2, token.MINUS_MINUS)
			case '=':
				return l.op(2, token.MINUS_EQUAL)
			case '>':
				return l.op(2, token.NAVIGATE)
			}
			return l.op(1, token.MINUS)

		case '*':
			switch l.la(2) {
			case '*':
				if l.la(3) == '=' {
					return l.op(3, token.POWER_EQUAL)
				}
				return l.op(2, token.POWER)
			case '=':
				return l.op(2, token.MULTIPLY_EQUAL)
			}
			return l.op(1, token.MULTIPLY)

		case '\\':
			if l.la(2) == '=' {
				return l.op(2, token.INTDIV_EQUAL)
			}
			return l.op(1, token.INTDIV)

		case '%':
			if l.la(2) == '=' {
				return l.op(2, token.MOD_EQUAL)
			}
			return l.op(1, token.MOD)

		case '<':
			switch l.la(2) {
			case '=':
				if l.la(3) == '>' {
					return l.op(3, token.COMPARE_TO)
				}
				return l.op(2, token.COMPARE_LESS_EQUAL)
			case '<':
				switch l.la(3) {
				case '<':
					return l.heredoc()
				case '=':
					return l.op(3, token.LEFT_SHIFT_EQUAL)
				}
				return l.op(2, token.LEFT_SHIFT)
			}
			return l.op(1, token.COMPARE_LESS)

		case '>':
			switch l.la(2) {
			case '=':
				return l.op(2, token.COMPARE_GREATER_EQUAL)
			case '>':
				switch l.la(3) {
				case '>':
					if l.la(4) == '=' {
						return l.op(4, token.RIGHT_SHIFT_U_EQUAL)
					}
					return l.op(3, token.RIGHT_SHIFT_U)
				case '=':
					return l.op(3, token.RIGHT_SHIFT_EQUAL)
				}
				return l.op(2, token.RIGHT_SHIFT)
			}
			return l.op(1, token.COMPARE_GREATER)

		case '.':
			if l.la(2) == '.' {
				if l.la(3) == '.' {
					return l.op(3, token.DOT_DOT_DOT)
				}
				return l.op(2, token.DOT_DOT)
			}
			return l.op(1, token.DOT)

		// ----------------------------------------------------------
		// 字符串
		// ----------------------------------------------------------
		case '\'':
			return l.quotedString('\'')

		case '"':
			if !l.gstrings {
				return l.quotedString('"')
			}
			l.consume()
			l.delegate = newGStringLexer(l, l.start)
			tok, err := l.delegate.next()
			if err != nil {
				return token.Token{}, err
			}
			if l.delegate.finished() {
				l.delegate = nil
			}
			return tok, nil

		// ----------------------------------------------------------
		// 数字、标识符
		// ----------------------------------------------------------
		default:
			if isDigit(c) {
				return l.number()
			}
			if isIdentStart(c) {
				return l.identifier()
			}
			return token.Token{}, l.unexpected(nil)
		}
	}
}

// fromDelegate 转发插值字符串产生的 token
func (l *Lexer) fromDelegate() (token.Token, error) {
	tok, err := l.delegate.next()
	if err != nil {
		return l.fail(err)
	}
	if l.delegate.finished() {
		l.delegate = nil
	}
	return tok, nil
}

// ============================================================================
// 注释处理
// ============================================================================

// lineComment 跳过 # 或 // 开始的注释，不消费换行
func (l *Lexer) lineComment() {
	for {
		c := l.la(1)
		if c == EOS || c == '\n' || c == '\r' {
			return
		}
		l.consume()
	}
}

// blockComment 跳过 /* */ 注释，不支持嵌套
func (l *Lexer) blockComment() *Error {
	l.consume()
	l.consume()
	for {
		switch l.la(1) {
		case EOS:
			return newError(UnterminatedComment, l.in.pos(), EOS, []rune{'*'},
				i18n.T(i18n.ErrUnterminatedComment))
		case '*':
			if l.la(2) == '/' {
				l.consume()
				l.consume()
				return nil
			}
		}
		l.consume()
	}
}

// ============================================================================
// 字符串处理
// ============================================================================

// quotedString 处理 '...' 以及关闭插值时的 "..."
//
// \t \n \r 转为控制字符，其他 \c 只保留 c。
// 字符串中出现原始换行或输入结束是致命错误。
func (l *Lexer) quotedString(quote rune) (token.Token, *Error) {
	l.consume()
	var value strings.Builder
	for {
		c := l.la(1)
		switch {
		case c == quote:
			l.consume()
			return l.emitValue(token.STRING, value.String()), nil

		case c == EOS || c == '\n' || c == '\r':
			return token.Token{}, l.unterminatedString()

		case c == '\\':
			l.consume()
			e := l.la(1)
			if e == EOS || e == '\n' || e == '\r' {
				return token.Token{}, l.unterminatedString()
			}
			l.consume()
			value.WriteRune(unescape(e))

		default:
			l.consume()
			value.WriteRune(c)
		}
	}
}

func (l *Lexer) unterminatedString() *Error {
	return newError(UnterminatedString, l.in.pos(), l.la(1), nil,
		i18n.T(i18n.ErrUnterminatedString))
}

func unescape(c rune) rune {
	switch c {
	case 't':
		return '\t'
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	}
	return c
}

// heredoc 处理 <<<MARKER 长字符串
//
// 标记一直到行尾。正文原样读取，直到遇到恰好等于标记的一行。
// 正文最后一个换行保留在值中。
func (l *Lexer) heredoc() (token.Token, *Error) {
	l.consume()
	l.consume()
	l.consume()

	var marker strings.Builder
	for c := l.la(1); c != EOS && c != '\n' && c != '\r'; c = l.la(1) {
		marker.WriteRune(l.consume())
	}
	if marker.Len() == 0 {
		return token.Token{}, newError(UnterminatedHeredoc, l.in.pos(), l.la(1), nil,
			i18n.T(i18n.ErrEmptyHeredocMarker))
	}
	if !l.consumeEOL() {
		return token.Token{}, l.unterminatedHeredoc(marker.String())
	}

	var body strings.Builder
	for {
		var line strings.Builder
		for c := l.la(1); c != EOS && c != '\n' && c != '\r'; c = l.la(1) {
			line.WriteRune(l.consume())
		}
		if line.String() == marker.String() {
			return l.emitValue(token.STRING, body.String()), nil
		}
		if l.la(1) == EOS {
			return token.Token{}, l.unterminatedHeredoc(marker.String())
		}
		body.WriteString(line.String())
		if l.la(1) == '\r' {
			body.WriteRune(l.consume())
		}
		if l.la(1) == '\n' {
			body.WriteRune(l.consume())
		}
	}
}

func (l *Lexer) consumeEOL() bool {
	switch l.la(1) {
	case '\r':
		l.consume()
		if l.la(1) == '\n' {
			l.consume()
		}
		return true
	case '\n':
		l.consume()
		return true
	}
	return false
}

func (l *Lexer) unterminatedHeredoc(marker string) *Error {
	return newError(UnterminatedHeredoc, l.in.pos(), EOS, nil,
		i18n.T(i18n.ErrUnterminatedHeredoc, marker))
}

// ============================================================================
// 数字处理
// ============================================================================

// number 扫描数字字面量
//
// 支持十进制、0x 十六进制、0 开头的八进制、小数、指数和类型后缀。
// '.' 后面紧跟另一个 '.' 时是范围运算符，数字在此结束，所以
// 1..5 是 INTEGER DOT_DOT INTEGER。
func (l *Lexer) number() (token.Token, *Error) {
	if l.la(1) == '0' && (l.la(2) == 'x' || l.la(2) == 'X') {
		return l.hexNumber()
	}

	var digits strings.Builder
	for isDigit(l.la(1)) {
		digits.WriteRune(l.consume())
	}

	decimal := false
	if l.la(1) == '.' && l.la(2) != '.' {
		decimal = true
		digits.WriteRune(l.consume())
		if !isDigit(l.la(1)) {
			return token.Token{}, l.unexpected(decimalDigits)
		}
		for isDigit(l.la(1)) {
			digits.WriteRune(l.consume())
		}
	}

	if c := l.la(1); c == 'e' || c == 'E' {
		decimal = true
		digits.WriteRune(l.consume())
		if c := l.la(1); c == '+' || c == '-' {
			digits.WriteRune(l.consume())
		}
		if !isDigit(l.la(1)) {
			return token.Token{}, l.unexpected(decimalDigits)
		}
		for isDigit(l.la(1)) {
			digits.WriteRune(l.consume())
		}
	}

	suffix := l.numberSuffix(decimal)
	if suffix != 0 && strings.ContainsRune("fFdD", suffix) {
		decimal = true
	}
	if isIdentPart(l.la(1)) {
		return token.Token{}, l.unexpected(nil)
	}

	text := digits.String()
	if decimal {
		return l.decimalValue(text, suffix)
	}
	base := 10
	if len(text) > 1 && text[0] == '0' {
		base = 8
	}
	return l.integerValue(text, base, suffix)
}

func (l *Lexer) hexNumber() (token.Token, *Error) {
	l.consume()
	l.consume()
	var digits strings.Builder
	for hexValue(l.la(1)) >= 0 {
		digits.WriteRune(l.consume())
	}
	if digits.Len() == 0 {
		return token.Token{}, l.unexpected(hexDigits)
	}
	suffix := l.numberSuffix(false)
	if isIdentPart(l.la(1)) {
		return token.Token{}, l.unexpected(nil)
	}
	return l.integerValue(digits.String(), 16, suffix)
}

// numberSuffix 消费类型后缀，没有后缀返回 0
func (l *Lexer) numberSuffix(decimal bool) rune {
	suffixes := "gGlLiIfFdD"
	if decimal {
		suffixes = "gGfFdD"
	}
	if c := l.la(1); c != EOS && strings.ContainsRune(suffixes, c) {
		return l.consume()
	}
	return 0
}

func (l *Lexer) integerValue(digits string, base int, suffix rune) (token.Token, *Error) {
	if suffix != 'g' && suffix != 'G' {
		if v, err := strconv.ParseInt(digits, base, 64); err == nil {
			return l.emitValue(token.INTEGER, v), nil
		}
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return token.Token{}, l.invalidNumber()
	}
	return l.emitValue(token.INTEGER, v), nil
}

func (l *Lexer) decimalValue(text string, suffix rune) (token.Token, *Error) {
	if suffix == 'g' || suffix == 'G' {
		v, ok := new(big.Float).SetString(text)
		if !ok {
			return token.Token{}, l.invalidNumber()
		}
		return l.emitValue(token.DECIMAL, v), nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token.Token{}, l.invalidNumber()
	}
	return l.emitValue(token.DECIMAL, v), nil
}

func (l *Lexer) invalidNumber() *Error {
	return newError(InvalidNumber, l.start, EOS, nil,
		i18n.T(i18n.ErrInvalidNumber, string(l.text)))
}

// ============================================================================
// 标识符处理
// ============================================================================

func (l *Lexer) identifier() (token.Token, *Error) {
	for isIdentPart(l.la(1)) {
		l.consume()
	}
	return l.emit(token.LookupIdent(string(l.text))), nil
}

func isIdentStart(c rune) bool {
	return c == '_' || c == '$' || (c >= 0 && unicode.IsLetter(c))
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || (c >= 0 && unicode.IsDigit(c))
}
