package token

import "fmt"

// ============================================================================
// Token 类型定义
// ============================================================================
//
// TokenType 使用 iota 自动编号，按类别分组：
// 1. 特殊标记（ILLEGAL, EOF, NEWLINE）
// 2. 字面量（标识符、数字、字符串、插值字符串边界）
// 3. 运算符（算术、比较、逻辑、位运算、赋值）
// 4. 分隔符（括号、逗号、分号等）
// 5. 关键字
//
// ============================================================================

// TokenType 表示 Token 的类型
type TokenType int

const (
	// ----------------------------------------------------------
	// 特殊标记
	// ----------------------------------------------------------
	ILLEGAL TokenType = iota // 非法字符
	EOF                      // 输入结束
	NEWLINE                  // 换行

	// ----------------------------------------------------------
	// 字面量
	// ----------------------------------------------------------
	IDENT   // 标识符
	INTEGER // 整数字面量
	DECIMAL // 浮点数字面量
	STRING  // 字符串字面量，或插值字符串中的文本片段

	// 插值字符串边界（合成 token，不对应源代码字符）
	GSTRING_START            // 插值字符串开始
	GSTRING_EXPRESSION_START // ${
	GSTRING_EXPRESSION_END   // }
	GSTRING_END              // 插值字符串结束

	// ----------------------------------------------------------
	// 算术运算符
	// ----------------------------------------------------------
	PLUS         // +
	MINUS        // -
	MULTIPLY     // *
	DIVIDE       // /
	INTDIV       // \
	MOD          // %
	POWER        // **
	PLUS_PLUS    // ++
	MINUS_MINUS  // --

	// ----------------------------------------------------------
	// 赋值运算符
	// ----------------------------------------------------------
	EQUAL               // =
	PLUS_EQUAL          // +=
	MINUS_EQUAL         // -=
	MULTIPLY_EQUAL      // *=
	DIVIDE_EQUAL        // /=
	INTDIV_EQUAL        // \=
	MOD_EQUAL           // %=
	POWER_EQUAL         // **=
	LOGICAL_AND_EQUAL   // &&=
	LOGICAL_OR_EQUAL    // ||=
	BIT_AND_EQUAL       // &=
	BIT_OR_EQUAL        // |=
	BIT_XOR_EQUAL       // ^=
	LEFT_SHIFT_EQUAL    // <<=
	RIGHT_SHIFT_EQUAL   // >>=
	RIGHT_SHIFT_U_EQUAL // >>>=

	// ----------------------------------------------------------
	// 比较运算符
	// ----------------------------------------------------------
	COMPARE_EQUAL         // ==
	COMPARE_NOT_EQUAL     // !=
	COMPARE_IDENTICAL     // ===
	COMPARE_NOT_IDENTICAL // !==
	COMPARE_LESS          // <
	COMPARE_LESS_EQUAL    // <=
	COMPARE_GREATER       // >
	COMPARE_GREATER_EQUAL // >=
	COMPARE_TO            // <=>
	FIND_REGEX            // =~
	MATCH_REGEX           // ==~

	// ----------------------------------------------------------
	// 逻辑与位运算
	// ----------------------------------------------------------
	NOT           // !
	LOGICAL_AND   // &&
	LOGICAL_OR    // ||
	BIT_AND       // &
	BIT_OR        // |
	BIT_XOR       // ^
	BIT_NOT       // ~
	LEFT_SHIFT    // <<
	RIGHT_SHIFT   // >>
	RIGHT_SHIFT_U // >>>

	// ----------------------------------------------------------
	// 分隔符
	// ----------------------------------------------------------
	LEFT_PAREN    // (
	RIGHT_PAREN   // )
	LEFT_SQUARE   // [
	RIGHT_SQUARE  // ]
	LEFT_CURLY    // {
	RIGHT_CURLY   // }
	COMMA         // ,
	SEMICOLON     // ;
	COLON         // :
	QUESTION      // ?
	AT            // @
	DOT           // .
	DOT_DOT       // ..
	DOT_DOT_DOT   // ...
	NAVIGATE      // ->

	// ----------------------------------------------------------
	// 关键字
	// ----------------------------------------------------------
	keyword_beg

	ABSTRACT
	AS
	ASSERT
	BREAK
	CASE
	CATCH
	CLASS
	CONST
	CONTINUE
	DEF
	DEFAULT
	DO
	ELSE
	EXTENDS
	FINAL
	FINALLY
	FOR
	GOTO
	IF
	IN
	IMPLEMENTS
	IMPORT
	INSTANCEOF
	INTERFACE
	MIXIN
	NATIVE
	NEW
	PACKAGE
	PRIVATE
	PROPERTY
	PROTECTED
	PUBLIC
	RETURN
	STATIC
	SUPER
	SWITCH
	SYNCHRONIZED
	THIS
	THROW
	THROWS
	TRANSIENT
	TRY
	VOLATILE
	WHILE
	TRUE
	FALSE
	NULL
	VOID
	BOOLEAN
	BYTE
	INT
	SHORT
	LONG
	FLOAT
	DOUBLE
	CHAR

	keyword_end
)

// ============================================================================
// Token 名称映射
// ============================================================================

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	NEWLINE: "NEWLINE",

	IDENT:   "IDENT",
	INTEGER: "INTEGER",
	DECIMAL: "DECIMAL",
	STRING:  "STRING",

	GSTRING_START:            "GSTRING_START",
	GSTRING_EXPRESSION_START: "GSTRING_EXPRESSION_START",
	GSTRING_EXPRESSION_END:   "GSTRING_EXPRESSION_END",
	GSTRING_END:              "GSTRING_END",

	PLUS:        "+",
	MINUS:       "-",
	MULTIPLY:    "*",
	DIVIDE:      "/",
	INTDIV:      "\\",
	MOD:         "%",
	POWER:       "**",
	PLUS_PLUS:   "++",
	MINUS_MINUS: "--",

	EQUAL:               "=",
	PLUS_EQUAL:          "+=",
	MINUS_EQUAL:         "-=",
	MULTIPLY_EQUAL:      "*=",
	DIVIDE_EQUAL:        "/=",
	INTDIV_EQUAL:        "\\=",
	MOD_EQUAL:           "%=",
	POWER_EQUAL:         "**=",
	LOGICAL_AND_EQUAL:   "&&=",
	LOGICAL_OR_EQUAL:    "||=",
	BIT_AND_EQUAL:       "&=",
	BIT_OR_EQUAL:        "|=",
	BIT_XOR_EQUAL:       "^=",
	LEFT_SHIFT_EQUAL:    "<<=",
	RIGHT_SHIFT_EQUAL:   ">>=",
	RIGHT_SHIFT_U_EQUAL: ">>>=",

	COMPARE_EQUAL:         "==",
	COMPARE_NOT_EQUAL:     "!=",
	COMPARE_IDENTICAL:     "===",
	COMPARE_NOT_IDENTICAL: "!==",
	COMPARE_LESS:          "<",
	COMPARE_LESS_EQUAL:    "<=",
	COMPARE_GREATER:       ">",
	COMPARE_GREATER_EQUAL: ">=",
	COMPARE_TO:            "<=>",
	FIND_REGEX:            "=~",
	MATCH_REGEX:           "==~",

	NOT:           "!",
	LOGICAL_AND:   "&&",
	LOGICAL_OR:    "||",
	BIT_AND:       "&",
	BIT_OR:        "|",
	BIT_XOR:       "^",
	BIT_NOT:       "~",
	LEFT_SHIFT:    "<<",
	RIGHT_SHIFT:   ">>",
	RIGHT_SHIFT_U: ">>>",

	LEFT_PAREN:   "(",
	RIGHT_PAREN:  ")",
	LEFT_SQUARE:  "[",
	RIGHT_SQUARE: "]",
	LEFT_CURLY:   "{",
	RIGHT_CURLY:  "}",
	COMMA:        ",",
	SEMICOLON:    ";",
	COLON:        ":",
	QUESTION:     "?",
	AT:           "@",
	DOT:          ".",
	DOT_DOT:      "..",
	DOT_DOT_DOT:  "...",
	NAVIGATE:     "->",

	ABSTRACT:     "abstract",
	AS:           "as",
	ASSERT:       "assert",
	BREAK:        "break",
	CASE:         "case",
	CATCH:        "catch",
	CLASS:        "class",
	CONST:        "const",
	CONTINUE:     "continue",
	DEF:          "def",
	DEFAULT:      "default",
	DO:           "do",
	ELSE:         "else",
	EXTENDS:      "extends",
	FINAL:        "final",
	FINALLY:      "finally",
	FOR:          "for",
	GOTO:         "goto",
	IF:           "if",
	IN:           "in",
	IMPLEMENTS:   "implements",
	IMPORT:       "import",
	INSTANCEOF:   "instanceof",
	INTERFACE:    "interface",
	MIXIN:        "mixin",
	NATIVE:       "native",
	NEW:          "new",
	PACKAGE:      "package",
	PRIVATE:      "private",
	PROPERTY:     "property",
	PROTECTED:    "protected",
	PUBLIC:       "public",
	RETURN:       "return",
	STATIC:       "static",
	SUPER:        "super",
	SWITCH:       "switch",
	SYNCHRONIZED: "synchronized",
	THIS:         "this",
	THROW:        "throw",
	THROWS:       "throws",
	TRANSIENT:    "transient",
	TRY:          "try",
	VOLATILE:     "volatile",
	WHILE:        "while",
	TRUE:         "true",
	FALSE:        "false",
	NULL:         "null",
	VOID:         "void",
	BOOLEAN:      "boolean",
	BYTE:         "byte",
	INT:          "int",
	SHORT:        "short",
	LONG:         "long",
	FLOAT:        "float",
	DOUBLE:       "double",
	CHAR:         "char",
}

// ============================================================================
// 关键字查找
// ============================================================================

// keywords 关键字表，由 tokenNames 生成
var keywords map[string]TokenType

func init() {
	keywords = make(map[string]TokenType, int(keyword_end-keyword_beg)+1)
	for t := keyword_beg + 1; t < keyword_end; t++ {
		keywords[tokenNames[t]] = t
	}
	// defmacro 是 def 的旧写法
	keywords["defmacro"] = DEF
}

// LookupIdent 查找标识符是否为关键字
//
// 关键字都是小写 ASCII 且长度在 2 到 12 之间，先做廉价的长度和首字母
// 过滤再查表。
func LookupIdent(ident string) TokenType {
	if n := len(ident); n < 2 || n > 12 || ident[0] < 'a' || ident[0] > 'z' {
		return IDENT
	}
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword 检查 TokenType 是否为关键字
func IsKeyword(t TokenType) bool {
	return t > keyword_beg && t < keyword_end
}

// IsGStringMarker 检查是否为插值字符串的合成边界 token
func IsGStringMarker(t TokenType) bool {
	return t >= GSTRING_START && t <= GSTRING_END
}

// String 返回 TokenType 的字符串表示
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// ============================================================================
// Position - 源代码位置
// ============================================================================

// Position 表示源代码中的位置
type Position struct {
	Filename string // 文件名
	Line     int    // 行号 (从1开始)
	Column   int    // 列号 (从1开始)
	Offset   int    // 源字符偏移量 (从0开始，Unicode 转义按原始宽度计)
}

// String 返回位置的字符串表示，格式为 "filename:line:column"
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid 检查位置是否有效
func (p Position) IsValid() bool {
	return p.Line > 0
}

// ============================================================================
// Span - 源代码范围
// ============================================================================

// Span 表示源代码中的一个范围（开始到结束）
type Span struct {
	Start Position // 开始位置
	End   Position // 结束位置
}

// NewSpan 创建新的 Span
func NewSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Length 返回 Span 的长度（仅在同一行有效）
func (s Span) Length() int {
	if s.Start.Line == s.End.Line {
		return s.End.Column - s.Start.Column
	}
	return 1
}

// String 返回 Span 的字符串表示
func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%s:%d:%d-%d", s.Start.Filename, s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.Start.Filename, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// ============================================================================
// Token - 词法单元
// ============================================================================

// Token 表示一个词法单元
//
// - Type: token 类型
// - Literal: 消费掉的原始源代码文本（合成 token 为其标记文本）
// - Value: 解码后的值（字符串内容、int64 / *big.Int、float64）
// - Pos: 第一个字符的位置
type Token struct {
	Type    TokenType
	Literal string
	Value   interface{}
	Pos     Position
}

// Text 返回 token 的文本载荷
//
// 字符串类 token 返回解码后的内容，其他返回原始文本。
func (t Token) Text() string {
	if s, ok := t.Value.(string); ok {
		return s
	}
	return t.Literal
}

// String 返回 Token 的字符串表示（用于调试）
func (t Token) String() string {
	switch t.Type {
	case IDENT, INTEGER, DECIMAL, STRING:
		return fmt.Sprintf("%s(%s) at %s", t.Type, t.Literal, t.Pos)
	default:
		return fmt.Sprintf("%s at %s", t.Type, t.Pos)
	}
}

// ============================================================================
// Token 构造函数
// ============================================================================

// New 创建一个新的 Token
func New(tokenType TokenType, literal string, pos Position) Token {
	return Token{
		Type:    tokenType,
		Literal: literal,
		Pos:     pos,
	}
}

// NewWithValue 创建一个带值的 Token
//
// 用于数字和字符串字面量，value 参数存储解码后的实际值。
func NewWithValue(tokenType TokenType, literal string, value interface{}, pos Position) Token {
	return Token{
		Type:    tokenType,
		Literal: literal,
		Value:   value,
		Pos:     pos,
	}
}
