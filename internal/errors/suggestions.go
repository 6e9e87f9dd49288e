package errors

import "github.com/tangzhangming/gfront/internal/i18n"

// ============================================================================
// 修复建议
// ============================================================================

var hintsEN = map[string][]string{
	E0002: {"remove the character or check for a missing operator"},
	E0003: {"add the closing quote on the same line", "use a heredoc (<<<MARKER) for multi-line text"},
	E0004: {"close the block comment with */"},
	E0005: {"a '.' in a number must be followed by digits; use '..' for ranges"},
	E0006: {"end the heredoc with a line containing only the marker"},
	E0007: {"a unicode escape is \\u followed by exactly 4 hex digits"},
	E0009: {"this is a lexer defect, please report it with the input"},
}

var hintsZH = map[string][]string{
	E0002: {"删除该字符，或检查是否缺少运算符"},
	E0003: {"在同一行内补上结束引号", "多行文本请使用 heredoc (<<<MARKER)"},
	E0004: {"使用 */ 结束块注释"},
	E0005: {"数字中的 '.' 后面必须跟数字，范围请使用 '..'"},
	E0006: {"使用只包含结束标记的一行来结束 heredoc"},
	E0007: {"Unicode 转义格式为 \\u 加 4 位十六进制数字"},
	E0009: {"这是词法分析器的缺陷，请附上输入报告问题"},
}

// GetSuggestions 根据错误码获取修复建议
func GetSuggestions(code string) []string {
	table := hintsEN
	if i18n.GetLanguage() == i18n.LangChinese {
		table = hintsZH
	}
	return table[code]
}
