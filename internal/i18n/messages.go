package i18n

// ============================================================================
// 消息 ID
// ============================================================================

// 词法分析器
const (
	ErrUnexpectedChar         = "lexer.unexpected_char"
	ErrUnexpectedCharExpected = "lexer.unexpected_char_expected"
	ErrUnexpectedEOS          = "lexer.unexpected_eos"
	ErrUnterminatedString     = "lexer.unterminated_string"
	ErrUnterminatedHeredoc    = "lexer.unterminated_heredoc"
	ErrEmptyHeredocMarker     = "lexer.empty_heredoc_marker"
	ErrUnterminatedComment    = "lexer.unterminated_comment"
	ErrMalformedUnicode       = "lexer.malformed_unicode_escape"
	ErrReadFailure            = "lexer.read_failure"
	ErrGStringNotClosed       = "lexer.gstring_expression_not_closed"
	ErrUnterminatedExpression = "lexer.unterminated_expression"
	ErrInvalidNumber          = "lexer.invalid_number"
)

// 错误渲染
const (
	FmtExpected   = "format.expected"
	FmtEndOfInput = "format.end_of_input"
)

// 命令行
const (
	CLIUsage           = "cli.usage"
	CLIUnknownCommand  = "cli.unknown_command"
	CLINoInput         = "cli.no_input"
	CLIFoundErrors     = "cli.found_errors"
	CLINoErrors        = "cli.no_errors"
	CLIConfigError     = "cli.config_error"
	CLIVersion         = "cli.version"
	CLICacheStats      = "cli.cache_stats"
	CLIReplWelcome     = "cli.repl_welcome"
	CLIReplHelp        = "cli.repl_help"
	CLIReplGStrings    = "cli.repl_gstrings"
	CLIReplUnknownCmd  = "cli.repl_unknown_command"
	CLIInitCreated     = "cli.init_created"
	CLIConfigExists    = "cli.config_exists"
	CLIReadStdin       = "cli.read_stdin"
)
