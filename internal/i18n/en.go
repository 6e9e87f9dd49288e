package i18n

var messagesEN = map[string]string{
	// ========== Lexer ==========
	ErrUnexpectedChar:         "unexpected character %s",
	ErrUnexpectedCharExpected: "unexpected character %s, expected one of %s",
	ErrUnexpectedEOS:          "unexpected end of input, expected one of %s",
	ErrUnterminatedString:     "unterminated string literal",
	ErrUnterminatedHeredoc:    "unterminated heredoc, missing closing marker '%s'",
	ErrEmptyHeredocMarker:     "heredoc marker must not be empty",
	ErrUnterminatedComment:    "unterminated block comment",
	ErrMalformedUnicode:       "malformed unicode escape, expected hex digit but got %s",
	ErrReadFailure:            "failed to read source: %v",
	ErrGStringNotClosed:       "interpolated expression did not end at '}', found %s",
	ErrUnterminatedExpression: "unterminated ${ expression, missing '}'",
	ErrInvalidNumber:          "invalid number literal: %s",

	// ========== Rendering ==========
	FmtExpected:   "expected %s",
	FmtEndOfInput: "end of input",

	// ========== CLI ==========
	CLIUsage: `gfront - Groovy front end toolkit

Usage:
  gfront [--lang en|zh] [--config file] <command> [arguments]

Commands:
  tokens [-json] [-no-gstrings] <files...>   print the token stream
  check  [-json] <files...>                  report lexical errors
  repl                                       interactive tokenizer
  cache-demo [-n N]                          exercise the dispatch cache
  init [dir]                                 write a default gfront.toml
  version                                    print version
  help                                       show this help
`,
	CLIUnknownCommand: "unknown command: %s",
	CLINoInput:        "no input files",
	CLIFoundErrors:    "found %d error(s)",
	CLINoErrors:       "%d file(s) checked, no errors",
	CLIConfigError:    "config error: %v",
	CLIVersion:        "gfront version %s",
	CLICacheStats:     "dispatch cache: %d entries (%d slots), %d hits, %d misses, %d call sites",
	CLIReplWelcome:    "gfront token REPL. Type :help for commands, Ctrl+D to exit.",
	CLIReplHelp: `:help              show this help
:quit              exit
:gstrings on|off   toggle string interpolation
:history           show input history`,
	CLIReplGStrings:   "gstrings: %v",
	CLIReplUnknownCmd: "unknown command %s, type :help",
	CLIInitCreated:    "created %s",
	CLIConfigExists:   "%s already exists",
	CLIReadStdin:      "failed to read standard input: %v",
}
