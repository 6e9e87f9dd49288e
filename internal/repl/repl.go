// repl.go - gfront 词法 REPL
//
// 提供交互式命令行界面，支持：
// - 多行输入（未闭合的字符串、块注释、heredoc 和 ${ 插值）
// - 历史记录（liner）
// - 特殊命令（:help, :quit, :gstrings, :history）
// - 逐个打印 token，错误按报告器格式显示

package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	cerrors "github.com/tangzhangming/gfront/internal/errors"
	"github.com/tangzhangming/gfront/internal/i18n"
	"github.com/tangzhangming/gfront/internal/lexer"
	"github.com/tangzhangming/gfront/internal/token"
)

// SourceName REPL 输入的文件名
const SourceName = "<repl>"

// maxHistory 历史记录上限
const maxHistory = 1000

// LineReader 逐行读取输入，*liner.State 实现了这个接口
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Config REPL 配置
type Config struct {
	GStrings       bool
	PromptPrimary  string
	PromptContinue string
	HistoryFile    string // 为空时不保存历史
	Logger         *zap.Logger
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	history := ""
	if home != "" {
		history = filepath.Join(home, ".gfront_history")
	}
	return Config{
		GStrings:       true,
		PromptPrimary:  "gfront> ",
		PromptContinue: "   ...> ",
		HistoryFile:    history,
	}
}

// REPL 交互式词法分析器
type REPL struct {
	in             LineReader
	out            io.Writer
	formatter      *cerrors.Formatter
	logger         *zap.Logger
	gstrings       bool
	history        []string
	promptPrimary  string
	promptContinue string
}

// New 创建 REPL
func New(config Config, in LineReader, out io.Writer) *REPL {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &REPL{
		in:             in,
		out:            out,
		formatter:      cerrors.GetDefaultFormatter(),
		logger:         logger,
		gstrings:       config.GStrings,
		promptPrimary:  config.PromptPrimary,
		promptContinue: config.PromptContinue,
	}
}

// Run 在终端上运行 REPL，退出时保存历史
func Run(config Config) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if config.HistoryFile != "" {
		if f, err := os.Open(config.HistoryFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(config.HistoryFile); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	return New(config, ln, os.Stdout).Loop()
}

// Loop 读取并处理输入，直到 EOF 或 :quit
func (r *REPL) Loop() error {
	fmt.Fprintln(r.out, i18n.T(i18n.CLIReplWelcome))

	var buffer strings.Builder
	for {
		prompt := r.promptPrimary
		if buffer.Len() > 0 {
			prompt = r.promptContinue
		}

		line, err := r.in.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C 放弃当前输入
			buffer.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		// 处理特殊命令
		if buffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			if quit := r.handleCommand(strings.TrimSpace(line)); quit {
				return nil
			}
			continue
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)

		// 检查是否需要继续输入
		input := buffer.String()
		tokens, lexErr := r.tokenize(input)
		if needsMoreInput(lexErr) {
			continue
		}
		buffer.Reset()

		if strings.TrimSpace(input) == "" {
			continue
		}
		r.addHistory(input)
		r.print(input, tokens, lexErr)
	}
}

// handleCommand 处理特殊命令，返回是否退出
func (r *REPL) handleCommand(line string) bool {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, i18n.T(i18n.CLIReplHelp))

	case ":quit", ":q", ":exit":
		return true

	case ":gstrings":
		if len(args) == 1 {
			switch strings.ToLower(args[0]) {
			case "on", "true", "1":
				r.gstrings = true
			case "off", "false", "0":
				r.gstrings = false
			}
		}
		fmt.Fprintln(r.out, i18n.T(i18n.CLIReplGStrings, r.gstrings))

	case ":history", ":hist":
		for i, item := range r.history {
			fmt.Fprintf(r.out, "%4d  %s\n", i+1, item)
		}

	default:
		fmt.Fprintln(r.out, i18n.T(i18n.CLIReplUnknownCmd, cmd))
	}
	return false
}

// addHistory 添加到历史记录
func (r *REPL) addHistory(input string) {
	// 不添加重复的历史记录
	if len(r.history) > 0 && r.history[len(r.history)-1] == input {
		return
	}
	r.history = append(r.history, input)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
	r.in.AppendHistory(input)
}

func (r *REPL) tokenize(input string) ([]token.Token, error) {
	return lexer.New(input, SourceName, lexer.WithGStrings(r.gstrings)).ScanTokens()
}

// needsMoreInput 错误发生在输入末尾，且是可以跨行的结构没有闭合
//
// 引号字符串不能跨行，未闭合时直接报错；块注释、heredoc 和
// ${ } 表达式可以在下一行继续。
func needsMoreInput(err error) bool {
	var le *lexer.Error
	if !errors.As(err, &le) || le.Char != lexer.EOS {
		return false
	}
	switch le.Kind {
	case lexer.UnterminatedComment, lexer.UnterminatedHeredoc, lexer.UnterminatedExpression:
		return true
	}
	return false
}

// print 打印 token，出错时在已有 token 之后打印错误
func (r *REPL) print(input string, tokens []token.Token, err error) {
	for _, tok := range tokens {
		if tok.Type == token.EOF {
			break
		}
		fmt.Fprintln(r.out, formatToken(tok))
	}
	if err == nil {
		return
	}

	var le *lexer.Error
	if errors.As(err, &le) {
		r.logger.Debug("repl input rejected", zap.String("code", le.Code()), zap.Stringer("pos", le.Pos))
		fmt.Fprint(r.out, r.formatter.FormatCompileError(le.CompileError(), strings.Split(input, "\n")))
		return
	}
	fmt.Fprintf(r.out, "error: %v\n", err)
}

// formatToken 一行显示一个 token：位置、类型、原始文本和解码值
func formatToken(tok token.Token) string {
	pos := fmt.Sprintf("%d:%d", tok.Pos.Line, tok.Pos.Column)
	line := fmt.Sprintf("%-7s %-26s %q", pos, tok.Type, tok.Literal)
	if tok.Value != nil {
		line += fmt.Sprintf(" = %v", tok.Value)
	}
	return line
}
