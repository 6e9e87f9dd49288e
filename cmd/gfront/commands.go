package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/tangzhangming/gfront/internal/config"
	"github.com/tangzhangming/gfront/internal/diagnostics"
	"github.com/tangzhangming/gfront/internal/frontend"
	"github.com/tangzhangming/gfront/internal/i18n"
	"github.com/tangzhangming/gfront/internal/lexer"
	"github.com/tangzhangming/gfront/internal/repl"
	"github.com/tangzhangming/gfront/internal/token"
)

// stdinName 表示从标准输入读取的文件参数
const stdinName = "-"

// newFlagSet 子命令参数，错误写到 stderr
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// sources 把文件参数转换为编译单元，"-" 读取标准输入
func (a *app) sources(args []string) ([]frontend.Source, error) {
	var sources []frontend.Source
	for _, arg := range args {
		if arg != stdinName {
			sources = append(sources, frontend.FileSource(arg))
			continue
		}
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, errors.New(i18n.T(i18n.CLIReadStdin, err))
		}
		sources = append(sources, frontend.StringSource(a.cfg.Lexer.Filename, string(data)))
	}
	return sources, nil
}

func (a *app) driver(gstrings bool) *frontend.Driver {
	return &frontend.Driver{
		Logger:   a.logger.Named("frontend"),
		Reporter: a.newReporter(),
		Options:  []lexer.Option{lexer.WithGStrings(gstrings)},
	}
}

// tokenizeAll 在可以被 Ctrl+C 取消的上下文中扫描所有单元
func (a *app) tokenizeAll(d *frontend.Driver, sources []frontend.Source) ([]frontend.Result, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return d.TokenizeAll(ctx, sources)
}

// ============================================================================
// tokens
// ============================================================================

// tokenJSON token 的 JSON 形式
type tokenJSON struct {
	Type    string      `json:"type"`
	Literal string      `json:"literal"`
	Value   interface{} `json:"value,omitempty"`
	Line    int         `json:"line"`
	Column  int         `json:"column"`
	Offset  int         `json:"offset"`
}

type unitJSON struct {
	File   string      `json:"file"`
	Tokens []tokenJSON `json:"tokens"`
	Error  string      `json:"error,omitempty"`
}

func toJSON(tok token.Token) tokenJSON {
	value := tok.Value
	if value != nil {
		// *big.Int 按十进制字符串输出
		if s, ok := value.(fmt.Stringer); ok {
			value = s.String()
		}
	}
	return tokenJSON{
		Type:    tok.Type.String(),
		Literal: tok.Literal,
		Value:   value,
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
		Offset:  tok.Pos.Offset,
	}
}

// cmdTokens 输出 token 序列
func (a *app) cmdTokens(args []string) int {
	fs := a.newFlagSet("tokens")
	asJSON := fs.Bool("json", false, "print tokens as JSON")
	noGStrings := fs.Bool("no-gstrings", false, "disable ${} interpolation in double-quoted strings")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(a.stderr, i18n.T(i18n.CLINoInput))
		return 2
	}

	sources, err := a.sources(fs.Args())
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 2
	}

	d := a.driver(a.cfg.Lexer.GStrings && !*noGStrings)
	if *asJSON {
		// JSON 模式下错误也放在输出里
		d.Reporter.SetOutput(nil)
	}
	results, err := a.tokenizeAll(d, sources)

	if *asJSON {
		units := make([]unitJSON, 0, len(results))
		for _, r := range results {
			u := unitJSON{File: r.Source.Name, Tokens: make([]tokenJSON, 0, len(r.Tokens))}
			for _, tok := range r.Tokens {
				u.Tokens = append(u.Tokens, toJSON(tok))
			}
			if r.Err != nil {
				u.Error = r.Err.Error()
			}
			units = append(units, u)
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(units); encErr != nil {
			fmt.Fprintln(a.stderr, encErr)
			return 2
		}
	} else {
		for _, r := range results {
			if len(results) > 1 {
				fmt.Fprintf(a.stdout, "== %s ==\n", r.Source.Name)
			}
			for _, tok := range r.Tokens {
				fmt.Fprintf(a.stdout, "%d:%d\t%s\t%q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Literal)
			}
		}
	}

	if err != nil {
		return 1
	}
	return 0
}

// ============================================================================
// check
// ============================================================================

// cmdCheck 报告词法错误，有错误时退出码为 1
func (a *app) cmdCheck(args []string) int {
	fs := a.newFlagSet("check")
	asJSON := fs.Bool("json", false, "print LSP publishDiagnostics params, one JSON object per line")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(a.stderr, i18n.T(i18n.CLINoInput))
		return 2
	}

	sources, err := a.sources(fs.Args())
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 2
	}

	d := a.driver(a.cfg.Lexer.GStrings)
	if *asJSON {
		d.Reporter.SetOutput(nil)
	}
	results, err := a.tokenizeAll(d, sources)

	if *asJSON {
		params := make([]protocol.PublishDiagnosticsParams, 0, len(results))
		for _, r := range results {
			params = append(params, diagnostics.Publish(r.Source.Name, 0, r.Err))
		}
		if encErr := diagnostics.WriteJSON(a.stdout, params...); encErr != nil {
			fmt.Fprintln(a.stderr, encErr)
			return 2
		}
	} else if err != nil {
		fmt.Fprintln(a.stderr, i18n.T(i18n.CLIFoundErrors, d.Reporter.ErrorCount()))
	} else {
		fmt.Fprintln(a.stdout, i18n.T(i18n.CLINoErrors, len(results)))
	}

	st := d.Stats()
	a.logger.Debug("check finished",
		zap.Int64("units", st.Units),
		zap.Int64("tokens", st.Tokens),
		zap.Int64("failed", st.Failed))

	if err != nil {
		return 1
	}
	return 0
}

// ============================================================================
// repl
// ============================================================================

func (a *app) cmdRepl(args []string) int {
	fs := a.newFlagSet("repl")
	noHistory := fs.Bool("no-history", false, "do not read or write the history file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := repl.DefaultConfig()
	cfg.GStrings = a.cfg.Lexer.GStrings
	cfg.Logger = a.logger.Named("repl")
	if *noHistory {
		cfg.HistoryFile = ""
	}
	if err := repl.Run(cfg); err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}
	return 0
}

// ============================================================================
// init
// ============================================================================

// cmdInit 在当前目录生成默认配置文件
func (a *app) cmdInit(args []string) int {
	fs := a.newFlagSet("init")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(a.stderr, i18n.T(i18n.CLIConfigExists, path))
		return 1
	}

	cfg := config.Default()
	cfg.Lang = string(i18n.GetLanguage())
	if err := cfg.Save(path); err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}
	fmt.Fprintln(a.stdout, i18n.T(i18n.CLIInitCreated, path))
	return 0
}
