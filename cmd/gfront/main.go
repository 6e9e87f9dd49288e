package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/gfront/internal/config"
	cerrors "github.com/tangzhangming/gfront/internal/errors"
	"github.com/tangzhangming/gfront/internal/i18n"
	"github.com/tangzhangming/gfront/internal/logging"
)

const (
	Version = "0.1.0"
)

// globalOptions 出现在命令之前或之后的全局参数
type globalOptions struct {
	lang   string
	config string
}

// app 一次命令执行需要的环境
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run 执行命令并返回退出码
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// 预扫描全局参数 --lang 和 --config
	args, opts := preprocessArgs(args)

	// 配置加载失败时也要用正确的语言报告
	initLanguage(opts.lang, config.Default(), "")

	cfg, cfgPath, err := loadConfig(opts.config)
	if err != nil {
		fmt.Fprintln(stderr, i18n.T(i18n.CLIConfigError, err))
		return 2
	}
	initLanguage(opts.lang, cfg, cfgPath)
	applyColors(cfg)

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(stderr, i18n.T(i18n.CLIConfigError, err))
		return 2
	}
	defer func() { _ = logger.Sync() }()
	if cfgPath != "" {
		logger.Debug("config loaded", zap.String("path", cfgPath))
	}

	a := &app{
		cfg:     cfg,
		cfgPath: cfgPath,
		logger:  logger,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}

	if len(args) < 1 {
		a.printUsage(stdout)
		return 0
	}

	command := args[0]
	switch command {
	case "tokens":
		return a.cmdTokens(args[1:])
	case "check":
		return a.cmdCheck(args[1:])
	case "repl":
		return a.cmdRepl(args[1:])
	case "cache-demo":
		return a.cmdCacheDemo(args[1:])
	case "init":
		return a.cmdInit(args[1:])
	case "version", "-v", "--version":
		fmt.Fprintln(stdout, i18n.T(i18n.CLIVersion, Version))
		return 0
	case "help", "-h", "--help":
		a.printUsage(stdout)
		return 0
	default:
		fmt.Fprintln(stderr, i18n.T(i18n.CLIUnknownCommand, command))
		fmt.Fprintln(stderr)
		a.printUsage(stderr)
		return 1
	}
}

// preprocessArgs 预处理参数，提取全局 --lang 和 --config 参数
func preprocessArgs(args []string) ([]string, globalOptions) {
	var opts globalOptions
	var result []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var target *string
		name := strings.TrimLeft(arg, "-")
		switch {
		case !strings.HasPrefix(arg, "-"):
		case name == "lang" || strings.HasPrefix(name, "lang="):
			target = &opts.lang
		case name == "config" || strings.HasPrefix(name, "config="):
			target = &opts.config
		}
		if target == nil {
			result = append(result, arg)
			continue
		}

		if _, value, ok := strings.Cut(name, "="); ok {
			*target = value
		} else if i+1 < len(args) {
			*target = args[i+1]
			i++ // 跳过下一个参数
		}
	}
	return result, opts
}

// loadConfig 加载配置
//
// 指定了 --config 时只读该文件，否则从当前目录向上查找 gfront.toml。
// 两种情况都会应用 .env 和 GFRONT_* 环境变量。
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		return config.Load(wd)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.LoadDotEnv(filepath.Dir(path)); err != nil {
		return nil, path, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// applyColors 按 [diagnostics] colors 和 [lexer] tab_width 设置错误格式化器
func applyColors(cfg *config.Config) {
	switch cfg.Diagnostics.Colors {
	case "always":
		cerrors.EnableColors()
	case "never":
		cerrors.DisableColors()
	}
	f := cerrors.NewFormatter()
	f.TabWidth = cfg.Lexer.TabWidth
	cerrors.SetDefaultFormatter(f)
}

func (a *app) printUsage(w io.Writer) {
	fmt.Fprintln(w, i18n.T(i18n.CLIVersion, Version))
	fmt.Fprintln(w)
	fmt.Fprint(w, i18n.T(i18n.CLIUsage))
}

// newReporter 错误写到标准错误，使用配置好的格式化器
func (a *app) newReporter() *cerrors.Reporter {
	r := cerrors.NewReporter()
	r.SetFormatter(cerrors.GetDefaultFormatter())
	r.SetOutput(a.stderr)
	return r
}
