package i18n

var messagesZH = map[string]string{
	// ========== 词法分析器 ==========
	ErrUnexpectedChar:         "意外字符 %s",
	ErrUnexpectedCharExpected: "意外字符 %s，期望 %s 之一",
	ErrUnexpectedEOS:          "意外的输入结束，期望 %s 之一",
	ErrUnterminatedString:     "未闭合的字符串",
	ErrUnterminatedHeredoc:    "未闭合的 heredoc，缺少结束标记 '%s'",
	ErrEmptyHeredocMarker:     "heredoc 标记不能为空",
	ErrUnterminatedComment:    "未闭合的块注释",
	ErrMalformedUnicode:       "无效的 Unicode 转义，需要十六进制数字但得到 %s",
	ErrReadFailure:            "读取源代码失败: %v",
	ErrGStringNotClosed:       "插值表达式没有在 '}' 处结束，得到 %s",
	ErrUnterminatedExpression: "未闭合的 ${ 表达式，缺少 '}'",
	ErrInvalidNumber:          "无效的数字字面量: %s",

	// ========== 错误渲染 ==========
	FmtExpected:   "期望 %s",
	FmtEndOfInput: "输入结束",

	// ========== 命令行 ==========
	CLIUsage: `gfront - Groovy 前端工具

用法:
  gfront [--lang en|zh] [--config 文件] <命令> [参数]

命令:
  tokens [-json] [-no-gstrings] <文件...>   输出 token 序列
  check  [-json] <文件...>                  报告词法错误
  repl                                      交互式词法分析
  cache-demo [-n N]                         演示分派缓存
  init [dir]                                生成默认的 gfront.toml
  version                                   显示版本
  help                                      显示帮助
`,
	CLIUnknownCommand: "未知命令: %s",
	CLINoInput:        "没有输入文件",
	CLIFoundErrors:    "发现 %d 个错误",
	CLINoErrors:       "检查了 %d 个文件，没有错误",
	CLIConfigError:    "配置错误: %v",
	CLIVersion:        "gfront 版本 %s",
	CLICacheStats:     "分派缓存: %d 个条目 (%d 个槽位), 命中 %d, 未命中 %d, 调用点 %d",
	CLIReplWelcome:    "gfront token REPL，输入 :help 查看命令，Ctrl+D 退出。",
	CLIReplHelp: `:help              显示帮助
:quit              退出
:gstrings on|off   开关字符串插值
:history           显示输入历史`,
	CLIReplGStrings:   "字符串插值: %v",
	CLIReplUnknownCmd: "未知命令 %s，输入 :help 查看帮助",
	CLIInitCreated:    "已创建 %s",
	CLIConfigExists:   "%s 已存在",
	CLIReadStdin:      "读取标准输入失败: %v",
}
