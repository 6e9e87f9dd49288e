package main

import (
	"os"
	"runtime"
	"strings"

	"github.com/tangzhangming/gfront/internal/config"
	"github.com/tangzhangming/gfront/internal/i18n"
)

// initLanguage 初始化语言设置
// 优先级: 命令行参数 > GFRONT_LANG / 配置文件 > 操作系统语言 > 默认英文
func initLanguage(langOverride string, cfg *config.Config, cfgPath string) {
	// 1. 命令行参数优先
	if langOverride != "" {
		i18n.SetLanguageFromString(langOverride)
		return
	}

	// 2. 环境变量或配置文件里明确写了语言
	if _, ok := os.LookupEnv(config.EnvLang); ok || cfgPath != "" {
		i18n.SetLanguageFromString(cfg.Lang)
		return
	}

	// 3. 检测操作系统语言
	if detectChineseOS() {
		i18n.SetLanguage(i18n.LangChinese)
		return
	}

	// 4. 默认英文
	i18n.SetLanguage(i18n.LangEnglish)
}

// detectChineseOS 检测操作系统是否为中文环境
func detectChineseOS() bool {
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(strings.ToLower(systemUILanguage()), "zh") {
			return true
		}
	}

	// Unix/Linux/Mac: 检查 locale 环境变量
	for _, v := range []string{"LC_ALL", "LC_MESSAGES", "LANGUAGE", "LANG"} {
		if lang, ok := i18n.ParseLanguage(os.Getenv(v)); ok {
			return lang == i18n.LangChinese
		}
	}

	return false
}
