package i18n

import (
	"fmt"
	"os"
	"strings"

	uatomic "go.uber.org/atomic"
)

// Language 消息语言
type Language string

const (
	LangEnglish Language = "en"
	LangChinese Language = "zh"
)

// EnvLang 进程启动时的默认语言，取值同 --lang
const EnvLang = "GFRONT_LANG"

var catalogs = map[Language]map[string]string{
	LangEnglish: messagesEN,
	LangChinese: messagesZH,
}

var current = uatomic.NewString(string(defaultLanguage()))

func defaultLanguage() Language {
	if lang, ok := ParseLanguage(os.Getenv(EnvLang)); ok {
		return lang
	}
	return LangEnglish
}

// ParseLanguage 识别 zh、zh-CN、zh_TW.UTF-8、chinese、en_US 这类写法
func ParseLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_.@:"); i >= 0 {
		s = s[:i]
	}
	switch s {
	case "zh", "chinese":
		return LangChinese, true
	case "en", "english":
		return LangEnglish, true
	}
	return "", false
}

// SetLanguage 设置当前语言
func SetLanguage(lang Language) {
	current.Store(string(lang))
}

// SetLanguageFromString 无法识别的取值按英文处理
func SetLanguageFromString(s string) {
	lang, ok := ParseLanguage(s)
	if !ok {
		lang = LangEnglish
	}
	SetLanguage(lang)
}

// GetLanguage 获取当前语言
func GetLanguage() Language {
	return Language(current.Load())
}

// T 按当前语言翻译
func T(msgID string, args ...interface{}) string {
	return In(GetLanguage(), msgID, args...)
}

// In 按指定语言翻译，缺少译文时用英文，英文也没有时返回 msgID
func In(lang Language, msgID string, args ...interface{}) string {
	msg, ok := catalogs[lang][msgID]
	if !ok {
		msg, ok = messagesEN[msgID]
	}
	if !ok {
		return msgID
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
