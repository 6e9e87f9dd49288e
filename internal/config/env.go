package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/tangzhangming/gfront/internal/i18n"
)

// 环境变量
const (
	EnvLang           = i18n.EnvLang
	EnvDebug          = "GFRONT_DEBUG"
	EnvLogLevel       = "GFRONT_LOG_LEVEL"
	EnvLogFormat      = "GFRONT_LOG_FORMAT"
	EnvGStrings       = "GFRONT_GSTRINGS"
	EnvColors         = "GFRONT_COLORS"
	EnvCacheSegments  = "GFRONT_CACHE_SEGMENTS"
	EnvCacheReference = "GFRONT_CACHE_REFERENCE"
	EnvRefPolicy      = "GFRONT_REF_POLICY"
	EnvRefThreshold   = "GFRONT_REF_THRESHOLD"
)

// LoadDotEnv 加载 dir 下的 .env 文件
//
// 已经存在的环境变量不会被覆盖。文件不存在不是错误。
func LoadDotEnv(dir string) error {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, EnvFileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv 用 GFRONT_* 环境变量覆盖配置
func ApplyEnv(c *Config) error {
	var err error

	setString(&c.Lang, EnvLang)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Log.Format, EnvLogFormat)
	setString(&c.Diagnostics.Colors, EnvColors)
	setString(&c.Cache.Reference, EnvCacheReference)
	setString(&c.References.Policy, EnvRefPolicy)

	err = multierr.Append(err, setBool(&c.Lexer.GStrings, EnvGStrings))
	err = multierr.Append(err, setInt(&c.Cache.Segments, EnvCacheSegments))

	if v, ok := os.LookupEnv(EnvRefThreshold); ok {
		n, e := strconv.ParseInt(v, 10, 64)
		if e != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", EnvRefThreshold, e))
		} else {
			c.References.Threshold = n
		}
	}

	// GFRONT_DEBUG=1 强制调试日志
	var debug bool
	if e := setBool(&debug, EnvDebug); e != nil {
		err = multierr.Append(err, e)
	} else if debug {
		c.Log.Level = "debug"
	}

	return err
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
