// Package config 读取 gfront.toml、.env 和 GFRONT_* 环境变量
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/tangzhangming/gfront/internal/concurrent"
	"github.com/tangzhangming/gfront/internal/ref"
)

// 常量定义
const (
	ConfigFileName = "gfront.toml" // 配置文件名
	EnvFileName    = ".env"        // 环境变量文件名
)

// Config 完整配置
type Config struct {
	// Lang 消息语言（en / zh）
	Lang string `toml:"lang"`

	Lexer       LexerConfig       `toml:"lexer"`
	Cache       CacheConfig       `toml:"cache"`
	References  ReferencesConfig  `toml:"references"`
	Log         LogConfig         `toml:"log"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
}

// LexerConfig 词法分析器配置
type LexerConfig struct {
	// GStrings 是否启用 "..." 中的 ${} 插值
	GStrings bool `toml:"gstrings"`

	// TabWidth 错误报告中制表符的显示宽度
	TabWidth int `toml:"tab_width"`

	// Filename 从标准输入读取时使用的文件名
	Filename string `toml:"filename"`
}

// CacheConfig 分派缓存配置
type CacheConfig struct {
	Segments        int    `toml:"segments"`
	InitialCapacity int    `toml:"initial_capacity"`
	Reference       string `toml:"reference"` // soft / weak / phantom / hard
}

// ReferencesConfig 引用管理器配置
type ReferencesConfig struct {
	Policy       string `toml:"policy"` // threaded / callback / idling / thresholded
	Threshold    int64  `toml:"threshold"`
	PollInterval string `toml:"poll_interval"`
	MsPerMB      int64  `toml:"ms_per_mb"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level"`  // debug / info / warn / error
	Format string `toml:"format"` // console / json
}

// DiagnosticsConfig 错误输出配置
type DiagnosticsConfig struct {
	Colors string `toml:"colors"` // auto / always / never
}

// Default 返回完整的默认配置
func Default() *Config {
	return &Config{
		Lang: "en",
		Lexer: LexerConfig{
			GStrings: true,
			TabWidth: 4,
			Filename: "<stdin>",
		},
		Cache: CacheConfig{
			Segments:        concurrent.DefaultSegments,
			InitialCapacity: concurrent.DefaultInitialCapacity,
			Reference:       ref.Weak.String(),
		},
		References: ReferencesConfig{
			Policy:       ref.ThresholdedIdling.String(),
			Threshold:    ref.DefaultThreshold,
			PollInterval: ref.DefaultPollInterval.String(),
			MsPerMB:      ref.DefaultMsPerMB,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Diagnostics: DiagnosticsConfig{
			Colors: "auto",
		},
	}
}

// ============================================================================
// 加载
// ============================================================================

// LoadConfig 从文件加载配置，文件中没有的字段保留默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return nil, fmt.Errorf("failed to parse config file %s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// Load 加载 startPath 所在项目的配置
//
// 顺序：默认值，向上查找到的 gfront.toml，同目录的 .env，GFRONT_* 环境变量。
// 返回配置和找到的配置文件路径（可能为空）。
func Load(startPath string) (*Config, string, error) {
	config := Default()

	path := FindConfigFile(startPath)
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, path, err
		}
		config = loaded
	}

	root := GetProjectRoot(startPath)
	if root == "" {
		root = startDir(startPath)
	}
	if err := LoadDotEnv(root); err != nil {
		return nil, path, err
	}

	if err := ApplyEnv(config); err != nil {
		return nil, path, err
	}
	if err := config.Validate(); err != nil {
		return nil, path, err
	}
	return config, path, nil
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	content := generateConfigWithComments(c)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateConfigWithComments 生成带注释的配置文件内容
func generateConfigWithComments(c *Config) string {
	var sb strings.Builder

	sb.WriteString("# 消息语言（en / zh）\n")
	sb.WriteString(fmt.Sprintf("lang = %q\n\n", c.Lang))

	sb.WriteString("[lexer]\n")
	sb.WriteString("# 双引号字符串中的 ${} 插值\n")
	sb.WriteString(fmt.Sprintf("gstrings = %t\n", c.Lexer.GStrings))
	sb.WriteString(fmt.Sprintf("tab_width = %d\n", c.Lexer.TabWidth))
	sb.WriteString(fmt.Sprintf("filename = %q\n\n", c.Lexer.Filename))

	sb.WriteString("[cache]\n")
	sb.WriteString(fmt.Sprintf("segments = %d\n", c.Cache.Segments))
	sb.WriteString(fmt.Sprintf("initial_capacity = %d\n", c.Cache.InitialCapacity))
	sb.WriteString("# 键的引用类型：soft / weak / phantom / hard\n")
	sb.WriteString(fmt.Sprintf("reference = %q\n\n", c.Cache.Reference))

	sb.WriteString("[references]\n")
	sb.WriteString("# 排空策略：threaded / callback / idling / thresholded\n")
	sb.WriteString(fmt.Sprintf("policy = %q\n", c.References.Policy))
	sb.WriteString(fmt.Sprintf("threshold = %d\n", c.References.Threshold))
	sb.WriteString(fmt.Sprintf("poll_interval = %q\n", c.References.PollInterval))
	sb.WriteString(fmt.Sprintf("ms_per_mb = %d\n\n", c.References.MsPerMB))

	sb.WriteString("[log]\n")
	sb.WriteString(fmt.Sprintf("level = %q\n", c.Log.Level))
	sb.WriteString(fmt.Sprintf("format = %q\n\n", c.Log.Format))

	sb.WriteString("[diagnostics]\n")
	sb.WriteString("# auto / always / never\n")
	sb.WriteString(fmt.Sprintf("colors = %q\n", c.Diagnostics.Colors))

	return sb.String()
}

// ============================================================================
// 校验
// ============================================================================

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
	colorModes = []string{"auto", "always", "never"}
	languages  = []string{"en", "zh"}
)

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", "))
}

// Validate 检查所有字段，返回全部错误
func (c *Config) Validate() error {
	var err error

	err = multierr.Append(err, oneOf("lang", c.Lang, languages))
	if c.Lexer.TabWidth < 1 {
		err = multierr.Append(err, fmt.Errorf("lexer.tab_width: must be positive, got %d", c.Lexer.TabWidth))
	}
	if c.Cache.Segments < 1 {
		err = multierr.Append(err, fmt.Errorf("cache.segments: must be positive, got %d", c.Cache.Segments))
	}
	if c.Cache.InitialCapacity < 1 {
		err = multierr.Append(err, fmt.Errorf("cache.initial_capacity: must be positive, got %d", c.Cache.InitialCapacity))
	}
	if _, e := ref.ParseReferenceType(c.Cache.Reference); e != nil {
		err = multierr.Append(err, fmt.Errorf("cache.reference: %w", e))
	}
	if _, e := ref.ParsePolicy(c.References.Policy); e != nil {
		err = multierr.Append(err, fmt.Errorf("references.policy: %w", e))
	}
	if d, e := time.ParseDuration(c.References.PollInterval); e != nil || d <= 0 {
		err = multierr.Append(err, fmt.Errorf("references.poll_interval: invalid duration %q", c.References.PollInterval))
	}
	if c.References.Threshold < 1 {
		err = multierr.Append(err, fmt.Errorf("references.threshold: must be positive, got %d", c.References.Threshold))
	}
	err = multierr.Append(err, oneOf("log.level", c.Log.Level, logLevels))
	err = multierr.Append(err, oneOf("log.format", c.Log.Format, logFormats))
	err = multierr.Append(err, oneOf("diagnostics.colors", c.Diagnostics.Colors, colorModes))

	return err
}

// ============================================================================
// 转换
// ============================================================================

// ReferenceType 缓存键的引用类型，配置无效时返回弱引用
func (c *Config) ReferenceType() ref.ReferenceType {
	t, err := ref.ParseReferenceType(c.Cache.Reference)
	if err != nil {
		return ref.Weak
	}
	return t
}

// ManagerConfig 引用管理器配置，无效字段使用默认值
func (c *Config) ManagerConfig() ref.ManagerConfig {
	mc := ref.DefaultManagerConfig()
	if p, err := ref.ParsePolicy(c.References.Policy); err == nil {
		mc.Policy = p
	}
	if d, err := time.ParseDuration(c.References.PollInterval); err == nil && d > 0 {
		mc.PollInterval = d
	}
	if c.References.Threshold > 0 {
		mc.Threshold = c.References.Threshold
	}
	if c.References.MsPerMB > 0 {
		mc.MsPerMB = c.References.MsPerMB
	}
	return mc
}

// MapOptions 缓存 map 的构造选项
func (c *Config) MapOptions() []concurrent.Option {
	return []concurrent.Option{
		concurrent.WithSegments(c.Cache.Segments),
		concurrent.WithInitialCapacity(c.Cache.InitialCapacity),
	}
}

// ============================================================================
// 查找
// ============================================================================

func startDir(startPath string) string {
	info, err := os.Stat(startPath)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		return startPath
	}
	return filepath.Dir(startPath)
}

// FindConfigFile 从指定路径向上查找配置文件
// 返回配置文件的完整路径，如果找不到则返回空字符串
func FindConfigFile(startPath string) string {
	dir := startDir(startPath)
	if dir == "" {
		return ""
	}

	// 转换为绝对路径
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	// 向上查找
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// 获取父目录
		parent := filepath.Dir(dir)
		if parent == dir {
			// 已到达根目录
			return ""
		}
		dir = parent
	}
}

// GetProjectRoot 获取项目根目录（配置文件所在目录）
func GetProjectRoot(startPath string) string {
	configPath := FindConfigFile(startPath)
	if configPath == "" {
		return ""
	}
	return filepath.Dir(configPath)
}
