package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 VULNLAB_LOGGER_LEVEL
const EnvPrefix = "VULNLAB"

// Config 全局配置
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan"`
	Scenario ScenarioConfig `mapstructure:"scenario" yaml:"scenario"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"` // 为空时不写文件
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig 各日志级别在控制台中的颜色
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// ScanConfig 扫描配置
type ScanConfig struct {
	Catalog     string `mapstructure:"catalog" yaml:"catalog"` // 自定义签名目录 YAML，为空时使用内置目录
	MaxSnippets int    `mapstructure:"max_snippets" yaml:"max_snippets"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"` // 批量扫描时同时处理的文件数
}

// ScenarioConfig 攻击场景回放配置
type ScenarioConfig struct {
	Speed time.Duration `mapstructure:"speed" yaml:"speed"`
}

// ReportConfig 报告配置
type ReportConfig struct {
	Format    string `mapstructure:"format" yaml:"format"` // markdown | json
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// SetDefaults 写入全部默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vulnlab")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("scan.catalog", "")
	v.SetDefault("scan.max_snippets", 3)
	v.SetDefault("scan.concurrency", 4)

	v.SetDefault("scenario.speed", "1500ms")

	v.SetDefault("report.format", "markdown")
	v.SetDefault("report.output_dir", "")
}

// NewDefaultConfig 返回只包含默认值的配置
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// DefaultDir 返回默认配置目录 ~/.vulnlab
func DefaultDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".vulnlab"), nil
}

// NewViper 创建带默认值与环境变量绑定的 viper 实例
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load 读取配置。path 为空时在默认目录查找 config.yaml，找不到则只用默认值和环境变量。
func Load(path string) (*Config, error) {
	v := NewViper()
	if err := ReadInto(v, path); err != nil {
		return nil, err
	}
	return NewConfigFromViper(v)
}

// ReadInto 把配置文件读入 v
func ReadInto(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	dir, err := DefaultDir()
	if err != nil {
		return err
	}
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// NewConfigFromViper 解码并校验配置
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate 检查取值是否合理。scenario.speed 越界不算错误，由回放器钳制。
func (c *Config) Validate() error {
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	if c.Scan.MaxSnippets < 1 {
		return fmt.Errorf("scan.max_snippets must be a positive integer")
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be a positive integer")
	}
	if c.Scenario.Speed <= 0 {
		return fmt.Errorf("scenario.speed must be positive")
	}
	switch c.Report.Format {
	case "markdown", "json":
	default:
		return fmt.Errorf("report.format must be markdown or json, got %q", c.Report.Format)
	}
	return nil
}
