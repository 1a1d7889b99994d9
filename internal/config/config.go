// Package config loads the judge core's configuration from defaults, an
// optional YAML file, and JUDGE_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	LogLevel      string `mapstructure:"log_level"`
	BindAddress   string `mapstructure:"bind_address"`
	MetricsBind   string `mapstructure:"metrics_bind"`
	DataDirectory string `mapstructure:"data_directory"`

	IsolatePath string `mapstructure:"isolate_path"`
	BoxIDMin    int    `mapstructure:"box_id_min"`
	BoxIDMax    int    `mapstructure:"box_id_max"`

	CompileTimeoutMS int   `mapstructure:"compile_timeout_ms"`
	RunTimeoutMS     int   `mapstructure:"run_timeout_ms"`
	CompileCPUTimeMS int   `mapstructure:"compile_cpu_time_ms"`
	RunCPUTimeMS     int   `mapstructure:"run_cpu_time_ms"`
	MemoryLimitKB    int64 `mapstructure:"memory_limit_kb"`
	FileSizeLimitKB  int64 `mapstructure:"file_size_limit_kb"`
	StackLimitKB     int64 `mapstructure:"stack_limit_kb"`
	MaxProcessCount  int   `mapstructure:"max_process_count"`

	StdoutMaxBytes int `mapstructure:"stdout_max_bytes"`
	StderrMaxBytes int `mapstructure:"stderr_max_bytes"`

	DisableNetworking bool `mapstructure:"disable_networking"`
	InitRetryAttempts int  `mapstructure:"init_retry_attempts"`

	ProblemServiceURL string `mapstructure:"problem_service_url"`
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("bind_address", "0.0.0.0:2000")
	viper.SetDefault("metrics_bind", "0.0.0.0:9090")
	viper.SetDefault("data_directory", "/judge")

	viper.SetDefault("isolate_path", "/usr/local/bin/isolate")
	viper.SetDefault("box_id_min", 0)
	viper.SetDefault("box_id_max", 999)

	viper.SetDefault("compile_timeout_ms", 10000)
	viper.SetDefault("run_timeout_ms", 5000)
	viper.SetDefault("compile_cpu_time_ms", 8000)
	viper.SetDefault("run_cpu_time_ms", 2000)
	viper.SetDefault("memory_limit_kb", 524288) // 512MB
	viper.SetDefault("file_size_limit_kb", 51200)
	viper.SetDefault("stack_limit_kb", 262144)
	viper.SetDefault("max_process_count", 32)

	viper.SetDefault("stdout_max_bytes", 10000)
	viper.SetDefault("stderr_max_bytes", 2000)

	viper.SetDefault("disable_networking", true)
	viper.SetDefault("init_retry_attempts", 3)

	viper.SetDefault("problem_service_url", "")

	viper.SetEnvPrefix("JUDGE")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/judge/")
	viper.AddConfigPath("$HOME/.judge/")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.BoxIDMin < 0 || cfg.BoxIDMax < cfg.BoxIDMin {
		return fmt.Errorf("box_id_min/box_id_max must describe a non-empty range")
	}

	if cfg.RunTimeoutMS <= cfg.RunCPUTimeMS {
		return fmt.Errorf("run_timeout_ms must exceed run_cpu_time_ms")
	}

	if cfg.CompileTimeoutMS <= cfg.CompileCPUTimeMS {
		return fmt.Errorf("compile_timeout_ms must exceed compile_cpu_time_ms")
	}

	if cfg.InitRetryAttempts <= 0 {
		return fmt.Errorf("init_retry_attempts must be positive")
	}

	return nil
}

// GetLogLevel returns the parsed log level, falling back to Info.
func (c *Config) GetLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// RunTimeout returns the wall-clock limit for the run stage as a Duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMS) * time.Millisecond
}

// CompileTimeout returns the wall-clock limit for the compile stage as a Duration.
func (c *Config) CompileTimeout() time.Duration {
	return time.Duration(c.CompileTimeoutMS) * time.Millisecond
}

// GetIntEnv gets an integer environment variable with fallback.
func GetIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}
