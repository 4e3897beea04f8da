package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "WMI_MCP"

type Config struct {
	Namespace string       `mapstructure:"namespace"`
	Log       LogConfig    `mapstructure:"log"`
	Server    ServerConfig `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Name            string `mapstructure:"name"`
	Version         string `mapstructure:"version"`
	ProtocolVersion string `mapstructure:"protocol_version"`
	MaxLineBytes    int    `mapstructure:"max_line_bytes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("namespace", `ROOT\CIMV2`)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.name", "wmi-query-mcp")
	v.SetDefault("server.version", "1.0.0")
	v.SetDefault("server.protocol_version", "2024-11-05")
	v.SetDefault("server.max_line_bytes", 1024*1024)
}

// Load reads configuration from path, or from wmi-mcp.yaml in the working
// directory or ~/.wmi-mcp when path is empty. A missing file is not an error.
// WMI_MCP_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wmi-mcp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".wmi-mcp"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Server.MaxLineBytes <= 0 {
		return fmt.Errorf("server.max_line_bytes must be positive")
	}
	return nil
}

// NewLogger builds a logger writing to out. The protocol owns stdout, so
// callers pass stderr.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return logger
}
