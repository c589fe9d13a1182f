package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	HTTPPort   int    `mapstructure:"http_port"`
	HistoryDir string `mapstructure:"history_dir"`
	SendBuffer int    `mapstructure:"send_buffer"`
	ReadLimit  int64  `mapstructure:"read_limit"`
	LogLevel   string `mapstructure:"log_level"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 5000)
	v.SetDefault("http_port", 8080)
	v.SetDefault("history_dir", "chat_history")
	v.SetDefault("send_buffer", 256)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).
		Int("port", cfg.Port).Int("http_port", cfg.HTTPPort).
		Str("history_dir", cfg.HistoryDir).Msg("config ready")
	return &cfg, nil
}
