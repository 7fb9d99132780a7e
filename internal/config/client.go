package config

import (
	"errors"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"ataraxia/internal/model"
)

type TimerDefaults struct {
	FocusMinutes            int  `mapstructure:"focus_minutes"`
	ShortBreakMinutes       int  `mapstructure:"short_break_minutes"`
	LongBreakMinutes        int  `mapstructure:"long_break_minutes"`
	SessionsBeforeLongBreak int  `mapstructure:"sessions_before_long_break"`
	AutoStart               bool `mapstructure:"auto_start"`
}

// Settings converts the configured defaults; the engine repairs any
// non-positive value.
func (d TimerDefaults) Settings() model.TimerSettings {
	return model.TimerSettings{
		FocusMinutes:            d.FocusMinutes,
		ShortBreakMinutes:       d.ShortBreakMinutes,
		LongBreakMinutes:        d.LongBreakMinutes,
		SessionsBeforeLongBreak: d.SessionsBeforeLongBreak,
		AutoStartEnabled:        d.AutoStart,
	}
}

// Client is the configuration of the ataraxia command line.
type Client struct {
	ServerURL             string        `mapstructure:"server_url"`
	DataDir               string        `mapstructure:"data_dir"`
	RequestTimeoutSeconds int           `mapstructure:"request_timeout_seconds"`
	Bell                  bool          `mapstructure:"bell"`
	LogLevel              string        `mapstructure:"log_level"`
	Timer                 TimerDefaults `mapstructure:"timer"`
}

func (c Client) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// LoadClient reads config.yaml from the given file, or from ./ and
// ~/.config/ataraxia when configPath is empty. ATARAXIA_* environment
// variables override file values.
func LoadClient(v *viper.Viper, configPath string) (*Client, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ataraxia")
	}

	v.SetEnvPrefix("ATARAXIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := model.DefaultTimerSettings()
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("data_dir", "~/.ataraxia")
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("bell", true)
	v.SetDefault("log_level", "warn")
	v.SetDefault("timer.focus_minutes", defaults.FocusMinutes)
	v.SetDefault("timer.short_break_minutes", defaults.ShortBreakMinutes)
	v.SetDefault("timer.long_break_minutes", defaults.LongBreakMinutes)
	v.SetDefault("timer.sessions_before_long_break", defaults.SessionsBeforeLongBreak)
	v.SetDefault("timer.auto_start", defaults.AutoStartEnabled)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	dataDir, err := homedir.Expand(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.RequestTimeoutSeconds < 1 {
		cfg.RequestTimeoutSeconds = 10
	}
	return &cfg, nil
}
