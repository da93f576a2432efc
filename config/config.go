// Package config loads server settings from config.yaml and HOLDEM_*
// environment variables.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr     string
		LogLevel string
	}
	Store struct {
		Backend string // memory, redis or postgres
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Postgres struct {
		DSN string
	}
	Table struct {
		MinBet           int
		PlayerTimeout    time.Duration
		BotDelay         time.Duration
		BotCallThreshold int
		MaxStalls        int
	}
}

// Load reads config.yaml if present and applies environment overrides.
// Missing keys fall back to defaults good enough for local play.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("store.backend", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("table.minbet", 10)
	v.SetDefault("table.playertimeout", 30*time.Second)
	v.SetDefault("table.botdelay", 2*time.Second)
	v.SetDefault("table.botcallthreshold", 100)
	v.SetDefault("table.maxstalls", 3)

	v.SetEnvPrefix("HOLDEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
