package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port   string `mapstructure:"port"`
		Host   string `mapstructure:"host"`
		Name   string `mapstructure:"name"`
		Prefix string `mapstructure:"prefix"` // every app route lives below this, "" mounts at root
	} `mapstructure:"server"`

	Database struct {
		Type     string `mapstructure:"type"`     // "sqlite3" or "postgres"
		Database string `mapstructure:"database"` // db name or file path
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		SSLMode  string `mapstructure:"ssl_mode"`
	} `mapstructure:"database"`

	Messages struct {
		TimeFormat string `mapstructure:"time_format"`
	} `mapstructure:"messages"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "console" or "json"
	} `mapstructure:"log"`
}

// Load reads config from an optional yaml file, TREEHOLE_* env vars and an
// optional .env file. file may be empty to search the default locations.
func Load(file string) (*Config, error) {
	v := viper.New()

	// .env is a convenience for local runs, a missing file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("TREEHOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.Server.Prefix = NormalizePrefix(config.Server.Prefix)
	return &config, nil
}

// NormalizePrefix turns "treehole", "/treehole/" and "/treehole" into
// "/treehole". "/" and "" both mean no prefix.
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.host", "")
	v.SetDefault("server.name", "TREEHOLE")
	v.SetDefault("server.prefix", "/treehole")
	v.SetDefault("database.type", "sqlite3")
	v.SetDefault("database.database", "treehole.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("messages.time_format", "2006/1/2 15:04:05")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
