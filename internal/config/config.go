// Package config loads atlas settings from defaults, an optional config file
// and ATLAS_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"atlas/internal/ai"
	"atlas/internal/blob"
	"atlas/internal/logging"
	"atlas/internal/notify"
	"atlas/internal/persistence"
)

// EnvPrefix prefixes every environment override: storage.driver is read
// from ATLAS_STORAGE_DRIVER.
const EnvPrefix = "ATLAS"

// Config is the complete runtime configuration.
type Config struct {
	Storage persistence.Config `mapstructure:"storage"`
	Blob    blob.Config        `mapstructure:"blob"`
	AI      ai.Config          `mapstructure:"ai"`
	HTTP    HTTPConfig         `mapstructure:"http"`
	Redis   notify.Config      `mapstructure:"redis"`
	Log     logging.Config     `mapstructure:"log"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Storage: persistence.Config{Driver: persistence.DriverSQLite, SQLitePath: "./atlas.db"},
		Blob: blob.Config{
			Driver: blob.DriverFilesystem,
			Root:   "./blobdata",
			S3:     blob.S3Config{Region: "us-east-1"},
		},
		AI: ai.Config{
			TextModel:   ai.DefaultTextModel,
			VisionModel: ai.DefaultVisionModel,
			Timeout:     60 * time.Second,
		},
		HTTP:  HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Redis: notify.Config{Channel: notify.DefaultChannel},
		Log:   logging.Config{Level: "info", Format: "json"},
	}
}

// Every key gets a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("storage.driver", string(d.Storage.Driver))
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("blob.driver", string(d.Blob.Driver))
	v.SetDefault("blob.root", d.Blob.Root)
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", d.Blob.S3.Region)
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("blob.s3.prefix", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.text_model", d.AI.TextModel)
	v.SetDefault("ai.vision_model", d.AI.VisionModel)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", d.Redis.Channel)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// New returns a viper instance with defaults, env binding and aliases set.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Short aliases and the provider's own variables.
	_ = v.BindEnv("storage.sqlite_path", "ATLAS_STORAGE_SQLITE_PATH", "ATLAS_SQLITE_PATH")
	_ = v.BindEnv("storage.postgres_dsn", "ATLAS_STORAGE_POSTGRES_DSN", "ATLAS_POSTGRES_DSN")
	_ = v.BindEnv("ai.api_key", "ATLAS_AI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("redis.url", "ATLAS_REDIS_URL", "REDIS_URL")
	return v
}

// Load reads configuration. path names an explicit config file; when empty,
// atlas.{yaml,json,toml} is looked up in the working directory and
// $HOME/.atlas and is optional.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("atlas")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.atlas")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals v and validates the result.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot start.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case persistence.DriverMemory, persistence.DriverSQLite:
	case persistence.DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of memory|sqlite|postgres", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver %q is not one of fs|s3|memory", c.Blob.Driver))
	}
	if c.AI.Timeout < 0 {
		errs = append(errs, errors.New("ai.timeout must not be negative"))
	}
	return errors.Join(errs...)
}
