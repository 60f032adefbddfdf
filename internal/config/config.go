// Package config resolves kbquiz settings from flags, KBQUIZ_* environment
// variables, an optional kbquiz.yaml and a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/kbquiz/internal/store"
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "KBQUIZ"

// Keys shared by flags, env and the config file.
const (
	KeyBackendURL  = "backend-url"
	KeyToken       = "token"
	KeyQuizDir     = "quiz-dir"
	KeyStore       = "store"
	KeyDB          = "db"
	KeyRedisURL    = "redis-url"
	KeyNATSURL     = "nats-url"
	KeyBucket      = "bucket"
	KeyTTL         = "ttl"
	KeySaveTimeout = "save-timeout"
	KeyLogLevel    = "log-level"
	KeyLogFormat   = "log-format"
	KeyLogFile     = "log-file"
)

// Config is the resolved application configuration.
type Config struct {
	// BackendURL is the quiz API. When empty, quizzes come from QuizDir.
	BackendURL string `key:"backend-url" validate:"omitempty,http_url"`
	Token      string `key:"token"`
	QuizDir    string `key:"quiz-dir"`

	Store StoreConfig

	// SaveTimeout bounds each best-effort progress write.
	SaveTimeout time.Duration `key:"save-timeout" validate:"gt=0"`

	LogLevel  string `key:"log-level" validate:"oneof=debug info warn error"`
	LogFormat string `key:"log-format" validate:"oneof=text json"`
	LogFile   string `key:"log-file"`
}

// StoreConfig selects the progress store backend.
type StoreConfig struct {
	Backend  string        `key:"store" validate:"oneof=sqlite memory redis nats"`
	DBPath   string        `key:"db"`
	RedisURL string        `key:"redis-url" validate:"required_if=Backend redis"`
	NATSURL  string        `key:"nats-url" validate:"required_if=Backend nats"`
	Bucket   string        `key:"bucket" validate:"required_if=Backend nats"`
	TTL      time.Duration `key:"ttl" validate:"gte=0"`
}

var envReplacer = strings.NewReplacer("-", "_")

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStore, store.BackendSQLite)
	v.SetDefault(KeyBucket, store.DefaultBucket)
	v.SetDefault(KeyTTL, 7*24*time.Hour)
	v.SetDefault(KeySaveTimeout, 2*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// NewViper returns a viper instance reading KBQUIZ_* env vars and, when
// present, kbquiz.yaml from the working directory or the user config dir.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	v.SetConfigName("kbquiz")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "kbquiz"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}
	return v
}

// LoadDotEnv loads .env from the working directory into the process
// environment. Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		BackendURL:  strings.TrimRight(v.GetString(KeyBackendURL), "/"),
		Token:       v.GetString(KeyToken),
		QuizDir:     v.GetString(KeyQuizDir),
		SaveTimeout: v.GetDuration(KeySaveTimeout),
		LogLevel:    strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:   strings.ToLower(v.GetString(KeyLogFormat)),
		LogFile:     v.GetString(KeyLogFile),
		Store: StoreConfig{
			Backend:  strings.ToLower(v.GetString(KeyStore)),
			DBPath:   v.GetString(KeyDB),
			RedisURL: v.GetString(KeyRedisURL),
			NATSURL:  v.GetString(KeyNATSURL),
			Bucket:   v.GetString(KeyBucket),
			TTL:      v.GetDuration(KeyTTL),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by the key a user would set.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		if k := f.Tag.Get("key"); k != "" {
			return k
		}
		return f.Name
	})
	return val
}

// Validate reports every invalid field in one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = describe(fe)
	}
	return fmt.Errorf("invalid configuration:\n- %s", strings.Join(msgs, "\n- "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_if":
		return fmt.Sprintf("%s is required for this store backend", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "http_url":
		return fmt.Sprintf("%s must be an http(s) URL, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
	}
}

// ErrNoSource means neither a backend URL nor a quiz directory is set.
var ErrNoSource = fmt.Errorf("no quiz source: set --%s or --%s", KeyBackendURL, KeyQuizDir)

// CheckSource reports ErrNoSource for commands that take quizzes.
func (c *Config) CheckSource() error {
	if c.BackendURL == "" && c.QuizDir == "" {
		return ErrNoSource
	}
	return nil
}

// StoreOptions converts the store settings for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:  c.Store.Backend,
		DBPath:   c.Store.DBPath,
		RedisURL: c.Store.RedisURL,
		NATSURL:  c.Store.NATSURL,
		Bucket:   c.Store.Bucket,
		TTL:      c.Store.TTL,
	}
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
