// Package config loads ledger settings from defaults, an optional config
// file, a .env file and LEDGER_ prefixed environment variables, in that
// order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "LEDGER"

// Config holds the settings for the ledger file and the shells.
type Config struct {
	DataFile       string        `mapstructure:"data_file" validate:"required"`
	AccountPrefix  string        `mapstructure:"account_prefix" validate:"required,alpha"`
	InterestRate   float64       `mapstructure:"interest_rate" validate:"finite,gte=0"`
	HistoryLimit   int           `mapstructure:"history_limit" validate:"gt=0"`
	CurrencySymbol string        `mapstructure:"currency_symbol"`
	SessionTimeout time.Duration `mapstructure:"session_timeout" validate:"gt=0"`
	LoginAttempts  int           `mapstructure:"login_attempts" validate:"gt=0"`
	Logging        LoggingConfig `mapstructure:"log"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Load reads configuration. When file is empty, a file named "ledger" with
// any extension viper understands is looked up in the working directory and
// in $HOME/.config/ledger; a missing file is not an error.
func Load(file string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("ledger")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "ledger"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_file", "bank_data.json")
	v.SetDefault("account_prefix", "ACC")
	v.SetDefault("interest_rate", 3.5)
	v.SetDefault("history_limit", 10)
	v.SetDefault("currency_symbol", "₹")
	v.SetDefault("session_timeout", 5*time.Minute)
	v.SetDefault("login_attempts", 3)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}
