// Package config loads command line settings from YAML and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/littlerose/cryptoroom/internal/keystore"
	"github.com/littlerose/cryptoroom/internal/keywrap"
)

// Environment variables that override file settings.
const (
	EnvWrapper     = "CRYPTOROOM_WRAPPER"
	EnvRSABits     = "CRYPTOROOM_RSA_BITS"
	EnvKeyFile     = "CRYPTOROOM_KEY_FILE"
	EnvParallel    = "CRYPTOROOM_PARALLEL"
	EnvLogLevel    = "CRYPTOROOM_LOG_LEVEL"
	EnvLogFormat   = "CRYPTOROOM_LOG_FORMAT"
	EnvMetricsFile = "CRYPTOROOM_METRICS_FILE"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Log selects the log handler.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Settings is the command line configuration.
type Settings struct {
	// Owner is written into key containers created by keygen.
	Owner keystore.Owner `yaml:"owner"`

	Wrapper string `yaml:"wrapper" validate:"oneof=rsa mlkem768"`
	RSABits int    `yaml:"rsa_bits" validate:"omitempty,min=2048,max=8192"`

	// KeyFile is the default secret key container path.
	KeyFile string `yaml:"key_file"`

	// Parallel verifies and decrypts on two goroutines.
	Parallel bool `yaml:"parallel"`

	Log Log `yaml:"log"`

	// MetricsFile receives a Prometheus textfile after each command when set.
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Wrapper: "rsa",
		RSABits: keywrap.DefaultRSABits,
		KeyFile: "cryptoroom" + keystore.Extension,
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads settings from path on top of Default, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}
	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadEnv loads dotenv files into the process environment. Missing files
// are skipped and variables already set are kept.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (s *Settings) applyEnv() error {
	if v, ok := os.LookupEnv(EnvWrapper); ok {
		s.Wrapper = v
	}
	if v, ok := os.LookupEnv(EnvRSABits); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRSABits, err)
		}
		s.RSABits = n
	}
	if v, ok := os.LookupEnv(EnvKeyFile); ok {
		s.KeyFile = v
	}
	if v, ok := os.LookupEnv(EnvParallel); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvParallel, err)
		}
		s.Parallel = b
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		s.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		s.Log.Format = v
	}
	if v, ok := os.LookupEnv(EnvMetricsFile); ok {
		s.MetricsFile = v
	}
	return nil
}

// Validate checks field constraints.
func (s *Settings) Validate() error {
	return formatValidationError(validate.Struct(s))
}

// NewWrapper returns the configured key wrapper.
func (s *Settings) NewWrapper() (keywrap.Wrapper, error) {
	if s.Wrapper == "rsa" {
		return keywrap.NewRSA(s.RSABits), nil
	}
	return keywrap.ByName(s.Wrapper)
}

// Logger builds a logger writing to w in the configured format.
func (s *Settings) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if s.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %q", field, e.Param(), e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
