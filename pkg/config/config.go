package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/telekom/mailsend/pkg/credential"
)

const (
	LogModeAppend  = "append"
	LogModePerSend = "per-send"

	DefaultPort     = 465
	DefaultTimeout  = "15s"
	DefaultAttempts = 3
	DefaultLogPath  = "log.txt"
)

type SMTP struct {
	Host string `yaml:"host"`
	// Port is the implicit-TLS submission port, usually 465.
	Port int `yaml:"port"`
	// Timeout bounds the dial and each command exchange (e.g. "15s").
	Timeout            string `yaml:"timeout"`
	HeloName           string `yaml:"heloName"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string `yaml:"caFile"`
}

type Sender struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	// Password is a literal password. Prefer passwordEnv, passwordFile or
	// keyringService.
	Password       credential.Secret `yaml:"password"`
	PasswordEnv    string            `yaml:"passwordEnv"`
	PasswordFile   string            `yaml:"passwordFile"`
	KeyringService string            `yaml:"keyringService"`
}

type Retry struct {
	// Attempts is the delivery budget, 1 to 3.
	Attempts int `yaml:"attempts"`
	// Interval is the minimum time between two attempts (e.g. "2s"). Empty
	// or "0" retries immediately.
	Interval string `yaml:"interval"`
}

type Log struct {
	// Path is the log file in append mode, or the directory in per-send mode.
	// "-" writes records to stdout.
	Path       string `yaml:"path"`
	Mode       string `yaml:"mode"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

type Config struct {
	SMTP   SMTP   `yaml:"smtp"`
	Sender Sender `yaml:"sender"`
	Retry  Retry  `yaml:"retry"`
	Log    Log    `yaml:"log"`
	Debug  bool   `yaml:"debug"`
	// MetricsTextfile, when set, receives a Prometheus text dump after each run.
	MetricsTextfile string `yaml:"metricsTextfile"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		SMTP:  SMTP{Port: DefaultPort, Timeout: DefaultTimeout},
		Retry: Retry{Attempts: DefaultAttempts},
		Log: Log{
			Path:       DefaultLogPath,
			Mode:       LogModeAppend,
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
	}
}

// Load reads the YAML file at path on top of Defaults and then applies
// MAILSEND_* environment overrides. A missing file is only an error when
// required is set, i.e. the path was given explicitly.
func Load(path string, required bool) (Config, error) {
	cfg := Defaults()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.UnmarshalStrict(content, &cfg); err != nil {
				return cfg, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return cfg, fmt.Errorf("trying to open mailsend config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields a send cannot do without.
func (c Config) Validate() error {
	var errs []error
	if c.SMTP.Host == "" {
		errs = append(errs, errors.New("smtp.host is required"))
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp.port %d is out of range", c.SMTP.Port))
	}
	if _, err := c.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Sender.Address == "" {
		errs = append(errs, errors.New("sender.address is required"))
	}
	if c.Retry.Attempts < 1 || c.Retry.Attempts > DefaultAttempts {
		errs = append(errs, fmt.Errorf("retry.attempts must be between 1 and %d, got %d", DefaultAttempts, c.Retry.Attempts))
	}
	if _, err := c.IntervalDuration(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Mode {
	case LogModeAppend, LogModePerSend:
	default:
		errs = append(errs, fmt.Errorf("log.mode %q is not one of %s, %s", c.Log.Mode, LogModeAppend, LogModePerSend))
	}
	if c.Log.Path == "" {
		errs = append(errs, errors.New("log.path is required"))
	}
	return errors.Join(errs...)
}

// TimeoutDuration parses SMTP.Timeout. Empty means the default.
func (c Config) TimeoutDuration() (time.Duration, error) {
	return parseDuration("smtp.timeout", c.SMTP.Timeout, DefaultTimeout)
}

// IntervalDuration parses Retry.Interval. Empty means no delay.
func (c Config) IntervalDuration() (time.Duration, error) {
	return parseDuration("retry.interval", c.Retry.Interval, "0")
}

func parseDuration(field, value, fallback string) (time.Duration, error) {
	if value == "" {
		value = fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", field, value)
	}
	return d, nil
}

// PasswordSource describes where the sender password is resolved from.
func (c Config) PasswordSource() credential.Source {
	return credential.Source{
		Value:          c.Sender.Password.Reveal(),
		Env:            c.Sender.PasswordEnv,
		File:           c.Sender.PasswordFile,
		KeyringService: c.Sender.KeyringService,
	}
}
