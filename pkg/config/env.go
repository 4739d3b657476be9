package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/telekom/mailsend/pkg/credential"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MAILSEND_"

// applyEnv overrides file values with MAILSEND_* variables that are set.
func applyEnv(cfg *Config) error {
	cfg.SMTP.Host = getEnvString(EnvPrefix+"SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Timeout = getEnvString(EnvPrefix+"SMTP_TIMEOUT", cfg.SMTP.Timeout)
	cfg.SMTP.HeloName = getEnvString(EnvPrefix+"SMTP_HELO_NAME", cfg.SMTP.HeloName)
	cfg.SMTP.CAFile = getEnvString(EnvPrefix+"SMTP_CA_FILE", cfg.SMTP.CAFile)
	cfg.SMTP.InsecureSkipVerify = getEnvBool(EnvPrefix+"SMTP_INSECURE_SKIP_VERIFY", cfg.SMTP.InsecureSkipVerify)

	cfg.Sender.Name = getEnvString(EnvPrefix+"SENDER_NAME", cfg.Sender.Name)
	cfg.Sender.Address = getEnvString(EnvPrefix+"SENDER_ADDRESS", cfg.Sender.Address)
	if v, ok := os.LookupEnv(EnvPrefix + "SENDER_PASSWORD"); ok {
		cfg.Sender.Password = credential.NewSecret(v)
	}
	cfg.Sender.PasswordEnv = getEnvString(EnvPrefix+"SENDER_PASSWORD_ENV", cfg.Sender.PasswordEnv)
	cfg.Sender.PasswordFile = getEnvString(EnvPrefix+"SENDER_PASSWORD_FILE", cfg.Sender.PasswordFile)
	cfg.Sender.KeyringService = getEnvString(EnvPrefix+"SENDER_KEYRING_SERVICE", cfg.Sender.KeyringService)

	cfg.Retry.Interval = getEnvString(EnvPrefix+"RETRY_INTERVAL", cfg.Retry.Interval)

	cfg.Log.Path = getEnvString(EnvPrefix+"LOG_PATH", cfg.Log.Path)
	cfg.Log.Mode = getEnvString(EnvPrefix+"LOG_MODE", cfg.Log.Mode)
	cfg.Log.Compress = getEnvBool(EnvPrefix+"LOG_COMPRESS", cfg.Log.Compress)

	cfg.Debug = getEnvBool(EnvPrefix+"DEBUG", cfg.Debug)
	cfg.MetricsTextfile = getEnvString(EnvPrefix+"METRICS_TEXTFILE", cfg.MetricsTextfile)

	ints := []struct {
		key string
		dst *int
	}{
		{EnvPrefix + "SMTP_PORT", &cfg.SMTP.Port},
		{EnvPrefix + "RETRY_ATTEMPTS", &cfg.Retry.Attempts},
		{EnvPrefix + "LOG_MAX_SIZE_MB", &cfg.Log.MaxSizeMB},
		{EnvPrefix + "LOG_MAX_BACKUPS", &cfg.Log.MaxBackups},
		{EnvPrefix + "LOG_MAX_AGE_DAYS", &cfg.Log.MaxAgeDays},
	}
	for _, i := range ints {
		v, err := getEnvInt(i.key, *i.dst)
		if err != nil {
			return err
		}
		*i.dst = v
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return n, nil
}
