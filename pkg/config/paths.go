package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "mailsend"
	defaultConfigFile    = "config.yaml"
)

// DefaultConfigPath returns MAILSEND_CONFIG or the per-user config file.
func DefaultConfigPath() string {
	if env := os.Getenv(EnvPrefix + "CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mailsend", defaultConfigFile)
}
