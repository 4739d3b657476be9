// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Source describes where the sender password comes from. The first non-empty
// field wins, in declaration order.
type Source struct {
	// Value is a literal password, typically from a config file.
	Value string
	// Env names an environment variable holding the password.
	Env string
	// File is a path to a file whose first line is the password.
	File string
	// KeyringService is the OS keyring service name; the keyring user is the
	// sender address passed to Resolve.
	KeyringService string
}

// IsZero reports whether no source is configured at all.
func (s Source) IsZero() bool {
	return s.Value == "" && s.Env == "" && s.File == "" && s.KeyringService == ""
}

// Resolve looks up the password for user. An unset Source resolves to an
// empty Secret so relays without authentication keep working.
func (s Source) Resolve(user string) (Secret, error) {
	switch {
	case s.Value != "":
		return NewSecret(s.Value), nil
	case s.Env != "":
		v, ok := os.LookupEnv(s.Env)
		if !ok {
			return Secret{}, fmt.Errorf("password environment variable %s is not set", s.Env)
		}
		return NewSecret(v), nil
	case s.File != "":
		content, err := os.ReadFile(s.File)
		if err != nil {
			return Secret{}, fmt.Errorf("failed to read password file: %w", err)
		}
		line, _, _ := strings.Cut(string(content), "\n")
		return NewSecret(strings.TrimRight(line, "\r")), nil
	case s.KeyringService != "":
		v, err := keyring.Get(s.KeyringService, user)
		if err != nil {
			return Secret{}, fmt.Errorf("failed to read password for %s from keyring service %s: %w", user, s.KeyringService, err)
		}
		return NewSecret(v), nil
	default:
		return Secret{}, nil
	}
}

// Store saves a password in the OS keyring under service/user.
func Store(service, user string, secret Secret) error {
	if service == "" {
		return errors.New("keyring service is required")
	}
	if err := keyring.Set(service, user, secret.Reveal()); err != nil {
		return fmt.Errorf("failed to store password for %s in keyring service %s: %w", user, service, err)
	}
	return nil
}
