// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"strings"
)

// Redacted replaces secret material in anything that is printed or logged.
const Redacted = "[REDACTED]"

// Secret holds a credential in memory. It never formats as its value, so it
// is safe to pass to loggers and fmt verbs by accident.
type Secret struct {
	value string
}

// NewSecret wraps a plain string.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the plain value. Only the SMTP authentication step calls it.
func (s Secret) Reveal() string {
	return s.value
}

// IsEmpty reports whether no credential was supplied.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return Redacted
}

func (s Secret) GoString() string {
	return "credential.Secret{" + s.String() + "}"
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s Secret) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML reads a plain scalar so a literal password can live in a
// config file.
func (s *Secret) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v string
	if err := unmarshal(&v); err != nil {
		return err
	}
	s.value = v
	return nil
}

// Redact replaces every occurrence of the given secrets in text. Empty secrets
// are ignored.
func Redact(text string, secrets ...Secret) string {
	for _, s := range secrets {
		if s.value == "" {
			continue
		}
		text = strings.ReplaceAll(text, s.value, Redacted)
	}
	return text
}
