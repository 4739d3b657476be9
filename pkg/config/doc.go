// Package config loads the mailsend configuration: a YAML file merged over
// defaults, then MAILSEND_* environment variables. Command-line flags are
// applied on top by the CLI.
package config
