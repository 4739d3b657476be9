// Package credential holds the sender password as a redacting Secret and
// resolves it from config, environment, file, or the OS keyring.
package credential
