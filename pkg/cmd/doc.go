// Package cmd implements the mailsend command line: send, keyring and
// version.
package cmd
