package mail

import (
	"context"
	"io"

	"github.com/telekom/mailsend/pkg/credential"
)

// Transport opens one connection per delivery attempt.
type Transport interface {
	// Connect dials host:port with implicit TLS and completes the SMTP
	// greeting. Errors are *CommandError or *ProtocolError.
	Connect(ctx context.Context, host string, port int) (Conn, error)
}

// Conn is a single established SMTP session. Its Send and Close methods make
// it a gomail.SendCloser.
type Conn interface {
	// SupportsAuth reports whether the server advertised AUTH.
	SupportsAuth() bool
	// Authenticate runs SMTP AUTH. A rejected password is reported with
	// ErrInvalidCredentials in the error chain.
	Authenticate(username string, password credential.Secret) error
	// Send runs MAIL, RCPT and DATA for one message.
	Send(from string, to []string, msg io.WriterTo) error
	// Close ends the session and releases the connection.
	Close() error
}
