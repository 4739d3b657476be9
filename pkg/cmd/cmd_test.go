package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"github.com/telekom/mailsend/pkg/credential"
	"github.com/telekom/mailsend/pkg/mail"
)

// stubTransport accepts or rejects every connection and remembers the last
// password and message it saw.
type stubTransport struct {
	mu         sync.Mutex
	connectErr error
	connects   int
	password   credential.Secret
	data       string
}

func (s *stubTransport) Connect(context.Context, string, int) (mail.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return &stubConn{t: s}, nil
}

type stubConn struct{ t *stubTransport }

func (c *stubConn) SupportsAuth() bool { return true }

func (c *stubConn) Authenticate(_ string, password credential.Secret) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.t.password = password
	return nil
}

func (c *stubConn) Send(_ string, _ []string, msg io.WriterTo) error {
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return err
	}
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.t.data = buf.String()
	return nil
}

func (c *stubConn) Close() error { return nil }

type harness struct {
	out       *bytes.Buffer
	transport *stubTransport
	dir       string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{"MAILSEND_CONFIG", "MAILSEND_SMTP_HOST", "MAILSEND_SENDER_ADDRESS", "MAILSEND_LOG_PATH"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return &harness{out: &bytes.Buffer{}, transport: &stubTransport{}, dir: t.TempDir()}
}

func (h *harness) run(stdin string, args ...string) error {
	root := NewRootCommand(Config{
		ConfigPath:   filepath.Join(h.dir, "absent.yaml"),
		OutputWriter: h.out,
		Input:        strings.NewReader(stdin),
		Logger:       zap.NewNop(),
		Transport:    h.transport,
	})
	root.SetOut(h.out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root.Execute()
}

func (h *harness) sendArgs(extra ...string) []string {
	args := []string{
		"send",
		"--host", "smtp.example.com",
		"--from-name", "Alice",
		"--from", "alice@example.com",
		"--to", "bob@example.com",
		"--subject", "Hi",
		"--body", "Hello Bob",
		"--log", filepath.Join(h.dir, "log.txt"),
	}
	return append(args, extra...)
}

func TestSendCommand_Success(t *testing.T) {
	h := newHarness(t)
	t.Setenv("SMTP_PASSWORD_FOR_TEST", "hunter2")

	err := h.run("", h.sendArgs("--password-env", "SMTP_PASSWORD_FOR_TEST")...)
	require.NoError(t, err)

	assert.Equal(t, mail.StatusSent+"\n", h.out.String())
	assert.Equal(t, "hunter2", h.transport.password.Reveal())
	assert.Contains(t, h.transport.data, "Hello Bob")

	logContent, err := os.ReadFile(filepath.Join(h.dir, "log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(logContent), "Message Sent Status: Successfully Sent\nFrom: Alice\nTo: bob@example.com\nSubject: Hi\nHello Bob\n")
	assert.NotContains(t, string(logContent), "hunter2")
}

func TestSendCommand_DeliveryFailure(t *testing.T) {
	h := newHarness(t)
	h.transport.connectErr = &mail.ProtocolError{Err: errors.New("connection refused")}

	err := h.run("", h.sendArgs()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery failed after 3 attempt(s)")
	assert.Equal(t, "Protocol error while trying to connect: connection refused\n", h.out.String())
	assert.Equal(t, 3, h.transport.connects)
}

func TestSendCommand_Attempts(t *testing.T) {
	h := newHarness(t)
	h.transport.connectErr = &mail.ProtocolError{Err: errors.New("connection refused")}

	require.Error(t, h.run("", h.sendArgs("--attempts", "1")...))
	assert.Equal(t, 1, h.transport.connects)

	h = newHarness(t)
	err := h.run("", h.sendArgs("--attempts", "5")...)
	require.Error(t, err, "more than three attempts is rejected")
	assert.Zero(t, h.transport.connects)
}

func TestSendCommand_InvalidRecipient(t *testing.T) {
	h := newHarness(t)

	err := h.run("", append(h.sendArgs(), "--to", "not-an-address")...)
	var addrErr *mail.AddressError
	require.ErrorAs(t, err, &addrErr)
	assert.Zero(t, h.transport.connects)
	assert.Empty(t, h.out.String())
}

func TestSendCommand_BodyFromStdin(t *testing.T) {
	h := newHarness(t)
	args := []string{
		"send", "--host", "smtp.example.com", "--from", "alice@example.com",
		"--to", "bob@example.com", "--body-file", "-", "--log", "-",
	}

	require.NoError(t, h.run("line one\nline two", args...))
	assert.Contains(t, h.transport.data, "line one")
	assert.Contains(t, h.out.String(), "line one\nline two\n---", "the record goes to stdout")
	assert.True(t, strings.HasSuffix(h.out.String(), mail.StatusSent+"\n"))
}

func TestSendCommand_ConfigFile(t *testing.T) {
	h := newHarness(t)
	cfgPath := filepath.Join(h.dir, "mailsend.yaml")
	logDir := filepath.Join(h.dir, "records")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
smtp:
  host: smtp.example.com
sender:
  name: Alice
  address: alice@example.com
  password: from-config
log:
  path: `+logDir+`
  mode: per-send
`), 0o600))

	err := h.run("", "send", "--config", cfgPath, "--to", "bob@example.com", "--subject", "Hi", "--body", "Hello Bob")
	require.NoError(t, err)
	assert.Equal(t, "from-config", h.transport.password.Reveal())

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "per-send mode writes one file per send")
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".log"))
}

func TestSendCommand_MissingExplicitConfig(t *testing.T) {
	h := newHarness(t)
	err := h.run("", append(h.sendArgs(), "--config", filepath.Join(h.dir, "missing.yaml"))...)
	assert.Error(t, err)
}

func TestSendCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing recipient", args: []string{"send", "--host", "smtp.example.com", "--from", "alice@example.com"}},
		{name: "missing host", args: []string{"send", "--from", "alice@example.com", "--to", "bob@example.com"}},
		{name: "body and body-file", args: []string{"send", "--host", "h", "--from", "a@example.com", "--to", "b@example.com", "--body", "x", "--body-file", "y"}},
		{name: "two password sources", args: []string{"send", "--host", "h", "--from", "a@example.com", "--to", "b@example.com", "--password-env", "X", "--password-file", "y"}},
		{name: "unset password variable", args: []string{"send", "--host", "h", "--from", "a@example.com", "--to", "b@example.com", "--password-env", "MAILSEND_TEST_DOES_NOT_EXIST"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			assert.Error(t, h.run("", tt.args...))
			assert.Zero(t, h.transport.connects)
		})
	}
}

func TestSendCommand_MetricsTextfile(t *testing.T) {
	h := newHarness(t)
	metricsPath := filepath.Join(h.dir, "mailsend.prom")

	require.NoError(t, h.run("", h.sendArgs("--metrics-textfile", metricsPath)...))

	content, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `mailsend_mail_send_success_total{host="smtp.example.com"}`)
}

func TestKeyringSetAndSend(t *testing.T) {
	keyring.MockInit()
	h := newHarness(t)

	require.NoError(t, h.run("k3yring-pass\n", "keyring", "set", "--service", "mailsend-test", "--user", "alice@example.com"))
	assert.Contains(t, h.out.String(), "stored in keyring service mailsend-test")

	h.out.Reset()
	require.NoError(t, h.run("", h.sendArgs("--keyring-service", "mailsend-test")...))
	assert.Equal(t, "k3yring-pass", h.transport.password.Reveal())
}

func TestKeyringSetErrors(t *testing.T) {
	keyring.MockInit()
	h := newHarness(t)

	assert.Error(t, h.run("", "keyring", "set", "--service", "svc", "--user", "alice@example.com"), "empty stdin")
	assert.Error(t, h.run("pw\n", "keyring", "set", "--service", "svc"), "no user")
	assert.Error(t, h.run("pw\n", "keyring", "set", "--user", "alice@example.com"), "no service")
}

func TestGetRuntimeWithoutRoot(t *testing.T) {
	cmd := NewSendCommand()
	cmd.SetContext(context.Background())
	_, err := getRuntime(cmd)
	assert.Error(t, err)
}
