package mail

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name         string
		recipient    string
		wantEnvelope string
		expectError  bool
		description  string
	}{
		{name: "bare address", recipient: "bob@example.com", wantEnvelope: "bob@example.com", description: "Plain addr-spec is accepted"},
		{name: "display name", recipient: "Bob <bob@example.com>", wantEnvelope: "bob@example.com", description: "Name-addr form is reduced to the address for RCPT TO"},
		{name: "quoted name", recipient: `"Bob, Jr." <bob@example.com>`, wantEnvelope: "bob@example.com", description: "Quoted display names are allowed"},
		{name: "empty", recipient: "", expectError: true, description: "Empty recipient is rejected"},
		{name: "no at sign", recipient: "bob", expectError: true, description: "Missing @ is rejected"},
		{name: "two addresses", recipient: "a@example.com, b@example.com", expectError: true, description: "Only one recipient is allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage("Alice", "alice@example.com", tt.recipient, "Hi", "Hello Bob")
			if tt.expectError {
				var addrErr *AddressError
				require.ErrorAs(t, err, &addrErr, tt.description)
				assert.Contains(t, addrErr.Error(), "invalid recipient address")
				return
			}
			require.NoError(t, err, tt.description)
			assert.Equal(t, tt.wantEnvelope, msg.EnvelopeRecipient())
			assert.Equal(t, tt.recipient, msg.Recipient(), "raw recipient is kept")
		})
	}
}

func TestMessage_MIME(t *testing.T) {
	msg, err := NewMessage("Alice", "alice@example.com", "bob@example.com", "Hi", "Hello Bob")
	require.NoError(t, err)

	assert.Equal(t, "Alice", msg.SenderName())
	assert.Equal(t, "alice@example.com", msg.SenderAddress())
	assert.Equal(t, "Hi", msg.Subject())
	assert.Equal(t, "Hello Bob", msg.Body())

	var buf bytes.Buffer
	_, err = msg.MIME().WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, `From: "Alice" <alice@example.com>`)
	assert.Contains(t, out, "To: bob@example.com")
	assert.Contains(t, out, "Subject: Hi")
	assert.Contains(t, out, "X-Mailer: mailsend/")
	assert.Contains(t, out, "Content-Type: text/plain")
	assert.Contains(t, out, "Hello Bob")
}

func TestMessage_MIMEIsFreshPerCall(t *testing.T) {
	msg, err := NewMessage("", "alice@example.com", "bob@example.com", "", "")
	require.NoError(t, err)
	assert.NotSame(t, msg.MIME(), msg.MIME())
}
