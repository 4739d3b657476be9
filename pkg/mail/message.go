// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"fmt"
	netmail "net/mail"

	"gopkg.in/gomail.v2"

	"github.com/telekom/mailsend/pkg/version"
)

// AddressError is returned by NewMessage when the recipient cannot be parsed
// as an RFC 5322 address.
type AddressError struct {
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid recipient address %q: %v", e.Address, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// Message is an immutable plain-text email. Build it with NewMessage.
type Message struct {
	senderName    string
	senderAddress string
	recipient     string
	subject       string
	body          string

	// parsed recipient, used for RCPT TO and the To header
	rcpt netmail.Address
}

// NewMessage assembles a message. Only the recipient is parsed; every other
// field is taken as given.
func NewMessage(senderName, senderAddress, recipient, subject, body string) (Message, error) {
	addr, err := netmail.ParseAddress(recipient)
	if err != nil {
		return Message{}, &AddressError{Address: recipient, Err: err}
	}
	return Message{
		senderName:    senderName,
		senderAddress: senderAddress,
		recipient:     recipient,
		subject:       subject,
		body:          body,
		rcpt:          *addr,
	}, nil
}

func (m Message) SenderName() string    { return m.senderName }
func (m Message) SenderAddress() string { return m.senderAddress }
func (m Message) Subject() string       { return m.subject }
func (m Message) Body() string          { return m.body }

// Recipient returns the recipient exactly as the caller supplied it.
func (m Message) Recipient() string { return m.recipient }

// EnvelopeRecipient is the bare address used for RCPT TO.
func (m Message) EnvelopeRecipient() string { return m.rcpt.Address }

// MIME renders the message. A fresh gomail.Message is built on every call so
// each delivery attempt gets its own Date header and writer state.
func (m Message) MIME() *gomail.Message {
	g := gomail.NewMessage()
	g.SetAddressHeader("From", m.senderAddress, m.senderName)
	g.SetAddressHeader("To", m.rcpt.Address, m.rcpt.Name)
	g.SetHeader("Subject", m.subject)
	g.SetHeader("X-Mailer", version.Mailer())
	g.SetBody("text/plain", m.body)
	return g
}
