// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"errors"
	"fmt"
	"net/textproto"

	"github.com/telekom/mailsend/pkg/credential"
)

// Stage names the step of a delivery attempt an error came from.
type Stage string

const (
	StageConnect      Stage = "connect"
	StageAuthenticate Stage = "authenticate"
	StageSend         Stage = "send"
)

// SendErrorKind tells which SMTP command the server rejected while sending.
type SendErrorKind string

const (
	SenderNotAccepted    SendErrorKind = "SenderNotAccepted"
	RecipientNotAccepted SendErrorKind = "RecipientNotAccepted"
	MessageNotAccepted   SendErrorKind = "MessageNotAccepted"
	UnexpectedStatusCode SendErrorKind = "UnexpectedStatusCode"
)

// replyAuthInvalid is the SMTP reply for rejected credentials (RFC 4954).
const replyAuthInvalid = 535

// ErrInvalidCredentials marks an authentication failure caused by the
// username or password rather than by the protocol exchange.
var ErrInvalidCredentials = errors.New("authentication credentials invalid")

// CommandError is an SMTP error reply from the server.
type CommandError struct {
	Code    int
	Message string
	Kind    SendErrorKind
	// Err optionally carries a sentinel such as ErrInvalidCredentials.
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("smtp reply %d: %s", e.Code, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ProtocolError covers everything that is not a well-formed error reply:
// network and TLS failures, malformed responses, unexpected sequencing.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return e.Err.Error()
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// classify converts an error returned by the SMTP library into a CommandError
// or ProtocolError. Errors that are already classified pass through.
func classify(stage Stage, kind SendErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var cmd *CommandError
	var proto *ProtocolError
	if errors.As(err, &cmd) || errors.As(err, &proto) {
		return err
	}
	var tp *textproto.Error
	if errors.As(err, &tp) {
		ce := &CommandError{Code: tp.Code, Message: tp.Msg, Kind: kind}
		if stage == StageAuthenticate && tp.Code == replyAuthInvalid {
			ce.Err = ErrInvalidCredentials
		}
		return ce
	}
	return &ProtocolError{Err: err}
}

// redactedError hides the password in Error() while keeping the chain for
// errors.Is and errors.As.
type redactedError struct {
	err    error
	secret credential.Secret
}

func redact(err error, secret credential.Secret) error {
	if err == nil || secret.IsEmpty() {
		return err
	}
	return &redactedError{err: err, secret: secret}
}

func (e *redactedError) Error() string {
	return credential.Redact(e.err.Error(), e.secret)
}

func (e *redactedError) Unwrap() error {
	return e.err
}
