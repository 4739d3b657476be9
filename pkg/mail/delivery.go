// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/telekom/mailsend/pkg/credential"
	"github.com/telekom/mailsend/pkg/metrics"
)

// MaxAttempts is the delivery budget per send.
const MaxAttempts = 3

// Attempt is the outcome of one connection attempt.
type Attempt struct {
	// Number starts at 1.
	Number int
	// Stage is the last step the attempt reached.
	Stage Stage
	// Status is the human-readable status after this attempt, with the
	// password redacted.
	Status string
	// Authenticated is set when AUTH succeeded.
	Authenticated bool
	// Err is the last error observed, nil when the message was accepted.
	// Its Error() text is redacted.
	Err error
}

// Sent reports whether the server accepted the message in this attempt.
func (a Attempt) Sent() bool {
	return a.Status == StatusSent
}

func (a *Attempt) fail(stage Stage, err error, host string, password credential.Secret) {
	metrics.MailAttemptFailures.WithLabelValues(host, string(stage)).Inc()
	a.Stage = stage
	a.Err = redact(err, password)
	a.Status = credential.Redact(statusFor(stage, err), password)
}

// deliver runs the retry loop and returns the status of the last attempt.
func (m *Mailer) deliver(ctx context.Context, req Request, msg Message, log *zap.SugaredLogger) (string, []Attempt) {
	status := StatusNone
	attempts := make([]Attempt, 0, m.maxAttempts)

	for n := 1; n <= m.maxAttempts; n++ {
		if err := m.limiter.Wait(ctx); err != nil {
			a := Attempt{Number: n}
			a.fail(StageConnect, &ProtocolError{Err: err}, req.Host, req.Password)
			attempts = append(attempts, a)
			status = a.Status
			break
		}

		a := m.attempt(ctx, n, req, msg, log)
		attempts = append(attempts, a)
		status = a.Status

		if a.Sent() {
			log.Infow("Mail sent", "attempt", n)
			break
		}
		if n < m.maxAttempts {
			log.Warnw("Mail attempt failed, retrying", "attempt", n, "stage", a.Stage, "status", a.Status)
		} else {
			log.Errorw("Mail attempt failed, no attempts left", "attempt", n, "stage", a.Stage, "status", a.Status)
		}
		if ctx.Err() != nil {
			log.Warnw("Context done, abandoning remaining attempts", "error", ctx.Err())
			break
		}
	}

	return status, attempts
}

// attempt performs connect, optional AUTH and send over one fresh
// connection. A failed step ends the attempt and its status becomes the
// attempt's status; the connection is closed in every case.
func (m *Mailer) attempt(ctx context.Context, n int, req Request, msg Message, log *zap.SugaredLogger) Attempt {
	a := Attempt{Number: n, Stage: StageConnect}
	metrics.MailAttempts.WithLabelValues(req.Host).Inc()

	conn, err := m.transport.Connect(ctx, req.Host, req.Port)
	if err != nil {
		a.fail(StageConnect, err, req.Host, req.Password)
		return a
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debugw("Closing SMTP connection failed", "attempt", n, "error", redact(err, req.Password))
		}
	}()

	if conn.SupportsAuth() {
		a.Stage = StageAuthenticate
		if err := conn.Authenticate(msg.SenderAddress(), req.Password); err != nil {
			a.fail(StageAuthenticate, err, req.Host, req.Password)
			return a
		}
		a.Authenticated = true
	}

	a.Stage = StageSend
	if err := conn.Send(msg.SenderAddress(), []string{msg.EnvelopeRecipient()}, msg.MIME()); err != nil {
		a.fail(StageSend, err, req.Host, req.Password)
		return a
	}

	a.Status = StatusSent
	a.Err = nil
	return a
}
