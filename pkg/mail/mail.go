package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/telekom/mailsend/pkg/credential"
	"github.com/telekom/mailsend/pkg/metrics"
	"github.com/telekom/mailsend/pkg/system"
)

// Request carries everything needed for one send.
type Request struct {
	Host          string
	Port          int
	SenderName    string
	SenderAddress string
	Password      credential.Secret
	Recipient     string
	Subject       string
	Body          string
}

// Result is the outcome of Mailer.Send.
type Result struct {
	// ID identifies the send in logs and per-send log file names.
	ID string
	// Status is the terminal status: StatusSent or the last attempt's error.
	Status string
	// Attempts lists every attempt in order.
	Attempts []Attempt
	// Record is the entry handed to the Recorder.
	Record Record
}

// Sent reports whether the message was accepted.
func (r Result) Sent() bool {
	return r.Status == StatusSent
}

// Outcome is delivered by SendAsync.
type Outcome struct {
	Result Result
	Err    error
}

// Options tune a Mailer. The zero value gives the default behaviour.
type Options struct {
	// MaxAttempts is clamped to 1..MaxAttempts; zero means MaxAttempts.
	MaxAttempts int
	// AttemptInterval is the minimum time between two connection attempts
	// made by this Mailer. Zero means no delay.
	AttemptInterval time.Duration
	// VerboseLogging adds the subject to log lines.
	VerboseLogging bool
	// Clock overrides time.Now for record timestamps.
	Clock func() time.Time
}

// Mailer composes message assembly, the delivery loop and the recorder.
// It holds no per-send state and is safe for concurrent use.
type Mailer struct {
	transport   Transport
	recorder    Recorder
	logger      *zap.SugaredLogger
	limiter     *rate.Limiter
	maxAttempts int
	verbose     bool
	now         func() time.Time
}

// NewMailer creates a Mailer.
func NewMailer(transport Transport, recorder Recorder, logger *zap.SugaredLogger, opts Options) *Mailer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 || attempts > MaxAttempts {
		attempts = MaxAttempts
	}
	limit := rate.Inf
	if opts.AttemptInterval > 0 {
		limit = rate.Every(opts.AttemptInterval)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Mailer{
		transport:   transport,
		recorder:    recorder,
		logger:      logger.Named("mailer"),
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: attempts,
		verbose:     opts.VerboseLogging,
		now:         now,
	}
}

// Send assembles the message, runs the delivery loop and records the
// outcome. Delivery failures are reported through Result.Status only; the
// returned error is non-nil when the recipient address is malformed (no
// connection is made) or the record could not be written.
func (m *Mailer) Send(ctx context.Context, req Request) (Result, error) {
	res := Result{ID: uuid.NewString(), Status: StatusNone}
	log := m.logger.With(system.SendFields(res.ID, req.Host, req.Port, req.Recipient, req.Subject, m.verbose)...)

	msg, err := NewMessage(req.SenderName, req.SenderAddress, req.Recipient, req.Subject, req.Body)
	if err != nil {
		log.Errorw("Cannot assemble message", "error", err)
		return res, err
	}

	log.Debugw("Sending mail", "maxAttempts", m.maxAttempts)
	res.Status, res.Attempts = m.deliver(ctx, req, msg, log)
	if res.Sent() {
		metrics.MailSendSuccess.WithLabelValues(req.Host).Inc()
	} else {
		metrics.MailSendFailure.WithLabelValues(req.Host).Inc()
	}

	res.Record = Record{
		ID:      res.ID,
		Time:    m.now(),
		Status:  res.Status,
		From:    msg.SenderName(),
		To:      msg.Recipient(),
		Subject: msg.Subject(),
		Body:    msg.Body(),
	}
	if err := m.recorder.Record(res.Record); err != nil {
		metrics.MailRecordFailures.Inc()
		log.Errorw("Failed to record mail outcome", "status", res.Status, "error", err)
		return res, fmt.Errorf("failed to record outcome: %w", err)
	}

	log.Infow("Mail outcome recorded", "status", res.Status, "attempts", len(res.Attempts))
	return res, nil
}

// SendAsync runs Send on its own goroutine. The channel receives exactly one
// Outcome and is then closed.
func (m *Mailer) SendAsync(ctx context.Context, req Request) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		res, err := m.Send(ctx, req)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

// SendEmail is Send with positional arguments.
func (m *Mailer) SendEmail(ctx context.Context, host string, port int, senderName, senderAddress string, password credential.Secret, recipient, subject, body string) (Result, error) {
	return m.Send(ctx, Request{
		Host:          host,
		Port:          port,
		SenderName:    senderName,
		SenderAddress: senderAddress,
		Password:      password,
		Recipient:     recipient,
		Subject:       subject,
		Body:          body,
	})
}
