package cmd

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/mailsend/pkg/config"
	"github.com/telekom/mailsend/pkg/credential"
	"github.com/telekom/mailsend/pkg/mail"
	"github.com/telekom/mailsend/pkg/metrics"
)

type sendOptions struct {
	host           string
	port           int
	senderName     string
	senderAddress  string
	to             string
	subject        string
	body           string
	bodyFile       string
	passwordEnv    string
	passwordFile   string
	keyringService string
	logPath        string
	logMode        string
	attempts       int
	interval       string
	insecure       bool
	metricsFile    string
}

func NewSendCommand() *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message and append the outcome to the log",
		Example: `  mailsend send --host smtp.example.com --from alice@example.com --from-name Alice \
    --to bob@example.com --subject Hi --body "Hello Bob" --password-env SMTP_PASSWORD`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			cfg := *rt.cfg
			opts.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			body, err := opts.readBody(rt.Input())
			if err != nil {
				return err
			}
			return runSend(cmd, rt, cfg, opts.to, opts.subject, body)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.host, "host", "", "SMTP server host name")
	f.IntVar(&opts.port, "port", config.DefaultPort, "SMTP server port (implicit TLS)")
	f.StringVar(&opts.senderName, "from-name", "", "Sender display name")
	f.StringVar(&opts.senderAddress, "from", "", "Sender address, also used as the SMTP user name")
	f.StringVar(&opts.to, "to", "", "Recipient address")
	f.StringVar(&opts.subject, "subject", "", "Message subject")
	f.StringVar(&opts.body, "body", "", "Message body")
	f.StringVar(&opts.bodyFile, "body-file", "", "Read the message body from a file, - for stdin")
	f.StringVar(&opts.passwordEnv, "password-env", "", "Environment variable holding the SMTP password")
	f.StringVar(&opts.passwordFile, "password-file", "", "File whose first line is the SMTP password")
	f.StringVar(&opts.keyringService, "keyring-service", "", "OS keyring service holding the SMTP password")
	f.StringVar(&opts.logPath, "log", "", "Outcome log file, directory in per-send mode, or - for stdout")
	f.StringVar(&opts.logMode, "log-mode", "", "Outcome log mode: append or per-send")
	f.IntVar(&opts.attempts, "attempts", config.DefaultAttempts, "Delivery attempts, 1 to 3")
	f.StringVar(&opts.interval, "interval", "", "Minimum time between attempts, e.g. 2s")
	f.BoolVar(&opts.insecure, "insecure-skip-verify", false, "Do not verify the server certificate")
	f.StringVar(&opts.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file after sending")

	_ = cmd.MarkFlagRequired("to")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	cmd.MarkFlagsMutuallyExclusive("password-env", "password-file", "keyring-service")

	return cmd
}

// apply copies the flags the user set over the loaded configuration.
func (o *sendOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.SMTP.Host = o.host
	}
	if f.Changed("port") {
		cfg.SMTP.Port = o.port
	}
	if f.Changed("insecure-skip-verify") {
		cfg.SMTP.InsecureSkipVerify = o.insecure
	}
	if f.Changed("from-name") {
		cfg.Sender.Name = o.senderName
	}
	if f.Changed("from") {
		cfg.Sender.Address = o.senderAddress
	}
	// a password flag replaces every configured source
	if f.Changed("password-env") || f.Changed("password-file") || f.Changed("keyring-service") {
		cfg.Sender.Password = credential.Secret{}
		cfg.Sender.PasswordEnv = o.passwordEnv
		cfg.Sender.PasswordFile = o.passwordFile
		cfg.Sender.KeyringService = o.keyringService
	}
	if f.Changed("log") {
		cfg.Log.Path = o.logPath
	}
	if f.Changed("log-mode") {
		cfg.Log.Mode = o.logMode
	}
	if f.Changed("attempts") {
		cfg.Retry.Attempts = o.attempts
	}
	if f.Changed("interval") {
		cfg.Retry.Interval = o.interval
	}
	if f.Changed("metrics-textfile") {
		cfg.MetricsTextfile = o.metricsFile
	}
}

func (o *sendOptions) readBody(stdin io.Reader) (string, error) {
	switch o.bodyFile {
	case "":
		return o.body, nil
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read body from stdin: %w", err)
		}
		return string(b), nil
	default:
		b, err := os.ReadFile(o.bodyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read body file: %w", err)
		}
		return string(b), nil
	}
}

func runSend(cmd *cobra.Command, rt *runtimeState, cfg config.Config, to, subject, body string) error {
	log := rt.Logger().Named("send")

	password, err := cfg.PasswordSource().Resolve(cfg.Sender.Address)
	if err != nil {
		return err
	}

	transport := rt.transport
	if transport == nil {
		t, err := newSMTPTransport(cfg, log)
		if err != nil {
			return err
		}
		transport = t
	}

	recorder, closeRecorder, err := newRecorder(cfg.Log, rt.Writer())
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRecorder(); err != nil {
			log.Warnw("Failed to close outcome log", "error", err)
		}
	}()

	interval, err := cfg.IntervalDuration()
	if err != nil {
		return err
	}
	mailer := mail.NewMailer(transport, recorder, log, mail.Options{
		MaxAttempts:     cfg.Retry.Attempts,
		AttemptInterval: interval,
		VerboseLogging:  cfg.Debug,
	})

	res, sendErr := mailer.Send(cmd.Context(), mail.Request{
		Host:          cfg.SMTP.Host,
		Port:          cfg.SMTP.Port,
		SenderName:    cfg.Sender.Name,
		SenderAddress: cfg.Sender.Address,
		Password:      password,
		Recipient:     to,
		Subject:       subject,
		Body:          body,
	})

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warnw("Failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	if len(res.Attempts) > 0 {
		_, _ = fmt.Fprintln(rt.Writer(), res.Status)
	}
	if sendErr != nil {
		return sendErr
	}
	if !res.Sent() {
		return fmt.Errorf("delivery failed after %d attempt(s)", len(res.Attempts))
	}
	return nil
}

func newSMTPTransport(cfg config.Config, log *zap.SugaredLogger) (*mail.SMTPTransport, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	var tlsCfg *tls.Config
	if cfg.SMTP.CAFile != "" {
		tlsCfg, err = tlsConfigWithCA(cfg.SMTP.CAFile)
		if err != nil {
			return nil, err
		}
	}
	return mail.NewSMTPTransport(mail.SMTPConfig{
		Timeout:            timeout,
		HeloName:           cfg.SMTP.HeloName,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		TLSConfig:          tlsCfg,
	}, log), nil
}

// tlsConfigWithCA trusts the PEM certificates in path on top of the system
// roots.
func tlsConfigWithCA(path string) (*tls.Config, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA file %s", path)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// newRecorder builds the outcome sink for the configured log mode.
func newRecorder(cfg config.Log, stdout io.Writer) (mail.Recorder, func() error, error) {
	noop := func() error { return nil }
	if cfg.Path == "-" {
		return mail.NewWriterRecorder(stdout), noop, nil
	}
	switch strings.ToLower(cfg.Mode) {
	case config.LogModePerSend:
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		return mail.NewDirRecorder(cfg.Path), noop, nil
	default:
		r := mail.NewFileRecorder(cfg.Path, mail.FileRotation{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
		return r, r.Close, nil
	}
}
