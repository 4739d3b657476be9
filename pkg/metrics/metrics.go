package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every mailsend collector. It is separate from the default
// registry so a dump only contains mail delivery series.
var Registry = prometheus.NewRegistry()

var (
	// Terminal outcome of a send, one increment per Send call.
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailsend_mail_send_success_total",
		Help: "Total number of sends that ended with the message accepted by the server",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailsend_mail_send_failure_total",
		Help: "Total number of sends that exhausted every attempt without success",
	}, []string{"host"})
	// Per-attempt counters. Stage is one of connect, authenticate, send.
	MailAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailsend_mail_attempts_total",
		Help: "Total number of connection attempts made by the delivery loop",
	}, []string{"host"})
	MailAttemptFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailsend_mail_attempt_failures_total",
		Help: "Total number of failed delivery steps grouped by stage",
	}, []string{"host", "stage"})
	MailRecordFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailsend_record_failures_total",
		Help: "Total number of outcome records that could not be written to the log sink",
	})
)

func init() {
	Registry.MustRegister(MailSendSuccess)
	Registry.MustRegister(MailSendFailure)
	Registry.MustRegister(MailAttempts)
	Registry.MustRegister(MailAttemptFailures)
	Registry.MustRegister(MailRecordFailures)
}

// WriteTextfile dumps the current values in the text exposition format, for
// the node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
