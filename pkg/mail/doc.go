// Package mail sends a single plain-text message over SMTP with implicit TLS,
// retries failed attempts up to a fixed budget, and records a human-readable
// outcome entry in a log sink.
//
// A send runs three steps in order: message assembly (NewMessage), the
// delivery loop (connect, optional AUTH, MAIL/RCPT/DATA, at most three
// attempts), and the outcome recorder. Delivery failures are folded into a
// status string; assembly and recorder errors are returned to the caller.
package mail
