// Package metrics defines Prometheus counters for mail delivery: terminal
// send outcomes, connection attempts, failed steps, and log sink failures.
package metrics
