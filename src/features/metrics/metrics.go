// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeSoft    = "soft_failure"
	OutcomeError   = "error"
)

var (
	// CommandsTotal counts transport commands dispatched to drivers, by
	// final outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maestro_player_commands_total",
		Help: "Transport commands dispatched to player drivers.",
	}, []string{"player", "command", "outcome"})

	// StatusPollsTotal counts synchronizer ticks by result. Skipped means
	// the previous fetch was still in flight and the tick was dropped.
	StatusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maestro_status_polls_total",
		Help: "Status synchronizer ticks by result.",
	}, []string{"player", "result"})

	// RetryAttemptsTotal counts accepted-but-not-applied answers that
	// triggered a retry of a cloud write command.
	RetryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maestro_retry_attempts_total",
		Help: "Pending responses that caused a cloud command to be re-issued.",
	}, []string{"player", "command"})
)

// CommandOutcome folds a driver command result into a metric label.
func CommandOutcome(applied bool, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case applied:
		return OutcomeApplied
	default:
		return OutcomeSoft
	}
}
