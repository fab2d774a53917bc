package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/assetdesk/assetdesk/internal/config"
)

const (
	outcomeSuccess   = "success"
	outcomeRefreshed = "refreshed"
	outcomeExpired   = "expired"
	outcomeRejected  = "rejected"
	outcomeError     = "error"
)

var attemptsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Number of credential and token checks, differentiated by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

func countAttempt(provider config.AuthProvider, outcome string) {
	attemptsTotal.WithLabelValues(string(provider), outcome).Inc()
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrTokenExpired):
		return outcomeExpired
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return outcomeRejected
	default:
		return outcomeError
	}
}
