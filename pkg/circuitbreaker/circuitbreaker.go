package circuitbreaker

import (
	"github.com/sony/gobreaker"
	log "github.com/sirupsen/logrus"
)

var (
	// MinRequests is the number of requests to observe before tripping.
	MinRequests = 10
	// FailureRatio is the share of failed requests that opens the breaker.
	FailureRatio = 0.6
)

// NewCircuitBreaker returns a breaker for the named upstream service. It
// opens once more than MinRequests were sent and at least FailureRatio of
// them failed, and logs every transition.
func NewCircuitBreaker(service string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: service,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if int(counts.Requests) <= MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch {
			case to == gobreaker.StateOpen:
				log.Warnf("%s seems down, requests are rejected", name)
			case to == gobreaker.StateHalfOpen:
				log.Infof("probing %s", name)
			case from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed:
				log.Infof("%s is back, requests are allowed", name)
			}
		},
	})
}
