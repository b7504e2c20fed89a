// Package metrics holds the prometheus collectors of the confidential call client.
// All methods are safe to call on a nil *Service.
package metrics

import (
	"time"

	"github.com/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fhevm_client"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Service struct {
	Registry *prometheus.Registry

	relayerRequests *prometheus.CounterVec
	relayerDuration *prometheus.HistogramVec
	sessionNonce    *prometheus.GaugeVec
	localCalls      *prometheus.CounterVec
	decryptions     prometheus.Counter
}

func New() (*Service, error) {
	s := &Service{
		Registry: prometheus.NewRegistry(),
		relayerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relayer",
			Name:      "requests_total",
			Help:      "Requests sent to the relayer by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		relayerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relayer",
			Name:      "request_duration_seconds",
			Help:      "Relayer request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		sessionNonce: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relayer",
			Name:      "session_nonce",
			Help:      "Current nonce of a relayer session.",
		}, []string{"session_id"}),
		localCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "local",
			Name:      "calls_total",
			Help:      "Local contract calls by kind (read, mutate) and outcome.",
		}, []string{"kind", "outcome"}),
		decryptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "local",
			Name:      "decryptions_total",
			Help:      "User decrypt round trips performed by the engine.",
		}),
	}

	for _, c := range []prometheus.Collector{
		s.relayerRequests,
		s.relayerDuration,
		s.sessionNonce,
		s.localCalls,
		s.decryptions,
	} {
		if err := s.Registry.Register(c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}

	return OutcomeSuccess
}

func (s *Service) ObserveRelayerRequest(endpoint string, started time.Time, err error) {
	if s == nil {
		return
	}

	s.relayerRequests.WithLabelValues(endpoint, Outcome(err)).Inc()
	s.relayerDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

func (s *Service) SetSessionNonce(sessionID string, nonce uint64) {
	if s == nil {
		return
	}

	s.sessionNonce.WithLabelValues(sessionID).Set(float64(nonce))
}

func (s *Service) ObserveLocalCall(kind string, err error) {
	if s == nil {
		return
	}

	s.localCalls.WithLabelValues(kind, Outcome(err)).Inc()
}

func (s *Service) IncDecryptions() {
	if s == nil {
		return
	}

	s.decryptions.Inc()
}

// RelayerRequests exposes the request counter, mainly for assertions.
func (s *Service) RelayerRequests() *prometheus.CounterVec {
	return s.relayerRequests
}

func (s *Service) LocalCalls() *prometheus.CounterVec {
	return s.localCalls
}

// WriteTextfile writes every collected metric to path in the text exposition
// format, for the node exporter textfile collector.
func (s *Service) WriteTextfile(path string) error {
	if s == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, s.Registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}

	return nil
}
