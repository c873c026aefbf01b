package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ethsigner"

// Service owns a dedicated registry so several servers can live in one
// process (as they do in tests).
type Service struct {
	Registry *prometheus.Registry

	requests           *prometheus.CounterVec
	signedTransactions *prometheus.CounterVec
	nonceResyncs       prometheus.Counter
	downstreamFailures *prometheus.CounterVec
	downstreamDuration prometheus.Histogram
}

func New() *Service {
	registry := prometheus.NewRegistry()

	s := &Service{
		Registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jsonrpc_requests_total",
			Help:      "JSON-RPC requests received, by handler.",
		}, []string{"handler"}),
		signedTransactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signed_transactions_total",
			Help:      "Transactions signed and submitted to the downstream node, by outcome.",
		}, []string{"method", "outcome"}),
		nonceResyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nonce_resyncs_total",
			Help:      "Nonce counters resynchronised after a nonce too low rejection.",
		}),
		downstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downstream_failures_total",
			Help:      "Downstream requests that did not produce a response, by reason.",
		}, []string{"reason"}),
		downstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "downstream_request_duration_seconds",
			Help:      "Time until response headers were received from the downstream node.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.requests,
		s.signedTransactions,
		s.nonceResyncs,
		s.downstreamFailures,
		s.downstreamDuration,
	)

	return s
}

func (s *Service) ObserveRequest(handler string) {
	s.requests.WithLabelValues(handler).Inc()
}

func (s *Service) ObserveSignedTransaction(method string, outcome string) {
	s.signedTransactions.WithLabelValues(method, outcome).Inc()
}

func (s *Service) ObserveNonceResync() {
	s.nonceResyncs.Inc()
}

func (s *Service) ObserveDownstreamFailure(reason string) {
	s.downstreamFailures.WithLabelValues(reason).Inc()
}

func (s *Service) ObserveDownstreamDuration(seconds float64) {
	s.downstreamDuration.Observe(seconds)
}
