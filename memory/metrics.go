package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the engine's Prometheus instruments.
type Collector struct {
	thoughtsSaved     prometheus.Counter
	relationsSaved    prometheus.Counter
	relationsInferred prometheus.Counter
	resultsSaved      prometheus.Counter
	decodeFailures    *prometheus.CounterVec
	searches          *prometheus.CounterVec
	chainWalks        prometheus.Histogram
}

// NewCollector registers the engine's instruments on reg. A nil reg uses
// the default registerer; tests pass prometheus.NewRegistry() so multiple
// stores can coexist.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if namespace == "" {
		namespace = "memflow"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		thoughtsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thoughts_saved_total",
			Help:      "Total number of thoughts persisted",
		}),
		relationsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_saved_total",
			Help:      "Total number of relations persisted",
		}),
		relationsInferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_inferred_total",
			Help:      "Total number of relations created by the inference heuristic",
		}),
		resultsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_saved_total",
			Help:      "Total number of results persisted",
		}),
		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Stored points skipped because their payload could not be decoded",
		}, []string{"kind"}),
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Thought searches by mode (vector or substring)",
		}, []string{"mode"}),
		chainWalks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "causal_chain_length",
			Help:      "Lengths of discovered causal chains",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
}
