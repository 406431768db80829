// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlevm

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/settlevm/accumulator"
)

const metricsNamespace = Name

type metrics struct {
	txs          *prometheus.CounterVec
	created      prometheus.Counter
	removed      prometheus.Counter
	checkpoints  prometheus.Counter
	currentEpoch prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "txs_executed",
			Help:      "Number of executed transactions by kind and result",
		}, []string{"kind", "result"}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "accumulators_created",
			Help:      "Number of accumulators created by settlement",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "accumulators_removed",
			Help:      "Number of accumulators removed after settling to zero",
		}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checkpoints_settled",
			Help:      "Number of checkpoints settled",
		}),
		currentEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "epoch",
			Help:      "Current epoch",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.txs),
		registerer.Register(m.created),
		registerer.Register(m.removed),
		registerer.Register(m.checkpoints),
		registerer.Register(m.currentEpoch),
	)
	return m, errs.Err
}

func (m *metrics) observeTx(kind string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.txs.WithLabelValues(kind, result).Inc()
}

// observeOutcomes records settlements once they have been committed.
func (m *metrics) observeOutcomes(outcomes []accumulator.Outcome) {
	for _, o := range outcomes {
		switch o {
		case accumulator.Created:
			m.created.Inc()
		case accumulator.Removed:
			m.removed.Inc()
		}
	}
}
