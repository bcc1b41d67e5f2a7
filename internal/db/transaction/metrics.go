package transaction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	levelTop       = "top"
	levelSavepoint = "savepoint"

	outcomeCommitted    = "committed"
	outcomeRolledBack   = "rolled_back"
	outcomeBeginFailed  = "begin_failed"
	outcomeCommitFailed = "commit_failed"
)

var transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gobb",
	Subsystem: "db",
	Name:      "transactions_total",
	Help:      "Number of finished transactions and savepoints by outcome.",
}, []string{"level", "outcome"})

func observe(level, outcome string) {
	transactionsTotal.WithLabelValues(level, outcome).Inc()
}
