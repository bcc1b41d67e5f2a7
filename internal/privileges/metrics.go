package privileges

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gobb",
	Subsystem: "privileges",
	Name:      "decisions_total",
	Help:      "Number of privilege decisions by privilege and result.",
}, []string{"privilege", "allowed"})

func observe(privilege string, allowed bool) {
	decisionsTotal.WithLabelValues(privilege, strconv.FormatBool(allowed)).Inc()
}
