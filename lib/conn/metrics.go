package conn

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"strings"
	"sync/atomic"
)

var (
	metricSet = metrics.NewSet()

	openConnections atomic.Int64

	openFailuresTotal = metricSet.NewCounter(`ekv_conn_open_failures_total`)
	closesTotal       = metricSet.NewCounter(`ekv_conn_closes_total`)
	beginsTotal       = metricSet.NewCounter(`ekv_conn_tx_begins_total`)
	commitsTotal      = metricSet.NewCounter(`ekv_conn_tx_commits_total`)
	rollbacksTotal    = metricSet.NewCounter(`ekv_conn_tx_rollbacks_total`)

	_ = metricSet.NewGauge(`ekv_conn_open`, func() float64 {
		return float64(openConnections.Load())
	})
)

func opensTotal(mode OpenMode) *metrics.Counter {
	return metricSet.GetOrCreateCounter(fmt.Sprintf(`ekv_conn_opens_total{mode=%q}`, mode.String()))
}

func errorsTotal(kind Kind) *metrics.Counter {
	label := strings.NewReplacer(" ", "_", "-", "_").Replace(kind.String())
	return metricSet.GetOrCreateCounter(fmt.Sprintf(`ekv_conn_errors_total{kind=%q}`, label))
}

// WriteMetrics writes the connection metrics in Prometheus text format to w
func WriteMetrics(w io.Writer) {
	metricSet.WritePrometheus(w)
}
