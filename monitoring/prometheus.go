package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ppn/logx"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds     prometheus.Gauge
	ingressPaymentCount   prometheus.Counter
	committedPaymentCount prometheus.Counter
	rejectedPaymentCount  *prometheus.CounterVec
	commitLatency         prometheus.Histogram
	sequenceCounter       prometheus.Gauge
	historyScanDuration   prometheus.Histogram
	historyRecordCount    prometheus.Histogram
	corruptRecordCount    prometheus.Counter
	trackedPayments       prometheus.GaugeVec
	throttledRequestCount prometheus.Counter
	recoveredPanicCount   prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ppn_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node",
			},
		),
		ingressPaymentCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppn_node_ingress_payment_count",
				Help: "The total number of payment requests received from clients",
			},
		),
		committedPaymentCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppn_node_committed_payment_count",
				Help: "The total number of payments committed to the ledger",
			},
		),
		rejectedPaymentCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ppn_node_rejected_payment_count",
				Help: "The total number of rejected payment requests",
			},
			[]string{"reason"},
		),
		commitLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "ppn_node_commit_latency",
				Help: "Latency in second from request submission until the ledger commit",
			},
		),
		sequenceCounter: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ppn_node_sequence_counter",
				Help: "The current value of the global sequence counter",
			},
		),
		historyScanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "ppn_node_history_scan_duration",
				Help: "Duration in second of a full history scan for one sender",
			},
		),
		historyRecordCount: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "ppn_node_history_record_count",
				Help: "Number of records returned by a history scan",
			},
		),
		corruptRecordCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppn_node_corrupt_record_count",
				Help: "The total number of undecodable record rows skipped during scans",
			},
		),
		trackedPayments: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ppn_node_tracked_payments",
				Help: "Number of payments currently held by the status tracker",
			},
			[]string{"state"},
		),
		throttledRequestCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppn_node_throttled_request_count",
				Help: "The total number of RPC requests refused by the rate limiter",
			},
		),
		recoveredPanicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ppn_node_recovered_panic_count",
				Help: "The total number of panics recovered in background goroutines",
			},
		),
	}
}

var nodeMetrics = newNodePromMetrics()

// InitMetrics marks the node as up. Metric registration happens at package
// load, so this only stamps the start time.
func InitMetrics() {
	nodeMetrics.nodeUpUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("METRICS", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func IncreaseIngressPaymentCount() {
	nodeMetrics.ingressPaymentCount.Inc()
}

func IncreaseCommittedPaymentCount() {
	nodeMetrics.committedPaymentCount.Inc()
}

func RecordRejectedPayment(reason string) {
	nodeMetrics.rejectedPaymentCount.With(prometheus.Labels{
		"reason": reason,
	}).Inc()
}

func RecordCommitLatency(duration time.Duration) {
	nodeMetrics.commitLatency.Observe(duration.Seconds())
}

func SetSequenceCounter(counter uint64) {
	nodeMetrics.sequenceCounter.Set(float64(counter))
}

func RecordHistoryScan(duration time.Duration, records int) {
	nodeMetrics.historyScanDuration.Observe(duration.Seconds())
	nodeMetrics.historyRecordCount.Observe(float64(records))
}

func IncreaseCorruptRecordCount() {
	nodeMetrics.corruptRecordCount.Inc()
}

func SetTrackedPayments(count int64, state string) {
	nodeMetrics.trackedPayments.With(prometheus.Labels{
		"state": state,
	}).Set(float64(count))
}

func IncreaseThrottledRequestCount() {
	nodeMetrics.throttledRequestCount.Inc()
}

func IncreaseRecoveredPanicCount() {
	nodeMetrics.recoveredPanicCount.Inc()
}
