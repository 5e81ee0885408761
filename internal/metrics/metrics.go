package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Metrics names.
	MetricNameBuildInfo             = "spltoken_build_info"
	MetricNameStepDuration          = "spltoken_scenario_step_duration_seconds"
	MetricNameTransactionsSubmitted = "spltoken_transactions_submitted_total"
	MetricNameTransactionsFailed    = "spltoken_transactions_failed_total"
	MetricNameAssertionFailures     = "spltoken_assertion_failures_total"
	MetricNameScenarioRuns          = "spltoken_scenario_runs_total"

	// Labels.
	LabelVersion     = "version"
	LabelCommit      = "commit"
	LabelDate        = "date"
	LabelStep        = "step"
	LabelInstruction = "instruction"
	LabelErrorKind   = "error_kind"
	LabelStatus      = "status"

	// Statuses.
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameBuildInfo,
			Help: "Build information of the spltoken driver",
		},
		[]string{LabelVersion, LabelCommit, LabelDate},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameStepDuration,
			Help:    "Duration of a scenario step from submission to verified state",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{LabelStep, LabelStatus},
	)

	TransactionsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameTransactionsSubmitted,
			Help: "Number of transactions submitted by instruction",
		},
		[]string{LabelInstruction},
	)

	TransactionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameTransactionsFailed,
			Help: "Number of transactions that failed by instruction and error kind",
		},
		[]string{LabelInstruction, LabelErrorKind},
	)

	AssertionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameAssertionFailures,
			Help: "Number of state assertions that did not hold",
		},
		[]string{LabelStep},
	)

	ScenarioRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameScenarioRuns,
			Help: "Number of completed scenario runs by status",
		},
		[]string{LabelStatus},
	)
)
