// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// InterviewSubmissions counts stage submissions; outcome is "success" or an error code.
	InterviewSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_stage_submissions_total",
			Help: "Interview stage submissions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	InterviewQuestionPatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_question_patches_total",
			Help: "Question text patches by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	InterviewStageScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interview_stage_score",
			Help:    "Normalized stage scores on the 5-point scale",
			Buckets: []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5},
		},
		[]string{"stage"},
	)

	// StageRecordDecodes counts decode outcomes: strict, repaired, failed, empty.
	StageRecordDecodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stage_record_decodes_total",
			Help: "Stage record decode attempts by outcome",
		},
		[]string{"outcome"},
	)

	PageStoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_store_requests_total",
			Help: "Page store calls by operation, transport and outcome",
		},
		[]string{"operation", "transport", "outcome"},
	)

	PageStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "page_store_request_duration_seconds",
			Help: "Page store call latency",
		},
		[]string{"operation", "transport"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP API requests by route and status",
		},
		[]string{"route", "status"},
	)

	CountCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applicant_count_cache_lookups_total",
			Help: "Applicant total-count cache lookups by result",
		},
		[]string{"result"},
	)
)
