package updateinterviewquestions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recruiting-pipeline/internal/common/camunda"
	"recruiting-pipeline/internal/common/config"
	"recruiting-pipeline/internal/common/errors"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/metrics"
	"recruiting-pipeline/internal/interview"
	"recruiting-pipeline/internal/models"
	"recruiting-pipeline/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "update-interview-questions"

// activity carries the input schema published for TaskType.
var activity, _ = registry.Default().Lookup(TaskType)

// QuestionPatcher is satisfied by *interview.Patcher.
type QuestionPatcher interface {
	PatchQuestionText(ctx context.Context, applicantID, stageID string, texts []string) (*interview.PatchResult, error)
}

type Handler struct {
	config     *Config
	logger     logger.Logger
	camunda    *camunda.Client
	patcher    QuestionPatcher
	errHandler *errors.ErrorHandler
	observer   camunda.JobObserver
	jobWorker  worker.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Patcher      QuestionPatcher
	Logger       logger.Logger
	Observer     camunda.JobObserver
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Patcher == nil {
		return nil, fmt.Errorf("%s: question patcher is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = logger.Component(log, TaskType)

	return &Handler{
		config:     workerConfig,
		logger:     log,
		camunda:    opts.Camunda,
		patcher:    opts.Patcher,
		errHandler: errors.NewErrorHandler(log),
		observer:   opts.Observer,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing question text update", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		camunda.ObserveJob(ctx, h.observer, TaskType, "failed", startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		camunda.ObserveJob(ctx, h.observer, TaskType, "failed", startTime)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	camunda.ObserveJob(ctx, h.observer, TaskType, "completed", startTime)
}

// Execute rewrites the question wording of a submitted stage.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.patcher.PatchQuestionText(ctx, input.ApplicationID, input.InterviewType, input.Questions)
	if err != nil {
		return nil, err
	}
	return &Output{
		ApplicationID:  res.ApplicationID,
		InterviewType:  string(res.Stage),
		QuestionsCount: res.QuestionsCount,
		OriginalScore:  res.OriginalScore,
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("failed to parse job variables: %v", err))
	}
	if problems := activity.ValidateInput(variables); len(problems) > 0 {
		return nil, errors.NewMissingFieldsError(strings.Join(problems, "; "))
	}

	input := &Input{}
	input.ApplicationID, _ = variables["applicationId"].(string)
	input.InterviewType, _ = variables["interviewType"].(string)
	raw, present := variables["questions"]

	if strings.TrimSpace(input.ApplicationID) == "" || strings.TrimSpace(input.InterviewType) == "" || !present || raw == nil {
		return nil, errors.NewMissingFieldsError("applicationId, interviewType, and questions are required")
	}
	if _, ok := models.ParseStage(input.InterviewType); !ok {
		return nil, errors.NewInvalidStageTypeError(input.InterviewType)
	}

	input.Questions, err = interview.QuestionTexts(raw)
	if err != nil {
		return nil, err
	}
	return input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	variables := map[string]interface{}{
		"questionsCount": output.QuestionsCount,
		"originalScore":  output.OriginalScore,
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("Interview questions updated", map[string]interface{}{
		"jobKey":         job.GetKey(),
		"applicationId":  output.ApplicationID,
		"interviewType":  output.InterviewType,
		"questionsCount": output.QuestionsCount,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("%s: camunda client is required to register", TaskType)
	}

	jobWorker, err := h.camunda.OpenWorker(camunda.WorkerSpec{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
		Handler:       h.Handle,
	})
	if err != nil {
		return err
	}
	h.jobWorker = jobWorker

	h.logger.Info("Worker registered with Camunda", map[string]interface{}{
		"taskType":      TaskType,
		"maxJobsActive": h.config.MaxJobsActive,
		"timeout":       h.config.Timeout.String(),
	})
	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func extractErrorCode(err error) string {
	if stdErr := errors.AsStandardError(err); stdErr != nil {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[TaskType]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
			}
		}
	}
	return cfg
}
