package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"recruiting-pipeline/internal/common/errors"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/metrics"
	"recruiting-pipeline/internal/common/pagestore"
	"recruiting-pipeline/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Audit event types.
const (
	EventStageSubmitted   = "interview.stage_submitted"
	EventQuestionsPatched = "interview.questions_patched"
)

// Auditor receives an event after each successful write. Failures are the
// auditor's problem; the engine never waits on or reports them.
type Auditor interface {
	RecordEvent(ctx context.Context, eventType, applicantID string, details map[string]interface{})
}

// ScoreRecorder receives the recomputed total after each submission.
type ScoreRecorder interface {
	RecordTotalScore(ctx context.Context, total float64, stagesPresent int)
}

// SubmitResult is returned by SubmitStage.
type SubmitResult struct {
	ApplicationID string              `json:"applicationId"`
	Stage         models.Stage        `json:"interviewType"`
	FinalScore    float64             `json:"final_score"`
	TotalScore    *float64            `json:"total_average_score,omitempty"`
	StagesScored  int                 `json:"stagesScored"`
	Record        *models.StageRecord `json:"submittedData"`
	// TotalPersisted is false when a non-atomic store rejected the follow-up total write.
	TotalPersisted bool   `json:"-"`
	UpdatedAt      string `json:"updatedAt"`
}

// Engine validates and persists stage submissions and keeps Total Score current.
type Engine struct {
	store   pagestore.Store
	codec   *Codec
	logger  logger.Logger
	auditor Auditor
	scores  ScoreRecorder
	tracer  trace.Tracer
}

type EngineOption func(*Engine)

func WithAuditor(a Auditor) EngineOption {
	return func(e *Engine) { e.auditor = a }
}

func WithScoreRecorder(r ScoreRecorder) EngineOption {
	return func(e *Engine) { e.scores = r }
}

// WithTracerProvider replaces the global tracer provider for engine spans.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

func NewEngine(store pagestore.Store, codec *Codec, log logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		codec:  codec,
		logger: logger.Component(log, "interview-engine"),
		tracer: defaultTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// submission is a validated payload.
type submission struct {
	applicantID string
	stage       models.Stage
	questions   []models.Question
	comments    string
	extra       map[string]interface{}
}

// SubmitStage records one stage for an applicant. Validation errors are
// returned before the store is touched.
func (e *Engine) SubmitStage(ctx context.Context, applicantID, stageID string, payload map[string]interface{}) (res *SubmitResult, err error) {
	ctx, span := startSpan(ctx, e.tracer, "interview.SubmitStage", applicantID, stageID)
	defer func() { endSpan(span, err) }()

	res, err = e.submitStage(ctx, applicantID, stageID, payload)
	if res != nil {
		span.SetAttributes(
			attribute.Float64("interview.final_score", res.FinalScore),
			attribute.Int("interview.stages_scored", res.StagesScored),
		)
	}
	return res, err
}

func (e *Engine) submitStage(ctx context.Context, applicantID, stageID string, payload map[string]interface{}) (*SubmitResult, error) {
	sub, err := parseSubmission(applicantID, stageID, payload)
	if err != nil {
		metrics.InterviewSubmissions.WithLabelValues(stageLabel(stageID), string(errors.Normalize(err).Code)).Inc()
		return nil, err
	}

	log := e.logger.With(map[string]interface{}{
		"applicationId": sub.applicantID,
		"stage":         string(sub.stage),
	})

	finalScore := Normalize(sub.questions)
	record, blob, err := e.encode(sub, finalScore)
	if err != nil {
		metrics.InterviewSubmissions.WithLabelValues(string(sub.stage), string(errors.ErrCodeInvalidInput)).Inc()
		return nil, errors.NewInvalidInputError(err.Error())
	}

	scores := e.readStageScores(ctx, log, sub.applicantID, sub.stage)
	scores[sub.stage] = finalScore

	present := make([]float64, 0, len(models.Stages))
	for _, s := range models.Stages {
		if v, ok := scores[s]; ok {
			present = append(present, v)
		}
	}

	fields := map[string]string{
		sub.stage.TextField():  blob,
		sub.stage.ScoreField(): models.FormatNumber(finalScore),
	}

	result := &SubmitResult{
		ApplicationID: sub.applicantID,
		Stage:         sub.stage,
		FinalScore:    finalScore,
		StagesScored:  len(present),
		Record:        record,
		UpdatedAt:     e.codec.Timestamp(),
	}

	total, ok := Mean(present)
	if !ok {
		log.Warn("No stage scores present, leaving Total Score unset", nil)
	} else {
		result.TotalScore = &total
	}

	if err := e.write(ctx, log, sub.applicantID, fields, result); err != nil {
		metrics.InterviewSubmissions.WithLabelValues(string(sub.stage), string(errors.ErrCodeStoreWriteFailed)).Inc()
		return nil, err
	}

	metrics.InterviewSubmissions.WithLabelValues(string(sub.stage), "success").Inc()
	metrics.InterviewStageScore.WithLabelValues(string(sub.stage)).Observe(finalScore)

	details := map[string]interface{}{
		"stage":          string(sub.stage),
		"finalScore":     finalScore,
		"questionsCount": len(sub.questions),
		"stagesScored":   result.StagesScored,
	}
	if result.TotalScore != nil {
		details["totalScore"] = *result.TotalScore
		if e.scores != nil {
			e.scores.RecordTotalScore(ctx, *result.TotalScore, result.StagesScored)
		}
	}
	if e.auditor != nil {
		e.auditor.RecordEvent(ctx, EventStageSubmitted, sub.applicantID, details)
	}

	log.Info("Interview stage submitted", details)
	return result, nil
}

func (e *Engine) encode(sub *submission, finalScore float64) (*models.StageRecord, string, error) {
	record, err := e.codec.NewRecord(sub.questions, sub.comments, sub.extra, finalScore)
	if err != nil {
		return nil, "", err
	}
	blob, err := e.codec.EncodeRecord(record)
	if err != nil {
		return nil, "", err
	}
	return record, blob, nil
}

// write persists the stage fields and the total in one call when the store
// applies multi-field updates atomically, otherwise stage fields first and
// the total as a best-effort second write.
func (e *Engine) write(ctx context.Context, log logger.Logger, applicantID string, fields map[string]string, result *SubmitResult) error {
	if result.TotalScore == nil {
		if err := e.store.UpdatePage(ctx, applicantID, fields); err != nil {
			return errors.NewStoreWriteFailedError(err)
		}
		return nil
	}

	totalText := models.FormatNumber(*result.TotalScore)

	if pagestore.SupportsAtomicUpdates(e.store) {
		fields[models.FieldTotalScore] = totalText
		if err := e.store.UpdatePage(ctx, applicantID, fields); err != nil {
			return errors.NewStoreWriteFailedError(err)
		}
		result.TotalPersisted = true
		return nil
	}

	if err := e.store.UpdatePage(ctx, applicantID, fields); err != nil {
		return errors.NewStoreWriteFailedError(err)
	}
	if err := e.store.UpdatePage(ctx, applicantID, map[string]string{models.FieldTotalScore: totalText}); err != nil {
		log.Warn("Failed to persist Total Score after stage write", map[string]interface{}{
			"error":      err.Error(),
			"totalScore": *result.TotalScore,
		})
		return nil
	}
	result.TotalPersisted = true
	return nil
}

// readStageScores returns the stored scores of the other stages. Any read
// problem makes the affected stage count as not yet submitted.
func (e *Engine) readStageScores(ctx context.Context, log logger.Logger, applicantID string, current models.Stage) map[models.Stage]float64 {
	scores := make(map[models.Stage]float64, len(models.Stages))

	page, err := e.store.GetPage(ctx, applicantID)
	if err != nil {
		log.Warn("Could not read sibling stage scores, treating them as absent", map[string]interface{}{
			"error": err.Error(),
		})
		return scores
	}

	for _, s := range models.Stages {
		if s == current {
			continue
		}
		raw := strings.TrimSpace(page.Field(s.ScoreField()))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			log.Warn("Ignoring malformed sibling stage score", map[string]interface{}{
				"sibling": string(s),
				"value":   raw,
			})
			continue
		}
		scores[s] = v
	}
	return scores
}

func parseSubmission(applicantID, stageID string, payload map[string]interface{}) (*submission, error) {
	applicantID = strings.TrimSpace(applicantID)
	if applicantID == "" || strings.TrimSpace(stageID) == "" || payload == nil {
		return nil, errors.NewMissingFieldsError("applicationId, interviewType, and interviewData are required")
	}

	stage, ok := models.ParseStage(stageID)
	if !ok {
		return nil, errors.NewInvalidStageTypeError(stageID)
	}

	sub := &submission{
		applicantID: applicantID,
		stage:       stage,
		extra:       make(map[string]interface{}, len(payload)),
	}

	for k, v := range payload {
		switch k {
		case "questions":
		case "comments":
			if s, ok := v.(string); ok {
				sub.comments = s
			} else if v != nil {
				sub.comments = fmt.Sprint(v)
			}
		default:
			sub.extra[k] = v
		}
	}

	if raw, present := payload["questions"]; present && raw != nil {
		questions, err := decodeQuestions(raw)
		if err != nil {
			return nil, err
		}
		sub.questions = questions
	}

	return sub, nil
}

// decodeQuestions requires a list; entries that are not objects become zero
// questions so they score 0 instead of failing the submission.
func decodeQuestions(raw interface{}) ([]models.Question, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.NewInvalidQuestionsFormatError(fmt.Sprintf("questions is %T", raw))
	}

	questions := make([]models.Question, len(list))
	for i, item := range list {
		if _, isObject := item.(map[string]interface{}); !isObject {
			continue
		}
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var q models.Question
		if json.Unmarshal(data, &q) == nil {
			questions[i] = q
		}
	}
	return questions, nil
}

func stageLabel(stageID string) string {
	if s, ok := models.ParseStage(stageID); ok {
		return string(s)
	}
	return "unknown"
}
