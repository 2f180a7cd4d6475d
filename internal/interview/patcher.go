package interview

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"recruiting-pipeline/internal/common/errors"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/metrics"
	"recruiting-pipeline/internal/common/pagestore"
	"recruiting-pipeline/internal/models"

	"go.opentelemetry.io/otel/trace"
)

// PatchResult is returned by PatchQuestionText.
type PatchResult struct {
	ApplicationID  string              `json:"applicationId"`
	Stage          models.Stage        `json:"interviewType"`
	QuestionsCount int                 `json:"questionsCount"`
	OriginalScore  float64             `json:"originalScore"`
	Record         *models.StageRecord `json:"updatedData"`
	UpdatedAt      string              `json:"updatedAt"`
}

// Patcher rewrites question wording of an already submitted stage while
// keeping every score, note and the stage's final_score.
type Patcher struct {
	store   pagestore.Store
	codec   *Codec
	logger  logger.Logger
	auditor Auditor
	tracer  trace.Tracer
}

type PatcherOption func(*Patcher)

func WithPatchAuditor(a Auditor) PatcherOption {
	return func(p *Patcher) { p.auditor = a }
}

func WithPatchTracerProvider(tp trace.TracerProvider) PatcherOption {
	return func(p *Patcher) { p.tracer = tp.Tracer(tracerName) }
}

func NewPatcher(store pagestore.Store, codec *Codec, log logger.Logger, opts ...PatcherOption) *Patcher {
	p := &Patcher{
		store:  store,
		codec:  codec,
		logger: logger.Component(log, "question-patcher"),
		tracer: defaultTracer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PatchQuestionText replaces question text index by index. Texts beyond the
// stored list are appended using the first stored question's score, maxScore
// and notes; stored questions beyond len(texts) are kept unchanged.
func (p *Patcher) PatchQuestionText(ctx context.Context, applicantID, stageID string, texts []string) (res *PatchResult, err error) {
	ctx, span := startSpan(ctx, p.tracer, "interview.PatchQuestionText", applicantID, stageID)
	defer func() { endSpan(span, err) }()
	return p.patch(ctx, applicantID, stageID, texts)
}

func (p *Patcher) patch(ctx context.Context, applicantID, stageID string, texts []string) (*PatchResult, error) {
	applicantID = strings.TrimSpace(applicantID)
	if applicantID == "" || strings.TrimSpace(stageID) == "" || texts == nil {
		return nil, p.reject(stageID, errors.NewMissingFieldsError("applicationId, interviewType, and questions are required"))
	}
	stage, ok := models.ParseStage(stageID)
	if !ok {
		return nil, p.reject(stageID, errors.NewInvalidStageTypeError(stageID))
	}

	log := p.logger.With(map[string]interface{}{
		"applicationId": applicantID,
		"stage":         string(stage),
	})

	page, err := p.store.GetPage(ctx, applicantID)
	if err != nil {
		if stderrors.Is(err, pagestore.ErrPageNotFound) {
			return nil, p.reject(stageID, errors.NewStageNotFoundError(applicantID, string(stage)))
		}
		log.Error("Failed to read applicant record", map[string]interface{}{"error": err.Error()})
		return nil, p.reject(stageID, errors.NewStoreReadFailedError(err))
	}

	record := p.codec.Decode(page.Field(stage.TextField()))
	if record == nil {
		return nil, p.reject(stageID, errors.NewStageNotFoundError(applicantID, string(stage)))
	}

	record.Questions = mergeQuestionTexts(record.Questions, texts)
	now := p.codec.Timestamp()
	record.Result.UpdatedAt = now

	blob, err := p.codec.EncodeRecord(record)
	if err != nil {
		return nil, p.reject(stageID, errors.NewInternalError(err))
	}

	if err := p.store.UpdatePage(ctx, applicantID, map[string]string{stage.TextField(): blob}); err != nil {
		log.Error("Failed to write patched questions", map[string]interface{}{"error": err.Error()})
		return nil, p.reject(stageID, errors.NewStoreWriteFailedError(err))
	}

	res := &PatchResult{
		ApplicationID:  applicantID,
		Stage:          stage,
		QuestionsCount: len(record.Questions),
		OriginalScore:  float64(record.Result.FinalScore),
		Record:         record,
		UpdatedAt:      now,
	}

	metrics.InterviewQuestionPatches.WithLabelValues(string(stage), "success").Inc()
	details := map[string]interface{}{
		"stage":          string(stage),
		"questionsCount": res.QuestionsCount,
		"textsProvided":  len(texts),
	}
	if p.auditor != nil {
		p.auditor.RecordEvent(ctx, EventQuestionsPatched, applicantID, details)
	}
	log.Info("Interview questions updated", details)
	return res, nil
}

func (p *Patcher) reject(stageID string, err *errors.StandardError) error {
	metrics.InterviewQuestionPatches.WithLabelValues(stageLabel(stageID), string(err.Code)).Inc()
	return err
}

func mergeQuestionTexts(existing []models.Question, texts []string) []models.Question {
	out := make([]models.Question, len(existing), max(len(existing), len(texts)))
	copy(out, existing)

	template := models.Question{MaxScore: DefaultMaxScore}
	if len(existing) > 0 {
		first := existing[0]
		template = models.Question{Score: first.Score, MaxScore: first.MaxScore, Notes: first.Notes}
	}

	for i, text := range texts {
		if i < len(out) {
			out[i].Question = models.QuestionText(text)
			continue
		}
		q := template
		q.Question = models.QuestionText(text)
		out = append(out, q)
	}
	return out
}

// QuestionTexts accepts a list of strings or {"question": "..."} objects.
func QuestionTexts(raw interface{}) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.NewInvalidQuestionsFormatError(fmt.Sprintf("questions is %T", raw))
	}

	texts := make([]string, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case string:
			texts[i] = v
		case map[string]interface{}:
			s, ok := v["question"].(string)
			if !ok {
				return nil, errors.NewInvalidQuestionsFormatError(fmt.Sprintf("questions[%d].question must be a string", i))
			}
			texts[i] = s
		default:
			return nil, errors.NewInvalidQuestionsFormatError(fmt.Sprintf("questions[%d] must be a string or object", i))
		}
	}
	return texts, nil
}
