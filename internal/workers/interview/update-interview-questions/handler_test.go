package updateinterviewquestions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"recruiting-pipeline/internal/common/errors"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/pagestore"
	"recruiting-pipeline/internal/interview"
	"recruiting-pipeline/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPatcher struct {
	mock.Mock
}

func (m *MockPatcher) PatchQuestionText(ctx context.Context, applicantID, stageID string, texts []string) (*interview.PatchResult, error) {
	args := m.Called(ctx, applicantID, stageID, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interview.PatchResult), args.Error(1)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	activatedJob := &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "interview-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_UpdateInterviewQuestions",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Deadline:                 time.Now().Add(5 * time.Minute).UnixMilli(),
		Variables:                string(variablesJSON),
	}
	return entities.Job{ActivatedJob: activatedJob}
}

func newHandler(t *testing.T, patcher QuestionPatcher) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Patcher:      patcher,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func TestNewHandlerRequiresPatcher(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig()})
	assert.Error(t, err)
	assert.Equal(t, TaskType, newHandler(t, new(MockPatcher)).GetTaskType())
}

func TestParseInput(t *testing.T) {
	h := newHandler(t, new(MockPatcher))

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{
		"applicationId": "app-1",
		"interviewType": "final",
		"questions":     []interface{}{"First", map[string]interface{}{"question": "Second"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second"}, input.Questions)

	tests := []struct {
		name string
		vars map[string]interface{}
		code errors.ErrorCode
	}{
		{"missing questions", map[string]interface{}{"applicationId": "a", "interviewType": "hr"}, errors.ErrCodeMissingFields},
		{"null questions", map[string]interface{}{"applicationId": "a", "interviewType": "hr", "questions": nil}, errors.ErrCodeMissingFields},
		{"missing application", map[string]interface{}{"interviewType": "hr", "questions": []interface{}{}}, errors.ErrCodeMissingFields},
		{"unknown stage", map[string]interface{}{"applicationId": "a", "interviewType": "panel", "questions": []interface{}{}}, errors.ErrCodeInvalidStageType},
		{"questions not a list", map[string]interface{}{"applicationId": "a", "interviewType": "hr", "questions": "Q1"}, errors.ErrCodeInvalidQuestionsFormat},
		{"numeric question", map[string]interface{}{"applicationId": "a", "interviewType": "hr", "questions": []interface{}{3}}, errors.ErrCodeInvalidQuestionsFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(2, tt.vars))
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestExecute_KeepsScores(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger(t)
	codec := interview.NewCodec(log)
	blob, err := codec.Encode([]models.Question{
		{Question: "Q1", Score: 4, MaxScore: 5},
		{Question: "Q2", Score: 3, MaxScore: 5},
	}, "", nil, 3.5)
	require.NoError(t, err)

	store := pagestore.NewMemory()
	store.Put("app-1", map[string]string{models.StageHR.TextField(): blob, models.StageHR.ScoreField(): "3.5"})
	h := newHandler(t, interview.NewPatcher(store, codec, log))

	out, err := h.Execute(ctx, &Input{ApplicationID: "app-1", InterviewType: "hr", Questions: []string{"Renamed"}})
	require.NoError(t, err)
	assert.Equal(t, "hr", out.InterviewType)
	assert.Equal(t, 2, out.QuestionsCount)
	assert.Equal(t, 3.5, out.OriginalScore)

	page, err := store.GetPage(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "3.5", page.Field(models.StageHR.ScoreField()))
	rec := codec.Decode(page.Field(models.StageHR.TextField()))
	require.NotNil(t, rec)
	assert.Equal(t, models.QuestionText("Renamed"), rec.Questions[0].Question)
	assert.Equal(t, models.QuestionText("Q2"), rec.Questions[1].Question)
}

func TestExecute_StageNotFound(t *testing.T) {
	patcher := new(MockPatcher)
	patcher.On("PatchQuestionText", mock.Anything, "app-1", "technical", []string{"x"}).
		Return(nil, errors.NewStageNotFoundError("app-1", "technical")).Once()

	_, err := newHandler(t, patcher).Execute(context.Background(), &Input{
		ApplicationID: "app-1", InterviewType: "technical", Questions: []string{"x"},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStageNotFound))
	patcher.AssertExpectations(t)
}
