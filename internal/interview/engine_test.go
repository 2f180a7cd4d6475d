package interview

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"recruiting-pipeline/internal/common/errors"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/pagestore"
	"recruiting-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) RecordEvent(ctx context.Context, eventType, applicantID string, details map[string]interface{}) {
	m.Called(ctx, eventType, applicantID, details)
}

type mockScoreRecorder struct {
	mock.Mock
}

func (m *mockScoreRecorder) RecordTotalScore(ctx context.Context, total float64, stagesPresent int) {
	m.Called(ctx, total, stagesPresent)
}

const appID = "21f21223-e79e-8091-979b-ef962a97eaed"

func newEngine(t *testing.T, store pagestore.Store, opts ...EngineOption) *Engine {
	t.Helper()
	return NewEngine(store, newTestCodec(t), logger.NewTestLogger(t), opts...)
}

// payload builds interviewData the way it arrives from a decoded JSON body.
func payload(t *testing.T, scores ...float64) map[string]interface{} {
	t.Helper()
	qs := make([]map[string]interface{}, len(scores))
	for i, s := range scores {
		qs[i] = map[string]interface{}{
			"question": "Question " + string(rune('A'+i)),
			"score":    s,
			"maxScore": 5,
			"notes":    "",
		}
	}
	raw, err := json.Marshal(map[string]interface{}{"questions": qs, "comments": "ok"})
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSubmitStage_ProgressiveTotal(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, map[string]string{"Full Name": "Ada"})
	engine := newEngine(t, store)

	hr, err := engine.SubmitStage(ctx, appID, "hr", payload(t, 3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, 4.0, hr.FinalScore)
	require.NotNil(t, hr.TotalScore)
	assert.Equal(t, 4.0, *hr.TotalScore)
	assert.Equal(t, 1, hr.StagesScored)

	tech, err := engine.SubmitStage(ctx, appID, "Technical", payload(t, 4, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 3.33, tech.FinalScore)
	assert.Equal(t, 3.67, *tech.TotalScore)
	assert.Equal(t, models.StageTechnical, tech.Stage)

	final, err := engine.SubmitStage(ctx, appID, "FINAL", payload(t, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, 5.0, final.FinalScore)
	assert.Equal(t, 4.11, *final.TotalScore) // mean(4, 3.33, 5)
	assert.Equal(t, 3, final.StagesScored)

	page, err := store.GetPage(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, "4", page.Field("HR Final Score"))
	assert.Equal(t, "3.33", page.Field("Technical Final Score"))
	assert.Equal(t, "5", page.Field("Final Score"))
	assert.Equal(t, "4.11", page.Field("Total Score"))

	rec := engine.codec.Decode(page.Field("Technical Interview"))
	require.NotNil(t, rec)
	assert.Len(t, rec.Questions, 3)
	assert.Equal(t, models.Number(3.33), rec.Result.FinalScore)
	assert.Equal(t, "ok", rec.Result.Comments)
}

func TestSubmitStage_SingleAtomicWrite(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, nil)
	engine := newEngine(t, store)

	_, err := engine.SubmitStage(ctx, appID, "hr", payload(t, 3, 4, 5))
	require.NoError(t, err)

	updates := store.Updates()
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].Fields, 3)
	assert.Contains(t, updates[0].Fields, "HR Interview")
	assert.Equal(t, "4", updates[0].Fields["HR Final Score"])
	assert.Equal(t, "4", updates[0].Fields["Total Score"])
}

func TestSubmitStage_NonAtomicStoreWritesTotalSeparately(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory(pagestore.WithAtomicUpdates(false))
	store.Put(appID, map[string]string{"HR Final Score": "4"})
	engine := newEngine(t, store)

	res, err := engine.SubmitStage(ctx, appID, "technical", payload(t, 4, 4, 2))
	require.NoError(t, err)
	assert.True(t, res.TotalPersisted)

	updates := store.Updates()
	require.Len(t, updates, 2)
	assert.NotContains(t, updates[0].Fields, "Total Score")
	assert.Equal(t, map[string]string{"Total Score": "3.67"}, updates[1].Fields)
}

func TestSubmitStage_NonAtomicTotalFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory(pagestore.WithAtomicUpdates(false))
	store.Put(appID, nil)
	store.OnUpdate = func(_ string, fields map[string]string) error {
		if _, ok := fields["Total Score"]; ok {
			return stderrors.New("rate limited")
		}
		return nil
	}
	engine := newEngine(t, store)

	res, err := engine.SubmitStage(ctx, appID, "hr", payload(t, 5))
	require.NoError(t, err)
	assert.False(t, res.TotalPersisted)
	assert.Equal(t, 5.0, *res.TotalScore)

	page, _ := store.GetPage(ctx, appID)
	assert.Equal(t, "5", page.Field("HR Final Score"))
	assert.Empty(t, page.Field("Total Score"))
}

func TestSubmitStage_SiblingReadFailureTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, map[string]string{"HR Final Score": "2"})
	store.OnGet = func(string) error { return stderrors.New("connection refused") }
	engine := newEngine(t, store)

	res, err := engine.SubmitStage(ctx, appID, "technical", payload(t, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, 5.0, *res.TotalScore, "hr sibling ignored")
	assert.Equal(t, 1, res.StagesScored)
}

func TestSubmitStage_MalformedSiblingSkipped(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, map[string]string{
		"HR Final Score":        "not-a-number",
		"Technical Final Score": " 3 ",
	})
	engine := newEngine(t, store)

	res, err := engine.SubmitStage(ctx, appID, "final", payload(t, 5))
	require.NoError(t, err)
	assert.Equal(t, 4.0, *res.TotalScore)
	assert.Equal(t, 2, res.StagesScored)
}

func TestSubmitStage_ResubmissionOverwritesStage(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, nil)
	engine := newEngine(t, store)

	_, err := engine.SubmitStage(ctx, appID, "hr", payload(t, 1, 1))
	require.NoError(t, err)
	res, err := engine.SubmitStage(ctx, appID, "hr", payload(t, 5))
	require.NoError(t, err)

	assert.Equal(t, 5.0, *res.TotalScore)
	page, _ := store.GetPage(ctx, appID)
	rec := engine.codec.Decode(page.Field("HR Interview"))
	require.NotNil(t, rec)
	assert.Len(t, rec.Questions, 1)
}

func TestSubmitStage_StoreWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, nil)
	store.OnUpdate = func(string, map[string]string) error { return stderrors.New("502 bad gateway") }
	engine := newEngine(t, store)

	_, err := engine.SubmitStage(ctx, appID, "hr", payload(t, 4))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreWriteFailed))
	assert.Contains(t, errors.AsStandardError(err).Details, "502 bad gateway")
}

func TestSubmitStage_UnknownApplicantIsWriteFailure(t *testing.T) {
	engine := newEngine(t, pagestore.NewMemory())

	_, err := engine.SubmitStage(context.Background(), "missing", "hr", payload(t, 4))
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreWriteFailed))
}

func TestSubmitStage_ValidationOrderAndNoStoreAccess(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		stage   string
		payload map[string]interface{}
		code    errors.ErrorCode
	}{
		{"missing id", "", "hr", map[string]interface{}{}, errors.ErrCodeMissingFields},
		{"missing stage", appID, "", map[string]interface{}{}, errors.ErrCodeMissingFields},
		{"missing payload", appID, "hr", nil, errors.ErrCodeMissingFields},
		{"missing beats invalid stage", "", "invalid", nil, errors.ErrCodeMissingFields},
		{"invalid stage", appID, "invalid", map[string]interface{}{}, errors.ErrCodeInvalidStageType},
		{"invalid stage beats bad questions", appID, "onsite", map[string]interface{}{"questions": "x"}, errors.ErrCodeInvalidStageType},
		{"questions not a list", appID, "hr", map[string]interface{}{"questions": "x"}, errors.ErrCodeInvalidQuestionsFormat},
		{"questions as object", appID, "hr", map[string]interface{}{"questions": map[string]interface{}{}}, errors.ErrCodeInvalidQuestionsFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := pagestore.NewMemory()
			store.Put(appID, nil)
			engine := newEngine(t, store)

			_, err := engine.SubmitStage(context.Background(), tt.id, tt.stage, tt.payload)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.AsStandardError(err).Code)
			assert.Empty(t, store.Updates())
			assert.Zero(t, store.Reads())
		})
	}
}

func TestSubmitStage_NonObjectQuestionsScoreZero(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, nil)
	engine := newEngine(t, store)

	res, err := engine.SubmitStage(ctx, appID, "hr", map[string]interface{}{
		"questions": []interface{}{
			map[string]interface{}{"question": "a", "score": 4.0},
			5.0,
			"text",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.33, res.FinalScore) // mean(4, 0, 0)
	require.Len(t, res.Record.Questions, 3)
	assert.Equal(t, models.Number(0), res.Record.Questions[1].Score)
	assert.Equal(t, models.Number(0), res.Record.Questions[2].Score)
	require.Len(t, store.Updates(), 1)
}

func TestSubmitStage_NoQuestionsScoresZero(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, nil)
	engine := newEngine(t, store)

	res, err := engine.SubmitStage(ctx, appID, "hr", map[string]interface{}{"comments": "no-show", "questions": nil})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.FinalScore)
	assert.Equal(t, 0.0, *res.TotalScore)
	assert.Empty(t, res.Record.Questions)
	assert.Equal(t, "no-show", res.Record.Result.Comments)
}

func TestSubmitStage_ExtraFieldsLandInResult(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, nil)
	engine := newEngine(t, store)

	p := payload(t, 4)
	p["interviewer"] = "Sam"
	p["recommendation"] = "hire"

	res, err := engine.SubmitStage(ctx, appID, "hr", p)
	require.NoError(t, err)
	assert.JSONEq(t, `"Sam"`, string(res.Record.Result.Extra["interviewer"]))
	assert.JSONEq(t, `"hire"`, string(res.Record.Result.Extra["recommendation"]))
	assert.NotContains(t, res.Record.Result.Extra, "questions")
	assert.NotContains(t, res.Record.Result.Extra, "comments")
}

func TestSubmitStage_NotifiesAuditorAndRecorder(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, map[string]string{"HR Final Score": "4"})

	auditor := new(mockAuditor)
	auditor.On("RecordEvent", mock.Anything, EventStageSubmitted, appID, mock.MatchedBy(func(d map[string]interface{}) bool {
		return d["stage"] == "technical" && d["totalScore"] == 3.67
	})).Once()
	recorder := new(mockScoreRecorder)
	recorder.On("RecordTotalScore", mock.Anything, 3.67, 2).Once()

	engine := newEngine(t, store, WithAuditor(auditor), WithScoreRecorder(recorder))
	_, err := engine.SubmitStage(ctx, appID, "technical", payload(t, 4, 4, 2))
	require.NoError(t, err)

	auditor.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestSubmitStage_AuditorNotCalledOnFailure(t *testing.T) {
	store := pagestore.NewMemory()
	auditor := new(mockAuditor)
	engine := newEngine(t, store, WithAuditor(auditor))

	_, err := engine.SubmitStage(context.Background(), appID, "invalid", map[string]interface{}{})
	require.Error(t, err)
	auditor.AssertNotCalled(t, "RecordEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
