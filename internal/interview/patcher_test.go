package interview

import (
	"context"
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

func seededStore(t *testing.T) (*pagestore.Memory, *Codec) {
	t.Helper()
	codec := newTestCodec(t)
	blob, err := codec.Encode([]models.Question{
		{Question: "Q1", Score: 4, MaxScore: 5, Notes: "n1"},
		{Question: "Q2", Score: 7, MaxScore: 10, Notes: "n2"},
		{Question: "Q3", Score: 2, MaxScore: 5, Notes: "n3"},
	}, "solid", map[string]interface{}{"interviewer": "Sam"}, 3.37)
	require.NoError(t, err)

	store := pagestore.NewMemory()
	store.Put(appID, map[string]string{
		"HR Interview":   blob,
		"HR Final Score": "3.37",
		"Total Score":    "3.37",
	})
	return store, codec
}

func newPatcher(t *testing.T, store pagestore.Store, codec *Codec, opts ...PatcherOption) *Patcher {
	return NewPatcher(store, codec, logger.NewTestLogger(t), opts...)
}

func TestPatchQuestionText_ReplacesOnlyText(t *testing.T) {
	ctx := context.Background()
	store, codec := seededStore(t)
	before, _ := store.GetPage(ctx, appID)
	original := codec.Decode(before.Field("HR Interview"))
	require.NotNil(t, original)

	res, err := newPatcher(t, store, codec).PatchQuestionText(ctx, appID, "hr", []string{"Q1 reworded"})
	require.NoError(t, err)

	require.Len(t, res.Record.Questions, 3)
	assert.Equal(t, models.QuestionText("Q1 reworded"), res.Record.Questions[0].Question)
	for i := range original.Questions {
		got, want := res.Record.Questions[i], original.Questions[i]
		assert.Equal(t, want.Score, got.Score)
		assert.Equal(t, want.MaxScore, got.MaxScore)
		assert.Equal(t, want.Notes, got.Notes)
		if i > 0 {
			assert.Equal(t, want.Question, got.Question)
		}
	}
	assert.Equal(t, 3.37, res.OriginalScore)
	assert.Equal(t, 3, res.QuestionsCount)

	after, _ := store.GetPage(ctx, appID)
	stored := codec.Decode(after.Field("HR Interview"))
	require.NotNil(t, stored)
	assert.Equal(t, models.Number(3.37), stored.Result.FinalScore)
	assert.Equal(t, "solid", stored.Result.Comments)
	assert.Equal(t, original.Result.SubmittedAt, stored.Result.SubmittedAt)
	assert.Equal(t, "2024-05-01T10:30:00Z", stored.Result.UpdatedAt)
	assert.JSONEq(t, `"Sam"`, string(stored.Result.Extra["interviewer"]))
}

func TestPatchQuestionText_WritesOnlyStageText(t *testing.T) {
	ctx := context.Background()
	store, codec := seededStore(t)

	_, err := newPatcher(t, store, codec).PatchQuestionText(ctx, appID, "HR", []string{"a", "b", "c"})
	require.NoError(t, err)

	updates := store.Updates()
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].Fields, 1)
	assert.Contains(t, updates[0].Fields, "HR Interview")

	page, _ := store.GetPage(ctx, appID)
	assert.Equal(t, "3.37", page.Field("Total Score"))
	assert.Equal(t, "3.37", page.Field("HR Final Score"))
}

func TestPatchQuestionText_AppendsUsingFirstQuestionDefaults(t *testing.T) {
	ctx := context.Background()
	store, codec := seededStore(t)

	res, err := newPatcher(t, store, codec).PatchQuestionText(ctx, appID, "hr", []string{"A", "B", "C", "D", "E"})
	require.NoError(t, err)

	require.Len(t, res.Record.Questions, 5)
	for _, added := range res.Record.Questions[3:] {
		assert.Equal(t, models.Number(4), added.Score)
		assert.Equal(t, models.Number(5), added.MaxScore)
		assert.Equal(t, "n1", added.Notes)
	}
	assert.Equal(t, models.QuestionText("E"), res.Record.Questions[4].Question)
	assert.Equal(t, models.Number(7), res.Record.Questions[1].Score)
}

func TestPatchQuestionText_AppendsToEmptyStageWithPlainDefaults(t *testing.T) {
	ctx := context.Background()
	codec := newTestCodec(t)
	blob, err := codec.Encode(nil, "", nil, 0)
	require.NoError(t, err)
	store := pagestore.NewMemory()
	store.Put(appID, map[string]string{"Final Interview": blob})

	res, err := newPatcher(t, store, codec).PatchQuestionText(ctx, appID, "final", []string{"New"})
	require.NoError(t, err)
	require.Len(t, res.Record.Questions, 1)
	assert.Equal(t, models.Number(0), res.Record.Questions[0].Score)
	assert.Equal(t, models.Number(5), res.Record.Questions[0].MaxScore)
	assert.Empty(t, res.Record.Questions[0].Notes)
}

func TestPatchQuestionText_RepairsTruncatedRecord(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, map[string]string{
		"Technical Interview": "```\n{\"questions\": [{\"question\": {\"question\": \"Closures\"}, \"score\": 4, \"maxScore\": 5, \"notes\": \"ok\"}], \"resu",
	})
	codec := newTestCodec(t)

	res, err := newPatcher(t, store, codec).PatchQuestionText(ctx, appID, "technical", []string{})
	require.NoError(t, err)
	assert.Equal(t, models.QuestionText("Closures"), res.Record.Questions[0].Question)

	page, _ := store.GetPage(ctx, appID)
	stored := codec.Decode(page.Field("Technical Interview"))
	require.NotNil(t, stored)
	assert.Equal(t, "2024-05-01T10:30:00Z", stored.Result.UpdatedAt)
}

func TestPatchQuestionText_StageNotFound(t *testing.T) {
	ctx := context.Background()
	tests := map[string]map[string]string{
		"field absent":      {},
		"field empty":       {"HR Interview": ""},
		"field unparseable": {"HR Interview": "garbage"},
	}

	for name, fields := range tests {
		t.Run(name, func(t *testing.T) {
			store := pagestore.NewMemory()
			store.Put(appID, fields)

			_, err := newPatcher(t, store, newTestCodec(t)).PatchQuestionText(ctx, appID, "hr", []string{"x"})
			require.Error(t, err)
			stdErr := errors.AsStandardError(err)
			assert.Equal(t, errors.ErrCodeStageNotFound, stdErr.Code)
			assert.Contains(t, stdErr.Metadata["hint"], "Submit the hr interview")
			assert.Empty(t, store.Updates())
		})
	}
}

func TestPatchQuestionText_RecordWithoutResultObject(t *testing.T) {
	ctx := context.Background()
	store := pagestore.NewMemory()
	store.Put(appID, map[string]string{
		"Technical Interview": `{"questions":[{"question":"Q1","score":3,"maxScore":5,"notes":""}],"comments":"legacy","averageScore":3,"submittedAt":"2024-01-02T03:04:05Z"}`,
	})

	res, err := newPatcher(t, store, newTestCodec(t)).PatchQuestionText(ctx, appID, "technical", []string{"Q1 reworded"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.OriginalScore)
	assert.Equal(t, "legacy", res.Record.Result.Comments)
	assert.Equal(t, models.QuestionText("Q1 reworded"), res.Record.Questions[0].Question)
	require.Len(t, store.Updates(), 1)
}

func TestPatchQuestionText_UnknownApplicant(t *testing.T) {
	_, err := newPatcher(t, pagestore.NewMemory(), newTestCodec(t)).
		PatchQuestionText(context.Background(), "missing", "hr", []string{"x"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStageNotFound))
}

func TestPatchQuestionText_StoreFailures(t *testing.T) {
	ctx := context.Background()

	store, codec := seededStore(t)
	store.OnGet = func(string) error { return stderrors.New("timeout") }
	_, err := newPatcher(t, store, codec).PatchQuestionText(ctx, appID, "hr", []string{"x"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreReadFailed))

	store, codec = seededStore(t)
	store.OnUpdate = func(string, map[string]string) error { return stderrors.New("conflict") }
	_, err = newPatcher(t, store, codec).PatchQuestionText(ctx, appID, "hr", []string{"x"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreWriteFailed))
}

func TestPatchQuestionText_Validation(t *testing.T) {
	store, codec := seededStore(t)
	p := newPatcher(t, store, codec)

	_, err := p.PatchQuestionText(context.Background(), "", "hr", []string{"x"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingFields))

	_, err = p.PatchQuestionText(context.Background(), appID, "hr", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingFields))

	_, err = p.PatchQuestionText(context.Background(), appID, "panel", []string{"x"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidStageType))

	assert.Zero(t, store.Reads())
}

func TestPatchQuestionText_Audits(t *testing.T) {
	store, codec := seededStore(t)
	auditor := new(mockAuditor)
	auditor.On("RecordEvent", mock.Anything, EventQuestionsPatched, appID, mock.Anything).Once()

	_, err := newPatcher(t, store, codec, WithPatchAuditor(auditor)).
		PatchQuestionText(context.Background(), appID, "hr", []string{"x"})
	require.NoError(t, err)
	auditor.AssertExpectations(t)
}

func TestQuestionTexts(t *testing.T) {
	texts, err := QuestionTexts([]interface{}{"a", map[string]interface{}{"question": "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, texts)

	texts, err = QuestionTexts(nil)
	require.NoError(t, err)
	assert.Nil(t, texts)

	_, err = QuestionTexts("nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidQuestionsFormat))

	_, err = QuestionTexts([]interface{}{42.0})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidQuestionsFormat))

	_, err = QuestionTexts([]interface{}{map[string]interface{}{"text": "b"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidQuestionsFormat))
}
