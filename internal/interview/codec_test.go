package interview

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func newTestCodec(t *testing.T) *Codec {
	return NewCodec(logger.NewTestLogger(t), WithCodecClock(func() time.Time { return fixedNow }))
}

func sampleQuestions() []models.Question {
	return []models.Question{
		{Question: "Tell me about yourself", Score: 4, MaxScore: 5, Notes: "Good communication"},
		{Question: "Why this company?", Score: 3, MaxScore: 5, Notes: "Average response"},
		{Question: "Team work experience", Score: 5, MaxScore: 5, Notes: "Excellent examples"},
	}
}

func TestCodec_EncodeLayout(t *testing.T) {
	c := newTestCodec(t)

	blob, err := c.Encode(sampleQuestions()[:1], "Strong candidate", map[string]interface{}{
		"interviewer": "Sam",
		"final_score": 99, // known keys win over extras
	}, 4)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(blob), &doc))

	result := doc["result"].(map[string]interface{})
	assert.Equal(t, "Strong candidate", result["comments"])
	assert.Equal(t, 4.0, result["final_score"])
	assert.Equal(t, "2024-05-01T10:30:00Z", result["submittedAt"])
	assert.Equal(t, "Sam", result["interviewer"])
	assert.Len(t, doc["questions"], 1)
	assert.True(t, strings.HasPrefix(blob, "{\n  \"questions\""), "indented output")
}

func TestCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	qs := sampleQuestions()

	blob, err := c.Encode(qs, "Solid", map[string]interface{}{}, 4)
	require.NoError(t, err)

	rec := c.Decode(blob)
	require.NotNil(t, rec)
	assert.Equal(t, qs, rec.Questions)
	require.NotNil(t, rec.Result)
	assert.Equal(t, "Solid", rec.Result.Comments)
	assert.Equal(t, models.Number(4), rec.Result.FinalScore)
}

func TestCodec_EncodeEmptyQuestions(t *testing.T) {
	c := newTestCodec(t)
	blob, err := c.Encode(nil, "", nil, 0)
	require.NoError(t, err)

	rec := c.Decode(blob)
	require.NotNil(t, rec)
	assert.Empty(t, rec.Questions)
	assert.NotNil(t, rec.Questions)
}

func TestCodec_DecodeStripsCodeFences(t *testing.T) {
	c := newTestCodec(t)
	blob := "```\n{\"questions\":[{\"question\":\"Q1\",\"score\":2}],\"result\":{\"comments\":\"c\",\"final_score\":2}}\n```"

	rec := c.Decode(blob)
	require.NotNil(t, rec)
	assert.Equal(t, models.QuestionText("Q1"), rec.Questions[0].Question)

	rec = c.Decode("```json\n{\"questions\":[],\"result\":{}}```")
	require.NotNil(t, rec)
}

func TestCodec_DecodeRepairsTruncatedResultKey(t *testing.T) {
	c := newTestCodec(t)
	full, err := c.Encode(sampleQuestions(), "Solid", nil, 4)
	require.NoError(t, err)

	idx := strings.Index(full, `"result"`)
	require.Positive(t, idx)

	// `"resu`, `"resul`, `"result` without its closing quote
	for _, cut := range []int{idx + 5, idx + 6, idx + 7} {
		truncated := full[:cut] // ends inside the "result" key
		require.NotPanics(t, func() {
			rec := c.Decode(truncated)
			require.NotNil(t, rec, truncated[len(truncated)-20:])
			require.NotNil(t, rec.Result)
			assert.Empty(t, rec.Result.Comments)
			assert.Equal(t, models.Number(0), rec.Result.FinalScore)
			assert.Len(t, rec.Questions, 3)
		})
	}
}

func TestCodec_DecodeBalancesBraces(t *testing.T) {
	c := newTestCodec(t)
	blob := `{"questions":[{"question":"a {curly} one","score":3}],"result":{"comments":"ok","final_score":3`

	rec := c.Decode(blob)
	require.NotNil(t, rec)
	assert.Equal(t, "ok", rec.Result.Comments)
	assert.Equal(t, models.QuestionText("a {curly} one"), rec.Questions[0].Question)
}

func TestCodec_DecodeUnwrapsNestedQuestion(t *testing.T) {
	c := newTestCodec(t)
	blob := `{"questions":[{"question":{"question":"X"},"score":4,"maxScore":5,"notes":"n"}],"result":{"final_score":4}}`

	rec := c.Decode(blob)
	require.NotNil(t, rec)
	assert.Equal(t, models.QuestionText("X"), rec.Questions[0].Question)
	assert.Equal(t, "n", rec.Questions[0].Notes)
}

func TestCodec_DecodeWithoutResultObject(t *testing.T) {
	c := newTestCodec(t)
	tests := map[string]string{
		"no result key": `{"questions":[{"question":"a","score":4,"maxScore":5}]}`,
		"null result":   `{"questions":[{"question":"a","score":4,"maxScore":5}],"result":null}`,
	}

	for name, blob := range tests {
		t.Run(name, func(t *testing.T) {
			rec := c.Decode(blob)
			require.NotNil(t, rec)
			require.NotNil(t, rec.Result)
			assert.Equal(t, models.Number(0), rec.Result.FinalScore)
			assert.Empty(t, rec.Result.Comments)
			require.Len(t, rec.Questions, 1)
			assert.Equal(t, models.Number(4), rec.Questions[0].Score)
		})
	}
}

func TestCodec_DecodeLegacyTopLevelSummary(t *testing.T) {
	c := newTestCodec(t)
	blob := `{
  "questions": [{"question":"a","score":4,"maxScore":5,"notes":""},{"question":"b","score":2,"maxScore":5,"notes":""}],
  "comments": "older format",
  "averageScore": 3,
  "submittedAt": "2024-01-02T03:04:05Z"
}`

	rec := c.Decode(blob)
	require.NotNil(t, rec)
	assert.Len(t, rec.Questions, 2)
	assert.Equal(t, models.Number(3), rec.Result.FinalScore)
	assert.Equal(t, "older format", rec.Result.Comments)
	assert.Equal(t, "2024-01-02T03:04:05Z", rec.Result.SubmittedAt)
}

func TestCodec_DecodeUnrecoverable(t *testing.T) {
	c := newTestCodec(t)
	tests := map[string]string{
		"empty":              "",
		"whitespace":         "   \n ",
		"plain text":         "not json at all",
		"truncated mid list": `{"questions":[{"question":"a","sco`,
		"wrong shape":        `{"questions":"nope","result":{}}`,
		"array root":         `[1,2,3]`,
	}

	for name, blob := range tests {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Nil(t, c.Decode(blob))
			})
		})
	}
}

func TestUnclosedBraces(t *testing.T) {
	assert.Equal(t, 0, unclosedBraces(`{"a":{}}`))
	assert.Equal(t, 2, unclosedBraces(`{"a":{"b":"}}"`))
	assert.Equal(t, 1, unclosedBraces(`{"a":"\"{"`))
}
