package interview

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"recruiting-pipeline/internal/common/errors"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/metrics"
	"recruiting-pipeline/internal/common/validation"
	"recruiting-pipeline/internal/models"
)

// Decode outcomes, also used as metric labels.
const (
	DecodeStrict   = "strict"
	DecodeRepaired = "repaired"
	DecodeFailed   = "failed"
	DecodeEmpty    = "empty"
)

var (
	openingFence = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	closingFence = regexp.MustCompile("\\s*```$")
	// a blob cut off inside the "result" key: `..., "resu` or `..., "result`
	truncatedResultKey = regexp.MustCompile(`,\s*"resu[^"]*$`)
)

// Codec converts StageRecords to and from the text stored in a stage field.
type Codec struct {
	logger logger.Logger
	now    func() time.Time
}

type CodecOption func(*Codec)

// WithCodecClock overrides the clock used for submittedAt and updatedAt.
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

func NewCodec(log logger.Logger, opts ...CodecOption) *Codec {
	c := &Codec{
		logger: logger.Component(log, "stage-record-codec"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timestamp returns the codec clock formatted the way records store times.
func (c *Codec) Timestamp() string {
	return c.now().UTC().Format(time.RFC3339Nano)
}

// Encode builds a fresh record: questions verbatim, and a result holding the
// extra submission fields plus comments, final_score and submittedAt.
func (c *Codec) Encode(questions []models.Question, comments string, extra map[string]interface{}, finalScore float64) (string, error) {
	rec, err := c.NewRecord(questions, comments, extra, finalScore)
	if err != nil {
		return "", err
	}
	return c.EncodeRecord(rec)
}

// NewRecord assembles the record Encode would serialize.
func (c *Codec) NewRecord(questions []models.Question, comments string, extra map[string]interface{}, finalScore float64) (*models.StageRecord, error) {
	result := &models.Result{
		Comments:    comments,
		FinalScore:  models.Number(finalScore),
		SubmittedAt: c.Timestamp(),
	}
	for k, v := range extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode result field %q: %w", k, err)
		}
		if result.Extra == nil {
			result.Extra = make(map[string]json.RawMessage, len(extra))
		}
		result.Extra[k] = raw
	}

	if questions == nil {
		questions = []models.Question{}
	}
	return &models.StageRecord{Questions: questions, Result: result}, nil
}

// EncodeRecord serializes an existing record as indented JSON.
func (c *Codec) EncodeRecord(rec *models.StageRecord) (string, error) {
	if rec.Result == nil {
		rec.Result = &models.Result{}
	}
	if rec.Questions == nil {
		rec.Questions = []models.Question{}
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode stage record: %w", err)
	}
	return string(out), nil
}

// Decode parses a stored blob, repairing known corruption. It returns nil for
// empty or unrecoverable input and never panics.
func (c *Codec) Decode(blob string) (rec *models.StageRecord) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(fmt.Errorf("panic while decoding: %v", r), blob)
			rec = nil
		}
	}()

	text := stripFences(strings.TrimSpace(blob))
	if text == "" {
		metrics.StageRecordDecodes.WithLabelValues(DecodeEmpty).Inc()
		return nil
	}

	rec, strictErr := parseRecord(text)
	if strictErr == nil {
		metrics.StageRecordDecodes.WithLabelValues(DecodeStrict).Inc()
		return rec
	}

	repaired := repair(text)
	rec, err := parseRecord(repaired)
	if err != nil {
		c.fail(fmt.Errorf("strict parse: %v; after repair: %w", strictErr, err), blob)
		return nil
	}

	c.logger.Warn("Repaired malformed stage record", map[string]interface{}{
		"originalLength": len(blob),
		"repairedLength": len(repaired),
		"parseError":     strictErr.Error(),
	})
	metrics.StageRecordDecodes.WithLabelValues(DecodeRepaired).Inc()
	return rec
}

func (c *Codec) fail(err error, blob string) {
	stdErr := errors.NewDecodeRepairFailedError(err)
	metrics.StageRecordDecodes.WithLabelValues(DecodeFailed).Inc()
	c.logger.Error("Failed to decode stage record", map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
		"length":    len(blob),
		"tail":      tail(blob, 100),
	})
}

func parseRecord(text string) (*models.StageRecord, error) {
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("invalid JSON")
	}
	if res := validation.StageRecordSchema.ValidateJSON([]byte(text)); !res.Valid {
		return nil, fmt.Errorf("structural check failed: %s", res.Summary())
	}

	var rec models.StageRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, err
	}
	if rec.Result == nil {
		rec.Result = legacyResult([]byte(text))
	}
	if rec.Questions == nil {
		rec.Questions = []models.Question{}
	}
	return &rec, nil
}

// legacyResult lifts the summary of records written before the result object
// existed ({...interviewData, averageScore, submittedAt}). Missing keys leave
// the zero Result.
func legacyResult(text []byte) *models.Result {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(text, &top); err != nil {
		return &models.Result{}
	}
	lifted := make(map[string]json.RawMessage, 3)
	if v, ok := top["averageScore"]; ok {
		lifted["final_score"] = v
	}
	for _, k := range []string{"comments", "submittedAt"} {
		if v, ok := top[k]; ok {
			lifted[k] = v
		}
	}

	res := &models.Result{}
	if raw, err := json.Marshal(lifted); err == nil {
		_ = json.Unmarshal(raw, res)
	}
	return res
}

func stripFences(s string) string {
	s = openingFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// repair applies the two known fixes for blobs cut off by the store's text
// length limit: drop a partial "result" key and re-add an empty result, then
// close any unclosed objects.
func repair(s string) string {
	if strings.Contains(s, `"resu`) && !strings.Contains(s, `"result"`) {
		s = truncatedResultKey.ReplaceAllString(s, "")
		s = strings.TrimRight(s, " \t\r\n")
		if strings.HasSuffix(s, "]") {
			s += `, "result": {}`
		}
	}

	for missing := unclosedBraces(s); missing > 0; missing-- {
		s += "}"
	}
	return s
}

// unclosedBraces counts '{' minus '}' outside of string literals.
func unclosedBraces(s string) int {
	depth := 0
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{':
			depth++
		case r == '}':
			depth--
		}
	}
	return depth
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
