// internal/models/interview.go
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Stage is one of the three fixed interview phases.
type Stage string

const (
	StageHR        Stage = "hr"
	StageTechnical Stage = "technical"
	StageFinal     Stage = "final"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageHR, StageTechnical, StageFinal}

// Applicant page field names.
const (
	FieldTotalScore      = "Total Score"
	FieldApplicantStatus = "Applicant Status"
	FieldFullName        = "Full Name"
	FieldEmail           = "Email Address"
	FieldPhone           = "Phone Number"
	FieldPosition        = "Position"
	FieldCurrentSalary   = "Current Salary"
	FieldExpectedSalary  = "Expected Salary"
	FieldExperience      = "Years of Experience"
	FieldNoticePeriod    = "Notice Period"
	FieldLinkedIn        = "LinkedIn Profile"
	FieldResume          = "Resume File"
)

// ParseStage canonicalizes a case-insensitive stage name.
func ParseStage(s string) (Stage, bool) {
	switch Stage(strings.ToLower(strings.TrimSpace(s))) {
	case StageHR:
		return StageHR, true
	case StageTechnical:
		return StageTechnical, true
	case StageFinal:
		return StageFinal, true
	default:
		return "", false
	}
}

// TextField is the page field holding the serialized StageRecord.
func (s Stage) TextField() string {
	switch s {
	case StageHR:
		return "HR Interview"
	case StageTechnical:
		return "Technical Interview"
	case StageFinal:
		return "Final Interview"
	}
	return ""
}

// ScoreField is the page field holding the stage's text-encoded final score.
func (s Stage) ScoreField() string {
	switch s {
	case StageHR:
		return "HR Final Score"
	case StageTechnical:
		return "Technical Final Score"
	case StageFinal:
		return "Final Score"
	}
	return ""
}

// Title is the display form used in user-facing messages ("Hr", "Technical").
func (s Stage) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Number is a lenient float: JSON numbers and numeric strings decode to their
// value, anything else decodes to 0 without error.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == 'n' || data[0] == 't' || data[0] == 'f' {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*n = Number(ParseNumber(s))
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*n = Number(f)
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// ParseNumber parses a text-encoded number, returning 0 when it is not one.
func ParseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FormatNumber renders a score the way it is stored in page fields.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// QuestionText decodes either a plain string or a {"question": ...} object,
// unwrapping nested objects until a string is found.
type QuestionText string

func (q *QuestionText) UnmarshalJSON(data []byte) error {
	*q = ""
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*q = QuestionText(unwrapQuestion(raw, 0))
	return nil
}

const maxQuestionDepth = 8

func unwrapQuestion(v interface{}, depth int) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if depth >= maxQuestionDepth {
			return ""
		}
		return unwrapQuestion(t["question"], depth+1)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// Question is one scored interview question. Extra keys submitted alongside
// the known ones are carried through encode/decode unchanged.
type Question struct {
	Question QuestionText
	Score    Number
	MaxScore Number // 0 means unset; normalization treats it as 5
	Notes    string
	Extra    map[string]json.RawMessage
}

func (q Question) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(q.Extra)+4)
	for k, v := range q.Extra {
		out[k] = v
	}
	out["question"] = string(q.Question)
	out["score"] = q.Score
	if q.MaxScore != 0 {
		out["maxScore"] = q.MaxScore
	}
	out["notes"] = q.Notes
	return marshalOrdered(out, []string{"question", "score", "maxScore", "notes"})
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*q = Question{}
	for k, v := range raw {
		switch k {
		case "question":
			if err := json.Unmarshal(v, &q.Question); err != nil {
				return err
			}
		case "score":
			_ = json.Unmarshal(v, &q.Score)
		case "maxScore":
			_ = json.Unmarshal(v, &q.MaxScore)
		case "notes":
			var s string
			if json.Unmarshal(v, &s) == nil {
				q.Notes = s
			}
		default:
			if q.Extra == nil {
				q.Extra = make(map[string]json.RawMessage)
			}
			q.Extra[k] = v
		}
	}
	return nil
}

// Result is the per-stage summary stored next to the questions.
type Result struct {
	Comments    string
	FinalScore  Number
	SubmittedAt string
	UpdatedAt   string
	Extra       map[string]json.RawMessage
}

var resultKeys = []string{"comments", "final_score", "submittedAt", "updatedAt"}

func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+4)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["comments"] = r.Comments
	out["final_score"] = r.FinalScore
	if r.SubmittedAt != "" {
		out["submittedAt"] = r.SubmittedAt
	}
	if r.UpdatedAt != "" {
		out["updatedAt"] = r.UpdatedAt
	}
	return marshalOrdered(out, resultKeys)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{}
	for k, v := range raw {
		switch k {
		case "comments":
			var s string
			if json.Unmarshal(v, &s) == nil {
				r.Comments = s
			}
		case "final_score":
			_ = json.Unmarshal(v, &r.FinalScore)
		case "submittedAt":
			var s string
			if json.Unmarshal(v, &s) == nil {
				r.SubmittedAt = s
			}
		case "updatedAt":
			var s string
			if json.Unmarshal(v, &s) == nil {
				r.UpdatedAt = s
			}
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]json.RawMessage)
			}
			r.Extra[k] = v
		}
	}
	return nil
}

// StageRecord is what one stage's text field holds. Question order is
// index-aligned with the originally submitted list.
type StageRecord struct {
	Questions []Question `json:"questions"`
	Result    *Result    `json:"result"`
}

// QuestionTexts returns the question wording in order.
func (r *StageRecord) QuestionTexts() []string {
	out := make([]string, len(r.Questions))
	for i, q := range r.Questions {
		out[i] = string(q.Question)
	}
	return out
}

// marshalOrdered writes known keys first in the given order, then the rest
// sorted, so stored blobs are stable between writes.
func marshalOrdered(m map[string]interface{}, order []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(k string, v interface{}) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if v, ok := m[k]; ok {
			if err := write(k, v); err != nil {
				return nil, err
			}
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if err := write(k, m[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
