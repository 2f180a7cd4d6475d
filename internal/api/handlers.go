package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recruiting-pipeline/internal/common/errors"
	"recruiting-pipeline/internal/interview"
	"recruiting-pipeline/internal/models"
)

const (
	maxBodyBytes    = 4 << 20
	defaultPageSize = 20
)

type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Error      *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Code    errors.ErrorCode `json:"code"`
	Details string           `json:"details,omitempty"`
	Hint    interface{}      `json:"hint,omitempty"`
}

type pagination struct {
	CurrentPage int    `json:"current_page"`
	PageSize    int    `json:"page_size"`
	HasMore     bool   `json:"has_more"`
	NextCursor  string `json:"next_cursor,omitempty"`
	TotalInPage int    `json:"total_in_page"`
	TotalCount  *int   `json:"total_count"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	status := errors.HTTPStatus(stdErr)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", map[string]interface{}{
			"path":       r.URL.Path,
			"code":       stdErr.Code,
			"details":    stdErr.Details,
			"request_id": RequestID(r.Context()),
		})
	}
	s.writeJSON(w, status, envelope{
		Success: false,
		Message: stdErr.Message,
		Error: &errorBody{
			Code:    stdErr.Code,
			Details: stdErr.Details,
			Hint:    stdErr.Metadata["hint"],
		},
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return errors.NewMissingFieldsError("request body is empty")
		}
		return errors.NewInvalidInputError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

type submitInterviewRequest struct {
	ApplicationID string      `json:"applicationId"`
	InterviewType string      `json:"interviewType"`
	InterviewData interface{} `json:"interviewData"`
}

func (s *Server) handleSubmitInterview(w http.ResponseWriter, r *http.Request) {
	var req submitInterviewRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, isObject := req.InterviewData.(map[string]interface{})
	if req.InterviewData != nil && !isObject {
		s.writeError(w, r, errors.NewInvalidInputError(fmt.Sprintf("interviewData must be an object, got %s", jsonKind(req.InterviewData))))
		return
	}

	res, err := s.engine.SubmitStage(r.Context(), req.ApplicationID, req.InterviewType, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("%s interview submitted successfully", res.Stage.Title()),
		Data:    res,
	})
}

type updateQuestionsRequest struct {
	ApplicationID string      `json:"applicationId"`
	InterviewType string      `json:"interviewType"`
	Questions     interface{} `json:"questions"`
}

func (s *Server) handleUpdateQuestions(w http.ResponseWriter, r *http.Request) {
	var req updateQuestionsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.ApplicationID) == "" || strings.TrimSpace(req.InterviewType) == "" || req.Questions == nil {
		s.writeError(w, r, errors.NewMissingFieldsError("applicationId, interviewType, and questions are required"))
		return
	}
	if _, ok := models.ParseStage(req.InterviewType); !ok {
		s.writeError(w, r, errors.NewInvalidStageTypeError(req.InterviewType))
		return
	}
	texts, err := interview.QuestionTexts(req.Questions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.patcher.PatchQuestionText(r.Context(), req.ApplicationID, req.InterviewType, texts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("%s interview questions updated successfully", res.Stage.Title()),
		Data:    res,
	})
}

func (s *Server) handleGetApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if id := strings.TrimSpace(q.Get("id")); id != "" {
		a, err := s.directory.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: a})
		return
	}

	limit := intParam(q.Get("limit"), 0)
	page := intParam(q.Get("page"), 1)
	res, err := s.directory.List(r.Context(), limit, q.Get("cursor"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    res.Items,
		Pagination: &pagination{
			CurrentPage: page,
			PageSize:    limit,
			HasMore:     res.HasMore,
			NextCursor:  res.NextCursor,
			TotalInPage: len(res.Items),
			TotalCount:  res.TotalCount,
		},
	})
}

// intParam parses a query value, returning def for blanks and garbage.
func intParam(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

type updateStatusRequest struct {
	ApplicationID string `json:"applicationId"`
	PageID        string `json:"pageId"`
	Status        string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := req.ApplicationID
	if id == "" {
		id = req.PageID
	}

	change, err := s.directory.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Application status updated successfully",
		Data:    change,
	})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := decodeBody(r, &raw); err != nil {
		s.writeError(w, r, err)
		return
	}
	app := models.Application{
		FullName:       stringField(raw, "fullname"),
		Email:          stringField(raw, "email"),
		Phone:          stringField(raw, "phone"),
		Position:       stringField(raw, "position"),
		CurrentSalary:  stringField(raw, "currentsalary"),
		ExpectedSalary: stringField(raw, "expectedsalary"),
		Experience:     stringField(raw, "experience"),
		NoticePeriod:   stringField(raw, "noticeperiod"),
		LinkedIn:       stringField(raw, "linkedInprofile"),
		ResumeURL:      stringField(raw, "resume"),
	}

	a, err := s.directory.Apply(r.Context(), app)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Application submitted successfully",
		Data:    map[string]interface{}{"id": a.ID, "applicant": a},
	})
}

// jsonKind names the JSON type of a decoded value.
func jsonKind(v interface{}) string {
	switch v.(type) {
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// stringField reads a text or numeric form value as a string.
func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return models.FormatNumber(v)
	default:
		return ""
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "not_ready",
			"failures": failures,
			"time":     s.now().Format(time.RFC3339),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}
