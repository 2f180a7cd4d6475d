// Package errors provides the error taxonomy shared by the HTTP API and the
// Zeebe job handlers, with conversion to BPMN errors and HTTP statuses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Interview scoring
const (
	ErrCodeMissingFields          ErrorCode = "MISSING_FIELDS"
	ErrCodeInvalidStageType       ErrorCode = "INVALID_STAGE_TYPE"
	ErrCodeInvalidQuestionsFormat ErrorCode = "INVALID_QUESTIONS_FORMAT"
	ErrCodeStageNotFound          ErrorCode = "STAGE_NOT_FOUND"
	ErrCodeDecodeRepairFailed     ErrorCode = "DECODE_REPAIR_FAILED"
)

// Page store
const (
	ErrCodeStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED"
	ErrCodeStoreReadFailed  ErrorCode = "STORE_READ_FAILED"
)

// Applicant directory
const (
	ErrCodeApplicantNotFound  ErrorCode = "APPLICANT_NOT_FOUND"
	ErrCodeInvalidPageSize    ErrorCode = "INVALID_PAGE_SIZE"
	ErrCodeMissingStatus      ErrorCode = "MISSING_STATUS"
	ErrCodeInvalidApplication ErrorCode = "INVALID_APPLICATION"
)

// Generic
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata sets a metadata key and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewMissingFieldsError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingFields,
		Message:   "Missing required fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStageTypeError reports an interview type outside hr, technical and final.
func NewInvalidStageTypeError(stage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStageType,
		Message:   "Invalid interview type. Must be one of: hr, technical, final",
		Details:   fmt.Sprintf("interviewType: %s", stage),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidQuestionsFormatError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidQuestionsFormat,
		Message:   "Questions must be an array",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageNotFoundError carries a hint telling the caller to submit the stage first.
func NewStageNotFoundError(applicationID, stage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStageNotFound,
		Message:   fmt.Sprintf("No %s interview data found for this application", stage),
		Details:   fmt.Sprintf("applicationId: %s, interviewType: %s", applicationID, stage),
		Retryable: false,
		Metadata: map[string]interface{}{
			"hint": fmt.Sprintf("Submit the %s interview before updating its questions", stage),
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewDecodeRepairFailedError is logged by the codec and never returned to callers.
func NewDecodeRepairFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecodeRepairFailed,
		Message:   "Stored interview data could not be parsed or repaired",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreWriteFailedError creates a retryable page store write error.
func NewStoreWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreWriteFailed,
		Message:   "Failed to update applicant record",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreReadFailedError creates a retryable page store read error.
func NewStoreReadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreReadFailed,
		Message:   "Failed to read applicant record",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewApplicantNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicantNotFound,
		Message:   "Applicant not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidPageSizeError(limit, max int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPageSize,
		Message:   fmt.Sprintf("Page size cannot exceed %d", max),
		Details:   fmt.Sprintf("limit: %d", limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMissingStatusError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingStatus,
		Message:   "Application id and status are required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidApplicationError reports a career application missing required data.
func NewInvalidApplicationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidApplication,
		Message:   "Application data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Unexpected error",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// AsStandardError unwraps err to a *StandardError, or nil.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr := AsStandardError(err)
	return stdErr != nil && stdErr.Code == code
}

// Normalize always yields a StandardError; foreign errors become INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr := AsStandardError(err); stdErr != nil {
		return stdErr
	}
	return NewInternalError(err)
}

// ==========================
// 4. Error Conversion
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes used in the
// recruiting process models.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeMissingFields:          "MISSING_FIELDS",
	ErrCodeInvalidStageType:       "INVALID_STAGE_TYPE",
	ErrCodeInvalidQuestionsFormat: "INVALID_QUESTIONS_FORMAT",
	ErrCodeStageNotFound:          "STAGE_NOT_FOUND",
	ErrCodeStoreWriteFailed:       "STORE_WRITE_FAILED",
	ErrCodeStoreReadFailed:        "STORE_READ_FAILED",
	ErrCodeApplicantNotFound:      "APPLICANT_NOT_FOUND",
	ErrCodeInvalidPageSize:        "INVALID_PAGE_SIZE",
	ErrCodeMissingStatus:          "MISSING_STATUS",
	ErrCodeInvalidApplication:     "INVALID_APPLICATION",
	ErrCodeInvalidInput:           "INVALID_INPUT",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreWriteFailed, ErrCodeStoreReadFailed:
		return 3
	default:
		return 0 // input and not-found errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if hint, ok := stdErr.Metadata["hint"]; ok {
		vars["hint"] = hint
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// HTTPStatus maps an error to the status code returned by the HTTP API.
func HTTPStatus(err error) int {
	stdErr := AsStandardError(err)
	if stdErr == nil {
		return http.StatusInternalServerError
	}
	switch stdErr.Code {
	case ErrCodeMissingFields, ErrCodeInvalidStageType, ErrCodeInvalidQuestionsFormat,
		ErrCodeInvalidPageSize, ErrCodeMissingStatus, ErrCodeInvalidApplication, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeStageNotFound, ErrCodeApplicantNotFound:
		return http.StatusNotFound
	case ErrCodeStoreReadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "STORE"):
		return "STORE"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "DECODE"):
		return "CODEC"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "MISSING"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
