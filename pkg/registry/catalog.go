package registry

// Task types served by the recruiting pipeline.
const (
	TaskSubmitInterviewStage     = "submit-interview-stage"
	TaskUpdateInterviewQuestions = "update-interview-questions"
	TaskUpdateApplicantStatus    = "update-applicant-status"
)

func object(required []string, props map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		req := make([]interface{}, len(required))
		for i, r := range required {
			req[i] = r
		}
		s["required"] = req
	}
	return s
}

func typed(t string) map[string]interface{} {
	return map[string]interface{}{"type": t}
}

func nonEmpty() map[string]interface{} {
	return map[string]interface{}{"type": "string", "minLength": 1}
}

// Default returns the built-in catalog. Each call returns a fresh copy.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2024-05-01T00:00:00Z",
		Activities: []Activity{
			{
				ID:                   TaskSubmitInterviewStage,
				DisplayName:          "Submit Interview Stage",
				Description:          "Scores one interview stage, stores it on the applicant page and recomputes the total score",
				Category:             "interview",
				Version:              "1.0.0",
				TaskType:             TaskSubmitInterviewStage,
				ImplementationStatus: "completed",
				InputSchema: object([]string{"applicationId", "interviewType", "interviewData"}, map[string]interface{}{
					"applicationId": nonEmpty(),
					"interviewType": nonEmpty(),
					"interviewData": typed("object"),
				}),
				OutputSchema: object([]string{"finalScore", "interviewType"}, map[string]interface{}{
					"finalScore":    typed("number"),
					"totalScore":    typed("number"),
					"interviewType": typed("string"),
					"stagesScored":  typed("integer"),
				}),
				ErrorCodes: []string{"MISSING_FIELDS", "INVALID_STAGE_TYPE", "INVALID_QUESTIONS_FORMAT", "STORE_WRITE_FAILED"},
				Timeout:    "30s",
				Retries:    3,
				Tags:       []string{"scoring", "notion"},
			},
			{
				ID:                   TaskUpdateInterviewQuestions,
				DisplayName:          "Update Interview Questions",
				Description:          "Rewrites question wording of a submitted stage without touching scores",
				Category:             "interview",
				Version:              "1.0.0",
				TaskType:             TaskUpdateInterviewQuestions,
				ImplementationStatus: "completed",
				InputSchema: object([]string{"applicationId", "interviewType", "questions"}, map[string]interface{}{
					"applicationId": nonEmpty(),
					"interviewType": nonEmpty(),
				}),
				OutputSchema: object([]string{"questionsCount", "originalScore"}, map[string]interface{}{
					"questionsCount": typed("integer"),
					"originalScore":  typed("number"),
				}),
				ErrorCodes: []string{"MISSING_FIELDS", "INVALID_STAGE_TYPE", "INVALID_QUESTIONS_FORMAT", "STAGE_NOT_FOUND", "DECODE_REPAIR_FAILED", "STORE_WRITE_FAILED"},
				Timeout:    "30s",
				Retries:    3,
				Tags:       []string{"notion"},
			},
			{
				ID:                   TaskUpdateApplicantStatus,
				DisplayName:          "Update Applicant Status",
				Description:          "Overwrites the Applicant Status field",
				Category:             "application",
				Version:              "1.0.0",
				TaskType:             TaskUpdateApplicantStatus,
				ImplementationStatus: "completed",
				InputSchema: object(nil, map[string]interface{}{
					"applicationId": typed("string"),
					"status":        typed("string"),
				}),
				OutputSchema: object([]string{"status", "updatedAt"}, map[string]interface{}{
					"status":    typed("string"),
					"updatedAt": map[string]interface{}{"type": "string", "format": "date-time"},
				}),
				ErrorCodes: []string{"MISSING_FIELDS", "MISSING_STATUS", "APPLICANT_NOT_FOUND", "STORE_WRITE_FAILED"},
				Timeout:    "15s",
				Retries:    3,
				Tags:       []string{"notion"},
			},
		},
	}
}
