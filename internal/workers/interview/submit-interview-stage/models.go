package submitinterviewstage

type Input struct {
	ApplicationID string                 `json:"applicationId"`
	InterviewType string                 `json:"interviewType"`
	InterviewData map[string]interface{} `json:"interviewData"`
}

type Output struct {
	ApplicationID string   `json:"applicationId"`
	InterviewType string   `json:"interviewType"`
	FinalScore    float64  `json:"finalScore"`
	TotalScore    *float64 `json:"totalScore,omitempty"`
	StagesScored  int      `json:"stagesScored"`
}
