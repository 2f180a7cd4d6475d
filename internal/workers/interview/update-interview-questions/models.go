package updateinterviewquestions

type Input struct {
	ApplicationID string   `json:"applicationId"`
	InterviewType string   `json:"interviewType"`
	Questions     []string `json:"questions"`
}

type Output struct {
	ApplicationID  string  `json:"applicationId"`
	InterviewType  string  `json:"interviewType"`
	QuestionsCount int     `json:"questionsCount"`
	OriginalScore  float64 `json:"originalScore"`
}
