// internal/models/application.go
package models

import "time"

// Applicant is an applicant page as returned by the directory.
type Applicant struct {
	ID             string                  `json:"id"`
	FullName       string                  `json:"fullName"`
	Email          string                  `json:"email"`
	Position       string                  `json:"position"`
	Status         string                  `json:"status"`
	TotalScore     *float64                `json:"totalScore,omitempty"`
	StageScores    map[Stage]float64       `json:"stageScores,omitempty"`
	Interviews     map[Stage]*StageRecord  `json:"interviews,omitempty"`
	Properties     map[string]string       `json:"properties"`
	CreatedTime    time.Time               `json:"createdTime"`
	LastEditedTime time.Time               `json:"lastEditedTime"`
}

// ApplicantPage is one page of the applicant listing. TotalCount is only set
// on the first page.
type ApplicantPage struct {
	Items      []*Applicant `json:"items"`
	HasMore    bool         `json:"hasMore"`
	NextCursor string       `json:"nextCursor,omitempty"`
	TotalCount *int         `json:"totalCount,omitempty"`
}

// Application is a career-site submission that becomes a new applicant page.
type Application struct {
	FullName       string `json:"fullname"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Position       string `json:"position"`
	CurrentSalary  string `json:"currentsalary,omitempty"`
	ExpectedSalary string `json:"expectedsalary,omitempty"`
	Experience     string `json:"experience,omitempty"`
	NoticePeriod   string `json:"noticeperiod,omitempty"`
	LinkedIn       string `json:"linkedInprofile,omitempty"`
	ResumeURL      string `json:"resume,omitempty"`
}

// Fields maps the application onto applicant page properties, skipping blanks.
func (a Application) Fields() map[string]string {
	all := map[string]string{
		FieldFullName:       a.FullName,
		FieldEmail:          a.Email,
		FieldPhone:          a.Phone,
		FieldPosition:       a.Position,
		FieldCurrentSalary:  a.CurrentSalary,
		FieldExpectedSalary: a.ExpectedSalary,
		FieldExperience:     a.Experience,
		FieldNoticePeriod:   a.NoticePeriod,
		FieldLinkedIn:       a.LinkedIn,
		FieldResume:         a.ResumeURL,
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// StatusChange is the result of updating an applicant's pipeline status.
type StatusChange struct {
	ApplicationID string    `json:"applicationId"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
