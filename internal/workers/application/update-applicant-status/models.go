package updateapplicantstatus

import "time"

type Input struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
}

type Output struct {
	ApplicationID string    `json:"applicationId"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
