package domain

import "time"

// Submission payload formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXML  = "xml"
)

// Form - форма на сервере сбора данных
type Form struct {
	ProjectID int       `json:"projectId"`
	XMLFormID string    `json:"xmlFormId"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubmissionPayload - выгрузка сабмитов формы
type SubmissionPayload struct {
	Format string
	Data   []byte
}
