package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stream names
const (
	StreamBasemapRequest = "stream:basemap:request"
	StreamBasemapDone    = "stream:basemap:done"
)

// Basemap job states
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// BasemapRequestEvent - запрос на сборку подложки
type BasemapRequestEvent struct {
	JobID     uuid.UUID `json:"job_id"`
	AOI       string    `json:"aoi"`
	Zooms     string    `json:"zooms"`
	Source    string    `json:"source"`
	CustomURL string    `json:"custom_url,omitempty"`
	Suffix    string    `json:"suffix,omitempty"`
	XY        bool      `json:"xy,omitempty"`
	Output    string    `json:"output"`
	Append    bool      `json:"append,omitempty"`
	Created   time.Time `json:"created"`
}

// ArchiveFormat возвращает расширение выходного файла без точки
func (e *BasemapRequestEvent) ArchiveFormat() string {
	i := strings.LastIndex(e.Output, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(e.Output[i+1:])
}

// BasemapDoneEvent - результат сборки подложки
type BasemapDoneEvent struct {
	JobID  uuid.UUID    `json:"job_id"`
	Path   string       `json:"path,omitempty"`
	Report *FetchReport `json:"report,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// BasemapJob - состояние задачи, хранится в кеше
type BasemapJob struct {
	ID        uuid.UUID            `json:"id"`
	Status    string               `json:"status"`
	Request   *BasemapRequestEvent `json:"request,omitempty"`
	Path      string               `json:"path,omitempty"`
	Report    *FetchReport         `json:"report,omitempty"`
	Error     string               `json:"error,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Finished сообщает, что задача завершена (успешно или нет)
func (j *BasemapJob) Finished() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
