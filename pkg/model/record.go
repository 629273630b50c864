package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// QueryStatus represents the lifecycle state of a query record
type QueryStatus string

const (
	QueryStatusQueued     QueryStatus = "queued"
	QueryStatusInProgress QueryStatus = "in_progress"
	QueryStatusDone       QueryStatus = "done"
	QueryStatusRejected   QueryStatus = "rejected"
	QueryStatusFailed     QueryStatus = "failed"
)

// QuerySource identifies where a query entered the system
type QuerySource string

const (
	SourceWeb      QuerySource = "web"
	SourceTelegram QuerySource = "telegram"
)

// JSONB represents a JSONB field for PostgreSQL
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// QueryRecord is the persisted history row for one query, voice or text
type QueryRecord struct {
	ID         string      `json:"id" db:"id"`
	Source     QuerySource `json:"source" db:"source"`
	ChatID     int64       `json:"chat_id,omitempty" db:"chat_id"`
	Status     QueryStatus `json:"status" db:"status"`
	Text       string      `json:"text" db:"text"`
	Domain     Domain      `json:"domain,omitempty" db:"domain"`
	Intent     Intent      `json:"intent,omitempty" db:"intent"`
	Confidence float64     `json:"confidence" db:"confidence"`
	CacheKey   string      `json:"cache_key,omitempty" db:"cache_key"`
	ErrorText  *string     `json:"error_text,omitempty" db:"error_text"`
	Meta       JSONB       `json:"meta" db:"meta"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// IsCompleted returns true if the record is in a final state
func (q *QueryRecord) IsCompleted() bool {
	return q.Status == QueryStatusDone || q.Status == QueryStatusRejected || q.Status == QueryStatusFailed
}

// SetInProgress marks the record as being processed
func (q *QueryRecord) SetInProgress() {
	q.Status = QueryStatusInProgress
	q.UpdatedAt = time.Now()
}

// SetDone records the parse outcome and cache key of a completed query
func (q *QueryRecord) SetDone(desc *QueryDescriptor, cacheKey string) {
	q.Status = QueryStatusDone
	q.Text = desc.OriginalText
	q.Domain = desc.Domain
	q.Intent = desc.Intent
	q.Confidence = desc.Confidence
	q.CacheKey = cacheKey
	q.ErrorText = nil
	q.UpdatedAt = time.Now()
}

// SetRejected marks the record as understood-but-refused (low confidence)
func (q *QueryRecord) SetRejected(reason string) {
	q.Status = QueryStatusRejected
	q.ErrorText = &reason
	q.UpdatedAt = time.Now()
}

// SetFailed marks the record as failed with an error message
func (q *QueryRecord) SetFailed(errorText string) {
	q.Status = QueryStatusFailed
	q.ErrorText = &errorText
	q.UpdatedAt = time.Now()
}
