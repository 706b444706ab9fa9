package model

import (
	"encoding/json"
	"time"
)

// Job is the stored state of a background batch job. The worker updates it
// synchronously as stages complete; callers poll it or subscribe over the
// progress hub.
type Job struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Status       JobStatus       `json:"status"`
	Progress     int             `json:"progress"`
	CurrentStage string          `json:"currentStage,omitempty"`
	Error        *string         `json:"error,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	StartedAt    *time.Time      `json:"startedAt,omitempty"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
}

// Job types
const (
	JobTypeBatch = "batch"
)
