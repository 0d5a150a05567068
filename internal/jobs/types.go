// Package jobs runs assessment generation asynchronously on a Redis-backed queue.
package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrQueueEmpty  = errors.New("queue empty")
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is one asynchronous generation request and its outcome.
type Job struct {
	ID           uuid.UUID                  `json:"id"`
	Subject      string                     `json:"subject,omitempty"`
	Request      assessment.GenerateRequest `json:"request"`
	Status       Status                     `json:"status"`
	Result       *assessment.Result         `json:"result,omitempty"`
	ErrorCode    string                     `json:"error_code,omitempty"`
	ErrorMessage string                     `json:"error_message,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// Terminal reports whether the job will not change again.
func (j Job) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Update is the status change published when a job moves.
type Update struct {
	JobID         uuid.UUID       `json:"job_id"`
	Status        Status          `json:"status"`
	SourceTier    assessment.Tier `json:"source_tier,omitempty"`
	QuestionCount int             `json:"question_count,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (j Job) Update() Update {
	u := Update{
		JobID:        j.ID,
		Status:       j.Status,
		ErrorCode:    j.ErrorCode,
		ErrorMessage: j.ErrorMessage,
		UpdatedAt:    j.UpdatedAt,
	}
	if j.Result != nil {
		u.SourceTier = j.Result.SourceTier
		u.QuestionCount = len(j.Result.Questions)
	}
	return u
}
