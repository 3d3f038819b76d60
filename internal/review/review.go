// Package review is the approval ledger: every submitted analysis is stored
// with its validation warnings and lint score, and must be approved before
// the service will deploy it.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the review state of a stored analysis.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	ErrNotFound = errors.New("review: record not found")

	// ErrNotPending rejects approve/reject on a record that has already
	// been decided.
	ErrNotPending = errors.New("review: record is not pending")
)

// Record is one submitted analysis awaiting or past review. Analysis holds
// the raw submission as JSON so the deployment runs exactly what was
// reviewed.
type Record struct {
	ID        string          `json:"id"`
	Analysis  json.RawMessage `json:"analysis"`
	Warnings  []string        `json:"warnings,omitempty"`
	LintScore int             `json:"lint_score"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists review records.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Approve(ctx context.Context, id string) (*Record, error)
	Reject(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
}

// prepare stamps the fields a backend fills on create.
func prepare(rec *Record, now time.Time) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
}
