// Package datastore persists a history of inference runs with gorm.
package datastore

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run kinds.
const (
	KindAudio  = "audio"
	KindDetect = "detect"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one recorded CLI invocation.
type Run struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Kind           string    `gorm:"index;size:16;not null" json:"kind"`
	Source         string    `gorm:"size:1024" json:"source"`
	Model          string    `gorm:"size:1024" json:"model"`
	Status         string    `gorm:"size:16;not null" json:"status"`
	Error          string    `gorm:"type:text" json:"error,omitempty"`
	ConfidenceUsed float64   `json:"confidence_used,omitempty"`
	Passes         int       `json:"passes"`
	Labels         string    `gorm:"type:text" json:"labels,omitempty"` // comma separated
	Result         string    `gorm:"type:text" json:"result,omitempty"` // emitted JSON document
	QuoteTotal     int64     `json:"quote_total,omitempty"`
	Currency       string    `gorm:"size:8" json:"currency,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// NewRun returns a run with a fresh id.
func NewRun(kind, source, model string) *Run {
	return &Run{
		ID:     uuid.NewString(),
		Kind:   kind,
		Source: source,
		Model:  model,
		Status: StatusOK,
	}
}

// SetLabels stores labels as a comma separated list.
func (r *Run) SetLabels(labels []string) {
	r.Labels = strings.Join(labels, ",")
}

// LabelList splits Labels back into a slice.
func (r *Run) LabelList() []string {
	if r.Labels == "" {
		return nil
	}
	return strings.Split(r.Labels, ",")
}
