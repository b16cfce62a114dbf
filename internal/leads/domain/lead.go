// Package domain holds the lead model and its pure rules: the status
// pipeline, score bounds, and derived unresponsiveness.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is a lead's position in the sales pipeline.
type Status string

const (
	StatusNew              Status = "new"
	StatusContacted        Status = "contacted"
	StatusQualified        Status = "qualified"
	StatusMeetingScheduled Status = "meeting_scheduled"
	StatusProposal         Status = "proposal"
	StatusNegotiation      Status = "negotiation"
	StatusWon              Status = "won"
	StatusLost             Status = "lost"
)

// ValidStatus reports whether s is a known pipeline status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusMeetingScheduled,
		StatusProposal, StatusNegotiation, StatusWon, StatusLost:
		return true
	}
	return false
}

// Lead is a prospective customer tracked through the pipeline.
type Lead struct {
	ID              uuid.UUID
	Name            string
	Email           *string
	Phone           *string
	Company         *string
	Score           int
	Status          Status
	Sentiment       float64
	LastContactedAt *time.Time
	LastReplyAt     *time.Time
	NextFollowupAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UnresponsiveDays derives how many whole days have passed since the lead
// last replied. A lead that never replied is measured from creation.
func (l Lead) UnresponsiveDays(now time.Time) int {
	ref := l.CreatedAt
	if l.LastReplyAt != nil {
		ref = *l.LastReplyAt
	}
	days := int(now.Sub(ref).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ClampScore bounds a raw score to the 0..100 range every scoring pass must
// respect.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
