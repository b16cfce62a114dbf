// Package domain holds the deal model and the pure pipeline rules: the
// keyword transition table, stage baselines, and probability blending.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage is a deal's pipeline position. closed_won and closed_lost are
// absorbing: no rule moves a deal out of either.
type Stage string

const (
	StageProspect    Stage = "prospect"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosedWon   Stage = "closed_won"
	StageClosedLost  Stage = "closed_lost"
)

// Terminal reports whether the stage is absorbing.
func (s Stage) Terminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Deal is an open or closed opportunity attached to a lead. At most one
// non-terminal deal exists per lead.
type Deal struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	Stage          Stage
	Value          float64
	Probability    float64
	CloseDate      *time.Time
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// stageTransitions maps a signal's stage keyword to the target stage and its
// base probability.
var stageTransitions = map[string]struct {
	stage Stage
	base  float64
}{
	"qualified":   {StageQualified, 0.4},
	"proposal":    {StageProposal, 0.6},
	"negotiation": {StageNegotiation, 0.8},
	"closed_won":  {StageClosedWon, 1.0},
	"closed_lost": {StageClosedLost, 0.0},
}

// TransitionForKeyword resolves a stage keyword from a signal. The bool is
// false for empty or unknown keywords.
func TransitionForKeyword(keyword string) (Stage, float64, bool) {
	t, ok := stageTransitions[keyword]
	if !ok {
		return "", 0, false
	}
	return t.stage, t.base, true
}

// stageBaselines are the recompute starting points per open stage.
var stageBaselines = map[Stage]float64{
	StageProspect:    0.2,
	StageQualified:   0.4,
	StageProposal:    0.6,
	StageNegotiation: 0.8,
}

// Baseline returns the recompute baseline for an open stage.
func Baseline(stage Stage) float64 {
	return stageBaselines[stage]
}

const (
	// InitialProbability is where a freshly created deal starts before
	// sentiment blending.
	InitialProbability = 0.3

	sentimentHigh      = 0.7
	sentimentLow       = 0.3
	sentimentBonus     = 0.1
	sentimentPenalty   = 0.2
	stalenessSevere    = 30
	stalenessModerate  = 14
	freshActivityDays  = 7
	stalenessSeverePen = 0.3
	stalenessModPen    = 0.2
	freshActivityBonus = 0.1
)

// BlendSentiment applies the sentiment adjustment to a probability and
// clamps. The clamp is always the final step.
func BlendSentiment(probability, sentiment float64) float64 {
	switch {
	case sentiment > sentimentHigh:
		probability += sentimentBonus
	case sentiment < sentimentLow:
		probability -= sentimentPenalty
	}
	return Clamp01(probability)
}

// Recompute derives an open deal's probability purely from its stage
// baseline, days since last activity, and the lead's sentiment. Pure and
// idempotent: unchanged inputs give an unchanged result.
func Recompute(stage Stage, daysInactive int, sentiment float64) float64 {
	p := Baseline(stage)

	switch {
	case daysInactive > stalenessSevere:
		p -= stalenessSeverePen
	case daysInactive > stalenessModerate:
		p -= stalenessModPen
	case daysInactive < freshActivityDays:
		p += freshActivityBonus
	}

	switch {
	case sentiment > sentimentHigh:
		p += sentimentBonus
	case sentiment < sentimentLow:
		p -= sentimentPenalty
	}

	return Clamp01(p)
}

// Clamp01 bounds a probability to [0,1].
func Clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
