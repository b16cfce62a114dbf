package transport

import (
	"time"

	"salesdesk_backend/internal/meetings/domain"
	"salesdesk_backend/internal/meetings/service"

	"github.com/google/uuid"
)

type ScheduleMeetingRequest struct {
	LeadID      uuid.UUID  `json:"leadId" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

type TranscriptRequest struct {
	Transcript string `json:"transcript" validate:"required"`
}

type AnalysisResponse struct {
	Sentiment   float64   `json:"sentiment"`
	Confidence  float64   `json:"confidence"`
	Summary     string    `json:"summary,omitempty"`
	Concerns    []string  `json:"concerns,omitempty"`
	AlertNeeded bool      `json:"alertNeeded"`
	AlertReason string    `json:"alertReason,omitempty"`
	Degraded    bool      `json:"degraded"`
	At          time.Time `json:"at"`
}

type MeetingResponse struct {
	ID                    uuid.UUID         `json:"id"`
	LeadID                uuid.UUID         `json:"leadId"`
	Title                 string            `json:"title"`
	ScheduledAt           *time.Time        `json:"scheduledAt,omitempty"`
	Status                string            `json:"status"`
	AgentJoinedAt         *time.Time        `json:"agentJoinedAt,omitempty"`
	ConfidenceScore       float64           `json:"confidenceScore"`
	ManagerAlertTriggered bool              `json:"managerAlertTriggered"`
	ManagerAlertReason    *string           `json:"managerAlertReason,omitempty"`
	LastAnalysis          *AnalysisResponse `json:"lastAnalysis,omitempty"`
	ConversationSummary   *string           `json:"conversationSummary,omitempty"`
	Outcome               *string           `json:"outcome,omitempty"`
	AgentNotes            *string           `json:"agentNotes,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

func ToMeetingResponse(m domain.Meeting) MeetingResponse {
	resp := MeetingResponse{
		ID:                    m.ID,
		LeadID:                m.LeadID,
		Title:                 m.Title,
		ScheduledAt:           m.ScheduledAt,
		Status:                string(m.Status),
		AgentJoinedAt:         m.AgentJoinedAt,
		ConfidenceScore:       m.AIAgentConfidenceScore,
		ManagerAlertTriggered: m.ManagerAlertTriggered,
		ManagerAlertReason:    m.ManagerAlertReason,
		ConversationSummary:   m.ConversationSummary,
		Outcome:               m.Outcome,
		AgentNotes:            m.AgentNotes,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
	if m.LastAnalysis != nil {
		a := AnalysisResponse(*m.LastAnalysis)
		resp.LastAnalysis = &a
	}
	return resp
}

func ToMeetingResponses(meetings []domain.Meeting) []MeetingResponse {
	out := make([]MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, ToMeetingResponse(m))
	}
	return out
}

type AnalyzeResponse struct {
	Meeting MeetingResponse  `json:"meeting"`
	Signal  AnalysisResponse `json:"signal"`
}

func ToAnalyzeResponse(result service.AnalyzeResult) AnalyzeResponse {
	return AnalyzeResponse{
		Meeting: ToMeetingResponse(result.Meeting),
		Signal: AnalysisResponse{
			Sentiment:   result.Signal.Sentiment,
			Confidence:  result.Signal.Confidence,
			Summary:     result.Signal.Summary,
			Concerns:    result.Signal.Concerns,
			AlertNeeded: result.Signal.AlertNeeded,
			AlertReason: result.Signal.AlertReason,
			Degraded:    result.Signal.Degraded,
		},
	}
}
