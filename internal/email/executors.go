package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"salesdesk_backend/internal/agentops/domain"
	leadsdomain "salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadReader looks up the lead a manager alert concerns. The leads
// repository satisfies it.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsdomain.Lead, error)
}

// FollowupExecutor sends an approved follow-up email to the lead.
type FollowupExecutor struct {
	sender Sender
	log    *logger.Logger
}

func NewFollowupExecutor(sender Sender, log *logger.Logger) *FollowupExecutor {
	return &FollowupExecutor{sender: sender, log: log}
}

func (e *FollowupExecutor) Execute(ctx context.Context, action domain.Action) error {
	var payload domain.FollowupEmailPayload
	if err := json.Unmarshal(action.Data, &payload); err != nil {
		return fmt.Errorf("decode followup payload: %w", err)
	}
	if payload.To == "" {
		return fmt.Errorf("followup action %s has no recipient", action.ID)
	}

	if err := e.sender.SendFollowupEmail(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		return err
	}

	e.log.Info("followup_email_sent",
		slog.String("action_id", action.ID.String()),
		slog.String("lead_id", payload.LeadID.String()),
	)
	return nil
}

// ManagerAlertExecutor notifies the configured manager address about an
// escalated meeting.
type ManagerAlertExecutor struct {
	sender       Sender
	leads        LeadReader
	managerEmail string
	log          *logger.Logger
}

func NewManagerAlertExecutor(sender Sender, leads LeadReader, managerEmail string, log *logger.Logger) *ManagerAlertExecutor {
	return &ManagerAlertExecutor{sender: sender, leads: leads, managerEmail: managerEmail, log: log}
}

func (e *ManagerAlertExecutor) Execute(ctx context.Context, action domain.Action) error {
	var payload domain.ManagerAlertPayload
	if err := json.Unmarshal(action.Data, &payload); err != nil {
		return fmt.Errorf("decode manager alert payload: %w", err)
	}
	if e.managerEmail == "" {
		// No address configured: the alert stays visible in the action
		// queue, nothing to deliver.
		e.log.Warn("manager_alert_not_emailed",
			slog.String("action_id", action.ID.String()),
			slog.String("reason", "MANAGER_ALERT_EMAIL unset"),
		)
		return nil
	}

	leadName := payload.LeadID.String()
	if lead, err := e.leads.GetByID(ctx, payload.LeadID); err == nil {
		leadName = lead.Name
	}

	if err := e.sender.SendManagerAlertEmail(ctx, e.managerEmail, leadName, payload.Reason); err != nil {
		return err
	}

	e.log.Info("manager_alert_email_sent",
		slog.String("action_id", action.ID.String()),
		slog.String("meeting_id", payload.MeetingID.String()),
	)
	return nil
}
