// Package inbox polls an IMAP mailbox for lead replies. Matched messages
// are published as reply events and flow through the same pipeline as
// replies posted over HTTP.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"salesdesk_backend/internal/events"
	leadsdomain "salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/logger"

	imap "github.com/BrianLeishman/go-imap"
)

// LeadMatcher resolves an inbound sender address to a known lead.
type LeadMatcher interface {
	FindByEmail(ctx context.Context, email string) (leadsdomain.Lead, error)
}

// Mailbox is the slice of the IMAP connection the poller uses.
type Mailbox interface {
	SelectFolder(folder string) error
	GetUIDs(search string) ([]int, error)
	GetEmails(uids ...int) (map[int]*imap.Email, error)
	MarkSeen(uid int) error
	Close() error
}

// DialFunc opens a mailbox connection. Split out so tests can swap the
// network for a fake.
type DialFunc func() (Mailbox, error)

type Poller struct {
	dial     DialFunc
	leads    LeadMatcher
	bus      events.Bus
	log      *logger.Logger
	interval time.Duration
}

func NewPoller(cfg config.InboxConfig, leads LeadMatcher, bus events.Bus, log *logger.Logger) *Poller {
	dial := func() (Mailbox, error) {
		return imap.New(cfg.GetIMAPUsername(), cfg.GetIMAPPassword(), cfg.GetIMAPHost(), cfg.GetIMAPPort())
	}
	return &Poller{
		dial:     dial,
		leads:    leads,
		bus:      bus,
		log:      log,
		interval: cfg.GetInboxPollInterval(),
	}
}

// Run polls until the context is canceled. One failed sweep logs and waits
// for the next tick; it never stops the loop.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("inbox_poller_started", slog.Duration("interval", p.interval))

	for {
		if err := p.Sweep(ctx); err != nil {
			p.log.Error("inbox_sweep_failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			p.log.Info("inbox_poller_stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep reads unseen messages once. A message is marked seen only after its
// reply event has been handled, so failures retry on the next sweep.
func (p *Poller) Sweep(ctx context.Context) error {
	box, err := p.dial()
	if err != nil {
		return fmt.Errorf("imap dial: %w", err)
	}
	defer box.Close()

	if err := box.SelectFolder("INBOX"); err != nil {
		return fmt.Errorf("select inbox: %w", err)
	}

	uids, err := box.GetUIDs("UNSEEN")
	if err != nil {
		return fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil
	}

	messages, err := box.GetEmails(uids...)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}

	for uid, msg := range messages {
		if msg == nil {
			continue
		}
		if err := p.handle(ctx, msg); err != nil {
			p.log.Warn("inbox_message_skipped",
				slog.Int("uid", uid),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := box.MarkSeen(uid); err != nil {
			p.log.Warn("inbox_mark_seen_failed", slog.Int("uid", uid), slog.String("error", err.Error()))
		}
	}

	return nil
}

func (p *Poller) handle(ctx context.Context, msg *imap.Email) error {
	sender := firstAddress(msg.From)
	if sender == "" {
		return fmt.Errorf("message has no sender")
	}

	lead, err := p.leads.FindByEmail(ctx, sender)
	if err != nil {
		return fmt.Errorf("no lead for %s: %w", sender, err)
	}

	body := strings.TrimSpace(msg.Text)
	if body == "" {
		body = strings.TrimSpace(msg.HTML)
	}
	if body == "" {
		return fmt.Errorf("message from %s has no body", sender)
	}

	if err := p.bus.PublishSync(ctx, events.LeadReplyReceived{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Subject:   msg.Subject,
		Body:      body,
	}); err != nil {
		return fmt.Errorf("handle reply: %w", err)
	}

	p.log.Info("inbox_reply_matched",
		slog.String("lead_id", lead.ID.String()),
		slog.String("sender", sender),
	)
	return nil
}

func firstAddress(addrs imap.EmailAddresses) string {
	for addr := range addrs {
		return strings.ToLower(strings.TrimSpace(addr))
	}
	return ""
}
