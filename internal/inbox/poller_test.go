package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesdesk_backend/internal/events"
	leadsdomain "salesdesk_backend/internal/leads/domain"
	platformevents "salesdesk_backend/platform/events"
	"salesdesk_backend/platform/logger"

	imap "github.com/BrianLeishman/go-imap"
	"github.com/google/uuid"
)

type fakeMailbox struct {
	emails map[int]*imap.Email
	seen   []int

	selectErr error
	closed    bool
}

func (f *fakeMailbox) SelectFolder(string) error { return f.selectErr }

func (f *fakeMailbox) GetUIDs(string) ([]int, error) {
	uids := make([]int, 0, len(f.emails))
	for uid := range f.emails {
		uids = append(uids, uid)
	}
	return uids, nil
}

func (f *fakeMailbox) GetEmails(uids ...int) (map[int]*imap.Email, error) {
	return f.emails, nil
}

func (f *fakeMailbox) MarkSeen(uid int) error {
	f.seen = append(f.seen, uid)
	return nil
}

func (f *fakeMailbox) Close() error {
	f.closed = true
	return nil
}

type fakeMatcher struct {
	leads map[string]leadsdomain.Lead
}

func (f *fakeMatcher) FindByEmail(_ context.Context, email string) (leadsdomain.Lead, error) {
	lead, ok := f.leads[email]
	if !ok {
		return leadsdomain.Lead{}, errors.New("not found")
	}
	return lead, nil
}

type replyRecorder struct {
	replies []events.LeadReplyReceived
	err     error
}

func (r *replyRecorder) Handle(_ context.Context, event platformevents.Event) error {
	if r.err != nil {
		return r.err
	}
	r.replies = append(r.replies, event.(events.LeadReplyReceived))
	return nil
}

func newTestPoller(box *fakeMailbox, matcher *fakeMatcher, rec *replyRecorder) *Poller {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	bus.Subscribe(events.LeadReplyReceived{}.EventName(), rec)
	return &Poller{
		dial:     func() (Mailbox, error) { return box, nil },
		leads:    matcher,
		bus:      bus,
		log:      log,
		interval: time.Minute,
	}
}

func message(from, subject, text string) *imap.Email {
	return &imap.Email{
		From:    imap.EmailAddresses{from: "Sender"},
		Subject: subject,
		Text:    text,
	}
}

func TestSweepMatchesSenderAndMarksSeen(t *testing.T) {
	leadID := uuid.New()
	box := &fakeMailbox{emails: map[int]*imap.Email{
		7: message("buyer@example.com", "Re: proposal", "Looks too expensive for us."),
	}}
	matcher := &fakeMatcher{leads: map[string]leadsdomain.Lead{
		"buyer@example.com": {ID: leadID},
	}}
	rec := &replyRecorder{}

	p := newTestPoller(box, matcher, rec)
	if err := p.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(rec.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(rec.replies))
	}
	got := rec.replies[0]
	if got.LeadID != leadID || got.Subject != "Re: proposal" || got.Body != "Looks too expensive for us." {
		t.Errorf("reply = %+v", got)
	}
	if len(box.seen) != 1 || box.seen[0] != 7 {
		t.Errorf("seen = %v, want [7]", box.seen)
	}
	if !box.closed {
		t.Error("mailbox not closed")
	}
}

func TestSweepSkipsUnknownSenders(t *testing.T) {
	box := &fakeMailbox{emails: map[int]*imap.Email{
		3: message("stranger@example.com", "hello", "who dis"),
	}}
	rec := &replyRecorder{}

	p := newTestPoller(box, &fakeMatcher{leads: map[string]leadsdomain.Lead{}}, rec)
	if err := p.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(rec.replies) != 0 {
		t.Errorf("replies = %d, want 0", len(rec.replies))
	}
	// Unmatched mail stays unseen so a later lead import can pick it up.
	if len(box.seen) != 0 {
		t.Errorf("seen = %v, want none", box.seen)
	}
}

func TestSweepLeavesFailedHandlingUnseen(t *testing.T) {
	leadID := uuid.New()
	box := &fakeMailbox{emails: map[int]*imap.Email{
		9: message("buyer@example.com", "Re: proposal", "body"),
	}}
	matcher := &fakeMatcher{leads: map[string]leadsdomain.Lead{
		"buyer@example.com": {ID: leadID},
	}}
	rec := &replyRecorder{err: errors.New("pipeline down")}

	p := newTestPoller(box, matcher, rec)
	if err := p.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(box.seen) != 0 {
		t.Errorf("seen = %v, failed message must stay unseen for retry", box.seen)
	}
}

func TestSweepSurfacesConnectionErrors(t *testing.T) {
	p := newTestPoller(&fakeMailbox{selectErr: errors.New("no inbox")}, &fakeMatcher{}, &replyRecorder{})
	if err := p.Sweep(context.Background()); err == nil {
		t.Fatal("expected select failure to surface")
	}
}

func TestSweepFallsBackToHTMLBody(t *testing.T) {
	leadID := uuid.New()
	msg := message("buyer@example.com", "Re: demo", "")
	msg.HTML = "<p>Send the contract.</p>"
	box := &fakeMailbox{emails: map[int]*imap.Email{1: msg}}
	matcher := &fakeMatcher{leads: map[string]leadsdomain.Lead{
		"buyer@example.com": {ID: leadID},
	}}
	rec := &replyRecorder{}

	p := newTestPoller(box, matcher, rec)
	if err := p.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(rec.replies) != 1 || rec.replies[0].Body != "<p>Send the contract.</p>" {
		t.Errorf("replies = %+v", rec.replies)
	}
}
