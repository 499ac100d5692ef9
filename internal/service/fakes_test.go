package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-notify/internal/domain"
	apperrors "github.com/spec-kit/ticket-notify/pkg/util"
)

type subKey struct {
	ticketID    string
	staffHandle string
}

// fakeSubscriptionRepo mirrors the upsert semantics of the Postgres
// implementation, including the one-shot conflict injection used to test
// the retry-once policy.
type fakeSubscriptionRepo struct {
	mu            sync.Mutex
	subs          map[subKey]*domain.Subscription
	tickets       map[string]bool
	conflictsLeft int
	activateCalls int
}

func newFakeSubscriptionRepo(ticketIDs ...string) *fakeSubscriptionRepo {
	tickets := make(map[string]bool, len(ticketIDs))
	for _, id := range ticketIDs {
		tickets[id] = true
	}
	return &fakeSubscriptionRepo{
		subs:    make(map[subKey]*domain.Subscription),
		tickets: tickets,
	}
}

func (f *fakeSubscriptionRepo) Activate(ctx context.Context, ticketID, staffHandle string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activateCalls++
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return nil, apperrors.NewConflict("concurrent subscription mutation", nil)
	}
	if !f.tickets[ticketID] {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	key := subKey{ticketID, staffHandle}
	if sub, ok := f.subs[key]; ok {
		sub.Active = true
		sub.UnsubscribedAt = nil
		copied := *sub
		return &copied, nil
	}
	sub := &domain.Subscription{
		ID:           uuid.NewString(),
		TicketID:     ticketID,
		StaffHandle:  staffHandle,
		Active:       true,
		SubscribedAt: time.Now(),
	}
	f.subs[key] = sub
	copied := *sub
	return &copied, nil
}

func (f *fakeSubscriptionRepo) Deactivate(ctx context.Context, ticketID, staffHandle string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[subKey{ticketID, staffHandle}]; ok && sub.Active {
		sub.Active = false
		sub.UnsubscribedAt = &at
	}
	return nil
}

func (f *fakeSubscriptionRepo) Get(ctx context.Context, ticketID, staffHandle string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[subKey{ticketID, staffHandle}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeSubscriptionRepo) ListActiveHandles(ctx context.Context, ticketID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var handles []string
	for key, sub := range f.subs {
		if key.ticketID == ticketID && sub.Active {
			handles = append(handles, sub.StaffHandle)
		}
	}
	sort.Strings(handles)
	return handles, nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
	for _, t := range tickets {
		repo.tickets[t.ID] = t
	}
	return repo
}

func (f *fakeTicketRepo) Upsert(ctx context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[ticket.ID] = ticket
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tickets[id]
	return ok, nil
}

type fakeStaffDirectoryRepo struct {
	mu       sync.Mutex
	contacts map[string]domain.StaffContact
}

func newFakeStaffDirectoryRepo(contacts ...domain.StaffContact) *fakeStaffDirectoryRepo {
	repo := &fakeStaffDirectoryRepo{contacts: make(map[string]domain.StaffContact)}
	for _, c := range contacts {
		repo.contacts[c.Handle] = c
	}
	return repo
}

func (f *fakeStaffDirectoryRepo) Upsert(ctx context.Context, contact *domain.StaffContact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts[contact.Handle] = *contact
	return nil
}

func (f *fakeStaffDirectoryRepo) GetByHandles(ctx context.Context, handles []string) ([]domain.StaffContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.StaffContact
	for _, handle := range handles {
		if contact, ok := f.contacts[handle]; ok {
			result = append(result, contact)
		}
	}
	return result, nil
}

// fakeUpdateRepo keeps updates ordered the way the Postgres index does:
// reply timestamp descending, insertion order breaking ties.
type fakeUpdateRepo struct {
	mu      sync.Mutex
	tickets map[string]bool
	updates []*domain.Update
	nextSeq int64
}

func newFakeUpdateRepo(ticketIDs ...string) *fakeUpdateRepo {
	tickets := make(map[string]bool, len(ticketIDs))
	for _, id := range ticketIDs {
		tickets[id] = true
	}
	return &fakeUpdateRepo{tickets: tickets}
}

func (f *fakeUpdateRepo) Create(ctx context.Context, update *domain.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tickets[update.TicketID] {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": update.TicketID})
	}
	f.nextSeq++
	update.ID = uuid.NewString()
	update.Seq = f.nextSeq
	stored := *update
	f.updates = append(f.updates, &stored)
	return nil
}

func (f *fakeUpdateRepo) GetByID(ctx context.Context, id string) (*domain.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.updates {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("update", map[string]any{"update_id": id})
}

func (f *fakeUpdateRepo) AddReader(ctx context.Context, updateID, staffHandle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.updates {
		if u.ID == updateID {
			if !u.HasReader(staffHandle) {
				u.ReadBy = append(u.ReadBy, staffHandle)
			}
			return nil
		}
	}
	return apperrors.NewNotFound("update", map[string]any{"update_id": updateID})
}

func (f *fakeUpdateRepo) ListRecentByTicket(ctx context.Context, ticketID string, limit int, before *time.Time) ([]domain.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []domain.Update
	for _, u := range f.updates {
		if u.TicketID != ticketID {
			continue
		}
		if before != nil && !u.RepliedAt.Before(*before) {
			continue
		}
		matched = append(matched, *u)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].RepliedAt.Equal(matched[j].RepliedAt) {
			return matched[i].RepliedAt.After(matched[j].RepliedAt)
		}
		return matched[i].Seq > matched[j].Seq
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// fakeEngine records dispatch handoffs from the notification service.
type fakeEngine struct {
	mu    sync.Mutex
	calls []fakeDispatchCall
}

type fakeDispatchCall struct {
	ticket     domain.Ticket
	update     domain.Update
	recipients []domain.Recipient
}

func (f *fakeEngine) Dispatch(ctx context.Context, ticket *domain.Ticket, update *domain.Update, recipients []domain.Recipient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeDispatchCall{ticket: *ticket, update: *update, recipients: recipients})
	return nil
}

func (f *fakeEngine) dispatchCalls() []fakeDispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeDispatchCall{}, f.calls...)
}
