package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/CST438P3G6/slotbook/internal/model"
	"github.com/CST438P3G6/slotbook/internal/outbox"
	"github.com/CST438P3G6/slotbook/internal/storage"
	"github.com/CST438P3G6/slotbook/libs/auth"
)

// memStore backs the booking service with in-memory rows and mimics the real
// store's behavior: unknown ids map to storage.ErrNotFound, and an insert
// overlapping an occupying appointment of the same business fails with
// storage.ErrConflict the way the exclusion constraint does.
type memStore struct {
	mu       sync.Mutex
	services map[string]model.Service
	appts    map[string]model.Appointment
	events   []outbox.Event
}

func newMemStore() *memStore {
	return &memStore{
		services: map[string]model.Service{},
		appts:    map[string]model.Appointment{},
	}
}

func (m *memStore) GetService(ctx context.Context, id string) (model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[id]
	if !ok {
		return model.Service{}, storage.ErrNotFound
	}
	return svc, nil
}

func (m *memStore) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (m *memStore) CreateAppointment(ctx context.Context, a model.Appointment, evt outbox.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.appts {
		if other.BusinessID != a.BusinessID || !other.Status.Occupies() {
			continue
		}
		if a.StartTime.Before(other.EndTime) && other.StartTime.Before(a.EndTime) {
			return storage.ErrConflict
		}
	}
	m.appts[a.ID] = a
	m.events = append(m.events, evt)
	return nil
}

func (m *memStore) UpdateAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, evt outbox.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Status = status
	m.appts[id] = a
	m.events = append(m.events, evt)
	return nil
}

// HasConflict makes memStore double as the commit-time checker.
func (m *memStore) HasConflict(ctx context.Context, businessID string, start, end time.Time, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.BusinessID != businessID || !a.Status.Occupies() {
			continue
		}
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		if start.Before(a.EndTime) && a.StartTime.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

var (
	slotStart = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	ownerSess  = auth.Session{UserID: "owner-1", BusinessID: "biz-1", Role: auth.RoleOwner}
	clientSess = auth.Session{UserID: "user-1", Role: auth.RoleClient}
	otherSess  = auth.Session{UserID: "user-2", Role: auth.RoleClient}
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	store.services["svc-1"] = model.Service{
		ID:         "svc-1",
		BusinessID: "biz-1",
		Name:       "haircut",
		Cost:       "25.00",
		Duration:   30 * time.Minute,
		IsActive:   true,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, store, NewMemoryLocker(), logger), store
}

func TestBook(t *testing.T) {
	svc, store := newTestService(t)

	appt, err := svc.Book(context.Background(), clientSess, "svc-1", slotStart)
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if appt.Status != model.StatusPending {
		t.Fatalf("new appointment status = %s, want pending", appt.Status)
	}
	if !appt.EndTime.Equal(slotStart.Add(30 * time.Minute)) {
		t.Fatalf("end time %s does not match service duration", appt.EndTime)
	}
	if appt.Cost != "25.00" {
		t.Fatalf("cost snapshot = %q", appt.Cost)
	}
	if appt.UserID != "user-1" || appt.BusinessID != "biz-1" {
		t.Fatalf("ownership fields wrong: %+v", appt)
	}
	if len(store.events) != 1 || store.events[0].EventType != outbox.TopicAppointmentChanged {
		t.Fatalf("expected one change event, got %v", store.events)
	}
}

func TestBookUnknownService(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Book(context.Background(), clientSess, "nope", slotStart); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookInactiveService(t *testing.T) {
	svc, store := newTestService(t)
	inactive := store.services["svc-1"]
	inactive.IsActive = false
	store.services["svc-1"] = inactive

	if _, err := svc.Book(context.Background(), clientSess, "svc-1", slotStart); !errors.Is(err, ErrServiceInactive) {
		t.Fatalf("expected ErrServiceInactive, got %v", err)
	}
	if len(store.appts) != 0 {
		t.Fatal("inactive service must not produce an appointment")
	}
}

func TestBookTakenSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Book(ctx, clientSess, "svc-1", slotStart); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if _, err := svc.Book(ctx, otherSess, "svc-1", slotStart.Add(15*time.Minute)); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for overlapping start, got %v", err)
	}

	// Back-to-back is fine.
	if _, err := svc.Book(ctx, otherSess, "svc-1", slotStart.Add(30*time.Minute)); err != nil {
		t.Fatalf("adjacent booking failed: %v", err)
	}
}

func TestBookConcurrentSameSlot(t *testing.T) {
	svc, store := newTestService(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := auth.Session{UserID: "racer", Role: auth.RoleClient}
			_, errs[i] = svc.Book(context.Background(), sess, "svc-1", slotStart)
		}(i)
	}
	wg.Wait()

	var okCount, takenCount int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrSlotTaken):
			takenCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || takenCount != 1 {
		t.Fatalf("want exactly one winner, got ok=%d taken=%d", okCount, takenCount)
	}
	if len(store.appts) != 1 {
		t.Fatalf("store holds %d appointments, want 1", len(store.appts))
	}
}

func TestCancelIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, clientSess, "svc-1", slotStart)
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	first, err := svc.Cancel(ctx, clientSess, appt.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if first.Status != model.StatusCancelled {
		t.Fatalf("status after cancel = %s", first.Status)
	}

	second, err := svc.Cancel(ctx, clientSess, appt.ID)
	if err != nil {
		t.Fatalf("repeat Cancel failed: %v", err)
	}
	if second.Status != model.StatusCancelled {
		t.Fatalf("status after repeat cancel = %s", second.Status)
	}

	// The idempotent path is still authorized: a stranger cancelling an
	// already-cancelled appointment gets ErrForbidden, never the record.
	leaked, err := svc.Cancel(ctx, otherSess, appt.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger cancel of cancelled appointment, got %v", err)
	}
	if leaked.ID != "" {
		t.Fatalf("cancelled appointment leaked to stranger: %+v", leaked)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, clientSess, "svc-1", slotStart)
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := svc.Cancel(ctx, clientSess, appt.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if _, err := svc.Book(ctx, otherSess, "svc-1", slotStart); err != nil {
		t.Fatalf("rebooking a cancelled slot failed: %v", err)
	}
}

func TestTransitionStatusMachine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, clientSess, "svc-1", slotStart)
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	// pending -> completed skips confirmation and is rejected.
	if _, err := svc.Transition(ctx, ownerSess, appt.ID, model.StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	confirmed, err := svc.Transition(ctx, ownerSess, appt.ID, model.StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed {
		t.Fatalf("status = %s", confirmed.Status)
	}

	done, err := svc.Transition(ctx, ownerSess, appt.ID, model.StatusCompleted)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Fatalf("status = %s", done.Status)
	}

	// completed is terminal.
	if _, err := svc.Transition(ctx, ownerSess, appt.ID, model.StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected terminal status to reject change, got %v", err)
	}
}

func TestTransitionAuthorization(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, clientSess, "svc-1", slotStart)
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	// Another client cannot touch it.
	if _, err := svc.Cancel(ctx, otherSess, appt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}

	// The owning client may only cancel, never confirm.
	if _, err := svc.Transition(ctx, clientSess, appt.ID, model.StatusConfirmed); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client confirm, got %v", err)
	}

	// An owner of a different business is a stranger too.
	foreignOwner := auth.Session{UserID: "owner-2", BusinessID: "biz-2", Role: auth.RoleOwner}
	if _, err := svc.Transition(ctx, foreignOwner, appt.ID, model.StatusConfirmed); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign owner, got %v", err)
	}

	if _, err := svc.Transition(ctx, ownerSess, appt.ID, model.StatusConfirmed); err != nil {
		t.Fatalf("owner confirm failed: %v", err)
	}

	if _, err := svc.Cancel(ctx, clientSess, appt.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if _, err := svc.Transition(ctx, otherSess, appt.ID, model.StatusCancelled); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger re-cancel, got %v", err)
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Transition(context.Background(), ownerSess, "any", model.AppointmentStatus("archived")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
