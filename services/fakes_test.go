package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/campushq/event-registration/models"
	"github.com/campushq/event-registration/repositories"
	"github.com/campushq/event-registration/storage"
)

// fakeEventRepository is an in-memory EventRepository with the same atomicity
// contract as the SQL implementation: TryReserve is a compare-and-increment
// under one lock, so concurrent callers racing for the last slot see exactly
// one grant.
type fakeEventRepository struct {
	mu     sync.Mutex
	events map[int]*models.Event
	nextID int

	reserveErr error
	releaseErr error
}

func newFakeEventRepository() *fakeEventRepository {
	return &fakeEventRepository{events: make(map[int]*models.Event), nextID: 1}
}

func (f *fakeEventRepository) put(e *models.Event) *models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == 0 {
		e.ID = f.nextID
		f.nextID++
	}
	cp := *e
	f.events[e.ID] = &cp
	return e
}

func (f *fakeEventRepository) Create(_ context.Context, e *models.Event) error {
	e.CreatedAt = time.Now().UTC()
	f.put(e)
	return nil
}

func (f *fakeEventRepository) GetByID(_ context.Context, id int) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventRepository) List(_ context.Context, filter repositories.ListEventsFilter) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		if filter.CreatedBy != nil && e.CreatedBy != *filter.CreatedBy {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeEventRepository) Update(_ context.Context, e *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.events[e.ID]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.CurrentRegistrations = stored.CurrentRegistrations
	e.CreatedAt = stored.CreatedAt
	cp := *e
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeEventRepository) UpdateStatus(_ context.Context, id int, status models.EventStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.Status = status
	return nil
}

func (f *fakeEventRepository) UpdateImageKey(_ context.Context, id int, imageKey *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.ImageKey = imageKey
	return nil
}

func (f *fakeEventRepository) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return repositories.ErrEventNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepository) TryReserve(_ context.Context, id int) (bool, *models.CapacitySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return false, nil, f.reserveErr
	}
	e, ok := f.events[id]
	if !ok {
		return false, nil, repositories.ErrEventNotFound
	}
	if e.CurrentRegistrations >= e.MaxCapacity {
		return false, nil, nil
	}
	e.CurrentRegistrations++
	return true, &models.CapacitySnapshot{
		EventID:              id,
		CurrentRegistrations: e.CurrentRegistrations,
		MaxCapacity:          e.MaxCapacity,
	}, nil
}

func (f *fakeEventRepository) Release(_ context.Context, id int) (*models.CapacitySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return nil, f.releaseErr
	}
	e, ok := f.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	if e.CurrentRegistrations > 0 {
		e.CurrentRegistrations--
	}
	return &models.CapacitySnapshot{
		EventID:              id,
		CurrentRegistrations: e.CurrentRegistrations,
		MaxCapacity:          e.MaxCapacity,
	}, nil
}

// occupancy reads the counter without going through the repository interface.
func (f *fakeEventRepository) occupancy(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id].CurrentRegistrations
}

// fakeRegistrationRepository mirrors the partial unique index and the
// state-gated transitions of the SQL implementation.
type fakeRegistrationRepository struct {
	mu            sync.Mutex
	registrations map[int]*models.Registration
	nextID        int

	createErr error
	proofErr  error
}

func newFakeRegistrationRepository() *fakeRegistrationRepository {
	return &fakeRegistrationRepository{registrations: make(map[int]*models.Registration), nextID: 1}
}

func (f *fakeRegistrationRepository) Create(_ context.Context, reg *models.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, r := range f.registrations {
		if r.EventID == reg.EventID && r.UserID == reg.UserID && r.IsActive() {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = f.nextID
	f.nextID++
	reg.CreatedAt = time.Now().UTC()
	cp := *reg
	f.registrations[reg.ID] = &cp
	return nil
}

func (f *fakeRegistrationRepository) FindByID(_ context.Context, id int) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRegistrationRepository) FindActiveByEventAndUser(_ context.Context, eventID, userID int) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.registrations {
		if r.EventID == eventID && r.UserID == userID && r.IsActive() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (f *fakeRegistrationRepository) ListByUser(_ context.Context, userID int) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Registration
	for _, r := range f.registrations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRegistrationRepository) ListByEvent(_ context.Context, eventID int, statusFilter *models.RegistrationStatus) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Registration
	for _, r := range f.registrations {
		if r.EventID != eventID {
			continue
		}
		if statusFilter != nil && r.Status != *statusFilter {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRegistrationRepository) CountByEventAndStatus(_ context.Context, eventID int, status models.RegistrationStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.registrations {
		if r.EventID == eventID && r.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeRegistrationRepository) Cancel(_ context.Context, id, userID int) (models.RegistrationStatus, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registrations[id]
	if !ok || r.UserID != userID {
		return "", 0, repositories.ErrRegistrationNotFound
	}
	if !r.IsActive() {
		return "", 0, repositories.ErrRegistrationInvalidTransition
	}
	previous := r.Status
	r.Status = models.RegistrationCancelled
	return previous, r.EventID, nil
}

func (f *fakeRegistrationRepository) Approve(_ context.Context, id, reviewerID int, reviewedAt time.Time) error {
	return f.transition(id, models.RegistrationConfirmed, models.PaymentVerified, reviewerID, reviewedAt, nil)
}

func (f *fakeRegistrationRepository) Reject(_ context.Context, id, reviewerID int, reviewedAt time.Time, reason string) error {
	return f.transition(id, models.RegistrationRejected, models.PaymentRejected, reviewerID, reviewedAt, &reason)
}

func (f *fakeRegistrationRepository) transition(id int, status models.RegistrationStatus, payment models.PaymentStatus, reviewerID int, reviewedAt time.Time, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	if r.Status != models.RegistrationPending {
		return repositories.ErrRegistrationInvalidTransition
	}
	r.Status = status
	r.PaymentStatus = payment
	r.ReviewerID = &reviewerID
	r.ReviewedAt = &reviewedAt
	r.RejectionReason = reason
	return nil
}

func (f *fakeRegistrationRepository) UpdateProofKey(_ context.Context, id, userID int, proofKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.proofErr != nil {
		return f.proofErr
	}
	r, ok := f.registrations[id]
	if !ok || r.UserID != userID {
		return repositories.ErrRegistrationNotFound
	}
	r.ProofKey = &proofKey
	return nil
}

func (f *fakeRegistrationRepository) get(id int) *models.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.registrations[id]
	return &cp
}

// fakeUserRepository enforces the email uniqueness of the SQL implementation.
type fakeUserRepository struct {
	mu     sync.Mutex
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[int]*models.User), nextID: 1}
}

func (f *fakeUserRepository) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now().UTC()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepository) GetByID(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// fakeUploader records uploads and deletes in memory.
type fakeUploader struct {
	mu        sync.Mutex
	uploaded  []string
	deleted   []string
	uploadErr error
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return nil, err
	}
	f.uploaded = append(f.uploaded, key)
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return fmt.Sprintf("https://cdn.test/%s", key)
}
