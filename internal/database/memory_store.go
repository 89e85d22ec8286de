package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/models"
)

// MemoryStore implements Store in process memory. It backs DB_DRIVER=memory
// and the service tests. Records are copied in and out so callers never
// share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	nextID        uint
	users         map[uint]models.User
	profiles      map[uint]models.TutorProfile // keyed by user id
	slots         map[uint][]models.AvailabilitySlot
	bookings      map[uint]models.Booking
	reschedules   map[uint]models.RescheduleRequest
	cancellations map[uint]models.CancellationNotice
	tasks         map[uint]models.Task
	reviews       map[uint]models.Review
	prefs         map[uint]models.NotificationPreference

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uint]models.User),
		profiles:      make(map[uint]models.TutorProfile),
		slots:         make(map[uint][]models.AvailabilitySlot),
		bookings:      make(map[uint]models.Booking),
		reschedules:   make(map[uint]models.RescheduleRequest),
		cancellations: make(map[uint]models.CancellationNotice),
		tasks:         make(map[uint]models.Task),
		reviews:       make(map[uint]models.Review),
		prefs:         make(map[uint]models.NotificationPreference),
		now:           time.Now,
	}
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperror.Conflict("email already exists")
		}
	}
	now := s.now()
	u.ID, u.CreatedAt, u.UpdatedAt = s.id(), now, now
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user")
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return apperror.NotFound("user")
	}
	u.UpdatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) SaveTutorProfile(_ context.Context, p *models.TutorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserID]; !ok {
		return apperror.Validation("userId", "referenced record does not exist")
	}
	now := s.now()
	if existing, ok := s.profiles[p.UserID]; ok {
		p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		p.ID, p.CreatedAt = s.id(), now
	}
	p.UpdatedAt = now
	stored := *p
	stored.User, stored.Availability = nil, nil
	stored.Subjects = append([]string(nil), p.Subjects...)
	s.profiles[p.UserID] = stored
	return nil
}

func (s *MemoryStore) profileView(p models.TutorProfile) models.TutorProfile {
	if u, ok := s.users[p.UserID]; ok {
		p.User = &u
	}
	p.Subjects = append([]string(nil), p.Subjects...)
	p.Availability = append([]models.AvailabilitySlot{}, s.slots[p.UserID]...)
	return p
}

func (s *MemoryStore) GetTutorProfile(_ context.Context, userID uint) (*models.TutorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("tutor")
	}
	view := s.profileView(p)
	return &view, nil
}

func (s *MemoryStore) ListTutorProfiles(_ context.Context, subject string) ([]models.TutorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.TutorProfile{}
	for _, p := range s.profiles {
		if subject != "" && !containsFold(p.Subjects, subject) {
			continue
		}
		out = append(out, s.profileView(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ReplaceAvailability(_ context.Context, tutorID uint, slots []models.AvailabilitySlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]models.AvailabilitySlot, len(slots))
	for i, slot := range slots {
		slot.ID = s.id()
		slot.TutorID = tutorID
		slots[i] = slot
		stored[i] = slot
	}
	sort.SliceStable(stored, func(i, j int) bool {
		if stored[i].Weekday != stored[j].Weekday {
			return stored[i].Weekday < stored[j].Weekday
		}
		return stored[i].StartTime < stored[j].StartTime
	})
	s.slots[tutorID] = stored
	return nil
}

func (s *MemoryStore) CreateBooking(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[b.StudentID]; !ok {
		return apperror.Validation("studentId", "referenced record does not exist")
	}
	if _, ok := s.users[b.TutorID]; !ok {
		return apperror.Validation("tutorId", "referenced record does not exist")
	}
	now := s.now()
	b.ID, b.CreatedAt, b.UpdatedAt = s.id(), now, now
	s.bookings[b.ID] = stripBooking(*b)
	return nil
}

func stripBooking(b models.Booking) models.Booking {
	b.Student, b.Tutor = nil, nil
	return b
}

// bookingView returns a copy with the participants attached.
func (s *MemoryStore) bookingView(b models.Booking) models.Booking {
	if u, ok := s.users[b.StudentID]; ok {
		b.Student = &u
	}
	if u, ok := s.users[b.TutorID]; ok {
		b.Tutor = &u
	}
	if b.RespondedAt != nil {
		t := *b.RespondedAt
		b.RespondedAt = &t
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		b.CompletedAt = &t
	}
	if b.CancelledBy != nil {
		id := *b.CancelledBy
		b.CancelledBy = &id
	}
	return b
}

func (s *MemoryStore) GetBooking(_ context.Context, id uint) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperror.NotFound("booking")
	}
	view := s.bookingView(b)
	return &view, nil
}

func (s *MemoryStore) ListBookings(_ context.Context, f models.BookingFilter) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Booking{}
	for _, b := range s.bookings {
		if matchBooking(b, f) {
			out = append(out, s.bookingView(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchBooking(b models.Booking, f models.BookingFilter) bool {
	if f.StudentID != 0 && b.StudentID != f.StudentID {
		return false
	}
	if f.TutorID != 0 && b.TutorID != f.TutorID {
		return false
	}
	if f.ParticipantID != 0 && !b.IsParticipant(f.ParticipantID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if b.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != "" && b.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && b.Date > f.DateTo {
		return false
	}
	return true
}

func (s *MemoryStore) ApplyTransition(_ context.Context, t models.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[t.Booking.ID]
	if !ok {
		return apperror.NotFound("booking")
	}
	if stored.Status != t.From {
		return apperror.Conflict("booking was modified by another request, reload and try again")
	}

	now := s.now()
	t.Booking.CreatedAt = stored.CreatedAt
	t.Booking.UpdatedAt = now
	s.bookings[t.Booking.ID] = stripBooking(*t.Booking)

	if r := t.Reschedule; r != nil {
		if r.ID == 0 {
			r.ID, r.CreatedAt = s.id(), now
		}
		r.UpdatedAt = now
		copied := *r
		copied.Booking = nil
		s.reschedules[r.ID] = copied
	}
	if n := t.Cancellation; n != nil {
		if n.ID == 0 {
			n.ID, n.CreatedAt = s.id(), now
		}
		n.UpdatedAt = now
		copied := *n
		copied.Booking = nil
		s.cancellations[n.ID] = copied
	}
	return nil
}

func (s *MemoryStore) attachBooking(bookingID uint) *models.Booking {
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil
	}
	view := s.bookingView(b)
	return &view
}

func (s *MemoryStore) GetRescheduleRequest(_ context.Context, id uint) (*models.RescheduleRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reschedules[id]
	if !ok {
		return nil, apperror.NotFound("reschedule request")
	}
	r.Booking = s.attachBooking(r.BookingID)
	return &r, nil
}

func (s *MemoryStore) PendingRescheduleForBooking(_ context.Context, bookingID uint) (*models.RescheduleRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.RescheduleRequest
	for _, r := range s.reschedules {
		if r.BookingID != bookingID || r.Status != models.RequestStatusPending {
			continue
		}
		if latest == nil || r.ID > latest.ID {
			r := r
			latest = &r
		}
	}
	if latest == nil {
		return nil, apperror.NotFound("reschedule request")
	}
	return latest, nil
}

func (s *MemoryStore) ListRescheduleRequests(_ context.Context, recipientID uint, status models.RequestStatus) ([]models.RescheduleRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.RescheduleRequest{}
	for _, r := range s.reschedules {
		if r.RecipientID != recipientID || (status != "" && r.Status != status) {
			continue
		}
		r.Booking = s.attachBooking(r.BookingID)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetCancellationNotice(_ context.Context, id uint) (*models.CancellationNotice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.cancellations[id]
	if !ok {
		return nil, apperror.NotFound("cancellation notice")
	}
	n.Booking = s.attachBooking(n.BookingID)
	return &n, nil
}

func (s *MemoryStore) ListCancellationNotices(_ context.Context, recipientID uint, status models.RequestStatus) ([]models.CancellationNotice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.CancellationNotice{}
	for _, n := range s.cancellations {
		if n.RecipientID != recipientID || (status != "" && n.Status != status) {
			continue
		}
		n.Booking = s.attachBooking(n.BookingID)
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateCancellationNotice(_ context.Context, n *models.CancellationNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cancellations[n.ID]; !ok {
		return apperror.NotFound("cancellation notice")
	}
	n.UpdatedAt = s.now()
	copied := *n
	copied.Booking = nil
	s.cancellations[n.ID] = copied
	return nil
}

func (s *MemoryStore) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t.ID, t.CreatedAt, t.UpdatedAt = s.id(), now, now
	s.tasks[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id uint) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, apperror.NotFound("task")
	}
	return &t, nil
}

func (s *MemoryStore) ListTasks(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Task{}
	for _, t := range s.tasks {
		if t.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate != out[j].DueDate {
			return out[i].DueDate < out[j].DueDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return apperror.NotFound("task")
	}
	t.UpdatedAt = s.now()
	s.tasks[t.ID] = *t
	return nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return apperror.NotFound("task")
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) CreateReview(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.BookingID == r.BookingID {
			return apperror.Conflict("this session has already been reviewed")
		}
	}
	if r.Rating < 1 || r.Rating > 5 {
		return apperror.Validation("rating", "value violates constraint reviews_rating_check")
	}
	now := s.now()
	r.ID, r.CreatedAt, r.UpdatedAt = s.id(), now, now
	copied := *r
	copied.Student = nil
	s.reviews[r.ID] = copied
	return nil
}

func (s *MemoryStore) GetReviewByBooking(_ context.Context, bookingID uint) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.BookingID == bookingID {
			return &r, nil
		}
	}
	return nil, apperror.NotFound("review")
}

func (s *MemoryStore) ListReviewsForTutor(_ context.Context, tutorID uint) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Review{}
	for _, r := range s.reviews {
		if r.TutorID != tutorID {
			continue
		}
		if u, ok := s.users[r.StudentID]; ok {
			r.Student = &u
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReviewDate.Equal(out[j].ReviewDate) {
			return out[i].ReviewDate.After(out[j].ReviewDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetPreferences(_ context.Context, userID uint) (*models.NotificationPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	if !ok {
		return models.DefaultPreferences(userID), nil
	}
	return &p, nil
}

func (s *MemoryStore) SavePreferences(_ context.Context, p *models.NotificationPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.prefs[p.UserID]; ok {
		p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		p.ID, p.CreatedAt = s.id(), now
	}
	p.UpdatedAt = now
	s.prefs[p.UserID] = *p
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*GormStore)(nil)
)
