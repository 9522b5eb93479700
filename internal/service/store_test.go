package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore хранилище в памяти для тестов сервисов. Транзакции
// выполняются строго по одной и откатываются снимком состояния.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users    map[int64]*model.User
	bookings map[uuid.UUID]*model.Booking
	reviews  map[uuid.UUID]*model.Review
	strikes  map[uuid.UUID]*model.Strike
	earnings map[uuid.UUID]*model.Earning
	reports  []*model.Report

	fee decimal.Decimal
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*model.User{},
		bookings: map[uuid.UUID]*model.Booking{},
		reviews:  map[uuid.UUID]*model.Review{},
		strikes:  map[uuid.UUID]*model.Strike{},
		earnings: map[uuid.UUID]*model.Earning{},
		fee:      decimal.RequireFromString("0.18"),
	}
}

func (m *memStore) stores() Stores {
	return Stores{
		Tx:       m,
		Bookings: (*memBookings)(m),
		Users:    (*memUsers)(m),
		Reviews:  (*memReviews)(m),
		Strikes:  (*memStrikes)(m),
		Earnings: (*memEarnings)(m),
		Reports:  (*memReports)(m),
	}
}

func (m *memStore) PlatformFeeFraction(context.Context) (decimal.Decimal, error) {
	return m.fee, nil
}

type memSnapshot struct {
	users    map[int64]model.User
	bookings map[uuid.UUID]*model.Booking
	reviews  map[uuid.UUID]model.Review
	strikes  map[uuid.UUID]model.Strike
	earnings map[uuid.UUID]model.Earning
	reports  int
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := memSnapshot{
		users:    map[int64]model.User{},
		bookings: map[uuid.UUID]*model.Booking{},
		reviews:  map[uuid.UUID]model.Review{},
		strikes:  map[uuid.UUID]model.Strike{},
		earnings: map[uuid.UUID]model.Earning{},
		reports:  len(m.reports),
	}
	for k, v := range m.users {
		s.users[k] = *v
	}
	for k, v := range m.bookings {
		s.bookings[k] = v.Clone()
	}
	for k, v := range m.reviews {
		s.reviews[k] = *v
	}
	for k, v := range m.strikes {
		s.strikes[k] = *v
	}
	for k, v := range m.earnings {
		s.earnings[k] = *v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = map[int64]*model.User{}
	for k, v := range s.users {
		v := v
		m.users[k] = &v
	}
	m.bookings = s.bookings
	m.reviews = map[uuid.UUID]*model.Review{}
	for k, v := range s.reviews {
		v := v
		m.reviews[k] = &v
	}
	m.strikes = map[uuid.UUID]*model.Strike{}
	for k, v := range s.strikes {
		v := v
		m.strikes[k] = &v
	}
	m.earnings = map[uuid.UUID]*model.Earning{}
	for k, v := range s.earnings {
		v := v
		m.earnings[k] = &v
	}
	m.reports = m.reports[:s.reports]
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) WithinSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.WithinTx(ctx, fn)
}

// helpers

func (m *memStore) addUser(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) booking(id uuid.UUID) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		return b.Clone()
	}
	return nil
}

func (m *memStore) putBooking(b *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b.Clone()
}

func (m *memStore) user(id int64) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) strikesOf(userID int64) []*model.Strike {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Strike
	for _, s := range m.strikes {
		if s.UserID == userID {
			c := *s
			out = append(out, &c)
		}
	}
	return out
}

func (m *memStore) earningOf(bookingID uuid.UUID) *model.Earning {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.earnings {
		if e.BookingID == bookingID {
			c := *e
			return &c
		}
	}
	return nil
}

func (m *memStore) reportCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// bookings

type memBookings memStore

func (r *memBookings) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return model.PolicyViolation("duplicate booking")
	}
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *memBookings) GetByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		return b.Clone(), nil
	}
	return nil, nil
}

func (r *memBookings) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *memBookings) FindOverlapping(_ context.Context, companionID int64, start, end time.Time) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.CompanionID == companionID && b.Status.IsBlocking() && policy.Overlaps(start, end, b.StartTime, b.EndTime) {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (r *memBookings) Update(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return model.NotFound("booking %s not found", b.ID)
	}
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *memBookings) CountCreatedByHirer(_ context.Context, hirerID int64, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.bookings {
		if b.HirerID == hirerID && !b.CreatedAt.Before(from) && b.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *memBookings) CountCreatedByHirerForCompanion(_ context.Context, hirerID, companionID int64, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.bookings {
		if b.HirerID == hirerID && b.CompanionID == companionID && !b.CreatedAt.Before(from) && b.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *memBookings) ListByCompanionInRange(_ context.Context, companionID int64, from, to time.Time) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.CompanionID == companionID && b.Status.IsBlocking() && b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *memBookings) ListByUser(_ context.Context, userID int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.IsParty(userID) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

// ids повторяет порядок запросов репозитория: по ключу времени, затем по id
func (r *memBookings) ids(match func(b *model.Booking) bool, key func(b *model.Booking) time.Time, exclude []uuid.UUID, limit int) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	skip := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var found []*model.Booking
	for id, b := range r.bookings {
		if match(b) && !skip[id] {
			found = append(found, b)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		ki, kj := key(found[i]), key(found[j])
		if !ki.Equal(kj) {
			return ki.Before(kj)
		}
		return found[i].ID.String() < found[j].ID.String()
	})
	var out []uuid.UUID
	for _, b := range found {
		if len(out) == limit {
			break
		}
		out = append(out, b.ID)
	}
	return out
}

func (r *memBookings) DueForStart(_ context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	return r.ids(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusConfirmed && b.PaymentStatus.IsCaptured() && !b.StartTime.After(now)
	}, func(b *model.Booking) time.Time { return b.StartTime }, exclude, limit), nil
}

func (r *memBookings) DueForCompletion(_ context.Context, endedBefore time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	return r.ids(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusActive && !b.EndTime.After(endedBefore)
	}, func(b *model.Booking) time.Time { return b.EndTime }, exclude, limit), nil
}

func (r *memBookings) ExpiredRequests(_ context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	return r.ids(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusPending && !b.RequestExpiresAt.After(now)
	}, func(b *model.Booking) time.Time { return b.RequestExpiresAt }, exclude, limit), nil
}

func (r *memBookings) UnpaidPastDeadline(_ context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	return r.ids(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusConfirmed && b.PaymentStatus == model.PaymentStatusPending &&
			b.PaymentDeadline != nil && !b.PaymentDeadline.After(now)
	}, func(b *model.Booking) time.Time { return *b.PaymentDeadline }, exclude, limit), nil
}

// users

type memUsers memStore

func (r *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *memUsers) GetByIDForUpdate(ctx context.Context, id int64) (*model.User, error) {
	return r.GetByID(ctx, id)
}

func (r *memUsers) UpdateRating(_ context.Context, userID int64, avg float64, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return model.NotFound("user %d not found", userID)
	}
	u.RatingAvg = avg
	u.RatingCount = count
	return nil
}

// reviews

type memReviews memStore

func (r *memReviews) Create(_ context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.BookingID == review.BookingID && existing.ReviewerID == review.ReviewerID {
			return model.PolicyViolation("duplicate record")
		}
	}
	c := *review
	r.reviews[review.ID] = &c
	return nil
}

func (r *memReviews) GetByIDForUpdate(_ context.Context, id uuid.UUID) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if review, ok := r.reviews[id]; ok {
		c := *review
		return &c, nil
	}
	return nil, nil
}

func (r *memReviews) GetByBookingAndReviewer(_ context.Context, bookingID uuid.UUID, reviewerID int64) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, review := range r.reviews {
		if review.BookingID == bookingID && review.ReviewerID == reviewerID {
			c := *review
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memReviews) Update(_ context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[review.ID]; !ok {
		return model.NotFound("review %s not found", review.ID)
	}
	c := *review
	r.reviews[review.ID] = &c
	return nil
}

func (r *memReviews) ListByReviewee(_ context.Context, revieweeID int64) ([]*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Review
	for _, review := range r.reviews {
		if review.RevieweeID == revieweeID {
			c := *review
			out = append(out, &c)
		}
	}
	return out, nil
}

// strikes, earnings, reports

type memStrikes memStore

func (r *memStrikes) Create(_ context.Context, s *model.Strike) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.strikes[s.ID] = &c
	return nil
}

func (r *memStrikes) GetByIDForUpdate(_ context.Context, id uuid.UUID) (*model.Strike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.strikes[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *memStrikes) Void(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.strikes[id]
	if !ok {
		return model.NotFound("strike %s not found", id)
	}
	s.Status = model.StrikeStatusVoided
	s.VoidReason = reason
	s.VoidedAt = &at
	return nil
}

func (r *memStrikes) Activate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.strikes[id]
	if !ok {
		return model.NotFound("strike %s not found", id)
	}
	s.Status = model.StrikeStatusActive
	return nil
}

func (r *memStrikes) ListInForce(_ context.Context, userID int64, now time.Time) ([]*model.Strike, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Strike
	for _, s := range r.strikes {
		if s.UserID == userID && s.IsInForce(now) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

type memEarnings memStore

func (r *memEarnings) Create(_ context.Context, e *model.Earning) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.earnings {
		if existing.BookingID == e.BookingID {
			return model.PolicyViolation("duplicate record")
		}
	}
	c := *e
	r.earnings[e.ID] = &c
	return nil
}

type memReports memStore

func (r *memReports) Create(_ context.Context, rep *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *rep
	r.reports = append(r.reports, &c)
	return nil
}

// collaborators

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) events() []model.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.EventType, 0, len(n.sent))
	for _, msg := range n.sent {
		out = append(out, msg.Event)
	}
	return out
}

type recordingArchiver struct {
	mu       sync.Mutex
	requests []model.ArchiveRequest
}

func (a *recordingArchiver) ScheduleArchive(_ context.Context, req model.ArchiveRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	return nil
}

func (a *recordingArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

type stubContent struct {
	blocked string
}

func (c stubContent) ReviewText(_ context.Context, text string) (model.ContentVerdict, error) {
	if c.blocked != "" && text == c.blocked {
		return model.ContentVerdict{IsSafe: false, Flags: []string{"blocked"}}, nil
	}
	return model.ContentVerdict{IsSafe: true}, nil
}

// fakeClock управляемое время
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
