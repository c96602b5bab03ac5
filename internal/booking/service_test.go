package booking_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourstay/internal/booking"
	"tourstay/internal/domain"
	"tourstay/internal/mailer"
	"tourstay/internal/observability"
)

type fakeRepo struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]domain.Booking
	created   []uuid.UUID
	pingErr   error
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: map[uuid.UUID]domain.Booking{}}
}

func (r *fakeRepo) Ping(ctx context.Context) error { return r.pingErr }

func (r *fakeRepo) Create(ctx context.Context, b domain.Booking) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = b
	r.created = append(r.created, b.ID)
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (r *fakeRepo) Find(ctx context.Context, filter domain.BookingFilter, limit int64) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Booking{}
	for _, b := range r.bookings {
		if filter.UserID != nil && (b.UserID == nil || *b.UserID != *filter.UserID) {
			continue
		}
		if filter.HotelID != nil && b.HotelID != *filter.HotelID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = status
	r.bookings[id] = b
	return nil
}

func (r *fakeRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bookings, id)
	return nil
}

type fakeHotels struct {
	hotels map[uuid.UUID]domain.Hotel
}

func (h *fakeHotels) FindByID(ctx context.Context, id uuid.UUID) (*domain.Hotel, error) {
	hotel, ok := h.hotels[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &hotel, nil
}

type fakeCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	locks    map[string]bool
	lockErr  error
	released []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}, locks: map[string]bool{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *fakeCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *fakeCache) DeleteByPattern(ctx context.Context, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
}

func (c *fakeCache) TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lockErr != nil {
		return false, c.lockErr
	}
	if c.locks[key] {
		return false, nil
	}
	c.locks[key] = true
	return true, nil
}

func (c *fakeCache) ReleaseLock(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, key)
	c.released = append(c.released, key)
}

func (c *fakeCache) lockHeld() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks) > 0
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []domain.EmailJob
	err  error
}

func (q *fakeQueue) Push(ctx context.Context, job domain.EmailJob) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

type fakeMailer struct {
	mu      sync.Mutex
	err     error
	preview string
	block   chan struct{}
	sent    []mailer.Message
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) (mailer.Delivery, error) {
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return mailer.Delivery{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return mailer.Delivery{Preview: m.preview}, nil
}

type fakeEvents struct {
	mu   sync.Mutex
	keys []string
}

func (e *fakeEvents) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, key)
	return nil
}

type fixture struct {
	svc    *booking.Service
	repo   *fakeRepo
	hotels *fakeHotels
	cache  *fakeCache
	queue  *fakeQueue
	mailer *fakeMailer
	events *fakeEvents
	hotel  domain.Hotel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hotel := domain.Hotel{
		ID:   uuid.New(),
		Name: "Everest View",
		Location: domain.Location{
			Address: "Namche Bazaar",
			City:    "Solukhumbu",
			Country: "Nepal",
		},
		Rooms: []domain.Room{{Name: "Double", PricePerNight: 100}},
	}
	f := &fixture{
		repo:   newFakeRepo(),
		hotels: &fakeHotels{hotels: map[uuid.UUID]domain.Hotel{hotel.ID: hotel}},
		cache:  newFakeCache(),
		queue:  &fakeQueue{},
		mailer: &fakeMailer{},
		events: &fakeEvents{},
		hotel:  hotel,
	}
	f.svc = booking.NewService(
		f.repo, f.hotels, f.cache, f.queue, f.mailer, f.events,
		observability.NewLogger(), "bookings@tourstay.test",
		30*time.Second, 5*time.Minute,
	)
	return f
}

func (f *fixture) request() domain.BookingRequest {
	return domain.BookingRequest{
		HotelID:      f.hotel.ID.String(),
		RoomName:     "Double",
		CheckIn:      "2025-06-01T00:00:00Z",
		CheckOut:     "2025-06-05T00:00:00Z",
		GuestCount:   2,
		TotalPrice:   400,
		Currency:     "USD",
		ContactEmail: "a@b.com",
	}
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	assert.False(t, res.EmailQueued)

	b := res.Booking
	assert.Equal(t, domain.StatusBooked, b.Status)
	assert.Equal(t, f.hotel.ID, b.HotelID)
	assert.Equal(t, "Double", b.RoomName)
	assert.Equal(t, 2, b.GuestCount)
	assert.Equal(t, 400.0, b.TotalPrice)
	assert.Equal(t, "a@b.com", b.ContactEmail)

	stored, err := f.repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBooked, stored.Status)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "a@b.com", f.mailer.sent[0].To)
	assert.Contains(t, f.mailer.sent[0].Subject, "Everest View")

	// Lock released on the success path, not left to expire.
	assert.False(t, f.cache.lockHeld())
	assert.NotEmpty(t, f.cache.released)

	assert.Equal(t, []string{"booking.created"}, f.events.keys)
}

func TestCreate_Defaults(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.GuestCount = 0
	req.Currency = ""
	res, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Booking.GuestCount)
	assert.Equal(t, "USD", res.Booking.Currency)
}

func TestCreate_ValidationFailure_NoSideEffects(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.CheckOut = req.CheckIn
	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Contains(t, err.Error(), "checkOut")

	assert.Empty(t, f.repo.bookings)
	assert.Empty(t, f.mailer.sent)
	assert.False(t, f.cache.lockHeld())
	assert.Empty(t, f.cache.released)
}

func TestCreate_MissingContactEmail(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.ContactEmail = ""
	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Empty(t, f.repo.bookings)
}

func TestCreate_PersistenceUnreachable(t *testing.T) {
	f := newFixture(t)
	f.repo.pingErr = errors.Mark(errors.New("no reachable servers"), domain.ErrUnavailable)

	_, err := f.svc.Create(context.Background(), f.request())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	assert.Empty(t, f.repo.bookings)
	assert.False(t, f.cache.lockHeld())
}

func TestCreate_HotelNotFound(t *testing.T) {
	f := newFixture(t)

	req := f.request()
	req.HotelID = uuid.New().String()
	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	// No lock is taken before the hotel check passes.
	assert.Empty(t, f.cache.released)
}

func TestCreate_ConcurrentSameSlot_ExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// First request parks inside email delivery while holding the lock.
	f.mailer.block = make(chan struct{})

	type outcome struct {
		res *booking.CreateResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := f.svc.Create(ctx, f.request())
		first <- outcome{res, err}
	}()

	require.Eventually(t, f.cache.lockHeld, time.Second, time.Millisecond)

	_, err := f.svc.Create(ctx, f.request())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "another booking is being processed")

	close(f.mailer.block)
	got := <-first
	require.NoError(t, got.err)
	assert.True(t, got.res.EmailSent)

	// Slot is free again once the winner finishes.
	f.mailer.block = nil
	_, err = f.svc.Create(ctx, f.request())
	require.NoError(t, err)
}

func TestCreate_DifferentSlots_NoContention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)

	req := f.request()
	req.RoomName = "Suite"
	_, err = f.svc.Create(ctx, req)
	require.NoError(t, err)
}

func TestCreate_LockStoreDown_DegradedMode(t *testing.T) {
	f := newFixture(t)
	f.cache.lockErr = errors.New("connection refused")

	res, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	// Nothing was acquired, so nothing is released.
	assert.Empty(t, f.cache.released)
}

func TestCreate_EmailFails_QueueAccepts(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp: connection reset")
	ctx := context.Background()

	res, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)
	assert.False(t, res.EmailSent)
	assert.True(t, res.EmailQueued)

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, "booking_confirmation", job.Type)
	assert.Equal(t, "a@b.com", job.To)
	assert.Equal(t, res.Booking.ID, job.BookingID)

	// Booking stands and is retrievable.
	got, err := f.svc.Get(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBooked, got.Status)

	assert.False(t, f.cache.lockHeld())
}

func TestCreate_EmailFails_QueueFails_RollsBack(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp: connection reset")
	f.queue.err = errors.New("queue unavailable")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.request())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDeliveryFailed))
	assert.Contains(t, err.Error(), "confirmation email could not be sent")

	// The record must not exist afterwards, not in the store and not in
	// the cache.
	assert.Empty(t, f.repo.bookings)
	require.Len(t, f.repo.created, 1)
	_, err = f.svc.Get(ctx, f.repo.created[0])
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Empty(t, f.events.keys)
	assert.False(t, f.cache.lockHeld())
}

func TestCancel_TransitionsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)
	id := created.Booking.ID

	res, err := f.svc.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, res.Booking.Status)
	assert.True(t, res.Email.Sent)

	// Second cancel keeps the status; it is not required to skip the email.
	res, err = f.svc.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, res.Booking.Status)

	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestCancel_CompletedBooking_Conflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)
	require.NoError(t, f.repo.UpdateStatus(ctx, created.Booking.ID, domain.StatusCompleted))

	_, err = f.svc.Cancel(ctx, created.Booking.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cancel(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCancel_EmailFailure_DoesNotUndoCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)

	f.mailer.err = errors.New("smtp down")
	f.queue.err = errors.New("queue down")
	res, err := f.svc.Cancel(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, res.Booking.Status)
	assert.False(t, res.Email.Sent)
	assert.False(t, res.Email.Queued)
	assert.NotEmpty(t, res.Email.Reason)

	got, err := f.svc.Get(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestCancel_EmailFailure_Queues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)

	f.mailer.err = errors.New("smtp down")
	res, err := f.svc.Cancel(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.True(t, res.Email.Queued)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "booking_cancellation", f.queue.jobs[0].Type)
}

func TestGet_ReadThroughPopulatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)
	id := created.Booking.ID

	// Evict and read through persistence.
	f.cache.Delete(ctx, booking.SnapshotKey(id))
	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, ok := f.cache.Get(ctx, booking.SnapshotKey(id))
	assert.True(t, ok)
}

func TestList_CacheInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)

	filter := domain.BookingFilter{HotelID: &f.hotel.ID}
	first, err := f.svc.List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A second create must purge the cached list so the next read sees
	// both bookings.
	req := f.request()
	req.RoomName = "Suite"
	_, err = f.svc.Create(ctx, req)
	require.NoError(t, err)

	second, err := f.svc.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestList_DistinctFiltersDistinctKeys(t *testing.T) {
	userID := uuid.New()
	hotelID := uuid.New()

	all := booking.ListKey(domain.BookingFilter{})
	byUser := booking.ListKey(domain.BookingFilter{UserID: &userID})
	byHotel := booking.ListKey(domain.BookingFilter{HotelID: &hotelID})
	both := booking.ListKey(domain.BookingFilter{UserID: &userID, HotelID: &hotelID})

	keys := map[string]bool{all: true, byUser: true, byHotel: true, both: true}
	assert.Len(t, keys, 4)
}

func TestLockKey_SlotSignature(t *testing.T) {
	hotelID := uuid.New()
	in, _ := time.Parse(time.RFC3339, "2025-06-01T00:00:00Z")
	out, _ := time.Parse(time.RFC3339, "2025-06-05T00:00:00Z")

	key := booking.LockKey(hotelID, "Double", in, out)
	assert.Equal(t, "booking:lock:"+hotelID.String()+":Double:2025-06-01T00:00:00Z:2025-06-05T00:00:00Z", key)

	// Guest count and price are deliberately absent from the signature;
	// an empty room name collapses to "any".
	assert.Equal(t,
		"booking:lock:"+hotelID.String()+":any:2025-06-01T00:00:00Z:2025-06-05T00:00:00Z",
		booking.LockKey(hotelID, "", in, out))
}
