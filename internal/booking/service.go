package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"tourstay/internal/domain"
	"tourstay/internal/mailer"
	"tourstay/internal/observability"
)

const listLimit = 200

// Repository is the persistence port for bookings.
type Repository interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, b domain.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	Find(ctx context.Context, filter domain.BookingFilter, limit int64) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// HotelFinder is the read-only view of the hotel catalog the
// orchestrator needs: existence checks and email rendering.
type HotelFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Hotel, error)
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPattern(ctx context.Context, pattern string)
	TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string)
}

type Queue interface {
	Push(ctx context.Context, job domain.EmailJob) error
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (mailer.Delivery, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Service struct {
	repo     Repository
	hotels   HotelFinder
	cache    Cache
	queue    Queue
	mailer   Mailer
	events   EventPublisher
	validate *Validator
	logger   observability.Logger

	mailFrom string
	lockTTL  time.Duration
	cacheTTL time.Duration
}

func NewService(repo Repository, hotels HotelFinder, cache Cache, queue Queue, m Mailer, events EventPublisher, logger observability.Logger, mailFrom string, lockTTL, cacheTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		hotels:   hotels,
		cache:    cache,
		queue:    queue,
		mailer:   m,
		events:   events,
		validate: NewValidator(),
		logger:   logger,
		mailFrom: mailFrom,
		lockTTL:  lockTTL,
		cacheTTL: cacheTTL,
	}
}

type CreateResult struct {
	Booking     domain.Booking
	EmailSent   bool
	EmailQueued bool
	Preview     string
}

// Create runs the booking creation pipeline: validate, check the
// persistence layer, look up the hotel, serialize on the slot lock,
// persist, refresh caches, deliver the confirmation email. A booking is
// never left persisted without a sent or durably queued confirmation; if
// both delivery and queuing fail the booking is rolled back.
func (s *Service) Create(ctx context.Context, req domain.BookingRequest) (*CreateResult, error) {
	if err := s.validate.Validate(req); err != nil {
		observability.BookingsCreated.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if err := s.repo.Ping(ctx); err != nil {
		observability.BookingsCreated.WithLabelValues("unavailable").Inc()
		return nil, errors.Wrap(err, "database not connected")
	}

	// Cheap checks precede contended ones: no lock is taken until the
	// hotel is known to exist.
	hotelID := uuid.MustParse(req.HotelID)
	hotel, err := s.hotels.FindByID(ctx, hotelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			observability.BookingsCreated.WithLabelValues("hotel_not_found").Inc()
			return nil, errors.Mark(errors.New("hotel not found"), domain.ErrNotFound)
		}
		return nil, err
	}

	checkIn, _ := time.Parse(time.RFC3339, req.CheckIn)
	checkOut, _ := time.Parse(time.RFC3339, req.CheckOut)
	lockKey := LockKey(hotelID, req.RoomName, checkIn, checkOut)

	acquired, lockErr := s.cache.TryAcquireLock(ctx, lockKey, s.lockTTL)
	if lockErr != nil {
		// Lock store down: proceed without mutual exclusion rather than
		// refusing all bookings. Availability over consistency here.
		s.logger.WithField("key", lockKey).Warn("lock store unavailable, proceeding in degraded mode: ", lockErr)
	} else if !acquired {
		observability.LockConflicts.Inc()
		observability.BookingsCreated.WithLabelValues("conflict").Inc()
		return nil, errors.Mark(errors.New("another booking is being processed for these dates"), domain.ErrConflict)
	}
	if acquired {
		// Released on every exit path so the slot frees up immediately
		// instead of waiting out the TTL.
		defer s.cache.ReleaseLock(ctx, lockKey)
	}

	b := domain.NewBooking(req)
	if err := s.repo.Create(ctx, b); err != nil {
		observability.BookingsCreated.WithLabelValues("persist_failed").Inc()
		return nil, err
	}

	s.cacheBooking(ctx, b)

	msg := mailer.Message{
		From:    s.mailFrom,
		To:      b.ContactEmail,
		Subject: "Booking confirmation - " + hotel.Name,
		HTML:    mailer.ConfirmationHTML(b, *hotel),
	}
	delivery, sendErr := s.mailer.Send(ctx, msg)
	if sendErr == nil {
		observability.BookingsCreated.WithLabelValues("committed").Inc()
		s.publishEvent(ctx, "booking.created", b)
		return &CreateResult{Booking: b, EmailSent: true, Preview: delivery.Preview}, nil
	}
	s.logger.WithField("booking_id", b.ID).Warn("confirmation email failed: ", sendErr)

	job := domain.EmailJob{
		Type:      "booking_confirmation",
		To:        msg.To,
		Subject:   msg.Subject,
		HTML:      msg.HTML,
		BookingID: b.ID,
		CreatedAt: time.Now().UTC(),
	}
	if qErr := s.queue.Push(ctx, job); qErr == nil {
		observability.EmailsSent.WithLabelValues("queued").Inc()
		observability.BookingsCreated.WithLabelValues("committed_queued").Inc()
		s.publishEvent(ctx, "booking.created", b)
		return &CreateResult{Booking: b, EmailQueued: true}, nil
	} else {
		s.logger.WithField("booking_id", b.ID).Error("failed to enqueue confirmation email: ", qErr)
	}

	// Neither sent nor queued: a booking with no confirmation channel is
	// indistinguishable from a lost booking, so it must not exist.
	if delErr := s.repo.DeleteByID(ctx, b.ID); delErr != nil {
		s.logger.WithField("booking_id", b.ID).Error("rollback delete failed: ", delErr)
	}
	s.cache.Delete(ctx, SnapshotKey(b.ID))
	s.cache.DeleteByPattern(ctx, ListPattern)
	observability.BookingsCreated.WithLabelValues("rolled_back").Inc()
	return nil, errors.Mark(
		errors.Wrap(sendErr, "booking failed: confirmation email could not be sent"),
		domain.ErrDeliveryFailed,
	)
}

type EmailStatus struct {
	Sent   bool   `json:"sent"`
	Queued bool   `json:"queued,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type CancelResult struct {
	Booking domain.Booking
	Email   EmailStatus
}

// Cancel transitions a booking to cancelled and sends the cancellation
// email best-effort with the same queue fallback as creation, but never
// undoes the cancellation when notification fails: losing a
// cancellation notice is safe, losing a confirmation is not.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*CancelResult, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Mark(errors.New("booking not found"), domain.ErrNotFound)
		}
		return nil, err
	}
	if !b.CanCancel() {
		return nil, errors.Mark(errors.New("cannot cancel a completed booking"), domain.ErrConflict)
	}

	if err := s.repo.UpdateStatus(ctx, id, domain.StatusCancelled); err != nil {
		return nil, err
	}
	b.Status = domain.StatusCancelled

	hotel, err := s.hotels.FindByID(ctx, b.HotelID)
	if err != nil {
		// The hotel snapshot is only needed for rendering; cancellation
		// stands regardless.
		s.logger.WithField("hotel_id", b.HotelID).Warn("hotel lookup failed during cancellation: ", err)
		hotel = &domain.Hotel{ID: b.HotelID, Name: "your hotel"}
	}

	status := s.sendCancellationEmail(ctx, *b, *hotel)

	s.cacheBooking(ctx, *b)
	s.publishEvent(ctx, "booking.cancelled", *b)

	return &CancelResult{Booking: *b, Email: status}, nil
}

func (s *Service) sendCancellationEmail(ctx context.Context, b domain.Booking, hotel domain.Hotel) EmailStatus {
	msg := mailer.Message{
		From:    s.mailFrom,
		To:      b.ContactEmail,
		Subject: "Booking cancelled - " + hotel.Name,
		HTML:    mailer.CancellationHTML(b, hotel),
	}
	if _, err := s.mailer.Send(ctx, msg); err == nil {
		return EmailStatus{Sent: true}
	} else {
		s.logger.WithField("booking_id", b.ID).Warn("cancellation email failed: ", err)
		job := domain.EmailJob{
			Type:      "booking_cancellation",
			To:        msg.To,
			Subject:   msg.Subject,
			HTML:      msg.HTML,
			BookingID: b.ID,
			CreatedAt: time.Now().UTC(),
		}
		if qErr := s.queue.Push(ctx, job); qErr != nil {
			s.logger.WithField("booking_id", b.ID).Error("failed to enqueue cancellation email: ", qErr)
			return EmailStatus{Reason: err.Error()}
		}
		return EmailStatus{Queued: true, Reason: err.Error()}
	}
}

// Get is a read-through: cache first, then persistence, populating the
// cache on a miss.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	if data, ok := s.cache.Get(ctx, SnapshotKey(id)); ok {
		var b domain.Booking
		if err := json.Unmarshal(data, &b); err == nil {
			return &b, nil
		}
	}

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Mark(errors.New("booking not found"), domain.ErrNotFound)
		}
		return nil, err
	}
	s.cacheBooking(ctx, *b)
	return b, nil
}

func (s *Service) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	key := ListKey(filter)
	if data, ok := s.cache.Get(ctx, key); ok {
		var bookings []domain.Booking
		if err := json.Unmarshal(data, &bookings); err == nil {
			return bookings, nil
		}
	}

	bookings, err := s.repo.Find(ctx, filter, listLimit)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(bookings); err == nil {
		s.cache.Set(ctx, key, data, s.cacheTTL)
	}
	return bookings, nil
}

// cacheBooking writes the booking snapshot under its id key and purges
// every cached list: any filter could now be stale.
func (s *Service) cacheBooking(ctx context.Context, b domain.Booking) {
	if data, err := json.Marshal(b); err == nil {
		s.cache.Set(ctx, SnapshotKey(b.ID), data, s.cacheTTL)
	}
	s.cache.DeleteByPattern(ctx, ListPattern)
}

func (s *Service) publishEvent(ctx context.Context, eventType string, b domain.Booking) {
	if s.events == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"bookingId": b.ID,
		"hotelId":   b.HotelID,
		"status":    b.Status,
	})
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}
	if err := s.events.Publish(ctx, eventType, msg); err != nil {
		s.logger.WithField("event", eventType).Warn("event publish failed: ", err)
	}
}
