package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

type Booking struct {
	ID                   uuid.UUID  `json:"id" bson:"_id"`
	UserID               *uuid.UUID `json:"userId,omitempty" bson:"userId,omitempty"`
	HotelID              uuid.UUID  `json:"hotelId" bson:"hotelId"`
	RoomName             string     `json:"roomName,omitempty" bson:"roomName,omitempty"`
	CheckIn              time.Time  `json:"checkIn" bson:"checkIn"`
	CheckOut             time.Time  `json:"checkOut" bson:"checkOut"`
	GuestCount           int        `json:"guestCount" bson:"guestCount"`
	TotalPrice           float64    `json:"totalPrice" bson:"totalPrice"`
	Currency             string     `json:"currency" bson:"currency"`
	Status               string     `json:"status" bson:"status"`
	PaymentMethod        string     `json:"paymentMethod,omitempty" bson:"paymentMethod,omitempty"`
	PaymentTransactionID string     `json:"paymentTransactionId,omitempty" bson:"paymentTransactionId,omitempty"`
	ContactEmail         string     `json:"contactEmail" bson:"contactEmail"`
	CreatedAt            time.Time  `json:"createdAt" bson:"createdAt"`
}

// BookingRequest is the inbound payload for booking creation. Field names
// are part of the wire contract with the frontend.
type BookingRequest struct {
	UserID               string  `json:"userId,omitempty" validate:"omitempty,uuid"`
	HotelID              string  `json:"hotelId" validate:"required,uuid"`
	RoomName             string  `json:"roomName,omitempty" validate:"max=200"`
	CheckIn              string  `json:"checkIn" validate:"required"`
	CheckOut             string  `json:"checkOut" validate:"required"`
	GuestCount           int     `json:"guestCount" validate:"min=0,max=20"`
	TotalPrice           float64 `json:"totalPrice" validate:"min=0"`
	Currency             string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	PaymentMethod        string  `json:"paymentMethod,omitempty"`
	PaymentTransactionID string  `json:"paymentTransactionId,omitempty"`
	ContactEmail         string  `json:"contactEmail" validate:"required,email"`
}

// NewBooking builds a persisted booking from an already-validated request.
func NewBooking(req BookingRequest) Booking {
	b := Booking{
		ID:                   uuid.New(),
		HotelID:              uuid.MustParse(req.HotelID),
		RoomName:             req.RoomName,
		GuestCount:           req.GuestCount,
		TotalPrice:           req.TotalPrice,
		Currency:             req.Currency,
		Status:               StatusBooked,
		PaymentMethod:        req.PaymentMethod,
		PaymentTransactionID: req.PaymentTransactionID,
		ContactEmail:         req.ContactEmail,
		CreatedAt:            time.Now().UTC(),
	}
	b.CheckIn, _ = time.Parse(time.RFC3339, req.CheckIn)
	b.CheckOut, _ = time.Parse(time.RFC3339, req.CheckOut)
	if req.UserID != "" {
		if id, err := uuid.Parse(req.UserID); err == nil {
			b.UserID = &id
		}
	}
	if b.GuestCount == 0 {
		b.GuestCount = 1
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	return b
}

// BookingFilter narrows list reads. Nil fields match everything.
type BookingFilter struct {
	UserID  *uuid.UUID
	HotelID *uuid.UUID
}

// CanCancel reports whether the status transition to cancelled is allowed.
// Cancelling an already-cancelled booking is permitted so cancellation
// stays idempotent in effect; completed bookings never go back.
func (b Booking) CanCancel() bool {
	return b.Status == StatusBooked || b.Status == StatusCancelled
}
