package domain

import (
	"time"

	"github.com/google/uuid"
)

type Hotel struct {
	ID          uuid.UUID `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Location    Location  `json:"location" bson:"location"`
	Amenities   []string  `json:"amenities,omitempty" bson:"amenities,omitempty"`
	Rooms       []Room    `json:"rooms" bson:"rooms"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Location struct {
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
}

type Room struct {
	Name          string  `json:"name" bson:"name" validate:"required,oneof=Single Double Suite Deluxe"`
	Description   string  `json:"description,omitempty" bson:"description,omitempty"`
	PricePerNight float64 `json:"pricePerNight" bson:"pricePerNight" validate:"min=0"`
	MaxOccupancy  int     `json:"maxOccupancy,omitempty" bson:"maxOccupancy,omitempty"`
}

type Store struct {
	ID          uuid.UUID  `json:"id" bson:"_id"`
	Owner       *uuid.UUID `json:"owner,omitempty" bson:"owner,omitempty"`
	Name        string     `json:"name" bson:"name"`
	Slug        string     `json:"slug" bson:"slug"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Category    string     `json:"category,omitempty" bson:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty" bson:"tags,omitempty"`
	Phone       string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Email       string     `json:"email,omitempty" bson:"email,omitempty"`
	Website     string     `json:"website,omitempty" bson:"website,omitempty"`
	PriceRange  string     `json:"priceRange,omitempty" bson:"priceRange,omitempty"`
	Address     Location   `json:"address" bson:"address"`
	Amenities   []string   `json:"amenities,omitempty" bson:"amenities,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
}

// EmailJob is a queued transactional email, pushed when synchronous
// delivery fails and consumed by the email worker.
type EmailJob struct {
	Type      string    `json:"type"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"html"`
	BookingID uuid.UUID `json:"bookingId"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
}
