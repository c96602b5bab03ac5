package booking

import (
	"time"

	"github.com/google/uuid"

	"tourstay/internal/domain"
)

// Cache and lock key layout. The lock key is derived from the exact slot
// signature (hotel, room, date range): it serializes requests for the
// identical slot, not all bookings for the hotel. Two requests whose
// roomName differs only in whitespace produce different keys; known edge
// case, left as is.

const ListPattern = "bookings:*"

func SnapshotKey(id uuid.UUID) string {
	return "booking:" + id.String()
}

func ListKey(filter domain.BookingFilter) string {
	user, hotel := "", ""
	if filter.UserID != nil {
		user = filter.UserID.String()
	}
	if filter.HotelID != nil {
		hotel = filter.HotelID.String()
	}
	return "bookings:user=" + user + ":hotel=" + hotel
}

func LockKey(hotelID uuid.UUID, roomName string, checkIn, checkOut time.Time) string {
	room := roomName
	if room == "" {
		room = "any"
	}
	return "booking:lock:" + hotelID.String() + ":" + room + ":" +
		checkIn.UTC().Format(time.RFC3339) + ":" + checkOut.UTC().Format(time.RFC3339)
}
