package booking

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"tourstay/internal/domain"
)

// Validator checks booking payloads. It is fail-fast: the first broken
// rule is returned with a human-readable message, errors are not
// aggregated.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(req domain.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return invalid(translate(verrs[0]))
		}
		return invalid(err.Error())
	}

	checkIn, err := time.Parse(time.RFC3339, req.CheckIn)
	if err != nil {
		return invalid("checkIn must be a valid RFC3339 date")
	}
	checkOut, err := time.Parse(time.RFC3339, req.CheckOut)
	if err != nil {
		return invalid("checkOut must be a valid RFC3339 date")
	}
	if !checkOut.After(checkIn) {
		return invalid("checkOut must be strictly after checkIn")
	}
	return nil
}

func invalid(msg string) error {
	return errors.Mark(errors.New(msg), domain.ErrInvalidInput)
}

func translate(fe validator.FieldError) string {
	field := jsonField(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "alpha":
		return fmt.Sprintf("%s must contain only letters", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fe.Error()
	}
}

// jsonField maps struct field names to their wire names so validation
// messages match what the client actually sent.
func jsonField(name string) string {
	switch name {
	case "UserID":
		return "userId"
	case "HotelID":
		return "hotelId"
	case "RoomName":
		return "roomName"
	case "CheckIn":
		return "checkIn"
	case "CheckOut":
		return "checkOut"
	case "GuestCount":
		return "guestCount"
	case "TotalPrice":
		return "totalPrice"
	case "Currency":
		return "currency"
	case "ContactEmail":
		return "contactEmail"
	default:
		return name
	}
}
