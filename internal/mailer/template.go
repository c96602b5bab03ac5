package mailer

import (
	"bytes"
	"html/template"
	"time"

	"tourstay/internal/domain"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<div style="font-family: 'Segoe UI', Arial, sans-serif; color: #333;">
  <h1>Booking Confirmation</h1>
  <p>Hi {{.GuestName}},</p>
  <p>Thank you for choosing <strong>{{.Hotel.Name}}</strong>. Here are your booking details:</p>
  <table cellpadding="8" cellspacing="0" style="border-collapse: collapse;">
    <tr><td><strong>Hotel</strong></td><td>{{.Hotel.Name}}</td></tr>
    <tr><td><strong>Address</strong></td><td>{{.Address}}</td></tr>
    <tr><td><strong>Room</strong></td><td>{{.Room}}</td></tr>
    <tr><td><strong>Check-in</strong></td><td>{{.CheckIn}}</td></tr>
    <tr><td><strong>Check-out</strong></td><td>{{.CheckOut}}</td></tr>
    <tr><td><strong>Guests</strong></td><td>{{.Booking.GuestCount}}</td></tr>
    <tr><td><strong>Total</strong></td><td><strong>{{.Booking.TotalPrice}} {{.Booking.Currency}}</strong></td></tr>
    <tr><td><strong>Status</strong></td><td><strong>{{.Booking.Status}}</strong></td></tr>
  </table>
  <p>Need to make changes or cancel your booking? Just reply to this email or contact our support team.</p>
  <p>Safe travels,<br><strong>The Travel Team</strong></p>
</div>
`))

var cancellationTmpl = template.Must(template.New("cancellation").Parse(`
<div>
  <p>Hi {{.GuestName}},</p>
  <p>Your booking at <strong>{{.Hotel.Name}}</strong> has been cancelled.</p>
  <p>Booking id: {{.Booking.ID}}</p>
</div>
`))

type templateData struct {
	GuestName string
	Booking   domain.Booking
	Hotel     domain.Hotel
	Address   string
	Room      string
	CheckIn   string
	CheckOut  string
}

func newTemplateData(b domain.Booking, h domain.Hotel) templateData {
	addr := h.Location.Address
	if addr == "" {
		addr = h.Location.City
	}
	room := b.RoomName
	if room == "" {
		room = "Standard"
	}
	return templateData{
		GuestName: "Guest",
		Booking:   b,
		Hotel:     h,
		Address:   addr,
		Room:      room,
		CheckIn:   b.CheckIn.Format(time.RFC1123),
		CheckOut:  b.CheckOut.Format(time.RFC1123),
	}
}

func ConfirmationHTML(b domain.Booking, h domain.Hotel) string {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, newTemplateData(b, h)); err != nil {
		return ""
	}
	return buf.String()
}

func CancellationHTML(b domain.Booking, h domain.Hotel) string {
	var buf bytes.Buffer
	if err := cancellationTmpl.Execute(&buf, newTemplateData(b, h)); err != nil {
		return ""
	}
	return buf.String()
}
