package bookings

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
)

// RenderTicket draws a one-page A4 e-ticket for a paid booking. The booking
// should have its trip and route loaded; missing parts print as "-".
func RenderTicket(b *Booking, issuedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("TwendeBus E-Ticket", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "TWENDEBUS E-TICKET")
	pdf.Ln(12)

	route, departure, bus := "-", "-", "-"
	if b.Trip != nil {
		departure = b.Trip.DepartureTime.Format("Mon 02 Jan 2006 15:04 MST")
		if b.Trip.BusRegistration != "" {
			bus = b.Trip.BusRegistration
		}
		if b.Trip.Route != nil {
			route = fmt.Sprintf("%s (%s to %s)", b.Trip.Route.Name, b.Trip.Route.Origin, b.Trip.Route.Destination)
		}
	}

	lines := []string{
		"Booking     : " + b.ID.String(),
		"Status      : " + b.Status.String(),
		"Route       : " + route,
		"Departure   : " + departure,
		"Bus         : " + bus,
		"Seats       : " + describeSeats(b.SeatNumbers()),
		"Boarding at : " + orDash(b.StartStop),
		"Alight at   : " + orDash(b.EndStop),
		"Fare paid   : KES " + b.FarePaid.StringFixed(2),
	}

	pdf.SetFont("Courier", "", 12)
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this ticket when boarding. Cancellations 5 or more hours before departure are refunded in full, 1 to 5 hours at 50%, and later cancellations are not refunded.", "", "", false)
	pdf.Ln(2)
	pdf.Cell(0, 6, "Issued "+issuedAt.UTC().Format(time.RFC1123))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
