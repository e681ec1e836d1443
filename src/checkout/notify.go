package checkout

import (
	"arena/src/config"
	"arena/src/lib"
	"arena/src/models"
	"context"
	"fmt"
	"strings"
)

// MailSender is satisfied by the SMTP mailer and the SES and SQS transports.
type MailSender interface {
	Send(in *lib.SendMailInput) error
}

// MailNotifier e-mails the customer when a booking is confirmed.
type MailNotifier struct {
	mailer MailSender
}

func NewMailNotifier(mailer MailSender) *MailNotifier {
	return &MailNotifier{mailer: mailer}
}

func (n *MailNotifier) BookingConfirmed(_ context.Context, booking *models.Booking) error {
	if booking.User == nil || booking.User.Email == "" {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYour booking #%d is confirmed.\n\n", booking.User.Name, booking.ID)
	for _, d := range booking.Details {
		if d.Slot == nil {
			continue
		}
		court := ""
		if d.Slot.Court != nil {
			court = d.Slot.Court.Name
		}
		start := d.Slot.StartAt.In(config.BusinessLocation)
		fmt.Fprintf(&b, "- %s %s %s\n", court, start.Format(config.DATE_FORMAT), start.Format("15:04"))
	}
	fmt.Fprintf(&b, "\nTotal paid: %d\n", booking.TotalPrice+booking.ProcessingFee)
	return n.mailer.Send(&lib.SendMailInput{
		FromName: "Arena",
		To:       []string{booking.User.Email},
		Subject:  fmt.Sprintf("Booking #%d confirmed", booking.ID),
		Body:     b.String(),
	})
}
