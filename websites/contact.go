package websites

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"eventweb/apperr"
	"eventweb/mailer"

	"go.uber.org/zap"
)

// SendContact forwards a visitor's contact form to the event organizer.
func (s *Service) SendContact(ctx context.Context, form mailer.ContactForm) error {
	form.ViewerEmail = strings.TrimSpace(form.ViewerEmail)
	form.OrganizerEmail = strings.TrimSpace(form.OrganizerEmail)
	if form.ViewerEmail == "" {
		return apperr.Validation("Please provide your email address")
	}
	if form.OrganizerEmail == "" {
		return apperr.Validation("Please include organizer email address in the request body")
	}
	if _, err := mail.ParseAddress(form.ViewerEmail); err != nil {
		return apperr.Validation("Invalid email address")
	}
	if _, err := mail.ParseAddress(form.OrganizerEmail); err != nil {
		return apperr.Validation("Invalid organizer email address")
	}

	msg, err := mailer.ContactMessage(form, s.cfg.OfficeEmail)
	if err != nil {
		return err
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		if errors.Is(err, mailer.ErrHeaderInjection) {
			return apperr.Validation("Invalid characters in contact form")
		}
		s.log.Error("contact email failed", zap.String("organizer", form.OrganizerEmail), zap.Error(err))
		return apperr.Wrap(apperr.KindEmailDeliveryFailed, "Failed to send email", err)
	}
	s.log.Info("contact email sent", zap.String("organizer", form.OrganizerEmail))
	return nil
}
