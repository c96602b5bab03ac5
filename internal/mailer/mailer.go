package mailer

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	"tourstay/internal/config"
	"tourstay/internal/domain"
	"tourstay/internal/observability"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Delivery is the result of a successful send. Preview is set when the
// message went out through the non-production fallback channel and a
// disposable-inbox preview is available.
type Delivery struct {
	Preview string
}

// SMTPMailer attempts direct delivery through the configured transport
// first. On failure it retries through the fallback transport when one
// is configured (never in production). It does not enqueue; queuing
// policy belongs to the caller.
type SMTPMailer struct {
	primary    *gomail.Dialer
	fallback   *gomail.Dialer
	previewURL string
	logger     observability.Logger
}

func New(cfg *config.Config, logger observability.Logger) *SMTPMailer {
	m := &SMTPMailer{
		primary: gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass),
		logger:  logger,
	}
	if !cfg.Production() && cfg.FallbackSMTP.Host != "" {
		m.fallback = gomail.NewDialer(cfg.FallbackSMTP.Host, cfg.FallbackSMTP.Port, cfg.FallbackSMTP.User, cfg.FallbackSMTP.Pass)
		m.previewURL = cfg.PreviewURL
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) (Delivery, error) {
	id := uuid.New().String()
	gm := gomail.NewMessage()
	gm.SetHeader("From", msg.From)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetHeader("Message-ID", "<"+id+"@tourstay>")
	gm.SetBody("text/html", msg.HTML)

	primaryErr := m.primary.DialAndSend(gm)
	if primaryErr == nil {
		observability.EmailsSent.WithLabelValues("primary").Inc()
		return Delivery{}, nil
	}
	m.logger.WithField("to", msg.To).Warn("primary email delivery failed: ", primaryErr)

	if m.fallback == nil {
		return Delivery{}, errors.Mark(primaryErr, domain.ErrDeliveryFailed)
	}

	if err := m.fallback.DialAndSend(gm); err != nil {
		combined := errors.WithSecondaryError(primaryErr, err)
		return Delivery{}, errors.Mark(combined, domain.ErrDeliveryFailed)
	}
	observability.EmailsSent.WithLabelValues("fallback").Inc()

	d := Delivery{}
	if m.previewURL != "" {
		d.Preview = m.previewURL + "/" + id
	}
	return d, nil
}
