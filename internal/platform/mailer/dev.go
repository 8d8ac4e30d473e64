package mailer

import (
	"github.com/eprison/visitor-management/pkg/logger"
)

// DevMailer logs instead of sending; the default when EMAIL_DEV_MODE is set.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"body", text,
	)
	return "dev", nil
}

var _ Service = (*DevMailer)(nil)
