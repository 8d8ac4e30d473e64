package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type Mailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	Enabled bool
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	m := &Mailer{
		Enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *Mailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or SMTP_FROM)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend returned %d: %s", res.StatusCode, string(body))
	}

	return res.Header.Get("X-Message-Id"), nil
}

var _ Service = (*Mailer)(nil)
