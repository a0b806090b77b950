package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"easypos/internal/config"
)

// Mailer wraps SMTP configuration for sending closure alert emails with the
// reconciliation PDF attached.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// SendClosureAlert mails the supervisor when a closure lands in the alert
// tier, attaching the closure report bytes.
func (m *Mailer) SendClosureAlert(to, subject, body string, attachment []byte, filename string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if len(attachment) > 0 {
		if _, err := e.Attach(bytes.NewReader(attachment), filename, "application/pdf"); err != nil {
			return fmt.Errorf("mailer: attach report: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
