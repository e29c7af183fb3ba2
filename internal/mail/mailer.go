// Package mail delivers the account-verification email.
package mail

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/BrayanSValencia/smartmart/internal/config"
)

// Sender sends transactional mail.
type Sender interface {
	SendVerification(to, link string) error
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender returns a sender bound to the configured relay.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendVerification(to, link string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Please verify your email")
	m.SetBody("text/html", verificationBody(link))

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

func verificationBody(link string) string {
	return fmt.Sprintf(`<p>Welcome! Please click the link below to verify your email:</p>
<a href="%s">%s</a>
<p>This link will expire in 5 minutes.</p>`, link, link)
}
