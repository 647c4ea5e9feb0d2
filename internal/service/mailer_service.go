package service

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/quizfaber/quizserver/config"
	"github.com/rs/zerolog/log"
)

// MailerService sends failure alerts to the site administrator.
type MailerService interface {
	SendAlert(subject, body string) error
}

type mailerService struct {
	cfg config.Mail
}

func NewMailerService(cfg *config.Config) MailerService {
	return &mailerService{cfg: cfg.Mail}
}

func (m *mailerService) SendAlert(subject, body string) error {
	if m.cfg.Host == "" || m.cfg.AdminAddress == "" {
		log.Debug().Msg("mail alerts not configured, alert skipped")
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + m.cfg.AdminAddress,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{m.cfg.AdminAddress}, []byte(msg)); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}
