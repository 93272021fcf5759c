package mailer

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/campus-ems/utils"
	"gopkg.in/gomail.v2"
)

type Email struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(email Email) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *SMTPSender) Send(email Email) error {
	if email.To == "" {
		return fmt.Errorf("no recipient specified")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", email.To, err)
	}
	return nil
}

// LogSender writes mail to the info log instead of delivering it. Used when
// SMTP is not configured.
type LogSender struct{}

func (LogSender) Send(email Email) error {
	utils.InfoLogger.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
	}).Info("Mail delivery disabled, message logged only")
	return nil
}

// New picks SMTP when a host is configured.
func New(cfg SMTPConfig) Sender {
	if cfg.Host == "" {
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}

// Recorder keeps sent mail in memory.
type Recorder struct {
	mu   sync.Mutex
	Sent []Email
	Err  error
}

func (r *Recorder) Send(email Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, email)
	return nil
}

func (r *Recorder) Messages() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Email, len(r.Sent))
	copy(out, r.Sent)
	return out
}
