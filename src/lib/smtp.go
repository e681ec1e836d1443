package lib

import (
	"fmt"
	"log"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func GetSMTPClient(cfg SMTPConfig) (*mail.Client, error) {
	c, err := mail.NewClient(
		cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return c, nil
}

type SendMailInput struct {
	From     string
	FromName string
	To       []string
	Subject  string
	Body     string
	Html     bool
}

func NewMailMessage(in *SendMailInput) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(in.FromName, in.From); err != nil {
		return nil, fmt.Errorf("set From address: %w", err)
	}
	if err := msg.To(in.To...); err != nil {
		return nil, fmt.Errorf("set To address: %w", err)
	}
	msg.Subject(in.Subject)
	if in.Html {
		msg.SetBodyString(mail.TypeTextHTML, in.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, in.Body)
	}
	return msg, nil
}

// Mailer sends one message per call over a fresh SMTP session.
type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Send(in *SendMailInput) error {
	if in.From == "" {
		in.From = m.cfg.From
	}
	msg, err := NewMailMessage(in)
	if err != nil {
		return err
	}
	c, err := GetSMTPClient(m.cfg)
	if err != nil {
		return err
	}
	return c.DialAndSend(msg)
}
