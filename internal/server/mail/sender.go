// Package mail delivers one-time codes to a subject-controlled email address.
// Delivery is behind a narrow interface so transports and tests can swap the
// SMTP implementation out.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// Sender delivers a one-time code to an address.
type Sender interface {
	SendOtp(ctx context.Context, toEmail, code string) error
}

// SMTPSender sends codes through a STARTTLS SMTP relay.
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewSMTPSender(host, port, user, password, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, password: password, from: from}
}

func (s *SMTPSender) SendOtp(ctx context.Context, toEmail, code string) error {
	subject := "Your verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in a few minutes.", code)

	msg := []byte("To: " + toEmail + "\r\n" +
		"From: " + s.from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body)

	client, err := smtp.Dial(s.host + ":" + s.port)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
		return fmt.Errorf("smtp starttls: %w", err)
	}

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err = client.Mail(s.from); err != nil {
		return err
	}
	if err = client.Rcpt(toEmail); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// LogSender is used when no SMTP relay is configured: the code is only
// written to the log, which is enough for development setups.
type LogSender struct {
	Log func(ctx context.Context, msg string, args ...any)
}

func (s *LogSender) SendOtp(ctx context.Context, toEmail, code string) error {
	s.Log(ctx, "otp delivery (no smtp configured)", "to", toEmail, "code", code)
	return nil
}
