package queue

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// ResetMessage renders the password reset email for ev.
func ResetMessage(ev PasswordResetRequested) Message {
	return Message{
		To:      ev.Email,
		Subject: "Your password reset token (valid for 10 min)",
		Body: fmt.Sprintf("Hi %s,\n\nForgot your password? Submit a PATCH request with your new password "+
			"and passwordConfirm to: %s\n\nThe link expires at %s.\n"+
			"If you didn't forget your password, please ignore this email.\n",
			ev.Username, ev.ResetURL, ev.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")),
	}
}

// SMTPMailer sends mail over implicit TLS, as port 465 servers expect.
type SMTPMailer struct {
	host, port         string
	username, password string
	from               string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

func (s *SMTPMailer) Send(_ context.Context, m Message) error {
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", s.from) +
			fmt.Sprintf("To: %s\r\n", m.To) +
			fmt.Sprintf("Subject: %s\r\n", m.Subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			m.Body,
	)

	conn, err := tls.Dial("tcp", s.host+":"+s.port, &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if s.username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return err
		}
	}
	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(m.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

// LogMailer writes messages to the log instead of sending them.  It is used
// when no SMTP host is configured.
type LogMailer struct{ Log *zap.Logger }

func (l LogMailer) Send(_ context.Context, m Message) error {
	l.Log.Info("mail (not sent, no SMTP host configured)",
		zap.String("to", m.To), zap.String("subject", m.Subject), zap.String("body", m.Body))
	return nil
}
