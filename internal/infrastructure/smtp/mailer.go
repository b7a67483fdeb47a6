package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/go-tasks-api/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := net.JoinHostPort(m.host, m.port)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(nil); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// logMailer writes messages to the structured log instead of sending them.
// Used with NOTIFY_CHANNEL=log in local development.
type logMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) Mailer { return &logMailer{log: log} }

func (m *logMailer) SendEmail(_ context.Context, to, subject, body string) error {
	m.log.Info("email not sent (log channel)", "to", to, "subject", subject, "body", body, "at", time.Now().UTC())
	return nil
}

// CodeSender delivers one-time codes through a Mailer.
type CodeSender struct {
	mailer  Mailer
	subject string
}

func NewCodeSender(m Mailer) *CodeSender {
	return &CodeSender{mailer: m, subject: "Your verification code"}
}

func (s *CodeSender) SendCode(ctx context.Context, email, code string) error {
	return s.mailer.SendEmail(ctx, email, s.subject, codeBody(code))
}

func codeBody(code string) string {
	return "Your code is: " + code + "\r\n\r\nIf you did not request this, you can ignore this email."
}
