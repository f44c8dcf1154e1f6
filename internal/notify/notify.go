// internal/notify/notify.go
//
// Welcome-message delivery.
//
// Context
// -------
// Provisioning sends one welcome mail with the new site's address and
// login.  Delivery is strictly best-effort: the orchestrator records a
// failure in logs and metrics and moves on, so implementations must
// never block success.
//
// net/smtp is used directly; the message is a single short plain-text
// mail and a queueing system would be more moving parts than the job.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Welcome is the payload for the signup notification.
type Welcome struct {
	To       string
	Name     string
	Domain   string
	AdminURL string
}

// Notifier delivers provisioning notifications.
type Notifier interface {
	SendWelcome(ctx context.Context, w Welcome) error
}

//
// SMTP implementation
//

// SMTPNotifier sends through a plain SMTP submission endpoint.
type SMTPNotifier struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SendWelcome renders and submits the welcome mail.  The context is
// accepted for interface symmetry; net/smtp has no context hook, and the
// dial timeout is bounded by the server's WriteTimeout upstream.
func (n *SMTPNotifier) SendWelcome(_ context.Context, w Welcome) error {
	addr := fmt.Sprintf("%s:%d", n.Host, n.Port)

	var auth smtp.Auth
	if n.Username != "" {
		auth = smtp.PlainAuth("", n.Username, n.Password, n.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.From)
	fmt.Fprintf(&b, "To: %s\r\n", w.To)
	fmt.Fprintf(&b, "Subject: Your site %s is ready\r\n", w.Domain)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", w.Name)
	fmt.Fprintf(&b, "Your new site is live at https://%s\r\n", w.Domain)
	fmt.Fprintf(&b, "Sign in to the admin area at %s with the email and password you registered with.\r\n\r\n", w.AdminURL)
	b.WriteString("Welcome aboard!\r\n")

	if err := smtp.SendMail(addr, auth, n.From, []string{w.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send welcome to %s: %w", w.To, err)
	}
	return nil
}

//
// Logging no-op (used when SMTP is not configured)
//

// LogNotifier records what would have been sent.  Handy in development
// and as the fallback when smtp.host is empty.
type LogNotifier struct {
	Log *zap.SugaredLogger
}

func (n *LogNotifier) SendWelcome(_ context.Context, w Welcome) error {
	n.Log.Infow("welcome mail suppressed (smtp not configured)",
		"to", w.To, "domain", w.Domain)
	return nil
}
