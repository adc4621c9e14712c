// Package notifications renders and sends transactional email.
package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Mailer sends HTML email over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(host, port, user, pass, from string) (*Mailer, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP port %q: %w", port, err)
	}
	return &Mailer{
		dialer: gomail.NewDialer(host, p, user, pass),
		from:   from,
	}, nil
}

// Send delivers one message. Used by the outbox worker, never directly from
// request handlers.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

// RenderRegistration renders the welcome email body.
func RenderRegistration(name string) (string, error) {
	return render("registration.html", map[string]string{"Name": name})
}

// RenderResetPassword renders the reset link email body.
func RenderResetPassword(name, resetURL string) (string, error) {
	return render("reset_password.html", map[string]string{"Name": name, "URL": resetURL})
}

// RenderResetSuccess renders the reset confirmation body.
func RenderResetSuccess(name string) (string, error) {
	return render("reset_success.html", map[string]string{"Name": name})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
