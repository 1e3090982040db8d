// Package mail sends plain-text notification mail over SMTP.  Connection
// parameters come from the environment so local development can point at
// a capture tool like Mailpit without code changes.
package mail

import (
	"os"
	"strconv"

	gomail "gopkg.in/gomail.v2"
)

// Mailer wraps a gomail dialer with the configured sender address.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewFromEnv builds a Mailer from SMTP_HOST/SMTP_PORT/SMTP_USER/SMTP_PASS
// and MAIL_FROM.  Defaults target a local capture server.
func NewFromEnv() *Mailer {
	host := getenv("SMTP_HOST", "127.0.0.1")
	port := 1025
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && p > 0 {
		port = p
	}
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")

	d := gomail.NewDialer(host, port, user, pass)
	return &Mailer{
		dialer: d,
		from:   getenv("MAIL_FROM", "no-reply@example.com"),
	}
}

// Send delivers one message.  CC/BCC may be empty.  Tags become custom
// headers so capture tools can filter by reservation.
func (m *Mailer) Send(to string, cc, bcc []string, subject, body string, tags map[string]string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	if len(cc) > 0 {
		msg.SetHeader("Cc", cc...)
	}
	if len(bcc) > 0 {
		msg.SetHeader("Bcc", bcc...)
	}
	msg.SetHeader("Subject", subject)
	for k, v := range tags {
		msg.SetHeader("X-App-Tag-"+k, v)
	}
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
