package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Message is one outbound HTML email.
type Message struct {
	To      string
	From    string
	ReplyTo string
	Subject string
	HTML    string
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

var ErrHeaderInjection = errors.New("mailer: header value contains a line break")

// SMTP sends mail through an authenticated SMTP relay. Port 465 uses
// implicit TLS; other ports upgrade with STARTTLS when offered.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

func (s *SMTP) addr() string { return net.JoinHostPort(s.Host, strconv.Itoa(s.Port)) }

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	raw, err := buildMessage(msg)
	if err != nil {
		return err
	}

	timeout := s.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	if s.Port == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", s.addr(), &tls.Config{ServerName: s.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", s.addr())
	}
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", s.addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if s.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if s.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(addressOf(msg.From)); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return c.Quit()
}

// addressOf strips a display name: "Office <a@b.c>" -> "a@b.c".
func addressOf(s string) string {
	if i := strings.LastIndexByte(s, '<'); i >= 0 {
		if j := strings.IndexByte(s[i:], '>'); j > 0 {
			return s[i+1 : i+j]
		}
	}
	return s
}

func buildMessage(msg Message) ([]byte, error) {
	headers := [][2]string{
		{"From", msg.From},
		{"To", msg.To},
		{"Subject", msg.Subject},
	}
	if msg.ReplyTo != "" {
		headers = append(headers, [2]string{"Reply-To", msg.ReplyTo})
	}
	var buf bytes.Buffer
	for _, h := range headers {
		if strings.ContainsAny(h[1], "\r\n") {
			return nil, fmt.Errorf("%w: %s", ErrHeaderInjection, h[0])
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	buf.WriteString(msg.HTML)
	return buf.Bytes(), nil
}

// ContactForm is what a website visitor submits to reach the organizer.
type ContactForm struct {
	FirstName      string `json:"firstname"`
	LastName       string `json:"lastname"`
	Phone          string `json:"phone"`
	Description    string `json:"description"`
	ViewerEmail    string `json:"viewerEmail"`
	OrganizerEmail string `json:"organizerEmail"`
}

var contactTmpl = template.Must(template.New("contact").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f4f6f9; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden;">
    <div style="background-color: #1a73e8; padding: 16px; text-align: center; color: #ffffff;">
      <h2 style="margin: 0; font-size: 20px;">New Contact Form Submission</h2>
    </div>
    <div style="padding: 20px;">
      <table style="border-collapse: collapse; width: 100%; font-size: 14px;">
        <tr><td style="padding: 10px; font-weight: bold; width: 30%;">First Name</td><td style="padding: 10px;">{{.FirstName}}</td></tr>
        <tr><td style="padding: 10px; font-weight: bold;">Last Name</td><td style="padding: 10px;">{{.LastName}}</td></tr>
        <tr><td style="padding: 10px; font-weight: bold;">Email</td><td style="padding: 10px;">{{.ViewerEmail}}</td></tr>
        <tr><td style="padding: 10px; font-weight: bold;">Phone</td><td style="padding: 10px;">{{.Phone}}</td></tr>
        <tr><td style="padding: 10px; font-weight: bold;">Description</td><td style="padding: 10px;">{{.Description}}</td></tr>
      </table>
    </div>
    <div style="background-color: #f1f1f1; padding: 12px; text-align: center; font-size: 12px; color: #666;">
      <p style="margin: 0;">This message was sent via your event website contact form.</p>
    </div>
  </div>
</div>`))

// ContactMessage renders the organizer notification for a contact form.
func ContactMessage(form ContactForm, from string) (Message, error) {
	var body bytes.Buffer
	if err := contactTmpl.Execute(&body, form); err != nil {
		return Message{}, fmt.Errorf("render contact email: %w", err)
	}
	return Message{
		To:      form.OrganizerEmail,
		From:    from,
		ReplyTo: form.ViewerEmail,
		Subject: "Query from " + form.FirstName,
		HTML:    body.String(),
	}, nil
}
