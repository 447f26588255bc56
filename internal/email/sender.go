// Package email delivers the daily report over SMTP.
package email

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"companion/internal/config"
	appLog "companion/internal/log"
)

// Attachment is one file to include in the message.
type Attachment struct {
	Path        string
	ContentType string
}

// Sender sends multipart HTML mail per the configured SMTP account.
type Sender struct {
	cfg config.EmailConfig
}

func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Send delivers an HTML message with the given attachments. Attachments
// whose file is missing are skipped with a log line rather than failing
// the whole delivery.
func (s *Sender) Send(subject, htmlBody string, attachments []Attachment) error {
	if !s.cfg.Enabled {
		return nil
	}
	if s.cfg.Host == "" || s.cfg.From == "" || s.cfg.To == "" {
		return fmt.Errorf("email: host, from and to are required")
	}

	recipients := splitRecipients(s.cfg.To)
	if len(recipients) == 0 {
		return fmt.Errorf("email: no recipients in %q", s.cfg.To)
	}

	if s.cfg.SubjectPrefix != "" && !strings.HasPrefix(subject, s.cfg.SubjectPrefix) {
		subject = s.cfg.SubjectPrefix + " " + subject
	}

	msg, err := s.buildMessage(subject, htmlBody, recipients, attachments)
	if err != nil {
		return err
	}

	addr := s.cfg.Host + ":" + s.cfg.Port
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("email: send via %s failed: %w", addr, err)
	}
	appLog.Info("email sent", "to", s.cfg.To, "subject", subject, "attachments", len(attachments))
	return nil
}

func splitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildMessage assembles a multipart/mixed MIME message: one HTML part
// followed by base64-encoded attachments.
func (s *Sender) buildMessage(subject string, htmlBody string, recipients []string, attachments []Attachment) ([]byte, error) {
	boundary := fmt.Sprintf("companion-%d", time.Now().UnixNano())

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	for _, att := range attachments {
		data, err := os.ReadFile(att.Path)
		if err != nil {
			appLog.Error("attachment skipped", err, "path", att.Path)
			continue
		}
		ctype := att.ContentType
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		name := filepath.Base(att.Path)

		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s; name=%q\r\n", ctype, name)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", name)
		b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(data)))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String()), nil
}

// wrapBase64 folds the encoded payload at 76 columns per RFC 2045.
func wrapBase64(s string) string {
	const width = 76
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteString("\r\n")
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
