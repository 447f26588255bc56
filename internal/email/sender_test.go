package email

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"companion/internal/config"
)

func TestSplitRecipients(t *testing.T) {
	got := splitRecipients(" a@example.com, ,b@example.com ,")
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Errorf("unexpected recipients: %+v", got)
	}
}

func TestBuildMessage(t *testing.T) {
	dir := t.TempDir()
	attPath := filepath.Join(dir, "report.png")
	if err := os.WriteFile(attPath, []byte("fake png bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSender(config.EmailConfig{
		From: "me@example.com",
		To:   "you@example.com",
	})
	msg, err := s.buildMessage("Daily report", "<h1>hi</h1>",
		[]string{"you@example.com"},
		[]Attachment{
			{Path: attPath, ContentType: "image/png"},
			{Path: filepath.Join(dir, "missing.ics")}, // skipped, not fatal
		})
	if err != nil {
		t.Fatalf("buildMessage failed: %v", err)
	}

	out := string(msg)
	for _, want := range []string{
		"From: me@example.com",
		"To: you@example.com",
		"Subject: Daily report",
		"Content-Type: multipart/mixed",
		"<h1>hi</h1>",
		`Content-Type: image/png; name="report.png"`,
		"Content-Transfer-Encoding: base64",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if strings.Contains(out, "missing.ics") {
		t.Errorf("missing attachment must be skipped, got:\n%s", out)
	}
}

func TestSend_DisabledIsNoop(t *testing.T) {
	s := NewSender(config.EmailConfig{Enabled: false})
	if err := s.Send("subject", "<p>body</p>", nil); err != nil {
		t.Errorf("disabled sender must be a no-op, got %v", err)
	}
}

func TestSend_MissingFieldsRejected(t *testing.T) {
	s := NewSender(config.EmailConfig{Enabled: true})
	if err := s.Send("subject", "<p>body</p>", nil); err == nil {
		t.Errorf("expected an error without host/from/to")
	}
}

func TestWrapBase64(t *testing.T) {
	long := strings.Repeat("A", 200)
	wrapped := wrapBase64(long)
	for _, line := range strings.Split(wrapped, "\r\n") {
		if len(line) > 76 {
			t.Errorf("line exceeds 76 chars: %d", len(line))
		}
	}
}
