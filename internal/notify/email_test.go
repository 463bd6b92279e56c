package notify

import (
	"context"
	"strings"
	"testing"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "studio@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "studio@example.com",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Studio Scheduler" {
		t.Errorf("expected default from name, got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilSender(t *testing.T) {
	var sender *SendGridSender
	err := sender.Send(context.Background(), EmailMessage{To: "op@example.com", Subject: "x", Body: "y"})
	if err == nil {
		t.Error("expected error when sender is nil")
	}
}

func TestLogEmailSender_Send(t *testing.T) {
	if err := NewLogEmailSender(nil).Send(context.Background(), EmailMessage{To: "op@example.com"}); err != nil {
		t.Errorf("log sender should not return error, got: %v", err)
	}
}

func TestPlainToHTML(t *testing.T) {
	got := plainToHTML("Cliente: <Ana>\nServiço: Bronze")
	if !strings.Contains(got, "&lt;Ana&gt;<br>Serviço") {
		t.Errorf("unexpected html %q", got)
	}
}
