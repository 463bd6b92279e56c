package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/studio-scheduler/internal/confirmation"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

type stubMachine struct {
	mu     sync.Mutex
	events []confirmation.Event
	tag    string
}

func (s *stubMachine) Handle(ctx context.Context, business *schedule.Business, event confirmation.Event) confirmation.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return confirmation.Result{Tag: s.tag, BookingID: "b-1"}
}

type memTracker struct {
	mu       sync.Mutex
	claims   map[string]string
	released []string
	claimErr error
}

func newMemTracker() *memTracker {
	return &memTracker{claims: map[string]string{}}
}

func (m *memTracker) Claim(ctx context.Context, businessID, provider, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return false, m.claimErr
	}
	key := businessID + "/" + provider + "/" + messageID
	if _, ok := m.claims[key]; ok {
		return false, nil
	}
	m.claims[key] = ""
	return true, nil
}

func (m *memTracker) Complete(ctx context.Context, businessID, provider, messageID, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[businessID+"/"+provider+"/"+messageID] = tag
	return nil
}

func (m *memTracker) Release(ctx context.Context, businessID, provider, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, businessID+"/"+provider+"/"+messageID)
	m.released = append(m.released, messageID)
	return nil
}

func webhookRouter(h *WhatsAppWebhookHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/webhooks/whatsapp/{businessID}", h.HandleInbound)
	return r
}

func postWebhook(t *testing.T, router http.Handler, token, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp/studio-1", strings.NewReader(body))
	if token != "" {
		req.Header.Set(WebhookTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec.Code, resp["status"]
}

func newWebhook(machine *stubMachine, tracker *memTracker) http.Handler {
	return webhookRouter(NewWhatsAppWebhookHandler(WhatsAppWebhookConfig{
		Businesses: staticBusinesses{},
		Machine:    machine,
		Processed:  tracker,
		Token:      "s3cret",
		Logger:     logging.Discard(),
	}))
}

func TestWhatsAppWebhookButtonReply(t *testing.T) {
	machine := &stubMachine{tag: confirmation.TagConfirmedAndCardSent}
	tracker := newMemTracker()
	router := newWebhook(machine, tracker)

	code, status := postWebhook(t, router, "s3cret",
		`{"messageType":"button_reply","messageId":"m-1","phone":"5561999990000","buttonReply":{"id":"confirm_payment_b-1"}}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, confirmation.TagConfirmedAndCardSent, status)
	require.Len(t, machine.events, 1)
	assert.Equal(t, confirmation.EventButton, machine.events[0].Kind)
	assert.Equal(t, "confirm_payment_b-1", machine.events[0].ButtonID)
	assert.Equal(t, confirmation.TagConfirmedAndCardSent, tracker.claims["studio-1/whatsapp/m-1"])
}

func TestWhatsAppWebhookDuplicateDelivery(t *testing.T) {
	machine := &stubMachine{tag: confirmation.TagConfirmed}
	router := newWebhook(machine, newMemTracker())
	body := `{"type":"ReceivedCallback","messageId":"m-2","phone":"5561992415188","text":{"message":"sim"}}`

	_, first := postWebhook(t, router, "s3cret", body)
	_, second := postWebhook(t, router, "s3cret", body)

	assert.Equal(t, confirmation.TagConfirmed, first)
	assert.Equal(t, "duplicate", second)
	assert.Len(t, machine.events, 1)
}

func TestWhatsAppWebhookReleasesClaimOnDBError(t *testing.T) {
	machine := &stubMachine{tag: confirmation.TagErrorDB}
	tracker := newMemTracker()
	router := newWebhook(machine, tracker)

	code, status := postWebhook(t, router, "s3cret", `{"messageId":"m-3","phone":"5561992415188","message":"confirmado"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, confirmation.TagErrorDB, status)
	assert.Equal(t, []string{"m-3"}, tracker.released)
	assert.Empty(t, tracker.claims)
}

func TestWhatsAppWebhookRejectsBadToken(t *testing.T) {
	machine := &stubMachine{tag: confirmation.TagConfirmed}
	router := newWebhook(machine, newMemTracker())

	code, _ := postWebhook(t, router, "wrong", `{"phone":"5561992415188","message":"sim"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = postWebhook(t, router, "", `{"phone":"5561992415188","message":"sim"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Empty(t, machine.events)
}

func TestWhatsAppWebhookAlways200(t *testing.T) {
	machine := &stubMachine{tag: confirmation.TagConfirmed}
	tracker := newMemTracker()
	router := newWebhook(machine, tracker)

	code, status := postWebhook(t, router, "s3cret", `not json`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ignored_invalid_payload", status)

	code, status = postWebhook(t, router, "s3cret", `{"type":"PresenceChatCallback","phone":"5561992415188"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, confirmation.TagIgnored, status)

	tracker.claimErr = errors.New("db down")
	code, status = postWebhook(t, router, "s3cret", `{"messageId":"m-4","phone":"5561992415188","message":"sim"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, confirmation.TagErrorDB, status)
	assert.Empty(t, machine.events)
}

func TestParseWhatsAppEvent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want confirmation.Event
	}{
		{
			name: "selected id",
			body: `{"messageType":"buttonReply","phone":"556199","buttonReply":{"selectedId":"deny_payment_b-9"}}`,
			want: confirmation.Event{Kind: confirmation.EventButton, ButtonID: "deny_payment_b-9", Phone: "556199"},
		},
		{
			name: "buttons response message",
			body: `{"type":"ReceivedCallback","messageId":"x","phone":"556199","buttonsResponseMessage":{"buttonId":"confirm_payment_b-2","message":"Confirmar"}}`,
			want: confirmation.Event{Kind: confirmation.EventButton, ButtonID: "confirm_payment_b-2", Phone: "556199", MessageID: "x"},
		},
		{
			name: "nested text",
			body: `{"type":"ReceivedCallback","phone":"556199","text":{"message":"  sim, confirmo! "}}`,
			want: confirmation.Event{Kind: confirmation.EventText, Text: "sim, confirmo!", Phone: "556199"},
		},
		{
			name: "plain text field",
			body: `{"messageType":"text","phone":"556199","text":"ok"}`,
			want: confirmation.Event{Kind: confirmation.EventText, Text: "ok", Phone: "556199"},
		},
		{
			name: "body field from me",
			body: `{"phone":"556199","body":"cartão","fromMe":true}`,
			want: confirmation.Event{Kind: confirmation.EventText, Text: "cartão", Phone: "556199", FromMe: true},
		},
		{
			name: "button type without id",
			body: `{"messageType":"button_reply","phone":"556199","message":"sim"}`,
			want: confirmation.Event{Kind: confirmation.EventUnsupported, Phone: "556199"},
		},
		{
			name: "image only",
			body: `{"type":"ReceivedCallback","phone":"556199","image":{"imageUrl":"https://x"}}`,
			want: confirmation.Event{Kind: confirmation.EventUnsupported, Phone: "556199"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWhatsAppEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
