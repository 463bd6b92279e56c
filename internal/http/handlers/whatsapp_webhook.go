package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/studio-scheduler/internal/confirmation"
	"github.com/wolfman30/studio-scheduler/internal/events"
	"github.com/wolfman30/studio-scheduler/internal/observability/metrics"
	"github.com/wolfman30/studio-scheduler/internal/schedule"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// WebhookTokenHeader carries the shared secret configured on the WhatsApp instance.
const WebhookTokenHeader = "X-Webhook-Token"

const (
	tagDuplicate      = "duplicate"
	tagInvalidPayload = "ignored_invalid_payload"
	maxWebhookBody    = 1 << 20
)

type confirmationHandler interface {
	Handle(ctx context.Context, business *schedule.Business, event confirmation.Event) confirmation.Result
}

type processedTracker interface {
	Claim(ctx context.Context, businessID, provider, messageID string) (bool, error)
	Complete(ctx context.Context, businessID, provider, messageID, tag string) error
	Release(ctx context.Context, businessID, provider, messageID string) error
}

// WhatsAppWebhookConfig wires the inbound WhatsApp webhook.
type WhatsAppWebhookConfig struct {
	Businesses BusinessSource
	Machine    confirmationHandler
	Processed  processedTracker
	Token      string
	Metrics    *metrics.BookingMetrics
	Logger     *logging.Logger
}

// WhatsAppWebhookHandler feeds inbound WhatsApp replies to the confirmation
// state machine. The sender does not retry on non-200, so every processed
// request answers 200 with a status tag.
type WhatsAppWebhookHandler struct {
	businesses BusinessSource
	machine    confirmationHandler
	processed  processedTracker
	token      string
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
}

func NewWhatsAppWebhookHandler(cfg WhatsAppWebhookConfig) *WhatsAppWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{
		businesses: cfg.Businesses,
		machine:    cfg.Machine,
		processed:  cfg.Processed,
		token:      cfg.Token,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// HandleInbound processes one webhook delivery.
// POST /webhooks/whatsapp/{businessID}
func (h *WhatsAppWebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.token != "" {
		got := r.Header.Get(WebhookTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			h.logger.Warn("invalid whatsapp webhook token", "remote_addr", r.RemoteAddr)
			http.Error(w, `{"error": "invalid token"}`, http.StatusUnauthorized)
			return
		}
	}

	businessID := chi.URLParam(r, "businessID")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil || businessID == "" {
		h.respond(w, tagInvalidPayload)
		return
	}
	event, err := parseWhatsAppEvent(body)
	if err != nil {
		h.logger.Warn("unparseable whatsapp webhook", "business_id", businessID, "error", err)
		h.respond(w, tagInvalidPayload)
		return
	}
	defer func() {
		h.metrics.ObserveWebhookLatency(string(event.Kind), time.Since(start).Seconds())
	}()

	if event.Kind == confirmation.EventUnsupported {
		h.respond(w, confirmation.TagIgnored)
		return
	}

	business, err := h.businesses.Get(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to load business for webhook", "business_id", businessID, "error", err)
		h.respond(w, confirmation.TagErrorDB)
		return
	}

	claimed := false
	if h.processed != nil && event.MessageID != "" && !event.FromMe {
		ok, err := h.processed.Claim(r.Context(), businessID, events.ProviderWhatsApp, event.MessageID)
		if err != nil {
			h.logger.Error("webhook dedupe failed", "business_id", businessID, "message_id", event.MessageID, "error", err)
			h.respond(w, confirmation.TagErrorDB)
			return
		}
		if !ok {
			h.logger.Info("duplicate whatsapp webhook", "business_id", businessID, "message_id", event.MessageID)
			h.respond(w, tagDuplicate)
			return
		}
		claimed = true
	}

	result := h.machine.Handle(r.Context(), business, event)

	if claimed {
		ctx := context.WithoutCancel(r.Context())
		if result.Tag == confirmation.TagErrorDB {
			err = h.processed.Release(ctx, businessID, events.ProviderWhatsApp, event.MessageID)
		} else {
			err = h.processed.Complete(ctx, businessID, events.ProviderWhatsApp, event.MessageID, result.Tag)
		}
		if err != nil {
			h.logger.Warn("failed to update webhook claim", "message_id", event.MessageID, "error", err)
		}
	}

	h.logger.Info("whatsapp webhook handled",
		"business_id", businessID,
		"kind", event.Kind,
		"tag", result.Tag,
		"booking_id", result.BookingID,
	)
	h.respond(w, result.Tag)
}

func (h *WhatsAppWebhookHandler) respond(w http.ResponseWriter, tag string) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": tag})
}

type whatsAppPayload struct {
	Type        string          `json:"type"`
	MessageType string          `json:"messageType"`
	MessageID   string          `json:"messageId"`
	Phone       string          `json:"phone"`
	FromMe      bool            `json:"fromMe"`
	Text        json.RawMessage `json:"text"`
	Message     string          `json:"message"`
	Body        string          `json:"body"`
	ButtonReply *struct {
		ID         string `json:"id"`
		SelectedID string `json:"selectedId"`
	} `json:"buttonReply"`
	ButtonsResponseMessage *struct {
		ButtonID string `json:"buttonId"`
	} `json:"buttonsResponseMessage"`
}

func (p whatsAppPayload) buttonID() string {
	if p.ButtonReply != nil {
		if id := strings.TrimSpace(p.ButtonReply.ID); id != "" {
			return id
		}
		if id := strings.TrimSpace(p.ButtonReply.SelectedID); id != "" {
			return id
		}
	}
	if p.ButtonsResponseMessage != nil {
		return strings.TrimSpace(p.ButtonsResponseMessage.ButtonID)
	}
	return ""
}

// text reads text.message, a plain string text field, message or body.
func (p whatsAppPayload) text() string {
	if len(p.Text) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(p.Text, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if err := json.Unmarshal(p.Text, &plain); err == nil && plain != "" {
			return plain
		}
	}
	if p.Message != "" {
		return p.Message
	}
	return p.Body
}

func parseWhatsAppEvent(body []byte) (confirmation.Event, error) {
	var p whatsAppPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return confirmation.Event{}, err
	}
	event := confirmation.Event{
		Kind:      confirmation.EventUnsupported,
		Phone:     strings.TrimSpace(p.Phone),
		MessageID: strings.TrimSpace(p.MessageID),
		FromMe:    p.FromMe,
	}

	discriminator := strings.ToLower(strings.TrimSpace(p.MessageType))
	if discriminator == "" {
		discriminator = strings.ToLower(strings.TrimSpace(p.Type))
	}
	buttonID := p.buttonID()
	text := strings.TrimSpace(p.text())

	switch {
	case strings.Contains(discriminator, "button") || (buttonID != "" && discriminator != "text"):
		if buttonID != "" {
			event.Kind = confirmation.EventButton
			event.ButtonID = buttonID
		}
	case text != "":
		event.Kind = confirmation.EventText
		event.Text = text
	}
	return event, nil
}
