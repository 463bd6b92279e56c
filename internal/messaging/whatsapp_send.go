package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

var whatsappSendTracer = otel.Tracer("studio.internal.messaging.whatsapp_send")

// WhatsAppConfig identifies one WhatsApp HTTP API instance.
type WhatsAppConfig struct {
	BaseURL     string
	InstanceID  string
	Token       string
	ClientToken string
}

// Configured reports whether the instance credentials are present.
func (c WhatsAppConfig) Configured() bool {
	return c.BaseURL != "" && c.InstanceID != "" && c.Token != ""
}

// WhatsAppSender posts messages to a WhatsApp HTTP API instance.
type WhatsAppSender struct {
	cfg        WhatsAppConfig
	httpClient *http.Client
	logger     *logging.Logger
	after      func(time.Duration) <-chan time.Time
}

// NewWhatsAppSender builds a sender with sane defaults.
func NewWhatsAppSender(cfg WhatsAppConfig, logger *logging.Logger) *WhatsAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WhatsAppSender{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		after:  time.After,
	}
}

var _ Messenger = (*WhatsAppSender)(nil)

type textPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type buttonListPayload struct {
	Phone      string `json:"phone"`
	Message    string `json:"message"`
	ButtonList struct {
		Buttons []Button `json:"buttons"`
	} `json:"buttonList"`
}

type imagePayload struct {
	Phone   string `json:"phone"`
	Image   string `json:"image"`
	Caption string `json:"caption,omitempty"`
}

// Send dispatches a single message, retrying transient failures.
func (s *WhatsAppSender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Configured() {
		return errors.New("messaging: whatsapp credentials missing")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	phone := Digits(NormalizeE164(msg.To))
	path, payload := s.route(phone, msg)

	ctx, span := whatsappSendTracer.Start(ctx, "messaging.whatsapp.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("studio.instance_id", s.cfg.InstanceID),
		attribute.String("studio.endpoint", path),
	)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("messaging: marshal payload: %w", err)
	}
	endpoint := fmt.Sprintf("%s/instances/%s/token/%s/%s", s.cfg.BaseURL, s.cfg.InstanceID, s.cfg.Token, path)

	var lastErr error
attempts:
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			lastErr = redactTransportError(path, err)
			break
		}
		req.Header.Set("Content-Type", "application/json")
		if s.cfg.ClientToken != "" {
			req.Header.Set("Client-Token", s.cfg.ClientToken)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = redactTransportError(path, err)
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				s.logger.Info("whatsapp message sent", "endpoint", path, "message_id", parseMessageID(respBody))
				return nil
			}
			lastErr = fmt.Errorf("whatsapp send failed: %s", formatAPIError(resp.StatusCode, respBody))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		if attempt < 3 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break attempts
			case <-s.after(time.Duration(200+rand.Intn(300)) * time.Millisecond):
			}
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return lastErr
}

func (s *WhatsAppSender) route(phone string, msg Message) (string, any) {
	switch {
	case msg.ImageURL != "":
		caption := msg.Caption
		if caption == "" {
			caption = msg.Body
		}
		return "send-image", imagePayload{Phone: phone, Image: msg.ImageURL, Caption: caption}
	case len(msg.Buttons) > 0:
		p := buttonListPayload{Phone: phone, Message: msg.Body}
		p.ButtonList.Buttons = msg.Buttons
		return "send-button-list", p
	default:
		return "send-text", textPayload{Phone: phone, Message: msg.Body}
	}
}

// redactTransportError drops the request URL, which carries the instance
// token, from client errors.
func redactTransportError(path string, err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("messaging: whatsapp %s %s: %w", strings.ToLower(uerr.Op), path, uerr.Err)
	}
	return fmt.Errorf("messaging: whatsapp %s: %w", path, err)
}

func parseMessageID(body []byte) string {
	var parsed struct {
		MessageID string `json:"messageId"`
		ID        string `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.MessageID != "" {
		return parsed.MessageID
	}
	return parsed.ID
}

func formatAPIError(status int, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return fmt.Sprintf("status %d: %s", status, parsed.Message)
		}
		if parsed.Error != "" {
			return fmt.Sprintf("status %d: %s", status, parsed.Error)
		}
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}
