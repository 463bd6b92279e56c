package messaging

import (
	"context"

	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

const (
	providerPrimary  = "whatsapp"
	providerFallback = "whatsapp-fallback"
	providerLog      = "log"
)

// ProviderSelectionConfig captures the credentials required to build the outbound messenger.
type ProviderSelectionConfig struct {
	Primary  WhatsAppConfig
	Fallback WhatsAppConfig
}

// BuildMessenger instantiates a Messenger from the configured instances. It
// returns the messenger and the provider that was selected. Without
// credentials it returns a LogMessenger so local runs keep working.
func BuildMessenger(cfg ProviderSelectionConfig, logger *logging.Logger) (Messenger, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.Primary.Configured() {
		logger.Warn("whatsapp not configured; outbound messages will only be logged")
		return NewLogMessenger(logger), providerLog
	}
	primary := NewWhatsAppSender(cfg.Primary, logger)
	if cfg.Fallback.BaseURL == "" {
		cfg.Fallback.BaseURL = cfg.Primary.BaseURL
	}
	if cfg.Fallback.ClientToken == "" {
		cfg.Fallback.ClientToken = cfg.Primary.ClientToken
	}
	if !cfg.Fallback.Configured() {
		return primary, providerPrimary
	}
	secondary := NewWhatsAppSender(cfg.Fallback, logger)
	return NewFailoverMessenger(primary, providerPrimary, secondary, providerFallback, logger), providerPrimary + "+" + providerFallback
}

// LogMessenger records messages in the log instead of sending them.
type LogMessenger struct {
	logger *logging.Logger
}

// NewLogMessenger creates a log-only messenger.
func NewLogMessenger(logger *logging.Logger) *LogMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogMessenger{logger: logger}
}

var _ Messenger = (*LogMessenger)(nil)

func (l *LogMessenger) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.logger.Info("whatsapp message (not sent)",
		"to_suffix", PhoneSuffix(msg.To, 4),
		"buttons", len(msg.Buttons),
		"image", msg.ImageURL != "",
	)
	return nil
}
