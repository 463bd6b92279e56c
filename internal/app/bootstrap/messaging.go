package bootstrap

import (
	appconfig "github.com/wolfman30/studio-scheduler/internal/config"
	"github.com/wolfman30/studio-scheduler/internal/messaging"
	"github.com/wolfman30/studio-scheduler/internal/notify"
	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// BuildMessenger creates the outbound WhatsApp messenger, with failover when
// a second instance is configured.
func BuildMessenger(cfg *appconfig.Config, logger *logging.Logger) (messaging.Messenger, string) {
	return messaging.BuildMessenger(messaging.ProviderSelectionConfig{
		Primary: messaging.WhatsAppConfig{
			BaseURL:     cfg.WhatsAppBaseURL,
			InstanceID:  cfg.WhatsAppInstanceID,
			Token:       cfg.WhatsAppToken,
			ClientToken: cfg.WhatsAppClientToken,
		},
		Fallback: messaging.WhatsAppConfig{
			InstanceID: cfg.WhatsAppFallbackInstanceID,
			Token:      cfg.WhatsAppFallbackToken,
		},
	}, logger)
}

// BuildEmailSender returns SendGrid when configured and a log sender otherwise.
func BuildEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		return sender
	}
	logger.Warn("sendgrid not configured; operator e-mails will only be logged")
	return notify.NewLogEmailSender(logger)
}
