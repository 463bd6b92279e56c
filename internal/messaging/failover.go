package messaging

import (
	"context"
	"errors"

	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

// FailoverMessenger attempts a primary send, then falls back to a secondary instance on error.
type FailoverMessenger struct {
	primary       Messenger
	secondary     Messenger
	primaryName   string
	secondaryName string
	logger        *logging.Logger
}

// NewFailoverMessenger builds a failover messenger with named instances.
func NewFailoverMessenger(primary Messenger, primaryName string, secondary Messenger, secondaryName string, logger *logging.Logger) *FailoverMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverMessenger{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		logger:        logger,
	}
}

var _ Messenger = (*FailoverMessenger)(nil)

// Send tries the primary instance first, then the secondary on failure.
// Validation errors are not retried on the secondary.
func (f *FailoverMessenger) Send(ctx context.Context, msg Message) error {
	if f == nil || f.primary == nil {
		return errors.New("messaging: failover primary sender not configured")
	}
	err := f.primary.Send(ctx, msg)
	if err == nil {
		return nil
	}
	if f.secondary == nil || errors.Is(err, errRecipientRequired) || errors.Is(err, errBodyRequired) {
		return err
	}
	f.logger.Warn("primary whatsapp send failed; attempting fallback",
		"provider", f.primaryName,
		"fallback", f.secondaryName,
		"error", err,
	)
	if fallbackErr := f.secondary.Send(ctx, msg); fallbackErr != nil {
		f.logger.Error("fallback whatsapp send failed",
			"provider", f.secondaryName,
			"error", fallbackErr,
		)
		return fallbackErr
	}
	return nil
}
