// Package notify selects the notification sink implementation.
package notify

import (
	"fmt"

	"gstpipeline/internal/config"
	"gstpipeline/internal/notify/noop"
	"gstpipeline/internal/notify/ses"
	"gstpipeline/internal/port"
)

// FromConfig builds the configured Notifier. Unknown providers fall back to
// the logging sink rather than failing startup.
func FromConfig(cfg *config.NotifyConfig) (port.Notifier, error) {
	switch cfg.Provider {
	case "ses":
		n, err := ses.NewSESNotifier(cfg.Region, cfg.FromAddress, cfg.FromName, cfg.ToAddresses)
		if err != nil {
			return nil, fmt.Errorf("notify: building ses sink: %w", err)
		}
		return n, nil
	case "", "noop":
		return noop.NewNoopNotifier(), nil
	default:
		return noop.NewNoopNotifier(), nil
	}
}
