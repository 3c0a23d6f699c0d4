package pos

import (
	"context"
	"log/slog"
	"time"
)

// DirectNotifier posts print marks straight to the upstream in the background.
// It is used when no job queue is configured.
type DirectNotifier struct {
	gateway Gateway
	logger  *slog.Logger
	timeout time.Duration
}

// NewDirectNotifier builds a DirectNotifier.
func NewDirectNotifier(gateway Gateway, logger *slog.Logger) *DirectNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectNotifier{gateway: gateway, logger: logger, timeout: 15 * time.Second}
}

// NotifyPrinted returns immediately; the upstream call outlives the request.
func (n *DirectNotifier) NotifyPrinted(ctx context.Context, remitoID string) error {
	bg := context.WithoutCancel(ctx)
	go func() {
		callCtx, cancel := context.WithTimeout(bg, n.timeout)
		defer cancel()
		if err := n.gateway.MarkRemitoPrinted(callCtx, remitoID); err != nil {
			n.logger.Warn("remito printed mark failed", slog.String("remito_id", remitoID), slog.Any("error", err))
		}
	}()
	return nil
}
