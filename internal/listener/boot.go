package listener

import (
	"context"
	"log/slog"
)

// Rebinder asks a running daemon to rebind its listener.
type Rebinder interface {
	RebindNotificationService(ctx context.Context) (bool, error)
}

// Boot runs once at session start. It requests a rebind when notification
// access has been granted and skips otherwise. Failures are logged, not
// returned, so a missing daemon never blocks the session.
func Boot(ctx context.Context, access AccessChecker, rebinder Rebinder, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("session started, checking notification listener access")

	granted, err := access()
	if err != nil {
		logger.Error("failed to check notification access", "error", err)
		return false
	}
	if !granted {
		logger.Info("notification access not granted, skipping rebind")
		return false
	}

	logger.Debug("notification access granted, requesting rebind")
	ok, err := rebinder.RebindNotificationService(ctx)
	if err != nil {
		logger.Error("failed to request rebind", "error", err)
		return false
	}

	logger.Info("rebind requested", "bound", ok)
	return ok
}
