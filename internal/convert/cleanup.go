// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import "log/slog"

// bestEffort runs a teardown step. Errors and panics are logged and dropped
// so a teardown failure never replaces a result that is already decided.
func bestEffort(logger *slog.Logger, what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn(what+" panicked", "panic", r)
		}
	}()
	if err := fn(); err != nil {
		logger.Warn(what+" failed", "error", err)
	}
}
