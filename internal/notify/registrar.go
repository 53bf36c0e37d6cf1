package notify

import (
	"context"

	"github.com/charmbracelet/log"
)

// TokenRegistrar sends a device push token to the backend.
type TokenRegistrar interface {
	RegisterPushToken(ctx context.Context, token, platform string) error
}

// Registrar performs one-shot push token registration. Failures are logged,
// never returned; callers usually run Register in its own goroutine.
type Registrar struct {
	backend TokenRegistrar
	logger  *log.Logger
}

// NewRegistrar creates a Registrar.
func NewRegistrar(backend TokenRegistrar, logger *log.Logger) *Registrar {
	return &Registrar{backend: backend, logger: logger.WithPrefix("push")}
}

// Register sends token to the backend and reports whether it was accepted.
func (r *Registrar) Register(ctx context.Context, token, platform string) bool {
	if token == "" {
		r.logger.Warn("no push token to register")
		return false
	}
	if err := r.backend.RegisterPushToken(ctx, token, platform); err != nil {
		r.logger.Error("push token registration failed", "platform", platform, "err", err)
		return false
	}
	r.logger.Info("push token registered", "platform", platform)
	return true
}
