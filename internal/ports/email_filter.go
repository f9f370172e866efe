package ports

import (
	"context"

	"github.com/mikey/vendor-order-intake/internal/core"
)

// EmailFilter is an intake transport feeding emails into the pipeline
type EmailFilter interface {
	// ProcessEmail runs one email through the pipeline and returns its outcome
	ProcessEmail(ctx context.Context, email *core.Email) (*core.IntakeResult, error)

	// Start starts the intake transport
	Start() error

	// Stop stops the intake transport
	Stop() error
}
