package intake

import (
	"context"
	"log/slog"
)

// SecretSource looks up a cloud secret holding a JSON object of strings.
type SecretSource interface {
	SecretValues(ctx context.Context, id string) (map[string]string, error)
}

// Intake reads descriptors and the inputs they reference.
type Intake struct {
	secrets SecretSource
	logger  *slog.Logger
}

// New creates an Intake. secrets may be nil when no descriptor names cloud
// secrets.
func New(secrets SecretSource, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		secrets: secrets,
		logger:  logger.With("component", "intake"),
	}
}
