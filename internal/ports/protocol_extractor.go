package ports

import (
	"context"

	"labflow/internal/domain"
)

// ProtocolExtractor parses free-text lab protocol into structured steps via
// an external completion service. Stateless; one outbound call per Extract.
type ProtocolExtractor interface {
	Extract(ctx context.Context, protocolText string) (*domain.ExtractedProtocol, error)
}
