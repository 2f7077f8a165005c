package gateways

import (
	"fmt"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
	"github.com/ochairo/plugship/internal/domain/interfaces/gateways"
)

// NewPublisher selects the publisher for the descriptor's publish target.
// An empty target means the marketplace.
func NewPublisher(settings entities.PublishSettings, runID string, logger interfaces.Logger) (gateways.Publisher, error) {
	switch settings.Target {
	case "", entities.PublishTargetMarketplace:
		return NewHTTPMarketplaceGateway(settings, runID, logger), nil
	case entities.PublishTargetS3:
		if settings.Endpoint == "" || settings.Bucket == "" {
			return nil, fmt.Errorf("s3 publish target requires endpoint and bucket")
		}
		return NewS3RepositoryGateway(settings, runID, logger), nil
	default:
		return nil, fmt.Errorf("unknown publish target: %q", settings.Target)
	}
}
