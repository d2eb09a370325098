package api

import (
	"context"

	"github.com/opentrusty/console/internal/domain/model"
)

// PlatformService wraps platform-wide endpoints. Platform admin only.
type PlatformService struct {
	client *Client
}

// NewPlatformService constructs a PlatformService over the given client.
func NewPlatformService(client *Client) *PlatformService {
	return &PlatformService{client: client}
}

// Metrics returns platform-wide counters for the overview page.
func (s *PlatformService) Metrics(ctx context.Context) (*model.PlatformMetrics, error) {
	var out model.PlatformMetrics
	if err := s.client.Get(ctx, "metrics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
