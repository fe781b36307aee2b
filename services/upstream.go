package services

import (
	"context"
	"net/url"
)

// Upstream is the marketplace backend as seen by the services.
// *clients.GatewayClient satisfies it.
type Upstream interface {
	DoJSON(ctx context.Context, method, path string, query url.Values, token string, in, out any) error
}
