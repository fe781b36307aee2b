package database

import (
	"context"

	"github.com/yashrajoria/storefront-bff/models"
)

// DeviceStore persists per-device state: the anonymous cart id and form
// drafts. Lookups of missing entries return a nil value and a nil error.
type DeviceStore interface {
	GetCartID(ctx context.Context, deviceID string) (*int64, error)
	SetCartID(ctx context.Context, deviceID string, cartID int64) error
	ClearCartID(ctx context.Context, deviceID string) error

	GetDraft(ctx context.Context, deviceID, form string) (*models.Draft, error)
	SaveDraft(ctx context.Context, deviceID string, draft *models.Draft) error
	DeleteDraft(ctx context.Context, deviceID, form string) error
}
