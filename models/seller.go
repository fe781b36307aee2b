package models

import (
	"encoding/json"
	"time"
)

// Capability names one permission of a seller account.
type Capability string

const (
	CapConfirmOrder    Capability = "canConfirmOrder"
	CapEditOrder       Capability = "canEditOrder"
	CapCancelOrder     Capability = "canCancelOrder"
	CapDeleteOrder     Capability = "canDeleteOrder"
	CapCreateCustomers Capability = "canCreateCustomers"
)

// Permissions is the complete capability record of a seller. Every field
// defaults to false.
type Permissions struct {
	CanConfirmOrder    bool `json:"canConfirmOrder"`
	CanEditOrder       bool `json:"canEditOrder"`
	CanCancelOrder     bool `json:"canCancelOrder"`
	CanDeleteOrder     bool `json:"canDeleteOrder"`
	CanCreateCustomers bool `json:"canCreateCustomers"`
}

func AllPermissions() Permissions {
	return Permissions{
		CanConfirmOrder:    true,
		CanEditOrder:       true,
		CanCancelOrder:     true,
		CanDeleteOrder:     true,
		CanCreateCustomers: true,
	}
}

func (p Permissions) Allows(c Capability) bool {
	switch c {
	case CapConfirmOrder:
		return p.CanConfirmOrder
	case CapEditOrder:
		return p.CanEditOrder
	case CapCancelOrder:
		return p.CanCancelOrder
	case CapDeleteOrder:
		return p.CanDeleteOrder
	case CapCreateCustomers:
		return p.CanCreateCustomers
	default:
		return false
	}
}

// SellerProfile is the seller record; Permissions is kept raw because the
// backend sends it either as a JSON string or as an object.
type SellerProfile struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId,omitempty"`
	StoreName   string          `json:"storeName,omitempty"`
	Status      string          `json:"status"`
	Permissions json.RawMessage `json:"permissions,omitempty"`
}

// UpdateSellerStatusRequest is the admin payload for approving a seller.
type UpdateSellerStatusRequest struct {
	Status      string      `json:"status" binding:"required,oneof=pending approved rejected suspended" validate:"required,oneof=pending approved rejected suspended"`
	Permissions Permissions `json:"permissions"`
}

// SellerStatusPayload is sent upstream; permissions travel as a JSON string.
type SellerStatusPayload struct {
	Status      string `json:"status"`
	Permissions string `json:"permissions"`
}

// SellerPermissionsEvent is published after a seller's status changes.
type SellerPermissionsEvent struct {
	EventType   string      `json:"event_type"`
	SellerID    int64       `json:"seller_id"`
	Status      string      `json:"status"`
	Permissions Permissions `json:"permissions"`
	UpdatedBy   int64       `json:"updated_by"`
	Timestamp   time.Time   `json:"timestamp"`
}
