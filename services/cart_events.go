package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

// Cart events published by the marketplace backend. Each one means a cart
// changed without going through this service.
const (
	EventCartUpdated    = "cart.updated"
	EventCartCleared    = "cart.cleared"
	EventOrderCreated   = "order.created"
	EventCheckoutClosed = "checkout.completed"
)

// CartEvent is the payload of a backend cart event.
type CartEvent struct {
	EventType string `json:"event_type"`
	UserID    int64  `json:"user_id"`
	CartID    *int64 `json:"cart_id,omitempty"`
}

// snsEnvelope unwraps the SNS → SQS message wrapper.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// CartEventHandler drops cached cart views named by incoming events.
// Malformed and unknown events are acknowledged so they are not redelivered.
func CartEventHandler(carts CartService, logger *zap.Logger) aws_pkg.MessageHandler {
	return func(_ context.Context, body string) error {
		payload := []byte(body)
		var env snsEnvelope
		if err := json.Unmarshal(payload, &env); err == nil && env.Type == "Notification" && env.Message != "" {
			payload = []byte(env.Message)
		}

		var event CartEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			logger.Warn("dropping malformed cart event", zap.Error(err))
			return nil
		}

		switch event.EventType {
		case EventCartUpdated, EventCartCleared, EventOrderCreated, EventCheckoutClosed:
			carts.InvalidateCart(event.UserID, event.CartID)
			logger.Debug("cart views invalidated",
				zap.String("event_type", event.EventType),
				zap.Int64("user_id", event.UserID),
			)
		default:
			logger.Debug("ignoring event", zap.String("event_type", event.EventType))
		}
		return nil
	}
}
