package webhook

import (
	"context"

	"github.com/forgebot/forgebot/internal/dispatch"
)

// EventDispatcher is the seam between the receiver and the routing core.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventName, deliveryID string, payload []byte) (*dispatch.Summary, error)
}

// AcceptedResponse is the JSON response for a dispatched delivery.
type AcceptedResponse struct {
	DeliveryID string `json:"delivery_id"`
	Category   string `json:"category,omitempty"`
	Handlers   int    `json:"handlers"`
}

// ErrorResponse is the JSON response for receiver errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
