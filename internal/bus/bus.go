// Package bus carries batch and analysis events between the API, the async
// worker, and downstream consumers such as letter drafting. Two
// implementations exist: an in-process channel bus for the Community tier and
// a NATS bus for the Pro tier. Both wrap payloads in a domain.Message
// envelope so consumers see one format regardless of transport.
package bus

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/disputegrid/kestrel/internal/domain"
)

// New selects the bus implementation for the configured tier.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// envelope wraps a raw payload in the shared message format. Every published
// message gets a fresh ID and a nanosecond timestamp regardless of transport.
func envelope(tenantID, topic string, payload []byte) *domain.Message {
	return &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
}
