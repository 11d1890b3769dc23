package audit

import (
	"context"
	"time"

	id "mintgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that record a durable fact about the
	// allocated supply (a slot changed hands for the first time).
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers changes to who may do what: role grants and the
	// kill-switch.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers configuration of the sale itself.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Actor is the principal that invoked the operation.
	Actor id.Principal
	// Subject is the entity the operation acted on: a principal for role
	// changes, a token id for allocations, empty for global settings.
	Subject   string
	Action    string
	Reason    string
	RequestID string
	// Attributes carries the resolved values of the change (e.g. all four
	// quotas after a reconfiguration). Values are pre-formatted strings so
	// every sink serializes them identically.
	Attributes map[string]string
}

type AuditEvent string

const (
	EventRoleChanged           AuditEvent = "role_changed"
	EventWhitelistChanged      AuditEvent = "whitelist_changed"
	EventSaleStateChanged      AuditEvent = "sale_state_changed"
	EventQuotasChanged         AuditEvent = "quotas_changed"
	EventMetadataPrefixChanged AuditEvent = "metadata_prefix_changed"
	EventPaused                AuditEvent = "paused"
	EventUnpaused              AuditEvent = "unpaused"
	EventTokenAllocated        AuditEvent = "token_allocated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventTokenAllocated: CategoryCompliance,

	EventRoleChanged:      CategorySecurity,
	EventWhitelistChanged: CategorySecurity,
	EventPaused:           CategorySecurity,
	EventUnpaused:         CategorySecurity,

	EventSaleStateChanged:      CategoryOperations,
	EventQuotasChanged:         CategoryOperations,
	EventMetadataPrefixChanged: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists persisted events for inspection endpoints and tests.
type Reader interface {
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
