package disputes

import (
	"time"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	"github.com/luisareyes-dev/tianguis-backend/pkg/types"
)

// OpenInput creates a dispute on a delivered order.
type OpenInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Type      enums.DisputeType
	Priority  enums.DisputePriority
	Reason    string
	Evidence  []string
	ItemIDs   []uuid.UUID
}

// AddMessageInput appends a message to the dispute thread.
type AddMessageInput struct {
	DisputeID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Body      string
	Internal  bool
}

// AssignInput sets or clears the admin assignee.
type AssignInput struct {
	DisputeID  uuid.UUID
	ActorID    uuid.UUID
	ActorRole  enums.ActorRole
	AssignedTo types.NullableUUID
}

// UpdateStatusInput moves a dispute between open and investigating.
type UpdateStatusInput struct {
	DisputeID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Status    enums.DisputeStatus
}

// UpdatePriorityInput changes the triage priority.
type UpdatePriorityInput struct {
	DisputeID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Priority  enums.DisputePriority
}

// ResolveInput records the final resolution of a dispute.
type ResolveInput struct {
	DisputeID         uuid.UUID
	ActorID           uuid.UUID
	ActorRole         enums.ActorRole
	Resolution        enums.ResolutionType
	Notes             string
	RefundAmountCents *int
}

// EscalateInput flags a dispute for senior review.
type EscalateInput struct {
	DisputeID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Reason    string
}

// CloseInput terminates a dispute without a resolution record.
type CloseInput struct {
	DisputeID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Reason    string
}

// Filters narrow dispute listings. OpenedBy and VendorID are set by the
// service from the acting caller, not from request input.
type Filters struct {
	Status     *enums.DisputeStatus
	Priority   *enums.DisputePriority
	OrderID    *uuid.UUID
	AssignedTo *uuid.UUID

	OpenedBy *uuid.UUID
	VendorID *uuid.UUID
}

// Summary is the listing projection of a dispute.
type Summary struct {
	ID           uuid.UUID             `json:"id"`
	OrderID      uuid.UUID             `json:"order_id"`
	Type         enums.DisputeType     `json:"type"`
	Status       enums.DisputeStatus   `json:"status"`
	Priority     enums.DisputePriority `json:"priority"`
	Reason       string                `json:"reason"`
	AssignedTo   *uuid.UUID            `json:"assigned_to,omitempty"`
	RefundStatus enums.RefundStatus    `json:"refund_status"`
	CreatedAt    time.Time             `json:"created_at"`
}

// List is a cursor page of dispute summaries.
type List struct {
	Disputes   []Summary `json:"disputes"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
