package model

import "time"

type EventKind string

const (
	EventRequestCreated   EventKind = "request.created"
	EventRequestApproved  EventKind = "request.approved"
	EventRequestRejected  EventKind = "request.rejected"
	EventRequestCompleted EventKind = "request.completed"
	EventRequestDeleted   EventKind = "request.deleted"
	EventBalanceChanged   EventKind = "balance.changed"
)

// Envelope is the change notification written to the outbox and fanned out
// to connected sessions. It is a signal to re-fetch, not state.
type Envelope struct {
	ID         string        `json:"id"`
	TenantID   string        `json:"tenant_id"`
	Kind       EventKind     `json:"kind"`
	CustomerID string        `json:"customer_id,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	ProductID  string        `json:"product_id,omitempty"`
	Points     int64         `json:"points,omitempty"`
	Status     RequestStatus `json:"status,omitempty"`
	At         time.Time     `json:"at"`
}
