package model

import (
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"

	// RequestDeleted names the delete pseudo-transition in errors and events; it is never stored.
	RequestDeleted RequestStatus = "deleted"
)

// SystemExpiredActor is recorded as processed_by when the sweeper completes a request.
const SystemExpiredActor = "system:expired"

func (s RequestStatus) String() string { return string(s) }

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestCompleted:
		return true
	default:
		return false
	}
}

// Terminal states accept no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestCompleted
}

// Surface selects which vocabulary a status is presented in.
type Surface string

const (
	SurfaceAdmin    Surface = "admin"
	SurfaceCustomer Surface = "customer"
)

// ParseSurface normalizes input; empty or unknown => admin.
func ParseSurface(s string) Surface {
	if strings.EqualFold(strings.TrimSpace(s), string(SurfaceCustomer)) {
		return SurfaceCustomer
	}
	return SurfaceAdmin
}

// Label is the presentation name of a status. Customers see an approved
// request as ready for pickup; the stored state is always the canonical one.
func (s RequestStatus) Label(surface Surface) string {
	if surface == SurfaceCustomer && s == RequestApproved {
		return "available_for_pickup"
	}
	return string(s)
}

// ParseRequestStatus accepts canonical names and the customer-facing pickup label.
func ParseRequestStatus(s string) (RequestStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "available_for_pickup" {
		return RequestApproved, true
	}
	st := RequestStatus(v)
	return st, st.Valid()
}

// LoyaltyRequest is a customer's redemption of points for a product.
type LoyaltyRequest struct {
	ID              string        `db:"id" json:"id"`
	TenantID        string        `db:"tenant_id" json:"tenant_id"`
	CustomerID      string        `db:"customer_id" json:"customer_id"`
	ProductID       string        `db:"product_id" json:"product_id"`
	PointsUsed      int64         `db:"points_used" json:"points_used"`
	BalanceBefore   int64         `db:"balance_before" json:"balance_before"`
	Status          RequestStatus `db:"status" json:"status"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	RequestedAt     time.Time     `db:"requested_at" json:"requested_at"`
	ProcessedAt     *time.Time    `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy     *string       `db:"processed_by" json:"processed_by,omitempty"`
	ExpiresAt       *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Expired reports whether an approved request's pickup window has elapsed at now.
func (r LoyaltyRequest) Expired(now time.Time) bool {
	return r.Status == RequestApproved && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
