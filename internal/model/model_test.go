package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "available_for_pickup", RequestApproved.Label(SurfaceCustomer))
	assert.Equal(t, "approved", RequestApproved.Label(SurfaceAdmin))
	assert.Equal(t, "pending", RequestPending.Label(SurfaceCustomer))
	assert.Equal(t, "completed", RequestCompleted.Label(SurfaceCustomer))
}

func TestParseRequestStatus(t *testing.T) {
	st, ok := ParseRequestStatus(" Available_For_Pickup ")
	require.True(t, ok)
	assert.Equal(t, RequestApproved, st)

	st, ok = ParseRequestStatus("REJECTED")
	require.True(t, ok)
	assert.Equal(t, RequestRejected, st)

	_, ok = ParseRequestStatus("deleted")
	assert.False(t, ok)
	_, ok = ParseRequestStatus("")
	assert.False(t, ok)
}

func TestParseSurface(t *testing.T) {
	assert.Equal(t, SurfaceCustomer, ParseSurface("Customer"))
	assert.Equal(t, SurfaceAdmin, ParseSurface("admin"))
	assert.Equal(t, SurfaceAdmin, ParseSurface(""))
	assert.Equal(t, SurfaceAdmin, ParseSurface("kiosk"))
}

func TestTerminal(t *testing.T) {
	assert.True(t, RequestRejected.Terminal())
	assert.True(t, RequestCompleted.Terminal())
	assert.False(t, RequestPending.Terminal())
	assert.False(t, RequestApproved.Terminal())
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := now

	r := LoyaltyRequest{Status: RequestApproved, ExpiresAt: &exp}
	assert.True(t, r.Expired(now))
	assert.False(t, r.Expired(now.Add(-time.Microsecond)))

	r.Status = RequestCompleted
	assert.False(t, r.Expired(now.Add(time.Hour)))

	r = LoyaltyRequest{Status: RequestApproved}
	assert.False(t, r.Expired(now))
}

func TestLedgerEntryValidate(t *testing.T) {
	cases := []struct {
		kind   EntryKind
		amount int64
		ok     bool
	}{
		{EntryEarned, 10, true},
		{EntryCredit, 5, true},
		{EntrySpent, -30, true},
		{EntryDebit, -1, true},
		{EntryEarned, -10, false},
		{EntrySpent, 30, false},
		{EntryDebit, 0, false},
		{EntryKind("bonus"), 5, false},
	}
	for _, tc := range cases {
		err := LedgerEntry{Kind: tc.kind, Amount: tc.amount}.Validate()
		if tc.ok {
			assert.NoError(t, err, "%s %d", tc.kind, tc.amount)
		} else {
			assert.ErrorIs(t, err, ErrInvalidAmount, "%s %d", tc.kind, tc.amount)
		}
	}
}

func TestPointsForFloors(t *testing.T) {
	cfg := PointsConfig{CurrencyUnitsPerPoint: decimal.NewFromInt(10)}
	assert.EqualValues(t, 50, cfg.PointsFor(decimal.RequireFromString("505")))
	assert.EqualValues(t, 0, cfg.PointsFor(decimal.RequireFromString("9.99")))
	assert.EqualValues(t, 0, cfg.PointsFor(decimal.RequireFromString("-100")))

	cfg.CurrencyUnitsPerPoint = decimal.RequireFromString("2.5")
	assert.EqualValues(t, 4, cfg.PointsFor(decimal.RequireFromString("11")))

	cfg.CurrencyUnitsPerPoint = decimal.Zero
	assert.EqualValues(t, 0, cfg.PointsFor(decimal.NewFromInt(100)))
}

func TestTransitionErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("approve: %w", &TransitionError{RequestID: "r1", Current: RequestCompleted, Target: RequestApproved})
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, RequestCompleted, te.Current)
}
