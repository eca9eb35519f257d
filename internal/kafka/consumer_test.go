package kafka

import (
	"testing"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	body := []byte(`{"id":"e1","tenant_id":"t1","kind":"request.approved","request_id":"r1","at":"2025-03-01T12:00:00Z"}`)

	env, err := DecodeEnvelope(Message{Value: body, Headers: []Header{{Key: "tenant_id", Value: []byte("t1")}}})
	require.NoError(t, err)
	assert.Equal(t, "t1", env.TenantID)
	assert.Equal(t, model.EventRequestApproved, env.Kind)
	assert.Equal(t, "r1", env.RequestID)

	_, err = DecodeEnvelope(Message{Value: body})
	require.NoError(t, err)

	cases := map[string]Message{
		"bad json":        {Value: []byte("{not json")},
		"no tenant":       {Value: []byte(`{"id":"e1"}`)},
		"tenant mismatch": {Value: body, Headers: []Header{{Key: "tenant_id", Value: []byte("t2")}}},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEnvelope(m)
			require.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}
