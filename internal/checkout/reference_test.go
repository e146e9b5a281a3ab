package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceRoundTrip(t *testing.T) {
	storeID := uuid.New()
	ref := NewReference(storeID, "growth")

	parsed, err := ParseReference(ref.String())
	require.NoError(t, err)
	assert.Equal(t, storeID, parsed.StoreID)
	assert.Equal(t, "growth", parsed.PlanName)
	assert.Equal(t, ref.Nonce, parsed.Nonce)
}

func TestNewReferenceNoncesDiffer(t *testing.T) {
	storeID := uuid.New()
	a := NewReference(storeID, "growth")
	b := NewReference(storeID, "growth")
	assert.NotEqual(t, a.String(), b.String())
}

func TestParseReferenceRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"no-separators",
		"not-a-uuid|growth|abc",
		uuid.NewString() + "|growth",
		uuid.NewString() + "||abc",
		uuid.NewString() + "|growth|",
	}
	for _, raw := range cases {
		_, err := ParseReference(raw)
		assert.Error(t, err, "input %q", raw)
	}
}
