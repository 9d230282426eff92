package email

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumatch/internal/types"
)

func TestDefaultRegistry_CoversAllKinds(t *testing.T) {
	r := DefaultRegistry()
	for _, kind := range types.AllKinds() {
		_, ok := r.Lookup(kind)
		assert.True(t, ok, "no template registered for %s", kind)
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	r := DefaultRegistry()

	_, ok := r.Lookup(types.NotificationKind("SMS_BLAST"))
	assert.False(t, ok, "expected no template for unknown kind")

	_, ok = r.Render(types.NotificationKind("SMS_BLAST"), nil)
	assert.False(t, ok, "expected Render to report unknown kind")
}

func TestRegistry_CopiesTemplateTable(t *testing.T) {
	table := map[types.NotificationKind]RenderFunc{
		types.KindWelcome: renderWelcome,
	}
	r := NewRegistry(table)

	// Mutating the source table must not affect the registry.
	delete(table, types.KindWelcome)
	table[types.KindPasswordChanged] = renderPasswordChanged

	_, ok := r.Lookup(types.KindWelcome)
	assert.True(t, ok, "registry lost template after source table mutation")

	_, ok = r.Lookup(types.KindPasswordChanged)
	assert.False(t, ok, "registry gained template after source table mutation")
}

func TestRegistry_RenderToleratesBadMetadata(t *testing.T) {
	r := DefaultRegistry()

	cases := []struct {
		name string
		raw  json.RawMessage
	}{
		{"nil", nil},
		{"empty object", json.RawMessage(`{}`)},
		{"null", json.RawMessage(`null`)},
		{"invalid json", json.RawMessage(`{"firstName":`)},
		{"wrong types", json.RawMessage(`{"firstName":42}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rendered, ok := r.Render(types.KindWelcome, tc.raw)
			require.True(t, ok, "expected render to succeed for known kind")
			assert.NotEmpty(t, rendered.Subject)
			assert.NotEmpty(t, rendered.HTML)
		})
	}
}
