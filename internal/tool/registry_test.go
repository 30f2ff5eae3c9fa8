package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSpec(name string) Spec {
	return Spec{
		Name:        name,
		Description: "echoes its input",
		Parameters:  map[string]any{"type": "object"},
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			return name, nil
		},
	}
}

func TestRegisterPreservesOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		require.NoError(t, r.Register(echoSpec(n)))
	}

	all := r.All()
	require.Len(t, all, len(names))
	for i, n := range names {
		assert.Equal(t, n, all[i].Name)
	}
	assert.Equal(t, len(names), r.Len())
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec("clock")))

	err := r.Register(echoSpec("clock"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterValidates(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Spec{Handler: func(context.Context, map[string]any) (string, error) { return "", nil }})
	assert.Error(t, err, "empty name must be rejected")

	err = r.Register(Spec{Name: "broken"})
	assert.Error(t, err, "nil handler must be rejected")
	assert.Equal(t, 0, r.Len())
}

func TestLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec("clock")))

	spec, ok := r.Lookup("clock")
	require.True(t, ok)
	assert.Equal(t, "clock", spec.Name)

	out, err := spec.Handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "clock", out)

	_, ok = r.Lookup("nope")
	assert.False(t, ok)
}
