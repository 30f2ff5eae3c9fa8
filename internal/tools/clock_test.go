package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockLocalTime(t *testing.T) {
	spec := Clock()
	out, err := spec.Handler(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestClockKnownCity(t *testing.T) {
	spec := Clock()
	out, err := spec.Handler(context.Background(), map[string]any{"city": "Tokyo"})
	require.NoError(t, err)
	assert.Contains(t, out, "Tokyo")
}

func TestClockGuessedCity(t *testing.T) {
	// Oslo is not in the map but Europe/Oslo is a real zone.
	_, err := cityLocation("oslo")
	require.NoError(t, err)
}

func TestClockUnknownCity(t *testing.T) {
	spec := Clock()
	_, err := spec.Handler(context.Background(), map[string]any{"city": "Atlantis"})
	assert.Error(t, err)
}
