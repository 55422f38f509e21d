package feature_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/pipeline/pkg/feature"
)

func TestMemoryLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	salon := &feature.Tenant{
		ID:        "salon-1",
		Name:      "Glow Studio",
		Timezone:  "Europe/Paris",
		Currency:  "EUR",
		Platforms: []string{"instagram", "facebook"},
	}

	t.Run("seeded tenant is returned by copy", func(t *testing.T) {
		t.Parallel()

		lookup, err := feature.NewMemoryLookup(salon)
		require.NoError(t, err)

		got, err := lookup.GetTenant(ctx, "salon-1")
		require.NoError(t, err)
		assert.Equal(t, "Glow Studio", got.Name)

		got.Platforms[0] = "mutated"
		again, err := lookup.GetTenant(ctx, "salon-1")
		require.NoError(t, err)
		assert.Equal(t, "instagram", again.Platforms[0])
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		lookup, err := feature.NewMemoryLookup(salon)
		require.NoError(t, err)

		_, err = lookup.GetTenant(ctx, "nope")
		assert.ErrorIs(t, err, feature.ErrTenantNotFound)

		_, err = lookup.IsEnabled(ctx, "nope", feature.FlagRemindersEnabled)
		assert.ErrorIs(t, err, feature.ErrTenantNotFound)
	})

	t.Run("flags", func(t *testing.T) {
		t.Parallel()

		lookup, err := feature.NewMemoryLookup(salon)
		require.NoError(t, err)
		lookup.SetFlag("salon-1", feature.FlagRemindersEnabled, true)
		lookup.SetFlag("salon-1", feature.FlagAutoPostEnabled, false)

		enabled, err := lookup.IsEnabled(ctx, "salon-1", feature.FlagRemindersEnabled)
		require.NoError(t, err)
		assert.True(t, enabled)

		enabled, err = lookup.IsEnabled(ctx, "salon-1", feature.FlagAutoPostEnabled)
		require.NoError(t, err)
		assert.False(t, enabled)

		_, err = lookup.IsEnabled(ctx, "salon-1", feature.FlagCompetitorEnabled)
		assert.ErrorIs(t, err, feature.ErrFlagNotFound)
	})

	t.Run("empty tenant id rejected", func(t *testing.T) {
		t.Parallel()

		_, err := feature.NewMemoryLookup(&feature.Tenant{Name: "anonymous"})
		assert.ErrorIs(t, err, feature.ErrInvalidTenant)
	})

	t.Run("timezone fallback", func(t *testing.T) {
		t.Parallel()

		tenant := feature.Tenant{ID: "x", Timezone: "Mars/Olympus"}
		assert.Equal(t, "UTC", tenant.Location().String())

		paris := feature.Tenant{ID: "y", Timezone: "Europe/Paris"}
		assert.Equal(t, "Europe/Paris", paris.Location().String())
	})
}
