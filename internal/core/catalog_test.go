package core_test

import (
	"context"
	"testing"

	"github.com/mikey/vendor-order-intake/internal/adapters/store"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func price(v float64) *float64 { return &v }

func TestNaturalKey(t *testing.T) {
	key := core.NaturalKey(7, core.LineItem{
		Brand: "Genevieve  Boutique",
		Model: "GB+ Allure",
		Color: "black/gold",
		Size:  "52-17-140",
	})

	assert.Equal(t, int64(7), key.VendorID)
	assert.Equal(t, "GENEVIEVE BOUTIQUE/GB ALLURE", key.ModelKey)
	assert.Equal(t, "BLACK GOLD", key.ColorKey)
	assert.Equal(t, "52", key.EyeSize)
}

func TestEyeSizeOf(t *testing.T) {
	assert.Equal(t, "54", core.EyeSizeOf(core.LineItem{EyeSize: " 54 ", Size: "52-17-140"}))
	assert.Equal(t, "49", core.EyeSizeOf(core.LineItem{Size: "49[]20"}))
	assert.Equal(t, "ONE SIZE", core.EyeSizeOf(core.LineItem{Size: "one size"}))
}

func TestMergeCatalogEntry(t *testing.T) {
	existing := &core.CatalogEntry{
		Brand:          "Safilo",
		Color:          "Havana",
		WholesalePrice: price(80),
		Confidence:     70,
		Source:         core.SourceExtracted,
		Sightings:      1,
	}
	incoming := &core.CatalogEntry{
		Color:          "Dark Havana",
		UPC:            "716736123456",
		WholesalePrice: price(85),
		Confidence:     70,
		Source:         core.SourceExtracted,
	}

	merged := core.MergeCatalogEntry(existing, incoming)
	assert.Equal(t, "Safilo", merged.Brand)
	assert.Equal(t, "Dark Havana", merged.Color)
	assert.Equal(t, "716736123456", merged.UPC)
	assert.InDelta(t, 85, *merged.WholesalePrice, 0.001)
	assert.Equal(t, 2, merged.Sightings)
}

func TestMergeCatalogEntry_VerifiedWins(t *testing.T) {
	existing := &core.CatalogEntry{
		Color:          "Havana",
		WholesalePrice: price(80),
		Confidence:     95,
		Verified:       true,
		Source:         core.SourceEnriched,
		Sightings:      3,
	}
	incoming := &core.CatalogEntry{
		Color:          "Tortoise",
		Material:       "Acetate",
		WholesalePrice: price(60),
		Confidence:     70,
		Source:         core.SourceExtracted,
	}

	merged := core.MergeCatalogEntry(existing, incoming)
	assert.Equal(t, "Havana", merged.Color)
	assert.Equal(t, "Acetate", merged.Material)
	assert.InDelta(t, 80, *merged.WholesalePrice, 0.001)
	assert.Equal(t, 95, merged.Confidence)
	assert.True(t, merged.Verified)
	assert.Equal(t, core.SourceEnriched, merged.Source)
	assert.Equal(t, 4, merged.Sightings)
}

func TestCatalogService_CacheItem(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(zap.NewNop())
	svc := core.NewCatalogService(s, zap.NewNop(), 70, 95)

	item := core.LineItem{
		Brand:     "Modern Art",
		Model:     "A614",
		Color:     "Blue",
		Size:      "50-18-140",
		UPC:       "675254301206",
		UnitPrice: price(42),
	}

	entry, created, err := svc.CacheItem(ctx, 1, item)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 70, entry.Confidence)
	assert.False(t, entry.Verified)

	entry, created, err = svc.CacheItem(ctx, 1, item)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, entry.Sightings)

	enriched, _, err := svc.CacheObservation(ctx, 1, core.LineItem{
		Brand: "Modern Art", Model: "A614", Color: "Blue", Size: "50-18-140", Material: "Metal",
	}, core.SourceEnriched)
	require.NoError(t, err)
	assert.True(t, enriched.Verified)
	assert.Equal(t, 95, enriched.Confidence)
	assert.Equal(t, "Metal", enriched.Material)

	found, err := svc.Lookup(ctx, 1, item)
	require.NoError(t, err)
	assert.Equal(t, enriched.ID, found.ID)

	entries, err := svc.ListEntries(ctx, 1, 90)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCatalogService_ItemConfidenceCapsEntry(t *testing.T) {
	s := store.NewMemoryStore(zap.NewNop())
	svc := core.NewCatalogService(s, zap.NewNop(), 70, 95)

	entry, _, err := svc.CacheItem(context.Background(), 2, core.LineItem{
		Brand: "Carrera", Model: "1055/S", Color: "Black", Size: "56", Confidence: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, entry.Confidence)
}
