package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/store/storetest"
)

func f64(v float64) *float64 { return &v }

func located(lat, lon float64) models.CallerContext {
	c := models.AnonymousCaller()
	c.Latitude, c.Longitude = f64(lat), f64(lon)
	return c
}

func nearbyStore() *storetest.Memory {
	return &storetest.Memory{
		Nearby: []models.NearbyEquipment{
			{Equipment: models.Equipment{ID: "far", Name: "Rotavator", Category: "rotavator", IsAvailable: true}, DistanceKm: 42.31},
			{Equipment: models.Equipment{ID: "near", Name: "Swaraj 744", Category: "tractor", Location: "Ludhiana",
				PricePerDay: f64(2500), Rating: f64(4.5), IsAvailable: true}, DistanceKm: 3.04},
			{Equipment: models.Equipment{ID: "out", Name: "Harvester"}, DistanceKm: 80},
		},
	}
}

func base() models.QueryResult {
	return format.Build("=== PLATFORM DATA (Real-time) ===", []string{"equipment table (real-time full listing)"},
		false, string(intent.ListEquipment), models.FreshnessRealTime)
}

func TestEnrich_AppendsNearestFirst(t *testing.T) {
	st := nearbyStore()
	e := NewEnricher(st, Config{RadiusKm: 50, Limit: 10}, logger.NewTestLogger(t))

	in := base()
	out := e.Enrich(context.Background(), intent.ListEquipment, located(30.9, 75.85), in)

	want := "=== PLATFORM DATA (Real-time) ===\n\n" +
		"=== NEARBY EQUIPMENT ===\n\n" +
		"📍 2 equipment within 50 km of your location\n\n" +
		"| # | Name | Category | Distance | Price/Day | Location | Rating | Available |\n" +
		"|---|------|----------|----------|-----------|----------|--------|-----------|\n" +
		"| 1 | Swaraj 744 | tractor | 3.0 km | ₹2,500 | Ludhiana | 4.5/5 | ✅ Yes |\n" +
		"| 2 | Rotavator | rotavator | 42.3 km | N/A | N/A | N/A | ✅ Yes |"
	assert.Equal(t, want, out.Context)
	assert.Equal(t, []string{"equipment table (real-time full listing)", "equipment table (geo: within 50 km)"}, out.Sources)
	assert.True(t, out.HasContext)

	// the input result is not mutated
	assert.Len(t, in.Sources, 1)
	assert.Equal(t, 1, st.Calls("NearbyEquipment"))
}

func TestEnrich_NoOps(t *testing.T) {
	errStore := nearbyStore()
	errStore.Errors = map[string]error{"NearbyEquipment": errors.New("relation does not exist")}

	tests := []struct {
		name   string
		st     *storetest.Memory
		kind   intent.Kind
		caller models.CallerContext
		in     models.QueryResult
	}{
		{"ineligible intent", nearbyStore(), intent.CountEquipment, located(30.9, 75.85), base()},
		{"no coordinates", nearbyStore(), intent.ListEquipment, models.AnonymousCaller(), base()},
		{"out of range latitude", nearbyStore(), intent.ListEquipment, located(120, 75.85), base()},
		{"error result", nearbyStore(), intent.ListEquipment, located(30.9, 75.85), format.ErrorResult("list_equipment", "boom")},
		{"lookup failure", errStore, intent.VectorSearch, located(30.9, 75.85), base()},
		{"nothing nearby", &storetest.Memory{}, intent.SearchEquipment, located(30.9, 75.85), base()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(tt.st, Config{}, logger.NewTestLogger(t))
			assert.Equal(t, tt.in, e.Enrich(context.Background(), tt.kind, tt.caller, tt.in))
		})
	}
}

func TestEnrich_NilEnricher(t *testing.T) {
	var e *Enricher
	in := base()
	assert.Equal(t, in, e.Enrich(context.Background(), intent.ListEquipment, located(1, 1), in))
}

type slowFinder struct{}

func (slowFinder) NearbyEquipment(ctx context.Context, _, _, _ float64, _ int) ([]models.NearbyEquipment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEnrich_TimeoutDegrades(t *testing.T) {
	e := NewEnricher(slowFinder{}, Config{Timeout: 10 * time.Millisecond}, logger.NewTestLogger(t))

	in := base()
	out := e.Enrich(context.Background(), intent.AvailableEquipment, located(30.9, 75.85), in)
	require.Equal(t, in, out)
}

func TestEligible(t *testing.T) {
	var got []intent.Kind
	for _, k := range intent.AllKinds() {
		if Eligible(k) {
			got = append(got, k)
		}
	}
	assert.ElementsMatch(t, []intent.Kind{
		intent.SearchEquipment,
		intent.ListEquipment,
		intent.ListEquipmentCategory,
		intent.AvailableEquipment,
		intent.VectorSearch,
	}, got)
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, float64(DefaultRadiusKm), c.RadiusKm)
	assert.Equal(t, DefaultLimit, c.Limit)
	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.Equal(t, "equipment table (geo: within 12.5 km)", Source(12.5))
}
