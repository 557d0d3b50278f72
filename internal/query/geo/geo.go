// Package geo appends nearby equipment to results for callers who shared
// their location.
package geo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "agriserve-query/internal/common/errors"
	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/intent"
)

const (
	DefaultRadiusKm = 50
	DefaultLimit    = 10
	DefaultTimeout  = 3 * time.Second
)

// Finder looks up equipment by great-circle distance. store.Store satisfies it.
type Finder interface {
	NearbyEquipment(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyEquipment, error)
}

type Config struct {
	RadiusKm float64
	Limit    int
	Timeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.RadiusKm <= 0 {
		c.RadiusKm = DefaultRadiusKm
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

var eligible = map[intent.Kind]bool{
	intent.SearchEquipment:       true,
	intent.ListEquipment:         true,
	intent.ListEquipmentCategory: true,
	intent.AvailableEquipment:    true,
	intent.VectorSearch:          true,
}

// Eligible reports whether results of kind k may carry nearby equipment.
func Eligible(k intent.Kind) bool {
	return eligible[k]
}

type Enricher struct {
	finder Finder
	cfg    Config
	log    logger.Logger
}

func NewEnricher(finder Finder, cfg Config, log logger.Logger) *Enricher {
	return &Enricher{finder: finder, cfg: cfg.withDefaults(), log: log}
}

// Enrich appends nearby equipment to res. It returns res unchanged when the
// kind is not eligible, the caller has no usable coordinates, the result is
// an error, or the lookup fails or finds nothing.
func (e *Enricher) Enrich(ctx context.Context, k intent.Kind, caller models.CallerContext, res models.QueryResult) models.QueryResult {
	if e == nil || e.finder == nil || !Eligible(k) || !caller.HasCoordinates() || format.IsErrorResult(res) {
		return res
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	items, err := e.finder.NearbyEquipment(lookupCtx, *caller.Latitude, *caller.Longitude, e.cfg.RadiusKm, e.cfg.Limit)
	if err != nil {
		stdErr := apperrors.NewGeoLookupFailedError(err)
		e.log.Warn("geo enrichment skipped", map[string]interface{}{
			"intent":     string(k),
			"error_code": string(stdErr.Code),
			"error":      err.Error(),
		})
		return res
	}
	if len(items) == 0 {
		return res
	}

	out := res
	out.Context = res.Context + "\n\n" + FormatContext(items, e.cfg.RadiusKm)
	out.Sources = append(append([]string{}, res.Sources...), Source(e.cfg.RadiusKm))
	out.HasContext = true
	return out
}

// Source names the geo lookup in a result's sources.
func Source(radiusKm float64) string {
	return fmt.Sprintf("equipment table (geo: within %s km)", km(radiusKm))
}

// FormatContext renders nearby equipment, nearest first.
func FormatContext(items []models.NearbyEquipment, radiusKm float64) string {
	lines := []string{
		"=== NEARBY EQUIPMENT ===",
		"",
		fmt.Sprintf("📍 %d equipment within %s km of your location", len(items), km(radiusKm)),
		"",
	}

	t := format.NewTable("#", "Name", "Category", "Distance", "Price/Day", "Location", "Rating", "Available")
	for i, n := range items {
		t.Row(
			strconv.Itoa(i+1),
			format.OrNA(n.Name),
			format.OrNA(n.Category),
			fmt.Sprintf("%.1f km", n.DistanceKm),
			format.Currency(n.PricePerDay),
			format.Truncate(n.Location, 20),
			format.Rating(n.Rating),
			format.Availability(n.IsAvailable),
		)
	}
	lines = append(lines, t.Lines()...)
	return strings.Join(lines, "\n")
}

func km(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
