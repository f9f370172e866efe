package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	keyJunk    = regexp.MustCompile(`[^A-Z0-9& ]+`)
	keySpaces  = regexp.MustCompile(`\s+`)
	leadingNum = regexp.MustCompile(`^\s*(\d{2})`)
)

// NormalizeKeyPart upper-cases and collapses a natural key component
func NormalizeKeyPart(s string) string {
	s = strings.ToUpper(s)
	s = keyJunk.ReplaceAllString(s, " ")
	s = keySpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// EyeSizeOf returns the eye measurement of an item, derived from its size string if needed
func EyeSizeOf(item LineItem) string {
	if item.EyeSize != "" {
		return strings.TrimSpace(item.EyeSize)
	}
	if m := leadingNum.FindStringSubmatch(item.Size); m != nil {
		return m[1]
	}
	return NormalizeKeyPart(item.Size)
}

// NaturalKey builds the catalog key for an item observed from a vendor
func NaturalKey(vendorID int64, item LineItem) CatalogKey {
	return CatalogKey{
		VendorID: vendorID,
		ModelKey: NormalizeKeyPart(item.Brand) + "/" + NormalizeKeyPart(item.Model),
		ColorKey: NormalizeKeyPart(item.Color),
		EyeSize:  EyeSizeOf(item),
	}
}

// MergeCatalogEntry folds a new sighting into a stored entry. An incoming value
// replaces a stored one unless the stored row is verified with strictly higher
// confidence; blanks are always filled.
func MergeCatalogEntry(existing, incoming *CatalogEntry) CatalogEntry {
	merged := *existing
	protected := existing.Verified && existing.Confidence > incoming.Confidence

	takeString := func(dst *string, src string) {
		if src != "" && (*dst == "" || !protected) {
			*dst = src
		}
	}
	takeFloat := func(dst **float64, src *float64) {
		if src != nil && (*dst == nil || !protected) {
			v := *src
			*dst = &v
		}
	}

	takeString(&merged.Brand, incoming.Brand)
	takeString(&merged.Model, incoming.Model)
	takeString(&merged.Color, incoming.Color)
	takeString(&merged.ColorNormalized, incoming.ColorNormalized)
	takeString(&merged.Material, incoming.Material)
	takeString(&merged.UPC, incoming.UPC)
	takeFloat(&merged.WholesalePrice, incoming.WholesalePrice)
	takeFloat(&merged.RetailPrice, incoming.RetailPrice)
	if incoming.InStock != nil && (merged.InStock == nil || !protected) {
		v := *incoming.InStock
		merged.InStock = &v
	}

	if !protected {
		merged.Source = incoming.Source
	}
	if incoming.Confidence > merged.Confidence {
		merged.Confidence = incoming.Confidence
	}
	merged.Verified = existing.Verified || incoming.Verified
	merged.Sightings = existing.Sightings + 1
	merged.LastSeenAt = incoming.LastSeenAt

	return merged
}

// CatalogService maintains the deduplicated catalog of observed SKUs
type CatalogService struct {
	repo                CatalogRepository
	logger              *zap.Logger
	extractedConfidence int
	enrichedConfidence  int
	clock               func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	repo CatalogRepository,
	logger *zap.Logger,
	extractedConfidence int,
	enrichedConfidence int,
) *CatalogService {
	return &CatalogService{
		repo:                repo,
		logger:              logger,
		extractedConfidence: clampConfidence(extractedConfidence),
		enrichedConfidence:  clampConfidence(enrichedConfidence),
		clock:               time.Now,
	}
}

// CacheItem records an item scraped from a vendor email
func (s *CatalogService) CacheItem(ctx context.Context, vendorID int64, item LineItem) (*CatalogEntry, bool, error) {
	return s.CacheObservation(ctx, vendorID, item, SourceExtracted)
}

// CacheObservation records an item sighting from the given source
func (s *CatalogService) CacheObservation(ctx context.Context, vendorID int64, item LineItem, source CatalogSource) (*CatalogEntry, bool, error) {
	entry := s.entryFor(vendorID, item, source)

	stored, created, err := s.repo.UpsertCatalogEntry(ctx, entry)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert catalog entry %s %s: %w", entry.Key.ModelKey, entry.Key.ColorKey, err)
	}

	s.logger.Debug("Cached catalog entry",
		zap.Int64("vendor_id", vendorID),
		zap.String("model_key", entry.Key.ModelKey),
		zap.String("color_key", entry.Key.ColorKey),
		zap.String("eye_size", entry.Key.EyeSize),
		zap.Bool("created", created),
		zap.Int("confidence", stored.Confidence))

	return stored, created, nil
}

// CacheOrder records every item of an extracted order and returns the number of new rows
func (s *CatalogService) CacheOrder(ctx context.Context, vendorID int64, order *ExtractedOrder) (int, error) {
	created := 0
	for _, item := range order.Items {
		_, isNew, err := s.CacheItem(ctx, vendorID, item)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

// Lookup returns the entry for an item, if it has been seen before
func (s *CatalogService) Lookup(ctx context.Context, vendorID int64, item LineItem) (*CatalogEntry, error) {
	return s.repo.GetCatalogEntry(ctx, NaturalKey(vendorID, item))
}

// ListEntries returns a vendor's entries, verified and higher-confidence rows first
func (s *CatalogService) ListEntries(ctx context.Context, vendorID int64, minConfidence int) ([]CatalogEntry, error) {
	return s.repo.ListCatalogEntries(ctx, vendorID, minConfidence)
}

func (s *CatalogService) entryFor(vendorID int64, item LineItem, source CatalogSource) *CatalogEntry {
	confidence := s.extractedConfidence
	if source == SourceEnriched {
		confidence = s.enrichedConfidence
	}
	if item.Confidence > 0 && item.Confidence < confidence {
		confidence = item.Confidence
	}

	now := s.clock()
	return &CatalogEntry{
		Key:             NaturalKey(vendorID, item),
		Brand:           item.Brand,
		Model:           item.Model,
		Color:           firstNonEmpty(item.ColorRaw, item.Color),
		ColorNormalized: item.Color,
		Material:        item.Material,
		UPC:             item.UPC,
		WholesalePrice:  item.UnitPrice,
		RetailPrice:     item.RetailPrice,
		Confidence:      confidence,
		Verified:        source == SourceEnriched,
		Source:          source,
		Sightings:       1,
		FirstSeenAt:     now,
		LastSeenAt:      now,
	}
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
