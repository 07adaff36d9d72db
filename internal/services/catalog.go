package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/veloracart/velora/internal/catalog"
	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/logging"
	"github.com/veloracart/velora/internal/models"
	"github.com/veloracart/velora/internal/observability"
)

type manifestParser interface {
	Parse(content []byte) (*catalog.Manifest, error)
}

type manifestValidator interface {
	Validate(manifest *catalog.Manifest) error
}

type catalogProductStore interface {
	UpsertBySKU(ctx context.Context, product *db.Product) error
}

// CatalogService imports product manifests into the catalog. Imports are
// upserts keyed by SKU, so re-running a manifest is safe.
type CatalogService struct {
	productStore catalogProductStore
	parser       manifestParser
	validator    manifestValidator
	logger       *slog.Logger
}

func NewCatalogService(productStore catalogProductStore, parser manifestParser, validator manifestValidator, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		productStore: productStore,
		parser:       parser,
		validator:    validator,
		logger:       logger,
	}
}

type ImportResult struct {
	Imported int
}

// ImportManifest parses, validates, and upserts every product in the
// manifest. Validation runs over the whole document first so a bad entry
// never leaves a half-applied import behind on parse errors.
func (s *CatalogService) ImportManifest(ctx context.Context, content []byte) (ImportResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.catalog.import_manifest",
		sentry.WithOpName("service.catalog"),
		sentry.WithDescription("ImportManifest"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	result := ImportResult{}
	meter := observability.MeterFromContext(ctx)

	manifest, err := s.parser.Parse(content)
	if err != nil {
		meter.Count("catalog.import.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "parse_failed"),
		))
		return result, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := s.validator.Validate(manifest); err != nil {
		meter.Count("catalog.import.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "invalid_manifest"),
		))
		return result, fmt.Errorf("invalid manifest: %w", err)
	}

	for _, entry := range manifest.Products {
		availability := models.AvailabilityOutOfStock
		if entry.Available {
			availability = models.AvailabilityAvailable
		}

		product := &db.Product{
			SKU:          entry.SKU,
			Name:         entry.Name,
			Description:  entry.Description,
			Category:     entry.Category,
			ImageURL:     entry.ImageURL,
			PriceCents:   entry.PriceCents,
			Availability: availability,
		}

		if err := s.productStore.UpsertBySKU(ctx, product); err != nil {
			meter.Count("catalog.import.failed", 1, sentry.WithAttributes(
				attribute.String("reason", "upsert_failed"),
			))
			return result, fmt.Errorf("failed to upsert product %s: %w", entry.SKU, err)
		}
		result.Imported++
	}

	meter.Count("catalog.import.succeeded", 1)
	logging.FromContext(ctx, s.logger).Info("catalog manifest imported", "products", result.Imported)
	return result, nil
}
