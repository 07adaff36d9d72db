package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/logging"
	"github.com/veloracart/velora/internal/models"
	"github.com/veloracart/velora/internal/observability"
)

var (
	ErrProductUnavailable = errors.New("product is out of stock")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidEmail       = errors.New("invalid email address")
)

type storefrontBagStore interface {
	Add(ctx context.Context, item *db.BagItem) error
	ListByUser(ctx context.Context, userID string) ([]*db.BagItem, error)
	Delete(ctx context.Context, itemID uuid.UUID, userID string) error
}

type storefrontWishlistStore interface {
	Toggle(ctx context.Context, userID string, productID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*db.WishlistItem, error)
}

type storefrontProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*db.Product, error)
	ListAll(ctx context.Context) ([]*db.Product, error)
}

type storefrontReviewStore interface {
	Create(ctx context.Context, review *db.Review) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*db.Review, error)
}

type storefrontSubscriberStore interface {
	Subscribe(ctx context.Context, email string) error
}

// StorefrontService covers the browse-side flows: bag, wishlist, reviews,
// and the newsletter list.
type StorefrontService struct {
	bagStore        storefrontBagStore
	wishlistStore   storefrontWishlistStore
	productStore    storefrontProductStore
	reviewStore     storefrontReviewStore
	subscriberStore storefrontSubscriberStore
	logger          *slog.Logger
}

func NewStorefrontService(
	bagStore storefrontBagStore,
	wishlistStore storefrontWishlistStore,
	productStore storefrontProductStore,
	reviewStore storefrontReviewStore,
	subscriberStore storefrontSubscriberStore,
	logger *slog.Logger,
) *StorefrontService {
	return &StorefrontService{
		bagStore:        bagStore,
		wishlistStore:   wishlistStore,
		productStore:    productStore,
		reviewStore:     reviewStore,
		subscriberStore: subscriberStore,
		logger:          logger,
	}
}

func (s *StorefrontService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *StorefrontService) ListProducts(ctx context.Context) ([]*db.Product, error) {
	return s.productStore.ListAll(ctx)
}

func (s *StorefrontService) GetProduct(ctx context.Context, productID uuid.UUID) (*db.Product, error) {
	return s.productStore.GetByID(ctx, productID)
}

// AddToBag snapshots the product into a bag line. Out-of-stock products can
// be wishlisted but never bagged.
func (s *StorefrontService) AddToBag(ctx context.Context, userID string, productID uuid.UUID) (*db.BagItem, error) {
	span := sentry.StartSpan(
		ctx,
		"service.storefront.add_to_bag",
		sentry.WithOpName("service.storefront"),
		sentry.WithDescription("AddToBag"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)

	product, err := s.productStore.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Availability != models.AvailabilityAvailable {
		meter.Count("bag.add.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "out_of_stock"),
		))
		return nil, ErrProductUnavailable
	}

	item := &db.BagItem{
		UserID:       userID,
		ProductID:    product.ID,
		Name:         product.Name,
		ImageURL:     product.ImageURL,
		PriceCents:   product.PriceCents,
		Availability: product.Availability,
	}
	if err := s.bagStore.Add(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add bag item: %w", err)
	}

	meter.Count("bag.item.added", 1)
	return item, nil
}

func (s *StorefrontService) ListBag(ctx context.Context, userID string) ([]*db.BagItem, error) {
	return s.bagStore.ListByUser(ctx, userID)
}

func (s *StorefrontService) RemoveFromBag(ctx context.Context, userID string, itemID uuid.UUID) error {
	if err := s.bagStore.Delete(ctx, itemID, userID); err != nil {
		return err
	}
	observability.MeterFromContext(ctx).Count("bag.item.removed", 1)
	return nil
}

// ToggleWishlist flips a product in and out of the wishlist and reports the
// resulting state.
func (s *StorefrontService) ToggleWishlist(ctx context.Context, userID string, productID uuid.UUID) (bool, error) {
	if _, err := s.productStore.GetByID(ctx, productID); err != nil {
		return false, err
	}

	wishlisted, err := s.wishlistStore.Toggle(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle wishlist: %w", err)
	}

	s.loggerFromContext(ctx).Info("wishlist toggled", "user_id", userID, "product_id", productID, "wishlisted", wishlisted)
	return wishlisted, nil
}

func (s *StorefrontService) ListWishlist(ctx context.Context, userID string) ([]*db.WishlistItem, error) {
	return s.wishlistStore.ListByUser(ctx, userID)
}

func (s *StorefrontService) AddReview(ctx context.Context, userID string, productID uuid.UUID, rating int, comment string) (*db.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	if _, err := s.productStore.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	review := &db.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
	}
	if err := s.reviewStore.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	observability.MeterFromContext(ctx).Count("review.created", 1)
	return review, nil
}

func (s *StorefrontService) ListReviews(ctx context.Context, productID uuid.UUID) ([]*db.Review, error) {
	return s.reviewStore.ListByProduct(ctx, productID)
}

// Subscribe adds an address to the newsletter list. Duplicate subscriptions
// surface as db.ErrAlreadySubscribed.
func (s *StorefrontService) Subscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	if err := s.subscriberStore.Subscribe(ctx, email); err != nil {
		return err
	}

	observability.MeterFromContext(ctx).Count("newsletter.subscribed", 1)
	return nil
}
