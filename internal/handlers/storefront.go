package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/veloracart/velora/internal/cache"
	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/services"
)

// productListCacheTTL bounds staleness of the public catalog between imports.
const productListCacheTTL = 30 * time.Second

// ListProducts returns the catalog.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if cached, err := h.cacheProvider.Get(ctx, cache.ProductListKey); err == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cached))
		return
	}

	products, err := h.storefrontService.ListProducts(ctx)
	if err != nil {
		logger.Error("failed to list products", "error", err)
		http.Error(w, "Failed to list products", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(products)
	if err != nil {
		logger.Error("failed to encode product listing", "error", err)
		http.Error(w, "Failed to list products", http.StatusInternalServerError)
		return
	}
	if err := h.cacheProvider.Set(ctx, cache.ProductListKey, string(payload), productListCacheTTL); err != nil {
		logger.Warn("failed to cache product listing", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// GetProduct returns one product with its reviews.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	product, err := h.storefrontService.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, db.ErrProductNotFound) {
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		h.loggerFromContext(ctx).Error("failed to get product", "error", err)
		http.Error(w, "Failed to get product", http.StatusInternalServerError)
		return
	}

	reviews, err := h.storefrontService.ListReviews(ctx, productID)
	if err != nil {
		h.loggerFromContext(ctx).Warn("failed to list reviews", "error", err, "product_id", productID)
		reviews = nil
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"product": product,
		"reviews": reviews,
	})
}

// AddToBag puts a product into the signed-in customer's bag.
func (h *Handlers) AddToBag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		ProductID string `json:"product_id"`
	}
	if err := h.readJSON(w, r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	productID, err := uuid.Parse(body.ProductID)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	item, err := h.storefrontService.AddToBag(ctx, sess.UserID, productID)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrProductNotFound):
			http.Error(w, "Product not found", http.StatusNotFound)
		case errors.Is(err, services.ErrProductUnavailable):
			http.Error(w, "Product is out of stock", http.StatusConflict)
		default:
			h.loggerFromContext(ctx).Error("failed to add to bag", "error", err)
			http.Error(w, "Failed to add to bag", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, item)
}

// ListBag returns the signed-in customer's bag.
func (h *Handlers) ListBag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := h.storefrontService.ListBag(ctx, sess.UserID)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list bag", "error", err)
		http.Error(w, "Failed to list bag", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// RemoveFromBag deletes one bag line.
func (h *Handlers) RemoveFromBag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itemID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid bag item ID", http.StatusBadRequest)
		return
	}

	if err := h.storefrontService.RemoveFromBag(ctx, sess.UserID, itemID); err != nil {
		if errors.Is(err, db.ErrBagItemNotFound) {
			http.Error(w, "Bag item not found", http.StatusNotFound)
			return
		}
		h.loggerFromContext(ctx).Error("failed to remove bag item", "error", err)
		http.Error(w, "Failed to remove bag item", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StartCheckout creates a hosted checkout session for the bag (or a single
// bag line) and returns the redirect URL.
func (h *Handlers) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		BagItemID string `json:"bag_item_id,omitempty"`
	}
	if err := h.readJSON(w, r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	input := services.StartCheckoutInput{UserID: sess.UserID, Email: sess.Email}
	if body.BagItemID != "" {
		bagItemID, err := uuid.Parse(body.BagItemID)
		if err != nil {
			http.Error(w, "Invalid bag item ID", http.StatusBadRequest)
			return
		}
		input.BagItemID = bagItemID
	}

	checkoutURL, err := h.checkoutService.StartCheckout(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBagEmpty):
			http.Error(w, "Bag is empty", http.StatusConflict)
		case errors.Is(err, services.ErrCheckoutForbidden):
			http.Error(w, "Bag item not found", http.StatusNotFound)
		default:
			h.loggerFromContext(ctx).Error("failed to start checkout", "error", err)
			http.Error(w, "Failed to start checkout", http.StatusBadGateway)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"checkout_url": checkoutURL})
}

// ToggleWishlist flips a product in or out of the wishlist.
func (h *Handlers) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	productID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	wishlisted, err := h.storefrontService.ToggleWishlist(ctx, sess.UserID, productID)
	if err != nil {
		if errors.Is(err, db.ErrProductNotFound) {
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		h.loggerFromContext(ctx).Error("failed to toggle wishlist", "error", err)
		http.Error(w, "Failed to toggle wishlist", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"wishlisted": wishlisted})
}

// ListWishlist returns the signed-in customer's wishlist.
func (h *Handlers) ListWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := h.storefrontService.ListWishlist(ctx, sess.UserID)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list wishlist", "error", err)
		http.Error(w, "Failed to list wishlist", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// AddReview attaches a rating and comment to a product.
func (h *Handlers) AddReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.sessionFromRequest(ctx, r)
	if sess == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	productID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := h.readJSON(w, r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	review, err := h.storefrontService.AddReview(ctx, sess.UserID, productID, body.Rating, body.Comment)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrProductNotFound):
			http.Error(w, "Product not found", http.StatusNotFound)
		case errors.Is(err, services.ErrInvalidRating):
			http.Error(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		default:
			h.loggerFromContext(ctx).Error("failed to add review", "error", err)
			http.Error(w, "Failed to add review", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, review)
}

// Subscribe adds an email to the newsletter list. No session required.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Email string `json:"email"`
	}
	if err := h.readJSON(w, r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.storefrontService.Subscribe(ctx, body.Email); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail):
			http.Error(w, "Invalid email address", http.StatusBadRequest)
		case errors.Is(err, db.ErrAlreadySubscribed):
			// Treat resubscription as success.
			w.WriteHeader(http.StatusOK)
		default:
			h.loggerFromContext(ctx).Error("failed to subscribe", "error", err)
			http.Error(w, "Failed to subscribe", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
}
