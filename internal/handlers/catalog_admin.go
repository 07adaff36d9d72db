package handlers

import (
	"io"
	"net/http"

	"github.com/veloracart/velora/internal/cache"
)

const maxManifestBodyBytes = 1 << 20 // 1 MB

// ImportCatalog ingests a YAML product manifest and upserts its products.
func (h *Handlers) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxManifestBodyBytes)
	content, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read manifest", http.StatusBadRequest)
		return
	}

	result, err := h.catalogService.ImportManifest(ctx, content)
	if err != nil {
		logger.Warn("catalog import rejected", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := h.cacheProvider.Delete(ctx, cache.ProductListKey); err != nil {
		logger.Warn("failed to invalidate product listing cache", "error", err)
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"imported": result.Imported})
}
