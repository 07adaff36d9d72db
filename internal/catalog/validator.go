package catalog

// Package catalog provides manifest validation.

import (
	"fmt"
	"regexp"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var skuRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,62}[A-Z0-9]$`)

// IsValidSKU validates a product SKU (2-64 chars, uppercase alphanumerics
// with interior underscores or hyphens).
func IsValidSKU(sku string) bool {
	return skuRegex.MatchString(sku)
}

func (v *Validator) Validate(manifest *Manifest) error {
	if err := v.validateCatalog(&manifest.Catalog); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}

	if len(manifest.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	skus := make(map[string]bool)
	for i, product := range manifest.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		if skus[product.SKU] {
			return fmt.Errorf("duplicate SKU: %s", product.SKU)
		}
		skus[product.SKU] = true
	}

	return nil
}

func (v *Validator) validateCatalog(catalog *CatalogConfig) error {
	if strings.TrimSpace(catalog.Name) == "" {
		return fmt.Errorf("catalog name is required")
	}

	if catalog.Currency != "usd" {
		return fmt.Errorf("only USD currency is supported")
	}

	return nil
}

func (v *Validator) validateProduct(product *ProductConfig) error {
	sku := strings.TrimSpace(product.SKU)
	if sku == "" {
		return fmt.Errorf("product SKU is required")
	}
	if !IsValidSKU(sku) {
		return fmt.Errorf("invalid SKU format: %s", sku)
	}

	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	if product.PriceCents <= 0 {
		return fmt.Errorf("product price must be positive")
	}

	if url := strings.TrimSpace(product.ImageURL); url != "" {
		if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
			return fmt.Errorf("product image URL must be http(s): %s", url)
		}
	}

	return nil
}
