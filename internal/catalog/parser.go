package catalog

// Package catalog provides product manifest parsing functionality.

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML document admins upload to seed or refresh the product
// catalog in bulk.
type Manifest struct {
	Catalog  CatalogConfig   `yaml:"catalog"`
	Products []ProductConfig `yaml:"products"`
}

type CatalogConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

type ProductConfig struct {
	SKU         string `yaml:"sku"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	ImageURL    string `yaml:"image_url"`
	PriceCents  int    `yaml:"price_cents"`
	Available   bool   `yaml:"available"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(content, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &manifest, nil
}

func (p *Parser) ParseFromString(content string) (*Manifest, error) {
	return p.Parse([]byte(content))
}
