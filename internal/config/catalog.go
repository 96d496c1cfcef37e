package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

// Built-in enumerations used when neither the environment nor a catalog file provides them.
var (
	DefaultCategories = []string{"Tools", "Parts", "Consumables", "Equipment"}
	DefaultUOMs       = []string{"EA", "BOX", "CASE", "FT", "LB", "GAL"}
	DefaultLocations  = []string{"Warehouse", "Shop", "Yard", "Truck"}
)

// LoadCatalog returns the configured enumerations. Lists present in the
// catalog file replace the environment values; absent ones are kept.
//
// Example file:
//
//	categories: [Tools, Parts]
//	uoms: [EA, BOX]
//	locations: [Warehouse, Yard]
func LoadCatalog(cfg CatalogConfig) (models.Catalog, error) {
	catalog := models.Catalog{
		Categories: cfg.Categories,
		UOMs:       cfg.UOMs,
		Locations:  cfg.Locations,
	}
	if cfg.Path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("read catalog %s: %w", cfg.Path, err)
	}

	var file models.Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return models.Catalog{}, fmt.Errorf("parse catalog %s: %w", cfg.Path, err)
	}

	if len(file.Categories) > 0 {
		catalog.Categories = file.Categories
	}
	if len(file.UOMs) > 0 {
		catalog.UOMs = file.UOMs
	}
	if len(file.Locations) > 0 {
		catalog.Locations = file.Locations
	}
	return catalog, nil
}
