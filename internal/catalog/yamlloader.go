package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of a catalog YAML file.
//
// Example:
//
//	categories:
//	  - name: "Mochas"
//	    products:
//	      - id: "729771"
//	        name: "Golden Eagle"
//	        price: 5.50
//	modifiers:
//	  - product_id: "729771"
//	    groups:
//	      - id: size
//	        options:
//	          - {id: medium, name: Medium, price_adjustment: 0.50}
type File struct {
	Categories []Category       `yaml:"categories"`
	Modifiers  []ModifierSchema `yaml:"modifiers"`
}

// Category groups products under a menu heading.
type Category struct {
	// Name is the category's display name.
	Name string `yaml:"name"`

	// Products lists the products in this category.
	Products []Product `yaml:"products"`
}

// LoadFile reads and parses a catalog YAML file from disk and returns a
// ready-to-use [MemStore]. Products inherit their category name when they
// declare no categories of their own.
func LoadFile(path string) (*MemStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()

	store, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", path, err)
	}
	return store, nil
}

// LoadFromReader parses catalog YAML from r. Useful in tests where catalogs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*MemStore, error) {
	var cf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch export drift early
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}

	var products []Product
	for _, cat := range cf.Categories {
		for _, p := range cat.Products {
			if len(p.Categories) == 0 && cat.Name != "" {
				p.Categories = []string{cat.Name}
			}
			products = append(products, p)
		}
	}

	if len(products) == 0 {
		slog.Warn("catalog contains no products; matching will return no results")
	} else {
		slog.Info("catalog loaded",
			"categories", len(cf.Categories),
			"products", len(products),
			"modifier_schemas", len(cf.Modifiers),
		)
	}

	return NewMemStore(products, cf.Modifiers), nil
}
