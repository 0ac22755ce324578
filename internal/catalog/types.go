// Package catalog provides read-only access to the product catalog consumed
// by the order-resolution pipeline.
//
// A catalog is loaded once (typically from a YAML file exported by the POS
// backend) and is immutable afterwards. Products carry heterogeneous pricing
// schemas — a flat price, a size-keyed price map, or a list of size variants —
// because the upstream menu exports are not uniform across store chains. The
// order composer deals with that variance; this package only models it.
//
// All store operations are safe for concurrent use after loading.
package catalog

// Product is a single sellable catalog entry.
type Product struct {
	// ID is the chain-wide product identifier used by the POS API.
	ID string `yaml:"id" json:"id"`

	// Name is the customer-facing product name (e.g., "Golden Eagle").
	Name string `yaml:"name" json:"name"`

	// Price is the flat base price. Zero or absent means the price must be
	// inferred from SizePrices, Variants, or a configured default.
	Price float64 `yaml:"price,omitempty" json:"price,omitempty"`

	// Categories lists the menu categories this product belongs to
	// (e.g., ["rebel", "energy"]). Used for category-biased matching.
	Categories []string `yaml:"categories,omitempty" json:"categories,omitempty"`

	// SizePrices maps a size name to an absolute price for that size.
	// Keys may appear in any casing depending on the export.
	SizePrices map[string]float64 `yaml:"size_prices,omitempty" json:"size_prices,omitempty"`

	// Variants lists size/price variant records for exports that model
	// sizes as separate sub-entries rather than a map.
	Variants []Variant `yaml:"variants,omitempty" json:"variants,omitempty"`

	// ImageURL is the product image, when the export carries one.
	ImageURL string `yaml:"image_url,omitempty" json:"image_url,omitempty"`
}

// Variant is one size/price record of a product.
type Variant struct {
	// Size is the variant's size label (e.g., "Medium 24oz").
	Size string `yaml:"size,omitempty" json:"size,omitempty"`

	// Name is an alternative label used by some exports instead of Size.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Price is the absolute price of this variant.
	Price float64 `yaml:"price" json:"price"`
}

// ModifierSchema describes the modifier groups available for one product.
type ModifierSchema struct {
	// ProductID links the schema to its product.
	ProductID string `yaml:"product_id" json:"product_id"`

	// Groups is the ordered list of modifier groups.
	Groups []ModifierGroup `yaml:"groups" json:"groups"`
}

// ModifierGroup is a named set of modifier options. The reserved group ID
// "size" holds per-size price adjustments.
type ModifierGroup struct {
	// ID identifies the group (e.g., "size", "milk", "toppings").
	ID string `yaml:"id" json:"id"`

	// Name is the display name of the group.
	Name string `yaml:"name" json:"name"`

	// Options lists the selectable options in this group.
	Options []ModifierOption `yaml:"options" json:"options"`
}

// ModifierOption is a single selectable modifier with its price adjustment.
type ModifierOption struct {
	// ID identifies the option within its group (e.g., "medium", "oat-milk").
	ID string `yaml:"id" json:"id"`

	// Name is the display name (e.g., "Oat Milk").
	Name string `yaml:"name" json:"name"`

	// PriceAdjustment is added to the line price when the option is chosen.
	// May be negative (e.g., kids size).
	PriceAdjustment float64 `yaml:"price_adjustment" json:"price_adjustment"`
}
