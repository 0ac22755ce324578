package catalog

// Store is the read-only catalog boundary consumed by the matcher and the
// order composer. Implementations must be safe for concurrent use and must
// not mutate returned data after construction.
type Store interface {
	// Products returns all catalog products in insertion order. The returned
	// slice must be treated as read-only.
	Products() []Product

	// ProductByID returns the product with the given ID, or false when no
	// such product exists.
	ProductByID(id string) (Product, bool)

	// SearchByName returns all products whose lowercased name contains the
	// lowercased needle, in catalog order.
	SearchByName(name string) []Product

	// ModifierSchema returns the modifier schema for the given product ID.
	// The zero schema (empty Groups) is returned when none is defined.
	ModifierSchema(productID string) ModifierSchema

	// ImageURL returns the product's image URL, or "" when none is set.
	ImageURL(p Product) string
}
