package catalog

import "strings"

// MemStore is the in-memory [Store] implementation. It is populated once at
// construction and read-only afterwards, so no locking is needed.
type MemStore struct {
	products []Product
	byID     map[string]int
	schemas  map[string]ModifierSchema
}

// Ensure MemStore satisfies the Store interface at compile time.
var _ Store = (*MemStore)(nil)

// NewMemStore builds a [MemStore] from the given products and modifier
// schemas. Product order is preserved — the matcher relies on catalog
// insertion order for stable tie-breaking.
func NewMemStore(products []Product, schemas []ModifierSchema) *MemStore {
	s := &MemStore{
		products: products,
		byID:     make(map[string]int, len(products)),
		schemas:  make(map[string]ModifierSchema, len(schemas)),
	}
	for i, p := range products {
		if p.ID != "" {
			s.byID[p.ID] = i
		}
	}
	for _, ms := range schemas {
		if ms.ProductID != "" {
			s.schemas[ms.ProductID] = ms
		}
	}
	return s
}

// Products implements [Store].
func (s *MemStore) Products() []Product {
	return s.products
}

// ProductByID implements [Store].
func (s *MemStore) ProductByID(id string) (Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// SearchByName implements [Store].
func (s *MemStore) SearchByName(name string) []Product {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	var results []Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			results = append(results, p)
		}
	}
	return results
}

// ModifierSchema implements [Store].
func (s *MemStore) ModifierSchema(productID string) ModifierSchema {
	return s.schemas[productID]
}

// ImageURL implements [Store].
func (s *MemStore) ImageURL(p Product) string {
	return p.ImageURL
}
