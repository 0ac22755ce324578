// Package order composes priced point-of-sale orders from matched items.
package order

import "time"

// OrderSource identifies orders produced by this pipeline in downstream
// point-of-sale systems.
const OrderSource = "broista_copilot"

// ModifierLine is one customization attached to a line item, priced
// independently of the base drink.
type ModifierLine struct {
	// ID is a unique identifier for this modifier line.
	ID string `json:"item_id"`

	// Name is the display name of the modifier.
	Name string `json:"name"`

	// Group is the modifier group the option came from, or "custom" when the
	// price was resolved from the fallback table.
	Group string `json:"modifier_group"`

	// Quantity is always 1; repeated modifiers appear as repeated lines.
	Quantity int `json:"quantity"`

	// UnitPrice is the surcharge in dollars.
	UnitPrice float64 `json:"unit_price"`
}

// Breakdown itemises how a line's unit price was computed.
type Breakdown struct {
	// BasePrice is the product price before adjustments.
	BasePrice float64 `json:"base_price"`

	// SizeAdjustment is the size surcharge (negative for kids size).
	SizeAdjustment float64 `json:"size_adjustment"`

	// ModifiersTotal sums the modifier surcharges.
	ModifiersTotal float64 `json:"modifiers_total"`

	// Total is BasePrice + SizeAdjustment + ModifiersTotal, rounded to
	// cents.
	Total float64 `json:"total"`
}

// LineItem is one priced order line. Unmatched items become placeholder
// lines with a zero unit price and RequiresManualSelection set, so an order
// is never silently shortened.
type LineItem struct {
	// ID is a unique identifier for this line.
	ID string `json:"item_id"`

	// ProductID is the catalog product ID, empty for placeholder lines.
	ProductID string `json:"product_id,omitempty"`

	// Name is the product display name, or the customer's phrasing for
	// placeholder lines.
	Name string `json:"name"`

	// Category is "drink" for matched lines and "unknown" for placeholders.
	Category string `json:"category"`

	// Quantity is the ordered count, ≥ 1.
	Quantity int `json:"quantity"`

	// UnitPrice is the per-unit price in dollars, rounded to cents. Zero for
	// placeholder lines.
	UnitPrice float64 `json:"unit_price"`

	// ImageURL is the product image, when the catalog has one.
	ImageURL string `json:"image_url,omitempty"`

	// Size and Temperature echo the extraction, possibly empty.
	Size        string `json:"size,omitempty"`
	Temperature string `json:"temperature,omitempty"`

	// Modifiers lists the priced customizations.
	Modifiers []ModifierLine `json:"child_items"`

	// Breakdown itemises the unit price. Zero-valued for placeholders.
	Breakdown Breakdown `json:"pricing_breakdown"`

	// MatchConfidence is the matcher's blended score for this line, 0 for
	// placeholders.
	MatchConfidence float64 `json:"match_confidence"`

	// NeedsClarification lists attributes the barista should confirm
	// ("size", "temperature").
	NeedsClarification []string `json:"needs_clarification,omitempty"`

	// RequiresManualSelection marks placeholder lines a human must resolve.
	RequiresManualSelection bool `json:"requires_manual_selection,omitempty"`

	// Suggestions offers alternative products for placeholder lines.
	Suggestions []string `json:"suggestions,omitempty"`

	// OriginalQuery is the customer phrasing that produced this line.
	OriginalQuery string `json:"original_query,omitempty"`
}

// Order is a complete priced order ready for a point-of-sale API.
type Order struct {
	// ID is a unique order identifier.
	ID string `json:"order_id"`

	// Source identifies the capturing system.
	Source string `json:"source"`

	// CustomerName defaults to "Voice Order" when not provided.
	CustomerName string `json:"customer_name"`

	// Notes carries free-text order notes.
	Notes string `json:"notes"`

	// CreatedAt is the composition time.
	CreatedAt time.Time `json:"created_at"`

	// Items are the order lines in extraction order.
	Items []LineItem `json:"items"`

	// Subtotal is the sum of UnitPrice × Quantity across lines, rounded to
	// cents.
	Subtotal float64 `json:"subtotal"`

	// Total equals Subtotal; taxes and discounts are applied downstream.
	Total float64 `json:"total"`
}
