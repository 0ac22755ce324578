package order

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/broistadev/broista/internal/catalog"
	"github.com/broistadev/broista/internal/extract"
	"github.com/broistadev/broista/internal/match"
)

// Resolved pairs a normalized extraction with its catalog resolution. A nil
// or non-existent Match produces a placeholder line.
type Resolved struct {
	Item  extract.Item
	Match *match.Match
}

// PricingDefaults supplies prices when the catalog and modifier schemas have
// no answer. Values are in dollars.
type PricingDefaults struct {
	// BasePrice is used when no price can be inferred from the product.
	BasePrice float64

	// SizeAdjustments maps canonical sizes to surcharges.
	SizeAdjustments map[string]float64

	// ModifierPrices maps lowercased modifier phrases to surcharges.
	ModifierPrices map[string]float64

	// ModifierPrice is used for modifiers absent from ModifierPrices.
	ModifierPrice float64
}

// DefaultPricing returns the stand-in price tables used when a deployment
// does not configure its own.
func DefaultPricing() PricingDefaults {
	return PricingDefaults{
		BasePrice: 5.50,
		SizeAdjustments: map[string]float64{
			"small":  0.00,
			"medium": 0.50,
			"large":  1.00,
			"kids":   -0.50,
		},
		ModifierPrices: map[string]float64{
			"soft top":          0.50,
			"whipped cream":     0.50,
			"whip":              0.50,
			"oat milk":          0.75,
			"almond milk":       0.75,
			"coconut milk":      0.75,
			"boba":              0.75,
			"caramel drizzle":   0.50,
			"chocolate drizzle": 0.50,
			"extra shot":        1.00,
			"double shot":       2.00,
		},
		ModifierPrice: 0.50,
	}
}

// ComposerOption configures a [Composer].
type ComposerOption func(*Composer)

// WithPricing replaces the default pricing tables.
func WithPricing(p PricingDefaults) ComposerOption {
	return func(c *Composer) {
		c.pricing = p
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ComposerOption {
	return func(c *Composer) {
		c.now = now
	}
}

// WithIDGenerator overrides the line/order ID source, for tests.
func WithIDGenerator(newID func() string) ComposerOption {
	return func(c *Composer) {
		c.newID = newID
	}
}

// Composer prices resolved items into complete orders. Safe for concurrent
// use once constructed.
type Composer struct {
	store   catalog.Store
	pricing PricingDefaults
	now     func() time.Time
	newID   func() string
}

// NewComposer returns a Composer over the given catalog.
func NewComposer(store catalog.Store, opts ...ComposerOption) *Composer {
	c := &Composer{
		store:   store,
		pricing: DefaultPricing(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds a complete priced order from resolved items. Every input
// produces exactly one line: matched items are priced, unmatched ones become
// zero-priced placeholder lines.
func (c *Composer) Compose(resolved []Resolved, customerName, notes string) Order {
	items := make([]LineItem, 0, len(resolved))
	for _, r := range resolved {
		items = append(items, c.composeLine(r))
	}

	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}
	subtotal = roundCents(subtotal)

	if customerName == "" {
		customerName = "Voice Order"
	}

	return Order{
		ID:           c.newID(),
		Source:       OrderSource,
		CustomerName: customerName,
		Notes:        notes,
		CreatedAt:    c.now(),
		Items:        items,
		Subtotal:     subtotal,
		Total:        subtotal,
	}
}

// composeLine prices a single resolved item.
func (c *Composer) composeLine(r Resolved) LineItem {
	qty := r.Item.Quantity
	if qty < 1 {
		qty = 1
	}

	if r.Match == nil || !r.Match.Exists {
		return c.placeholderLine(r, qty)
	}

	product := r.Match.Product
	schema := c.store.ModifierSchema(product.ID)

	basePrice := c.inferBasePrice(product, string(r.Item.Size))
	sizeAdj := c.sizeAdjustment(string(r.Item.Size), schema)

	var modLines []ModifierLine
	var modTotal float64
	for _, mod := range r.Item.Modifiers {
		line := c.modifierLine(mod, schema)
		modLines = append(modLines, line)
		modTotal += line.UnitPrice
	}

	unitPrice := roundCents(basePrice + sizeAdj + modTotal)

	return LineItem{
		ID:              c.newID(),
		ProductID:       product.ID,
		Name:            product.Name,
		Category:        "drink",
		Quantity:        qty,
		UnitPrice:       unitPrice,
		ImageURL:        c.store.ImageURL(product),
		Size:            string(r.Item.Size),
		Temperature:     string(r.Item.Temperature),
		Modifiers:       modLines,
		MatchConfidence: r.Match.Score,
		Breakdown: Breakdown{
			BasePrice:      roundCents(basePrice),
			SizeAdjustment: roundCents(sizeAdj),
			ModifiersTotal: roundCents(modTotal),
			Total:          unitPrice,
		},
		NeedsClarification: clarifications(r.Item),
		OriginalQuery:      r.Match.OriginalQuery,
	}
}

// placeholderLine represents an item the matcher could not resolve. It keeps
// the customer's phrasing visible at zero price so the order total never
// includes a guess.
func (c *Composer) placeholderLine(r Resolved, qty int) LineItem {
	name := r.Item.ProductHint
	var suggestions []string
	var originalQuery string
	if r.Match != nil {
		if r.Match.ProductName != "" {
			name = r.Match.ProductName
		}
		suggestions = r.Match.Suggestions
		originalQuery = r.Match.OriginalQuery
	}
	if name == "" {
		name = "Unknown Product"
	}

	return LineItem{
		ID:                      c.newID(),
		Name:                    name,
		Category:                "unknown",
		Quantity:                qty,
		UnitPrice:               0,
		Size:                    string(r.Item.Size),
		Temperature:             string(r.Item.Temperature),
		Modifiers:               []ModifierLine{},
		RequiresManualSelection: true,
		Suggestions:             suggestions,
		OriginalQuery:           originalQuery,
	}
}

// inferBasePrice resolves a product's base price, trying increasingly loose
// sources: an explicit flat price, the per-size price map (exact key, then
// lowercase, then title case), then variant entries whose size or name
// contains the requested size. Products with no usable price fall back to
// the configured default.
func (c *Composer) inferBasePrice(p catalog.Product, size string) float64 {
	if p.Price > 0 {
		return p.Price
	}

	if len(p.SizePrices) > 0 && size != "" {
		for _, key := range []string{size, strings.ToLower(size), titleCase(size)} {
			if price, ok := p.SizePrices[key]; ok && price > 0 {
				return price
			}
		}
	}

	for _, v := range p.Variants {
		label := strings.ToLower(v.Size)
		if label == "" {
			label = strings.ToLower(v.Name)
		}
		if v.Price <= 0 {
			continue
		}
		if size == "" || strings.Contains(label, strings.ToLower(size)) {
			return v.Price
		}
	}

	return c.pricing.BasePrice
}

// sizeAdjustment returns the surcharge for the given size, preferring the
// product's modifier schema over the default table.
func (c *Composer) sizeAdjustment(size string, schema catalog.ModifierSchema) float64 {
	if size == "" {
		return 0
	}
	lower := strings.ToLower(size)

	for _, group := range schema.Groups {
		if group.ID != "size" {
			continue
		}
		for _, opt := range group.Options {
			if strings.ToLower(opt.ID) == lower {
				return opt.PriceAdjustment
			}
		}
	}

	return c.pricing.SizeAdjustments[lower]
}

// modifierLine prices one modifier phrase. Schema options match on substring
// containment in either direction ("whip" matches "Whipped Cream"); phrases
// not in the schema use the fallback table, and unknown phrases get the
// default surcharge under a title-cased name.
func (c *Composer) modifierLine(mod string, schema catalog.ModifierSchema) ModifierLine {
	lower := strings.ToLower(mod)

	for _, group := range schema.Groups {
		for _, opt := range group.Options {
			optName := strings.ToLower(opt.Name)
			if optName == "" {
				continue
			}
			if strings.Contains(optName, lower) || strings.Contains(lower, optName) {
				return ModifierLine{
					ID:        c.newID(),
					Name:      opt.Name,
					Group:     group.ID,
					Quantity:  1,
					UnitPrice: opt.PriceAdjustment,
				}
			}
		}
	}

	price, known := c.pricing.ModifierPrices[lower]
	if !known {
		price = c.pricing.ModifierPrice
	}
	return ModifierLine{
		ID:        c.newID(),
		Name:      titleCase(mod),
		Group:     "custom",
		Quantity:  1,
		UnitPrice: price,
	}
}

// clarifications lists the attributes a barista should confirm before
// handing the order to the POS.
func clarifications(item extract.Item) []string {
	var needs []string
	if item.Size == "" {
		needs = append(needs, "size")
	}
	if item.Temperature == "" {
		needs = append(needs, "temperature")
	}
	return needs
}

// Summary renders the order as a human-readable receipt for operator review.
func Summary(o Order) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 60)

	sb.WriteString(rule + "\n")
	sb.WriteString("ORDER SUMMARY\n")
	sb.WriteString(rule + "\n")

	for i, item := range o.Items {
		fmt.Fprintf(&sb, "\nItem %d: %s\n", i+1, item.Name)
		if item.Size != "" {
			fmt.Fprintf(&sb, "   Size: %s\n", titleCase(item.Size))
		}
		if item.Temperature != "" {
			fmt.Fprintf(&sb, "   Temperature: %s\n", titleCase(item.Temperature))
		}
		fmt.Fprintf(&sb, "   Quantity: %d\n", item.Quantity)

		if len(item.Modifiers) > 0 {
			sb.WriteString("   Modifiers:\n")
			for _, mod := range item.Modifiers {
				if mod.UnitPrice > 0 {
					fmt.Fprintf(&sb, "      - %s (+$%.2f)\n", mod.Name, mod.UnitPrice)
				} else {
					fmt.Fprintf(&sb, "      - %s\n", mod.Name)
				}
			}
		}

		if item.RequiresManualSelection {
			sb.WriteString("   NEEDS MANUAL SELECTION\n")
			if len(item.Suggestions) > 0 {
				fmt.Fprintf(&sb, "   Suggestions: %s\n", strings.Join(item.Suggestions, ", "))
			}
			continue
		}

		b := item.Breakdown
		sb.WriteString("   Pricing:\n")
		fmt.Fprintf(&sb, "      Base: $%.2f\n", b.BasePrice)
		if b.SizeAdjustment != 0 {
			sign := "+"
			if b.SizeAdjustment < 0 {
				sign = "-"
			}
			fmt.Fprintf(&sb, "      Size: %s$%.2f\n", sign, math.Abs(b.SizeAdjustment))
		}
		if b.ModifiersTotal > 0 {
			fmt.Fprintf(&sb, "      Mods: +$%.2f\n", b.ModifiersTotal)
		}
		fmt.Fprintf(&sb, "      Total: $%.2f\n", b.Total)
	}

	sb.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&sb, "SUBTOTAL: $%.2f\n", o.Subtotal)
	fmt.Fprintf(&sb, "TOTAL: $%.2f\n", o.Total)
	sb.WriteString(rule)
	return sb.String()
}

// roundCents rounds a dollar amount to two decimals.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
