package extract_test

import (
	"encoding/json"
	"testing"

	"github.com/broistadev/broista/internal/extract"
)

func TestCandidate_UnmarshalJSON_FieldVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want extract.Candidate
	}{
		{
			name: "short field names",
			in:   `{"product":"mocha","size":"large","temp":"hot","mods":["soft top"],"qty":2}`,
			want: extract.Candidate{
				Product:     "mocha",
				Size:        "large",
				Temperature: "hot",
				Modifiers:   []string{"soft top"},
				Quantity:    2,
			},
		},
		{
			name: "long field names",
			in:   `{"product_name":"golden eagle","size":"medium","temperature":"iced","modifiers":["boba"],"quantity":1}`,
			want: extract.Candidate{
				Product:     "golden eagle",
				Size:        "medium",
				Temperature: "iced",
				Modifiers:   []string{"boba"},
				Quantity:    1,
			},
		},
		{
			name: "long names win when both present",
			in:   `{"product":"short","product_name":"long","temp":"hot","temperature":"iced"}`,
			want: extract.Candidate{Product: "long", Temperature: "iced"},
		},
		{
			name: "json null fields",
			in:   `{"product":"rebel","size":null,"temp":null,"mods":[],"qty":1}`,
			want: extract.Candidate{Product: "rebel", Modifiers: []string{}, Quantity: 1},
		},
		{
			name: "string literal null",
			in:   `{"product":"rebel","size":"null","temp":"null"}`,
			want: extract.Candidate{Product: "rebel"},
		},
		{
			name: "quantity as string",
			in:   `{"product":"latte","qty":"3"}`,
			want: extract.Candidate{Product: "latte", Quantity: 3},
		},
		{
			name: "unparseable quantity defaults to zero",
			in:   `{"product":"latte","qty":"a few"}`,
			want: extract.Candidate{Product: "latte", Quantity: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got extract.Candidate
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("Unmarshal returned error: %v", err)
			}

			if got.Product != tt.want.Product {
				t.Errorf("Product=%q, want %q", got.Product, tt.want.Product)
			}
			if got.Size != tt.want.Size {
				t.Errorf("Size=%q, want %q", got.Size, tt.want.Size)
			}
			if got.Temperature != tt.want.Temperature {
				t.Errorf("Temperature=%q, want %q", got.Temperature, tt.want.Temperature)
			}
			if got.Quantity != tt.want.Quantity {
				t.Errorf("Quantity=%d, want %d", got.Quantity, tt.want.Quantity)
			}
			if len(got.Modifiers) != len(tt.want.Modifiers) {
				t.Fatalf("Modifiers=%v, want %v", got.Modifiers, tt.want.Modifiers)
			}
			for i := range got.Modifiers {
				if got.Modifiers[i] != tt.want.Modifiers[i] {
					t.Errorf("Modifiers[%d]=%q, want %q", i, got.Modifiers[i], tt.want.Modifiers[i])
				}
			}
		})
	}
}

func TestSizeAndTemperature_IsValid(t *testing.T) {
	t.Parallel()

	for _, s := range []extract.Size{extract.SizeSmall, extract.SizeMedium, extract.SizeLarge, extract.SizeKids} {
		if !s.IsValid() {
			t.Errorf("Size(%q).IsValid() = false, want true", s)
		}
	}
	if extract.Size("venti").IsValid() {
		t.Error(`Size("venti").IsValid() = true, want false`)
	}

	for _, temp := range []extract.Temperature{extract.TempHot, extract.TempIced, extract.TempBlended} {
		if !temp.IsValid() {
			t.Errorf("Temperature(%q).IsValid() = false, want true", temp)
		}
	}
	if extract.Temperature("lukewarm").IsValid() {
		t.Error(`Temperature("lukewarm").IsValid() = true, want false`)
	}
}
