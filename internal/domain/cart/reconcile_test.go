package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/product"
)

func catalogEntry(id int64, stock int) product.Product {
	return product.Product{
		ID:    id,
		Title: "Widget",
		Price: decimal.NewFromInt(10),
		Stock: stock,
	}
}

func line(productID int64, qty int) Line {
	return Line{
		ProductID: productID,
		Quantity:  qty,
		Price:     decimal.NewFromInt(10),
		Title:     "Widget",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		lines   []Line
		catalog []product.Product
		want    []*StockError
	}{
		{
			name:    "empty cart is purchasable",
			lines:   nil,
			catalog: []product.Product{catalogEntry(1, 5)},
			want:    nil,
		},
		{
			name:    "satisfiable cart has no errors",
			lines:   []Line{line(1, 3)},
			catalog: []product.Product{catalogEntry(1, 3)},
			want:    nil,
		},
		{
			name:    "quantity above stock reports exceeded",
			lines:   []Line{line(1, 5)},
			catalog: []product.Product{catalogEntry(1, 3)},
			want: []*StockError{{
				Kind:           KindExceeded,
				ProductID:      1,
				Title:          "Widget",
				RequestedQty:   5,
				AvailableStock: 3,
			}},
		},
		{
			name:    "missing product reports unavailable",
			lines:   []Line{line(7, 1)},
			catalog: []product.Product{catalogEntry(1, 3)},
			want: []*StockError{{
				Kind:      KindUnavailable,
				ProductID: 7,
				Title:     "Widget",
			}},
		},
		{
			name:  "errors come back in cart order",
			lines: []Line{line(2, 9), line(1, 1), line(3, 1)},
			catalog: []product.Product{
				catalogEntry(1, 5),
				catalogEntry(2, 4),
			},
			want: []*StockError{
				{Kind: KindExceeded, ProductID: 2, Title: "Widget", RequestedQty: 9, AvailableStock: 4},
				{Kind: KindUnavailable, ProductID: 3, Title: "Widget"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.lines, tt.catalog)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	lines := []Line{line(1, 5), line(2, 2)}
	catalog := []product.Product{catalogEntry(1, 3)}

	first := Validate(lines, catalog)
	second := Validate(lines, catalog)
	assert.Equal(t, first, second)
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name        string
		lines       []Line
		catalog     []product.Product
		want        []Line
		wantRemoved int
	}{
		{
			name:    "clamps quantity to available stock",
			lines:   []Line{line(1, 5)},
			catalog: []product.Product{catalogEntry(1, 3)},
			want:    []Line{line(1, 3)},
		},
		{
			name:        "removes zero stock lines",
			lines:       []Line{line(1, 5)},
			catalog:     []product.Product{catalogEntry(1, 0)},
			want:        []Line{},
			wantRemoved: 1,
		},
		{
			name:        "removes lines for missing products",
			lines:       []Line{line(1, 2), line(9, 1)},
			catalog:     []product.Product{catalogEntry(1, 5)},
			want:        []Line{line(1, 2)},
			wantRemoved: 1,
		},
		{
			name:    "keeps line order",
			lines:   []Line{line(3, 1), line(1, 8), line(2, 1)},
			catalog: []product.Product{catalogEntry(1, 4), catalogEntry(2, 1), catalogEntry(3, 1)},
			want:    []Line{line(3, 1), line(1, 4), line(2, 1)},
		},
		{
			name:    "valid cart passes through unchanged",
			lines:   []Line{line(1, 2)},
			catalog: []product.Product{catalogEntry(1, 2)},
			want:    []Line{line(1, 2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := Repair(tt.lines, tt.catalog)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRemoved, removed)
		})
	}
}

// Repair must be idempotent and its output must always validate cleanly.
func TestRepair_Properties(t *testing.T) {
	carts := [][]Line{
		nil,
		{line(1, 1)},
		{line(1, 5), line(2, 2), line(3, 1)},
		{line(4, 9), line(1, 100)},
	}
	catalogs := [][]product.Product{
		nil,
		{catalogEntry(1, 0)},
		{catalogEntry(1, 3), catalogEntry(2, 2)},
		{catalogEntry(1, 1), catalogEntry(2, 0), catalogEntry(3, 7), catalogEntry(4, 2)},
	}

	for _, lines := range carts {
		for _, catalog := range catalogs {
			once, _ := Repair(lines, catalog)
			twice, removed := Repair(once, catalog)

			assert.Equal(t, once, twice, "repair must be idempotent")
			assert.Zero(t, removed, "second repair must remove nothing")
			assert.Empty(t, Validate(once, catalog), "repaired cart must validate cleanly")
		}
	}
}

func TestAdjustQuantity(t *testing.T) {
	catalog := []product.Product{catalogEntry(1, 3)}

	t.Run("applies delta within stock", func(t *testing.T) {
		got, stockErr := AdjustQuantity([]Line{line(1, 1)}, 1, 1, catalog)
		require.Nil(t, stockErr)
		assert.Equal(t, 2, got[0].Quantity)
	})

	t.Run("clamps at one on decrement", func(t *testing.T) {
		got, stockErr := AdjustQuantity([]Line{line(1, 1)}, 1, -5, catalog)
		require.Nil(t, stockErr)
		assert.Equal(t, 1, got[0].Quantity)
	})

	t.Run("clamps to stock and reports exceeded", func(t *testing.T) {
		got, stockErr := AdjustQuantity([]Line{line(1, 2)}, 1, 4, catalog)
		require.NotNil(t, stockErr)
		assert.Equal(t, KindExceeded, stockErr.Kind)
		assert.Equal(t, 6, stockErr.RequestedQty)
		assert.Equal(t, 3, stockErr.AvailableStock)
		assert.Equal(t, 3, got[0].Quantity, "clamped value is applied")
	})

	t.Run("does not mutate the input cart", func(t *testing.T) {
		in := []Line{line(1, 2)}
		_, _ = AdjustQuantity(in, 1, 1, catalog)
		assert.Equal(t, 2, in[0].Quantity)
	})

	t.Run("unknown product leaves cart unchanged", func(t *testing.T) {
		in := []Line{line(1, 2)}
		got, stockErr := AdjustQuantity(in, 9, 1, catalog)
		require.NotNil(t, stockErr)
		assert.Equal(t, KindUnavailable, stockErr.Kind)
		assert.Equal(t, in, got)
	})

	t.Run("product gone from catalog reports unavailable", func(t *testing.T) {
		in := []Line{line(2, 1)}
		got, stockErr := AdjustQuantity(in, 2, 1, catalog)
		require.NotNil(t, stockErr)
		assert.Equal(t, KindUnavailable, stockErr.Kind)
		assert.Equal(t, in, got)
	})

	t.Run("zero stock reports exceeded without change", func(t *testing.T) {
		in := []Line{line(1, 2)}
		got, stockErr := AdjustQuantity(in, 1, 1, []product.Product{catalogEntry(1, 0)})
		require.NotNil(t, stockErr)
		assert.Equal(t, KindExceeded, stockErr.Kind)
		assert.Equal(t, in, got)
	})
}

func TestSubtotal(t *testing.T) {
	lines := []Line{
		{ProductID: 1, Quantity: 2, Price: decimal.RequireFromString("19.99")},
		{ProductID: 2, Quantity: 1, Price: decimal.RequireFromString("5.01")},
	}
	assert.True(t, decimal.RequireFromString("44.99").Equal(Subtotal(lines)))
}
