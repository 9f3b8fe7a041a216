package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

func TestCartStore_Get(t *testing.T) {
	mock := newMockPool(t)
	store := NewCartStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta(getCartSQL)).
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows([]string{"lines"}).
			AddRow([]byte(`[{"product_id":1,"quantity":2,"price":"14.5","title":"Ceramic Mug"}]`)))

	lines, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, int64(1), lines[0].ProductID)
	require.Equal(t, 2, lines[0].Quantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartStore_Get_MissingSession(t *testing.T) {
	mock := newMockPool(t)
	store := NewCartStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta(getCartSQL)).
		WithArgs("sess-unknown").
		WillReturnRows(pgxmock.NewRows([]string{"lines"}))

	lines, err := store.Get(context.Background(), "sess-unknown")
	require.NoError(t, err)
	require.Empty(t, lines)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartStore_Put(t *testing.T) {
	mock := newMockPool(t)
	store := NewCartStore(mock)
	lines := []cart.Line{
		{ProductID: 1, Quantity: 2, Price: decimal.RequireFromString("14.50"), Title: "Ceramic Mug"},
	}

	mock.ExpectExec(regexp.QuoteMeta(putCartSQL)).
		WithArgs("sess-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Put(context.Background(), "sess-1", lines))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartStore_Delete(t *testing.T) {
	mock := newMockPool(t)
	store := NewCartStore(mock)

	mock.ExpectExec(regexp.QuoteMeta(deleteCartSQL)).
		WithArgs("sess-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.Delete(context.Background(), "sess-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
