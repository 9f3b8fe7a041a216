package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/go-faster/errors"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/product"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func productRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "title", "description", "price", "stock", "image"})
}

func TestProductRepository_GetByID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(getProductByIDSQL)).
		WithArgs(int64(1)).
		WillReturnRows(productRows().
			AddRow(int64(1), "Ceramic Mug", "Stoneware, 350ml", decimal.RequireFromString("14.50"), 12, "mug.jpg"))

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Ceramic Mug", p.Title)
	require.True(t, p.Price.Equal(decimal.RequireFromString("14.50")))
	require.Equal(t, 12, p.Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(getProductByIDSQL)).
		WithArgs(int64(7)).
		WillReturnRows(productRows())

	_, err := repo.GetByID(context.Background(), 7)
	require.ErrorIs(t, err, product.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_AdjustStock(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(adjustStockSQL)).
		WithArgs(int64(3), 2).
		WillReturnRows(productRows().
			AddRow(int64(3), "Notebook", "A5 dotted", decimal.RequireFromString("6.00"), 9, "nb.jpg"))

	p, err := repo.AdjustStock(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Equal(t, 9, p.Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_AdjustStock_Insufficient(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(adjustStockSQL)).
		WithArgs(int64(3), -5).
		WillReturnRows(productRows())
	mock.ExpectQuery(regexp.QuoteMeta(getStockSQL)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(2))

	_, err := repo.AdjustStock(context.Background(), 3, -5)

	var insufficient *product.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, 5, insufficient.Requested)
	require.Equal(t, 2, insufficient.Available)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_AdjustStock_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(adjustStockSQL)).
		WithArgs(int64(404), -1).
		WillReturnRows(productRows())
	mock.ExpectQuery(regexp.QuoteMeta(getStockSQL)).
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}))

	_, err := repo.AdjustStock(context.Background(), 404, -1)
	require.ErrorIs(t, err, product.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(deleteProductSQL)).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), 9)
	require.ErrorIs(t, err, product.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
