package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func categoryRows(id int64, name, slug string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "slug", "is_active", "created_at", "updated_at"}).
		AddRow(id, name, slug, true, now, now)
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "slug", "description", "price", "stock_quantity",
		"category_id", "name", "is_active", "created_at", "updated_at",
	})
}

func addProduct(rows *sqlmock.Rows, id int64, name, slug string, price float64, stock int, catID int64, catName string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, name, slug, "", price, stock, catID, catName, true, now, now)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "fresh-coffee-beans", Slugify("Fresh Coffee Beans!"))
	assert.Equal(t, "cafe-con-leche", Slugify("Café con Leche"))
}

func TestCreateCategory(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO category`).
		WithArgs("Fresh Produce", "fresh-produce").
		WillReturnRows(categoryRows(1, "Fresh Produce", "fresh-produce"))

	cat, err := store.CreateCategory(context.Background(), "Fresh Produce")
	require.NoError(t, err)
	assert.Equal(t, "fresh-produce", cat.Slug)
	assert.True(t, cat.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategoryDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO category`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateCategory(context.Background(), "Fresh Produce")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCategoryBySlugHonorsActiveFilter(t *testing.T) {
	store, mock := newMockStore(t)

	// active-only lookup carries the soft-delete predicate
	mock.ExpectQuery(`FROM category c WHERE c\.slug = \$1 AND c\.is_active = TRUE`).
		WithArgs("fresh-produce").
		WillReturnRows(categoryRows(1, "Fresh Produce", "fresh-produce"))

	_, err := store.CategoryBySlug(context.Background(), "fresh-produce", true)
	require.NoError(t, err)

	// unrestricted lookup does not
	mock.ExpectQuery(`FROM category c WHERE c\.slug = \$1$`).
		WithArgs("fresh-produce").
		WillReturnRows(categoryRows(1, "Fresh Produce", "fresh-produce"))

	_, err = store.CategoryBySlug(context.Background(), "fresh-produce", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryBySlugNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM category`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.CategoryBySlug(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetCategoryActiveRequiresOppositeState(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE category SET is_active`).
		WithArgs(false, "fresh-produce", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetCategoryActive(context.Background(), "fresh-produce", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveProductByID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE p\.id = \$1 AND p\.is_active = TRUE`).
		WithArgs(int64(7)).
		WillReturnRows(addProduct(productRows(), 7, "Coffee", "coffee", 10.00, 5, 1, "Drinks"))

	p, err := store.ActiveProductByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", p.Name)
	assert.Equal(t, 10.00, p.Price)
	assert.Equal(t, "Drinks", p.CategoryName)
}

func TestActiveProductByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE p\.id = \$1 AND p\.is_active = TRUE`).
		WithArgs(int64(99)).
		WillReturnRows(productRows())

	_, err := store.ActiveProductByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveCategoriesWithProductsGroups(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM category c WHERE TRUE AND c\.is_active = TRUE`).
		WillReturnRows(categoryRows(1, "Drinks", "drinks").
			AddRow(int64(2), "Snacks", "snacks", true, time.Now(), time.Now()))

	rows := productRows()
	rows = addProduct(rows, 7, "Coffee", "coffee", 10.00, 5, 1, "Drinks")
	rows = addProduct(rows, 8, "Tea", "tea", 5.00, 9, 1, "Drinks")
	rows = addProduct(rows, 9, "Chips", "chips", 2.50, 3, 2, "Snacks")
	mock.ExpectQuery(`FROM product p JOIN category c`).WillReturnRows(rows)

	grouped, err := store.ActiveCategoriesWithProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, "Drinks", grouped[0].Category.Name)
	assert.Len(t, grouped[0].Products, 2)
	assert.Len(t, grouped[1].Products, 1)
	assert.Equal(t, "Chips", grouped[1].Products[0].Name)
}

func TestCreateImageDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO productimage`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateImage(context.Background(), "https://cdn.example.com/a.jpg", 7)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDeleteImageNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM productimage`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteImage(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}
