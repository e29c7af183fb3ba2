package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gosimple/slug"
	"github.com/lib/pq"
)

var (
	// ErrNotFound signals the row does not exist or is filtered out by the
	// soft-delete predicate.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate signals a unique-constraint violation on a name, slug
	// or image URL.
	ErrDuplicate = errors.New("already exists")
)

const uniqueViolation = "23505"

// Store is the Postgres-backed catalog store.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// activeFilter is the one place the soft-delete predicate is written.
// Queries append it instead of restating the is_active condition.
func activeFilter(alias string, activeOnly bool) string {
	if !activeOnly {
		return ""
	}
	return " AND " + alias + ".is_active = TRUE"
}

func mapUnique(wrapped, raw error) error {
	var pqErr *pq.Error
	if errors.As(raw, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return wrapped
}

// Slugify derives the URL slug for a name.
func Slugify(name string) string {
	return slug.Make(name)
}

// --- categories ---

const categoryColumns = `id, name, slug, is_active, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*Category, error) {
	var cat Category
	err := row.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.IsActive, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*Category, error) {
	cat, err := scanCategory(s.db.QueryRowContext(ctx,
		`INSERT INTO category (name, slug, is_active, created_at, updated_at)
		 VALUES ($1, $2, TRUE, NOW(), NOW()) RETURNING `+categoryColumns,
		name, Slugify(name)))
	if err != nil {
		return nil, mapUnique(fmt.Errorf("insert category: %w", err), err)
	}
	return cat, nil
}

func (s *Store) ActiveCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM category c WHERE TRUE`+activeFilter("c", true)+` ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		out = append(out, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category rows: %w", err)
	}
	return out, nil
}

func (s *Store) CategoryBySlug(ctx context.Context, categorySlug string, activeOnly bool) (*Category, error) {
	cat, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM category c WHERE c.slug = $1`+activeFilter("c", activeOnly),
		categorySlug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category by slug: %w", err)
	}
	return cat, nil
}

// CategoryNameTaken reports whether another category already uses the name.
func (s *Store) CategoryNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM category WHERE name = $1 AND id <> $2)`,
		name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return exists, nil
}

// RenameCategory updates the name and regenerates the slug. is_active is
// deliberately untouched.
func (s *Store) RenameCategory(ctx context.Context, id int64, name string) (*Category, error) {
	cat, err := scanCategory(s.db.QueryRowContext(ctx,
		`UPDATE category SET name = $1, slug = $2, updated_at = NOW()
		 WHERE id = $3 RETURNING `+categoryColumns,
		name, Slugify(name), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapUnique(fmt.Errorf("update category: %w", err), err)
	}
	return cat, nil
}

// SetCategoryActive flips the soft-delete flag. ErrNotFound covers both a
// missing row and one already in the requested state.
func (s *Store) SetCategoryActive(ctx context.Context, categorySlug string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE category SET is_active = $1, updated_at = NOW()
		 WHERE slug = $2 AND is_active = $3`, active, categorySlug, !active)
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteCategory deactivates regardless of the current state.
func (s *Store) SoftDeleteCategory(ctx context.Context, categorySlug string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE category SET is_active = FALSE, updated_at = NOW() WHERE slug = $1`, categorySlug)
	if err != nil {
		return fmt.Errorf("soft delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveCategoryExists reports whether the id refers to an active category.
func (s *Store) ActiveCategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM category c WHERE c.id = $1`+activeFilter("c", true)+`)`, id).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return exists, nil
}

// --- products ---

const productColumns = `p.id, p.name, p.slug, p.description, p.price, p.stock_quantity,
	p.category_id, c.name, p.is_active, p.created_at, p.updated_at`

const productFrom = ` FROM product p JOIN category c ON c.id = p.category_id`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.StockQuantity,
		&p.CategoryID, &p.CategoryName, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) collectProducts(rows *sql.Rows) ([]Product, error) {
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product rows: %w", err)
	}
	return out, nil
}

// ProductNameTaken reports whether another product already uses the name.
func (s *Store) ProductNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM product WHERE name = $1 AND id <> $2)`,
		name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product name: %w", err)
	}
	return exists, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	created, err := scanProduct(s.db.QueryRowContext(ctx,
		`WITH ins AS (
		   INSERT INTO product (name, slug, description, price, stock_quantity, category_id, is_active, created_at, updated_at)
		   VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW()) RETURNING *
		 )
		 SELECT `+productColumns+` FROM ins p JOIN category c ON c.id = p.category_id`,
		p.Name, Slugify(p.Name), p.Description, p.Price, p.StockQuantity, p.CategoryID))
	if err != nil {
		return nil, mapUnique(fmt.Errorf("insert product: %w", err), err)
	}
	return created, nil
}

// AllProducts lists every product, active or not.
func (s *Store) AllProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+productFrom+` ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return s.collectProducts(rows)
}

func (s *Store) ProductBySlug(ctx context.Context, productSlug string, activeOnly bool) (*Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+productFrom+
			` WHERE p.slug = $1`+activeFilter("p", activeOnly)+activeFilter("c", activeOnly),
		productSlug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by slug: %w", err)
	}
	return p, nil
}

// ActiveProductByID loads an active product for checkout pricing.
func (s *Store) ActiveProductByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.id = $1`+activeFilter("p", true), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

// ProductsByCategorySlug lists the active products of an active category.
func (s *Store) ProductsByCategorySlug(ctx context.Context, categorySlug string) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+productFrom+
			` WHERE c.slug = $1`+activeFilter("p", true)+activeFilter("c", true)+` ORDER BY p.name`,
		categorySlug)
	if err != nil {
		return nil, fmt.Errorf("query products by category: %w", err)
	}
	return s.collectProducts(rows)
}

// ActiveCategoriesWithProducts returns every active category paired with
// its active products, for the storefront listing.
func (s *Store) ActiveCategoriesWithProducts(ctx context.Context) ([]CategoryAndProducts, error) {
	cats, err := s.ActiveCategories(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+productFrom+
			` WHERE TRUE`+activeFilter("p", true)+activeFilter("c", true)+` ORDER BY c.name, p.name`)
	if err != nil {
		return nil, fmt.Errorf("query grouped products: %w", err)
	}
	products, err := s.collectProducts(rows)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[int64][]Product, len(cats))
	for _, p := range products {
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], p)
	}
	out := make([]CategoryAndProducts, 0, len(cats))
	for _, cat := range cats {
		out = append(out, CategoryAndProducts{Category: cat, Products: byCategory[cat.ID]})
	}
	return out, nil
}

// UpdateProduct overwrites the mutable product fields. The slug follows
// the name; is_active is deliberately untouched.
func (s *Store) UpdateProduct(ctx context.Context, id int64, p *Product) (*Product, error) {
	updated, err := scanProduct(s.db.QueryRowContext(ctx,
		`WITH upd AS (
		   UPDATE product SET name = $1, slug = $2, description = $3, price = $4,
		          stock_quantity = $5, category_id = $6, updated_at = NOW()
		   WHERE id = $7 RETURNING *
		 )
		 SELECT `+productColumns+` FROM upd p JOIN category c ON c.id = p.category_id`,
		p.Name, Slugify(p.Name), p.Description, p.Price, p.StockQuantity, p.CategoryID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapUnique(fmt.Errorf("update product: %w", err), err)
	}
	return updated, nil
}

// SetProductActive flips the soft-delete flag, requiring the opposite
// current state.
func (s *Store) SetProductActive(ctx context.Context, productSlug string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE product SET is_active = $1, updated_at = NOW()
		 WHERE slug = $2 AND is_active = $3`, active, productSlug, !active)
	if err != nil {
		return fmt.Errorf("set product active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteProduct deactivates regardless of the current state.
func (s *Store) SoftDeleteProduct(ctx context.Context, productSlug string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE product SET is_active = FALSE, updated_at = NOW() WHERE slug = $1`, productSlug)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveProductExists reports whether the id refers to an active product.
func (s *Store) ActiveProductExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM product p WHERE p.id = $1`+activeFilter("p", true)+`)`, id).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return exists, nil
}

// --- product images ---

const imageColumns = `id, image_url, product_id, created_at, updated_at`

func scanImage(row interface{ Scan(...any) error }) (*ProductImage, error) {
	var img ProductImage
	err := row.Scan(&img.ID, &img.ImageURL, &img.ProductID, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *Store) CreateImage(ctx context.Context, imageURL string, productID int64) (*ProductImage, error) {
	img, err := scanImage(s.db.QueryRowContext(ctx,
		`INSERT INTO productimage (image_url, product_id, created_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW()) RETURNING `+imageColumns,
		imageURL, productID))
	if err != nil {
		return nil, mapUnique(fmt.Errorf("insert product image: %w", err), err)
	}
	return img, nil
}

// ImagesByProduct lists the images of an active product.
func (s *Store) ImagesByProduct(ctx context.Context, productID int64) ([]ProductImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM productimage WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("query product images: %w", err)
	}
	defer rows.Close()

	var out []ProductImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		out = append(out, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("image rows: %w", err)
	}
	return out, nil
}

// ImageByID loads an image whose product is still active.
func (s *Store) ImageByID(ctx context.Context, id int64) (*ProductImage, error) {
	img, err := scanImage(s.db.QueryRowContext(ctx,
		`SELECT i.id, i.image_url, i.product_id, i.created_at, i.updated_at
		 FROM productimage i JOIN product p ON p.id = i.product_id
		 WHERE i.id = $1`+activeFilter("p", true), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query image by id: %w", err)
	}
	return img, nil
}

func (s *Store) UpdateImage(ctx context.Context, id int64, imageURL string, productID int64) (*ProductImage, error) {
	img, err := scanImage(s.db.QueryRowContext(ctx,
		`UPDATE productimage SET image_url = $1, product_id = $2, updated_at = NOW()
		 WHERE id = $3 RETURNING `+imageColumns,
		imageURL, productID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapUnique(fmt.Errorf("update product image: %w", err), err)
	}
	return img, nil
}

// DeleteImage removes the row. Images are the one hard delete in the
// catalog.
func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM productimage WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
