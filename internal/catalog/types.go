// Package catalog holds categories, products and product images.
package catalog

import "time"

// Category is a persisted category row.
type Category struct {
	ID        int64
	Name      string
	Slug      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a persisted product row. CategoryName is filled by queries
// that join the category.
type Product struct {
	ID            int64
	Name          string
	Slug          string
	Description   string
	Price         float64
	StockQuantity int
	CategoryID    int64
	CategoryName  string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductImage is a persisted product-image row.
type ProductImage struct {
	ID        int64
	ImageURL  string
	ProductID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryView is the public shape of a category.
type CategoryView struct {
	Name     string        `json:"name"`
	Slug     string        `json:"slug"`
	Products []ProductView `json:"products,omitempty"`
}

// ProductView is the public shape of a product.
type ProductView struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Category      string  `json:"category,omitempty"`
	IsActive      bool    `json:"is_active"`
}

// ImageView is the public shape of a product image.
type ImageView struct {
	ID        int64  `json:"id"`
	ImageURL  string `json:"image_url"`
	ProductID int64  `json:"product_id"`
}

// CategoryAndProducts pairs a category with its active products for the
// storefront listing.
type CategoryAndProducts struct {
	Category Category
	Products []Product
}

func viewOfCategory(cat *Category) CategoryView {
	return CategoryView{Name: cat.Name, Slug: cat.Slug}
}

func viewOfProduct(p *Product) ProductView {
	return ProductView{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Category:      p.CategoryName,
		IsActive:      p.IsActive,
	}
}

func viewOfImage(img *ProductImage) ImageView {
	return ImageView{ID: img.ID, ImageURL: img.ImageURL, ProductID: img.ProductID}
}

func viewOfProducts(ps []Product) []ProductView {
	out := make([]ProductView, 0, len(ps))
	for i := range ps {
		out = append(out, viewOfProduct(&ps[i]))
	}
	return out
}
