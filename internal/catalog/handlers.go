package catalog

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/BrayanSValencia/smartmart/internal/auth"
	"github.com/BrayanSValencia/smartmart/internal/validation"
)

// HandlerConfig groups dependencies for the catalog handlers.
type HandlerConfig struct {
	Store    *Store
	Tokens   *auth.TokenService
	Roles    *auth.RoleTable
	Validate *validatorv10.Validate
}

// RegisterCatalogRoutes mounts the category, product, product-image and
// storefront routes under the given API root.
func RegisterCatalogRoutes(api gin.IRouter, cfg HandlerConfig) {
	authed := auth.RequireAuth(cfg.Tokens)
	asStaff := auth.RequireRole(cfg.Roles, auth.RoleStaff)

	api.GET("/catalog", storefrontHandler(cfg))

	cats := api.Group("/categories")
	cats.GET("", listCategoriesHandler(cfg))
	cats.POST("", authed, asStaff, createCategoryHandler(cfg))
	cats.GET("/:slug", authed, retrieveCategoryHandler(cfg))
	cats.GET("/:slug/products", productsByCategoryHandler(cfg))
	cats.PUT("/:slug", authed, asStaff, updateCategoryHandler(cfg))
	cats.DELETE("/:slug", authed, asStaff, deleteCategoryHandler(cfg))
	cats.PATCH("/:slug/deactivate", authed, asStaff, setCategoryActiveHandler(cfg, false))
	cats.PATCH("/:slug/activate", authed, asStaff, setCategoryActiveHandler(cfg, true))

	prods := api.Group("/products")
	prods.GET("", authed, asStaff, listProductsHandler(cfg))
	prods.POST("", authed, asStaff, createProductHandler(cfg))
	prods.GET("/:slug", retrieveProductHandler(cfg))
	prods.PUT("/:slug", authed, asStaff, updateProductHandler(cfg))
	prods.PATCH("/:slug", authed, asStaff, updateProductHandler(cfg))
	prods.DELETE("/:slug", authed, asStaff, deleteProductHandler(cfg))
	prods.PATCH("/:slug/deactivate", authed, asStaff, setProductActiveHandler(cfg, false))
	prods.PATCH("/:slug/activate", authed, asStaff, setProductActiveHandler(cfg, true))

	imgs := api.Group("/productimages")
	imgs.POST("", authed, asStaff, createImageHandler(cfg))
	imgs.GET("", listImagesHandler(cfg))
	imgs.GET("/:id", getImageHandler(cfg))
	imgs.PUT("/:id", authed, asStaff, updateImageHandler(cfg))
	imgs.DELETE("/:id", authed, asStaff, deleteImageHandler(cfg))
}

func serverError(c *gin.Context, op string, err error) {
	log.Printf("%s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}

// --- categories ---

func createCategoryHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.CategoryRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		cat, err := cfg.Store.CreateCategory(c.Request.Context(), req.Name)
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Category already exists"})
			return
		}
		if err != nil {
			serverError(c, "create category", err)
			return
		}
		c.JSON(http.StatusCreated, viewOfCategory(cat))
	}
}

func listCategoriesHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats, err := cfg.Store.ActiveCategories(c.Request.Context())
		if err != nil {
			serverError(c, "list categories", err)
			return
		}
		out := make([]CategoryView, 0, len(cats))
		for i := range cats {
			out = append(out, viewOfCategory(&cats[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

func retrieveCategoryHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cat, err := cfg.Store.CategoryBySlug(ctx, c.Param("slug"), true)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found or inactive"})
			return
		}
		if err != nil {
			serverError(c, "retrieve category", err)
			return
		}
		products, err := cfg.Store.ProductsByCategorySlug(ctx, cat.Slug)
		if err != nil {
			serverError(c, "retrieve category products", err)
			return
		}
		view := viewOfCategory(cat)
		view.Products = viewOfProducts(products)
		c.JSON(http.StatusOK, view)
	}
}

func productsByCategoryHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := cfg.Store.CategoryBySlug(ctx, c.Param("slug"), true); err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Category not found or inactive"})
				return
			}
			serverError(c, "products by category", err)
			return
		}
		products, err := cfg.Store.ProductsByCategorySlug(ctx, c.Param("slug"))
		if err != nil {
			serverError(c, "products by category", err)
			return
		}
		c.JSON(http.StatusOK, viewOfProducts(products))
	}
}

func updateCategoryHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req validation.CategoryRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		cat, err := cfg.Store.CategoryBySlug(ctx, c.Param("slug"), false)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		if err != nil {
			serverError(c, "update category", err)
			return
		}
		if req.Name != cat.Name {
			taken, err := cfg.Store.CategoryNameTaken(ctx, req.Name, cat.ID)
			if err != nil {
				serverError(c, "update category", err)
				return
			}
			if taken {
				c.JSON(http.StatusConflict, gin.H{"error": "Category name already in use"})
				return
			}
		}
		updated, err := cfg.Store.RenameCategory(ctx, cat.ID, req.Name)
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Generated slug already exists"})
			return
		}
		if err != nil {
			serverError(c, "update category", err)
			return
		}
		c.JSON(http.StatusOK, viewOfCategory(updated))
	}
}

func deleteCategoryHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := cfg.Store.SoftDeleteCategory(c.Request.Context(), c.Param("slug"))
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		if err != nil {
			serverError(c, "delete category", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Category deactivated successfully"})
	}
}

func setCategoryActiveHandler(cfg HandlerConfig, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := cfg.Store.SetCategoryActive(c.Request.Context(), c.Param("slug"), active)
		if errors.Is(err, ErrNotFound) {
			if active {
				c.JSON(http.StatusNotFound, gin.H{"error": "Inactive category not found or already active"})
			} else {
				c.JSON(http.StatusNotFound, gin.H{"error": "Active category not found"})
			}
			return
		}
		if err != nil {
			serverError(c, "set category active", err)
			return
		}
		if active {
			c.JSON(http.StatusOK, gin.H{"message": "Category activated successfully"})
		} else {
			c.JSON(http.StatusOK, gin.H{"message": "Category deactivated successfully"})
		}
	}
}

// --- storefront ---

func storefrontHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		grouped, err := cfg.Store.ActiveCategoriesWithProducts(c.Request.Context())
		if err != nil {
			serverError(c, "storefront", err)
			return
		}
		out := make([]CategoryView, 0, len(grouped))
		for i := range grouped {
			view := viewOfCategory(&grouped[i].Category)
			view.Products = viewOfProducts(grouped[i].Products)
			out = append(out, view)
		}
		c.JSON(http.StatusOK, out)
	}
}

// --- products ---

func createProductHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req validation.ProductRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		taken, err := cfg.Store.ProductNameTaken(ctx, req.Name, 0)
		if err != nil {
			serverError(c, "create product", err)
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Product name already exists"})
			return
		}
		ok, err := cfg.Store.ActiveCategoryExists(ctx, req.CategoryID)
		if err != nil {
			serverError(c, "create product", err)
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID or category is inactive"})
			return
		}
		p, err := cfg.Store.CreateProduct(ctx, &Product{
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			StockQuantity: req.StockQuantity,
			CategoryID:    req.CategoryID,
		})
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Product name already exists"})
			return
		}
		if err != nil {
			serverError(c, "create product", err)
			return
		}
		c.JSON(http.StatusCreated, viewOfProduct(p))
	}
}

func listProductsHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := cfg.Store.AllProducts(c.Request.Context())
		if err != nil {
			serverError(c, "list products", err)
			return
		}
		c.JSON(http.StatusOK, viewOfProducts(products))
	}
}

func retrieveProductHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := cfg.Store.ProductBySlug(c.Request.Context(), c.Param("slug"), true)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found or inactive"})
			return
		}
		if err != nil {
			serverError(c, "retrieve product", err)
			return
		}
		c.JSON(http.StatusOK, viewOfProduct(p))
	}
}

func updateProductHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req validation.ProductRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		p, err := cfg.Store.ProductBySlug(ctx, c.Param("slug"), false)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if err != nil {
			serverError(c, "update product", err)
			return
		}
		if req.Name != p.Name {
			taken, err := cfg.Store.ProductNameTaken(ctx, req.Name, p.ID)
			if err != nil {
				serverError(c, "update product", err)
				return
			}
			if taken {
				c.JSON(http.StatusConflict, gin.H{"error": "Product name already in use"})
				return
			}
		}
		if req.CategoryID != p.CategoryID {
			ok, err := cfg.Store.ActiveCategoryExists(ctx, req.CategoryID)
			if err != nil {
				serverError(c, "update product", err)
				return
			}
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID or category is inactive"})
				return
			}
		}
		updated, err := cfg.Store.UpdateProduct(ctx, p.ID, &Product{
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			StockQuantity: req.StockQuantity,
			CategoryID:    req.CategoryID,
		})
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Generated slug already exists"})
			return
		}
		if err != nil {
			serverError(c, "update product", err)
			return
		}
		c.JSON(http.StatusOK, viewOfProduct(updated))
	}
}

func deleteProductHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := cfg.Store.SoftDeleteProduct(c.Request.Context(), c.Param("slug"))
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if err != nil {
			serverError(c, "delete product", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deactivated successfully"})
	}
}

func setProductActiveHandler(cfg HandlerConfig, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := cfg.Store.SetProductActive(c.Request.Context(), c.Param("slug"), active)
		if errors.Is(err, ErrNotFound) {
			if active {
				c.JSON(http.StatusNotFound, gin.H{"error": "Inactive product not found or already active"})
			} else {
				c.JSON(http.StatusNotFound, gin.H{"error": "Active product not found"})
			}
			return
		}
		if err != nil {
			serverError(c, "set product active", err)
			return
		}
		if active {
			c.JSON(http.StatusOK, gin.H{"message": "Product activated successfully"})
		} else {
			c.JSON(http.StatusOK, gin.H{"message": "Product deactivated successfully"})
		}
	}
}

// --- product images ---

func createImageHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req validation.ProductImageRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		ok, err := cfg.Store.ActiveProductExists(ctx, req.ProductID)
		if err != nil {
			serverError(c, "create image", err)
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID or product is inactive"})
			return
		}
		img, err := cfg.Store.CreateImage(ctx, req.ImageURL, req.ProductID)
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Image URL already exists for this product"})
			return
		}
		if err != nil {
			serverError(c, "create image", err)
			return
		}
		c.JSON(http.StatusCreated, viewOfImage(img))
	}
}

func listImagesHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_id query parameter is required"})
			return
		}
		ok, err := cfg.Store.ActiveProductExists(ctx, productID)
		if err != nil {
			serverError(c, "list images", err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found or inactive"})
			return
		}
		images, err := cfg.Store.ImagesByProduct(ctx, productID)
		if err != nil {
			serverError(c, "list images", err)
			return
		}
		out := make([]ImageView, 0, len(images))
		for i := range images {
			out = append(out, viewOfImage(&images[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

func getImageHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image id"})
			return
		}
		img, err := cfg.Store.ImageByID(c.Request.Context(), id)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found or product is inactive"})
			return
		}
		if err != nil {
			serverError(c, "get image", err)
			return
		}
		c.JSON(http.StatusOK, viewOfImage(img))
	}
}

func updateImageHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image id"})
			return
		}
		var req validation.ProductImageRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validate); err != nil {
			return
		}
		ok, err := cfg.Store.ActiveProductExists(ctx, req.ProductID)
		if err != nil {
			serverError(c, "update image", err)
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID or product is inactive"})
			return
		}
		img, err := cfg.Store.UpdateImage(ctx, id, req.ImageURL, req.ProductID)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Image URL already exists for this product"})
			return
		}
		if err != nil {
			serverError(c, "update image", err)
			return
		}
		c.JSON(http.StatusOK, viewOfImage(img))
	}
}

func deleteImageHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image id"})
			return
		}
		err = cfg.Store.DeleteImage(c.Request.Context(), id)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		if err != nil {
			serverError(c, "delete image", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
