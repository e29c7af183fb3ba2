package validation

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LogoutRequest is the payload for POST /api/auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RegisterRequest is the payload for user and staff registration.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=1,max=150"`
	FirstName   string `json:"first_name" validate:"required,min=1,max=100"`
	LastName    string `json:"last_name" validate:"required,min=1,max=100"`
	Phone       string `json:"phone" validate:"required,phone_co"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
}

// UserUpdateRequest is the full-replace profile payload (PUT).
type UserUpdateRequest struct {
	Username    string `json:"username" validate:"required,min=1,max=150"`
	FirstName   string `json:"first_name" validate:"required,min=1,max=100"`
	LastName    string `json:"last_name" validate:"required,min=1,max=100"`
	Phone       string `json:"phone" validate:"required,phone_co"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

// UserPatchRequest is the partial profile payload (PATCH). Only supplied
// fields are validated and applied; the update itself is all-or-nothing.
type UserPatchRequest struct {
	Username    *string `json:"username,omitempty" validate:"omitempty,min=1,max=150"`
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,phone_co"`
	DateOfBirth *string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CategoryRequest covers category create and update.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// ProductRequest covers product create and update.
type ProductRequest struct {
	Name          string  `json:"name" validate:"required,min=1,max=255"`
	Description   string  `json:"description,omitempty"`
	Price         float64 `json:"price" validate:"gte=0"`
	StockQuantity int     `json:"stock_quantity" validate:"gte=0"`
	CategoryID    int64   `json:"category_id" validate:"required"`
}

// ProductImageRequest covers product-image create and update.
type ProductImageRequest struct {
	ImageURL  string `json:"image_url" validate:"required,url,max=200"`
	ProductID int64  `json:"product_id" validate:"required"`
}

// CartItem is a single checkout line as supplied by the caller.
type CartItem struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

// CheckoutRequest is the payload for POST /api/checkout.
type CheckoutRequest struct {
	Items []CartItem `json:"items" validate:"required,min=1,dive"`
}
