// Package checkout prices carts, hands the buyer to ePayco and turns the
// gateway's confirmation callback into a persisted order.
package checkout

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSignature signals a confirmation whose signature does not
	// match the merchant credentials.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUnknownInvoice signals a confirmation for an invoice with no
	// pending cart, either expired or already consumed.
	ErrUnknownInvoice = errors.New("invalid or expired invoice")
	// ErrUserNotFound signals the buyer named in the callback does not
	// exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientStock signals a stock decrement that would go
	// negative inside the order transaction.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductNotFoundError reports a cart line whose product does not exist
// or is inactive.
type ProductNotFoundError struct {
	ID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product %d not found", e.ID)
}

// OutOfStockError reports a cart line asking for more than is on hand.
type OutOfStockError struct {
	Name string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %s", e.Name)
}

// PricedItem is a cart line priced at checkout time. The serialized form
// is what the pending-order cache holds.
type PricedItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
}

// Initiation is the payload the frontend hands to the ePayco widget.
type Initiation struct {
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	TaxBase      float64 `json:"tax_base"`
	Tax          float64 `json:"tax"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Invoice      string  `json:"invoice"`
	External     string  `json:"external"`
	Response     string  `json:"response"`
	Confirmation string  `json:"confirmation"`
	Extra1       string  `json:"x_extra1"`
}

// Confirmation is ePayco's server-to-server callback. Amount fields stay
// strings: the signature covers their exact wire form.
type Confirmation struct {
	RefPayco         string `form:"x_ref_payco" json:"x_ref_payco"`
	TransactionID    string `form:"x_transaction_id" json:"x_transaction_id"`
	Amount           string `form:"x_amount" json:"x_amount"`
	CurrencyCode     string `form:"x_currency_code" json:"x_currency_code"`
	Signature        string `form:"x_signature" json:"x_signature"`
	Invoice          string `form:"x_id_factura" json:"x_id_factura"`
	Username         string `form:"x_extra1" json:"x_extra1"`
	State            string `form:"x_cod_transaction_state" json:"x_cod_transaction_state"`
	CustomerName     string `form:"x_customer_name" json:"x_customer_name"`
	CustomerLastname string `form:"x_customer_lastname" json:"x_customer_lastname"`
	AmountBase       string `form:"x_amount_base" json:"x_amount_base"`
	Tax              string `form:"x_tax" json:"x_tax"`
	TaxICO           string `form:"x_tax_ico" json:"x_tax_ico"`
	Franchise        string `form:"x_franchise" json:"x_franchise"`
}

// Order is a persisted order row.
type Order struct {
	ID               int64
	InvoiceID        string
	FirstName        string
	LastName         string
	SubTotal         float64
	Tax              float64
	TaxICO           float64
	Total            float64
	IsPaid           bool
	PaymentMethod    string
	PaymentReference string
	UserID           int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ConfirmResult is the outcome of a verified confirmation. OrderID is set
// only when the payment was accepted and persisted.
type ConfirmResult struct {
	Accepted bool
	OrderID  int64
}
