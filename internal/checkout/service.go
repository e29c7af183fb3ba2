package checkout

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrayanSValencia/smartmart/internal/cache"
	"github.com/BrayanSValencia/smartmart/internal/catalog"
	"github.com/BrayanSValencia/smartmart/internal/validation"
)

// ProductReader loads active products for pricing.
type ProductReader interface {
	ActiveProductByID(ctx context.Context, id int64) (*catalog.Product, error)
}

// UserFinder resolves the buyer named in the callback. Implementations
// return ErrUserNotFound for an unknown username.
type UserFinder interface {
	UserIDByUsername(ctx context.Context, username string) (int64, error)
}

// OrderWriter persists an order with its items and stock decrements in a
// single transaction.
type OrderWriter interface {
	CreateOrderWithItems(ctx context.Context, order *Order, items []PricedItem) (int64, error)
}

// Config carries the merchant credentials and pricing knobs.
type Config struct {
	MerchantID      string
	MerchantKey     string
	TaxRate         float64
	Currency        string
	BaseURL         string
	PendingOrderTTL time.Duration
}

// Service owns the checkout and confirmation flows.
type Service struct {
	products   ProductReader
	users      UserFinder
	orders     OrderWriter
	pending    cache.TTLStore
	cfg        Config
	newInvoice func() string
}

// NewService wires the checkout service.
func NewService(products ProductReader, users UserFinder, orders OrderWriter, pending cache.TTLStore, cfg Config) *Service {
	return &Service{
		products: products,
		users:    users,
		orders:   orders,
		pending:  pending,
		cfg:      cfg,
		newInvoice: func() string {
			return "INV-" + uuid.NewString()
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func pendingKey(invoice string) string { return "pending:" + invoice }

// Checkout prices the cart at current catalog prices, caches the priced
// lines under a fresh invoice and returns the gateway initiation payload.
// The cache write is the only side effect.
func (s *Service) Checkout(ctx context.Context, username string, items []validation.CartItem) (*Initiation, error) {
	var subtotal float64
	var descriptions []string
	priced := make([]PricedItem, 0, len(items))

	for _, item := range items {
		p, err := s.products.ActiveProductByID(ctx, item.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &ProductNotFoundError{ID: item.ProductID}
		}
		if err != nil {
			return nil, fmt.Errorf("load product %d: %w", item.ProductID, err)
		}
		if p.StockQuantity < item.Quantity {
			return nil, &OutOfStockError{Name: p.Name}
		}

		itemTotal := round2(p.Price * float64(item.Quantity))
		subtotal += itemTotal
		descriptions = append(descriptions, fmt.Sprintf("%dx %s", item.Quantity, p.Name))
		priced = append(priced, PricedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     p.Price,
			Total:     itemTotal,
		})
	}

	subtotal = round2(subtotal)
	tax := round2(subtotal * s.cfg.TaxRate)
	total := round2(subtotal + tax)
	invoice := s.newInvoice()

	data, err := json.Marshal(priced)
	if err != nil {
		return nil, fmt.Errorf("encode pending order: %w", err)
	}
	if err := s.pending.Set(ctx, pendingKey(invoice), data, s.cfg.PendingOrderTTL); err != nil {
		return nil, fmt.Errorf("cache pending order: %w", err)
	}

	return &Initiation{
		Currency:     s.cfg.Currency,
		Amount:       total,
		TaxBase:      subtotal,
		Tax:          tax,
		Name:         "Order from Smartmart",
		Description:  strings.Join(descriptions, " | "),
		Invoice:      invoice,
		External:     "false",
		Response:     s.cfg.BaseURL + "/api/checkout/epayco/response",
		Confirmation: s.cfg.BaseURL + "/api/checkout/confirmation",
		Extra1:       username,
	}, nil
}

// Confirm verifies the callback and, for an accepted payment, persists the
// order. Taking the invoice from the cache is the idempotency guard: with
// concurrent callbacks only the first taker proceeds. A rejected payment
// still consumes the entry.
func (s *Service) Confirm(ctx context.Context, cb *Confirmation) (*ConfirmResult, error) {
	want := paymentSignature(s.cfg.MerchantID, s.cfg.MerchantKey,
		cb.RefPayco, cb.TransactionID, cb.Amount, cb.CurrencyCode)
	if subtle.ConstantTimeCompare([]byte(want), []byte(cb.Signature)) != 1 {
		log.Printf("confirmation: invalid signature for invoice %s", cb.Invoice)
		return nil, ErrInvalidSignature
	}

	data, ok, err := s.pending.Take(ctx, pendingKey(cb.Invoice))
	if err != nil {
		return nil, fmt.Errorf("take pending order: %w", err)
	}
	if !ok {
		log.Printf("confirmation: invalid or expired invoice %s", cb.Invoice)
		return nil, ErrUnknownInvoice
	}

	if cb.State != "1" {
		log.Printf("confirmation: payment not accepted for invoice %s, state %s", cb.Invoice, cb.State)
		return &ConfirmResult{Accepted: false}, nil
	}

	userID, err := s.users.UserIDByUsername(ctx, cb.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Printf("confirmation: user not found: %s", cb.Username)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	var items []PricedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode pending order: %w", err)
	}

	method := cb.Franchise
	if method == "" {
		method = "unknown"
	}
	order := &Order{
		InvoiceID:        cb.Invoice,
		FirstName:        cb.CustomerName,
		LastName:         cb.CustomerLastname,
		SubTotal:         parseAmount(cb.AmountBase),
		Tax:              parseAmount(cb.Tax),
		TaxICO:           parseAmount(cb.TaxICO),
		Total:            parseAmount(cb.Amount),
		IsPaid:           true,
		PaymentMethod:    method,
		PaymentReference: cb.RefPayco,
		UserID:           userID,
	}

	orderID, err := s.orders.CreateOrderWithItems(ctx, order, items)
	if err != nil {
		return nil, fmt.Errorf("persist order %s: %w", cb.Invoice, err)
	}
	log.Printf("confirmation: processed payment for invoice %s, order %d", cb.Invoice, orderID)
	return &ConfirmResult{Accepted: true, OrderID: orderID}, nil
}

// parseAmount reads a callback money field; malformed or absent values
// become zero, matching the gateway's loose formatting.
func parseAmount(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
