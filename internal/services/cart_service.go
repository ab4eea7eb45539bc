package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// CartView is the active cart with its lines priced at live product prices.
type CartView struct {
	CartID   uint              `json:"cartId"`
	Items    []models.CartLine `json:"items"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

// CartService manages the persisted cart of signed-in users.
type CartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

// GetCart returns the user's active cart, creating an empty one on first use.
func (s *CartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	cart, err := s.carts.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []models.CartLine{}
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}
	return &CartView{CartID: cart.ID, Items: lines, Subtotal: subtotal}, nil
}

// normalizeSize checks size against the product and returns the value to store.
// Products without sizes always store the empty size.
func normalizeSize(product *models.Product, size string) (string, error) {
	size = strings.TrimSpace(size)
	if !product.HasSizes() {
		return "", nil
	}
	if size == "" {
		return "", apperr.New(apperr.ErrValidation, fmt.Sprintf("Please choose a size for %s", product.Name))
	}
	if !product.AcceptsSize(size) {
		return "", apperr.New(apperr.ErrValidation, fmt.Sprintf("Size %s is not available for %s", size, product.Name))
	}
	return size, nil
}

// AddItem adds qty of a product in the given size, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, qty int, size string) error {
	if productID == 0 {
		return apperr.New(apperr.ErrValidation, "productId is required")
	}
	if qty < 1 {
		return apperr.New(apperr.ErrValidation, "qty must be at least 1")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return apperr.New(apperr.ErrNotFound, "Product not found")
	}
	size, err = normalizeSize(product, size)
	if err != nil {
		return err
	}

	cart, err := s.carts.GetOrCreateActive(ctx, userID)
	if err != nil {
		return err
	}
	return s.carts.AddItem(ctx, cart.ID, productID, size, qty)
}

// UpdateItem sets the quantity of a line. A quantity of zero or less removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID uint, qty int, size string) error {
	if productID == 0 {
		return apperr.New(apperr.ErrValidation, "productId is required")
	}
	size = strings.TrimSpace(size)

	cart, err := s.carts.FindActive(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			if qty <= 0 {
				return nil
			}
			return apperr.New(apperr.ErrNotFound, "Cart item not found")
		}
		return err
	}

	if qty <= 0 {
		return s.carts.RemoveItem(ctx, cart.ID, productID, size)
	}
	return s.carts.SetItemQuantity(ctx, cart.ID, productID, size, qty)
}
