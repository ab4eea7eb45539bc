package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const orderRefAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// CheckoutItem is one line of a client-submitted item list.
type CheckoutItem struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Qty       int    `json:"qty" validate:"required,min=1,max=999"`
	Size      string `json:"size" validate:"omitempty,max=16"`
}

// CheckoutRequest is the body of an order placement. Signed-in users check out
// their persisted cart and Items is only a fallback when that cart is empty;
// guests must send Items.
type CheckoutRequest struct {
	Items          []CheckoutItem      `json:"items" validate:"omitempty,max=100,dive"`
	Total          *decimal.Decimal    `json:"total"`
	DeliveryInfo   models.DeliveryInfo `json:"deliveryInfo"`
	PaymentMethod  string              `json:"paymentMethod" validate:"omitempty,max=50"`
	Note           string              `json:"note" validate:"omitempty,max=1000"`
	VoucherCode    string              `json:"voucherCode" validate:"omitempty,max=50"`
	IdempotencyKey string              `json:"idempotencyKey" validate:"omitempty,max=64"`
}

// PlaceOrderResult identifies the order created, or replayed, by PlaceOrder.
type PlaceOrderResult struct {
	OrderID  uint            `json:"orderId"`
	OrderRef string          `json:"orderRef"`
	Total    decimal.Decimal `json:"total"`
	Replayed bool            `json:"replayed"`
}

// PaymentRequest is the body of a payment intent request.
type PaymentRequest struct {
	Items          []CheckoutItem `json:"items" validate:"omitempty,max=100,dive"`
	VoucherCode    string         `json:"voucherCode" validate:"omitempty,max=50"`
	IdempotencyKey string         `json:"idempotencyKey" validate:"omitempty,max=64"`
}

// PaymentResult is returned to the browser to complete the payment. The
// idempotency key must be sent again with the order placement.
type PaymentResult struct {
	ClientSecret   string          `json:"clientSecret"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Amount         decimal.Decimal `json:"amount"`
}

// OrderServiceConfig holds the collaborators and settings of OrderService.
type OrderServiceConfig struct {
	Orders   repositories.OrderRepository
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Payments repositories.PaymentRepository
	Gateway  payment.Gateway
	Events   EventPublisher // optional

	Currency string
	// Vouchers maps an upper-case code to a discount fraction.
	Vouchers       map[string]decimal.Decimal
	DecrementStock bool
}

// OrderService turns carts or guest item lists into orders and manages their lifecycle.
type OrderService struct {
	orders   repositories.OrderRepository
	carts    repositories.CartRepository
	products repositories.ProductRepository
	payments repositories.PaymentRepository
	gateway  payment.Gateway
	events   EventPublisher

	currency       string
	vouchers       map[string]decimal.Decimal
	decrementStock bool

	validate *validator.Validate
	refMu    sync.Mutex
	newRef   func() string
}

// NewOrderService creates a new OrderService.
func NewOrderService(cfg OrderServiceConfig) (*OrderService, error) {
	newRef, err := nanoid.CustomASCII(orderRefAlphabet, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to create order reference generator: %w", err)
	}
	if cfg.Gateway == nil {
		cfg.Gateway = payment.Unconfigured{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	return &OrderService{
		orders:         cfg.Orders,
		carts:          cfg.Carts,
		products:       cfg.Products,
		payments:       cfg.Payments,
		gateway:        cfg.Gateway,
		events:         cfg.Events,
		currency:       cfg.Currency,
		vouchers:       cfg.Vouchers,
		decrementStock: cfg.DecrementStock,
		validate:       validator.New(),
		newRef:         newRef,
	}, nil
}

func (s *OrderService) orderRef() string {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	return s.newRef()
}

// resolveItems builds the authoritative order lines. A signed-in user's cart
// wins over the submitted items when it holds at least one active product;
// retired cart lines are dropped and cleared with the rest of the cart.
// Submitted items are re-priced from the catalog and unknown or retired
// products are skipped. The returned cart id is 0 unless the lines came from
// the cart.
func (s *OrderService) resolveItems(ctx context.Context, actor *Actor, items []CheckoutItem) ([]models.OrderItem, uint, error) {
	if actor != nil {
		cart, err := s.carts.FindActive(ctx, actor.UserID)
		switch {
		case err == nil:
			cartLines, err := s.carts.ListLines(ctx, cart.ID)
			if err != nil {
				return nil, 0, err
			}
			if len(cartLines) > 0 {
				lines := make([]models.OrderItem, 0, len(cartLines))
				for _, l := range cartLines {
					if !l.IsActive {
						log.Warn().Uint("user_id", actor.UserID).Uint("cart_id", cart.ID).
							Uint("product_id", l.ProductID).Msg("dropping retired product from cart checkout")
						continue
					}
					lines = append(lines, models.OrderItem{
						ProductID:   l.ProductID,
						ProductName: l.Name,
						ImageURL:    l.ImageURL,
						Size:        l.Size,
						Quantity:    l.Quantity,
						Price:       l.Price,
					})
				}
				if len(lines) > 0 {
					return lines, cart.ID, nil
				}
			}
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, 0, err
		}
	}

	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				log.Debug().Uint("product_id", item.ProductID).Msg("skipping unknown product at checkout")
				continue
			}
			return nil, 0, err
		}
		if !product.IsActive {
			continue
		}
		size, err := normalizeSize(product, item.Size)
		if err != nil {
			return nil, 0, err
		}
		lines = append(lines, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			ImageURL:    product.ImageURL,
			Size:        size,
			Quantity:    item.Qty,
			Price:       product.Price,
		})
	}
	return lines, 0, nil
}

type pricing struct {
	subtotal decimal.Decimal
	discount decimal.Decimal
	total    decimal.Decimal
	voucher  string
}

// price sums the lines and applies the voucher, if any.
func (s *OrderService) price(lines []models.OrderItem, voucherCode string) (pricing, error) {
	p := pricing{subtotal: decimal.Zero, discount: decimal.Zero}
	for _, line := range lines {
		p.subtotal = p.subtotal.Add(line.LineTotal())
	}

	code := strings.ToUpper(strings.TrimSpace(voucherCode))
	if code != "" {
		rate, ok := s.vouchers[code]
		if !ok {
			return p, apperr.New(apperr.ErrValidation, fmt.Sprintf("Voucher %s is not valid", code))
		}
		p.discount = p.subtotal.Mul(rate).Round(2)
		p.voucher = code
	}
	p.total = p.subtotal.Sub(p.discount)
	return p, nil
}

func (s *OrderService) checkRequest(req interface{}) error {
	if err := s.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.ErrValidation, "Invalid request", err)
	}
	return nil
}

// replay returns the order already placed with key, or nil when there is none.
func (s *OrderService) replay(ctx context.Context, actor *Actor, key string) (*PlaceOrderResult, error) {
	existing, err := s.orders.GetByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	// Guest orders replay only to guests and user orders only to their owner.
	sameOwner := existing.UserID == nil && actor == nil ||
		existing.UserID != nil && actor != nil && actor.UserID == *existing.UserID
	if !sameOwner {
		return nil, apperr.New(apperr.ErrConflict, "Idempotency key was already used")
	}
	return &PlaceOrderResult{
		OrderID:  existing.ID,
		OrderRef: existing.OrderRef,
		Total:    existing.Total,
		Replayed: true,
	}, nil
}

// PlaceOrder creates an order for actor (nil for guests) from their cart or
// the submitted items. The order, its items, the stock reservation and the
// cart clear-out commit together or not at all.
func (s *OrderService) PlaceOrder(ctx context.Context, actor *Actor, req CheckoutRequest) (*PlaceOrderResult, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		res, err := s.replay(ctx, actor, key)
		if err != nil || res != nil {
			return res, err
		}
	}

	lines, cartID, err := s.resolveItems(ctx, actor, req.Items)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperr.New(apperr.ErrEmptyCart, "Cart is empty")
	}

	p, err := s.price(lines, req.VoucherCode)
	if err != nil {
		return nil, err
	}
	if req.Total != nil && !req.Total.Round(2).Equal(p.total.Round(2)) {
		return nil, apperr.New(apperr.ErrValidation,
			fmt.Sprintf("Order total has changed to %s, please review your cart", p.total.StringFixed(2)))
	}

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "cod"
	}
	order := &models.Order{
		OrderRef:      s.orderRef(),
		Status:        models.OrderStatusNew,
		Subtotal:      p.subtotal,
		Discount:      p.discount,
		Total:         p.total,
		VoucherCode:   p.voucher,
		PaymentMethod: paymentMethod,
		Note:          strings.TrimSpace(req.Note),
		DeliveryInfo:  req.DeliveryInfo,
		Items:         lines,
	}
	if actor != nil {
		userID := actor.UserID
		order.UserID = &userID
	}

	var intent *models.PaymentIntent
	if key != "" {
		order.IdempotencyKey = &key
		intent, err = s.payments.GetByIdempotencyKey(ctx, key)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if intent != nil {
			order.PaymentIntentID = intent.ProviderID
			if !intent.Amount.Equal(p.total) {
				log.Warn().Str("idempotency_key", key).
					Str("paid", intent.Amount.StringFixed(2)).
					Str("total", p.total.StringFixed(2)).
					Msg("payment amount differs from order total")
			}
		}
	}

	err = s.orders.PlaceOrder(ctx, order, repositories.PlaceOrderOptions{
		ClearCartID:    cartID,
		DecrementStock: s.decrementStock,
	})
	if err != nil {
		// A concurrent retry with the same key committed first.
		if key != "" && errors.Is(err, apperr.ErrConflict) {
			if res, rerr := s.replay(ctx, actor, key); rerr == nil && res != nil {
				return res, nil
			}
		}
		if intent != nil {
			s.publish(ctx, models.OrderEvent{
				Type:           models.EventPaymentUnrecorded,
				UserID:         order.UserID,
				Total:          p.total,
				IdempotencyKey: key,
				OccurredAt:     time.Now().UTC(),
			})
			if !isBusinessError(err) {
				return nil, apperr.Wrap(apperr.ErrPaymentNotRecorded,
					"Payment was received but the order was not recorded; please retry with the same idempotency key", err)
			}
		}
		return nil, err
	}

	s.publish(ctx, models.NewOrderEvent(models.EventOrderCreated, order))
	log.Info().Uint("order_id", order.ID).Str("order_ref", order.OrderRef).
		Str("total", order.Total.StringFixed(2)).Bool("guest", actor == nil).Msg("order placed")

	return &PlaceOrderResult{
		OrderID:  order.ID,
		OrderRef: order.OrderRef,
		Total:    order.Total,
	}, nil
}

func isBusinessError(err error) bool {
	for _, kind := range []error{
		apperr.ErrValidation, apperr.ErrNotFound, apperr.ErrConflict,
		apperr.ErrEmptyCart, apperr.ErrInsufficientStock, apperr.ErrInvalidState,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// CreatePayment prices the same items PlaceOrder would and asks the gateway
// for a payment intent. The idempotency key is fixed before the gateway call
// so the later order placement can be tied to this payment.
func (s *OrderService) CreatePayment(ctx context.Context, actor *Actor, req PaymentRequest) (*PaymentResult, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}

	lines, _, err := s.resolveItems(ctx, actor, req.Items)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperr.New(apperr.ErrEmptyCart, "Cart is empty")
	}
	p, err := s.price(lines, req.VoucherCode)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	} else {
		existing, err := s.payments.GetByIdempotencyKey(ctx, key)
		switch {
		case err == nil:
			if existing.OrderID != nil || !existing.Amount.Equal(p.total) {
				return nil, apperr.New(apperr.ErrConflict, "Idempotency key was already used")
			}
			return &PaymentResult{ClientSecret: existing.ClientSecret, IdempotencyKey: key, Amount: existing.Amount}, nil
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, p.total, s.currency, key)
	if err != nil {
		log.Warn().Err(err).Str("idempotency_key", key).Msg("payment intent creation failed")
		if !errors.Is(err, apperr.ErrGateway) {
			err = apperr.Wrap(apperr.ErrGateway, "Payment provider is unavailable, please try again", err)
		}
		return nil, err
	}

	record := &models.PaymentIntent{
		IdempotencyKey: key,
		ProviderID:     intent.ProviderID,
		ClientSecret:   intent.ClientSecret,
		Amount:         p.total,
		Currency:       s.currency,
	}
	if actor != nil {
		userID := actor.UserID
		record.UserID = &userID
	}
	if err := s.payments.Create(ctx, record); err != nil {
		// The provider deduplicates by key, so a concurrent request produced the same intent.
		if !errors.Is(err, apperr.ErrConflict) {
			log.Error().Err(err).Str("idempotency_key", key).Str("intent", intent.ProviderID).Msg("failed to record payment intent")
			return nil, err
		}
	}

	return &PaymentResult{ClientSecret: intent.ClientSecret, IdempotencyKey: key, Amount: p.total}, nil
}

// CancelOrder cancels one of the user's own orders. Only new orders can be cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.orders.UpdateStatus(ctx, orderID, &userID, models.OrderStatusCancelled, repositories.UpdateStatusOptions{
		Check: func(current models.OrderStatus) error {
			if current != models.OrderStatusNew {
				return apperr.New(apperr.ErrInvalidState, fmt.Sprintf("Order cannot be cancelled because it is %s", current))
			}
			return nil
		},
		Restock: s.decrementStock,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.NewOrderEvent(models.EventOrderCancelled, order))
	return order, nil
}

// ParseStatus validates an order status coming from a request.
func ParseStatus(raw string) (models.OrderStatus, error) {
	status := models.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", apperr.New(apperr.ErrValidation, fmt.Sprintf("Invalid order status: %s", raw))
	}
	return status, nil
}

// UpdateStatus moves an order along the status state machine.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, rawStatus string) (*models.Order, error) {
	next, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, nil, next, repositories.UpdateStatusOptions{
		Check: func(current models.OrderStatus) error {
			if !current.CanTransitionTo(next) {
				return apperr.New(apperr.ErrInvalidState, fmt.Sprintf("Cannot change order from %s to %s", current, next))
			}
			return nil
		},
		Restock: s.decrementStock,
	})
	if err != nil {
		return nil, err
	}

	eventType := models.EventOrderStatusChanged
	if next == models.OrderStatusCancelled {
		eventType = models.EventOrderCancelled
	}
	s.publish(ctx, models.NewOrderEvent(eventType, order))
	return order, nil
}

func optionalStatus(raw string) (models.OrderStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return ParseStatus(raw)
}

// ListOrders returns the user's orders, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, userID uint, rawStatus string) ([]models.Order, error) {
	status, err := optionalStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, userID, status)
}

// ListAllOrders returns every order, optionally filtered by status.
func (s *OrderService) ListAllOrders(ctx context.Context, rawStatus string) ([]models.Order, error) {
	status, err := optionalStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.orders.ListAll(ctx, status)
}

func (s *OrderService) publish(ctx context.Context, event models.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", string(event.Type)).Uint("order_id", event.OrderID).Msg("failed to publish order event")
	}
}
