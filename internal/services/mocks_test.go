package services_test

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateStock(ctx context.Context, id uint, stock int) error {
	args := m.Called(ctx, id, stock)
	return args.Error(0)
}

func (m *MockProductRepository) Deactivate(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockProductRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

// MockCartRepository is a mock implementation of repositories.CartRepository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetOrCreateActive(ctx context.Context, userID uint) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockCartRepository) FindActive(ctx context.Context, userID uint) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockCartRepository) AddItem(ctx context.Context, cartID, productID uint, size string, qty int) error {
	args := m.Called(ctx, cartID, productID, size, qty)
	return args.Error(0)
}

func (m *MockCartRepository) SetItemQuantity(ctx context.Context, cartID, productID uint, size string, qty int) error {
	args := m.Called(ctx, cartID, productID, size, qty)
	return args.Error(0)
}

func (m *MockCartRepository) RemoveItem(ctx context.Context, cartID, productID uint, size string) error {
	args := m.Called(ctx, cartID, productID, size)
	return args.Error(0)
}

func (m *MockCartRepository) ListLines(ctx context.Context, cartID uint) ([]models.CartLine, error) {
	args := m.Called(ctx, cartID)
	return args.Get(0).([]models.CartLine), args.Error(1)
}

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) PlaceOrder(ctx context.Context, order *models.Order, opts repositories.PlaceOrderOptions) error {
	args := m.Called(ctx, order, opts)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID uint, status models.OrderStatus) ([]models.Order, error) {
	args := m.Called(ctx, userID, status)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]models.Order), args.Error(1)
}

// UpdateStatus returns the configured current status and runs the check
// against it, the way the real repository does inside its transaction.
func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uint, ownerID *uint, next models.OrderStatus, opts repositories.UpdateStatusOptions) (*models.Order, error) {
	args := m.Called(ctx, id, ownerID, next, opts.Restock)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	current := args.Get(0).(models.OrderStatus)
	if opts.Check != nil {
		if err := opts.Check(current); err != nil {
			return nil, err
		}
	}
	return &models.Order{ID: id, Status: next, UserID: ownerID}, nil
}

func (m *MockOrderRepository) CountByStatus(ctx context.Context, userID uint) (map[models.OrderStatus]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.OrderStatus]int64), args.Error(1)
}

// MockPaymentRepository is a mock implementation of repositories.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIntent, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockGateway is a mock implementation of payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, idempotencyKey string) (*payment.Intent, error) {
	args := m.Called(ctx, amount, currency, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockCache is a mock implementation of services.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCache) DeletePrefix(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}
