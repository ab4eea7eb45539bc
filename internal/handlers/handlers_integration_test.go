package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/export"
	"storefront/internal/middleware"
	"storefront/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-secret"

	teeID = 1 // sized S, M, L, XL at 10.00
	capID = 3 // unsized at 15.50
)

// setupApp builds the full application on a private in-memory SQLite
// database seeded with the demo catalog and an admin account.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.Options{
		Driver:   "sqlite",
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db, adminEmail, adminPassword))

	vouchers, err := config.ParseVouchers("WELCOME10=10")
	require.NoError(t, err)

	app, err := server.New(server.Deps{
		DB: db,
		Config: &config.Config{
			Env:         "test",
			JWTSecret:   "test_jwt_secret",
			JWTTTL:      time.Hour,
			Currency:    "usd",
			Vouchers:    vouchers,
			CORSOrigins: "http://localhost:5173",
		},
	})
	require.NoError(t, err)
	return app, db
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) json(t *testing.T) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

func (r response) list(t *testing.T) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

func do(t *testing.T, app *fiber.App, method, path, token string, body interface{}, headers ...string) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: data}
}

func money(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected a decimal string, got %v", v)
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func register(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp := do(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"name": "Ana Shopper", "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	token, _ := resp.json(t)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp := do(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	token, _ := resp.json(t)["token"].(string)
	return token
}

func deliveryInfo() fiber.Map {
	return fiber.Map{"name": "Ana Shopper", "phone": "555-0101", "address": "1 Main St", "city": "Lisbon"}
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t)

	resp := do(t, app, http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "ok", resp.json(t)["status"])
	assert.NotEmpty(t, resp.header.Get(fiber.HeaderXRequestID))
}

func TestAuthFlow(t *testing.T) {
	app, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Ana Shopper","email":"ana@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.AuthCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// The session cookie alone authenticates.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	dup := do(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"name": "Ana Again", "email": "ANA@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, dup.status)

	bad := do(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, bad.status)
	assert.Equal(t, "Invalid email or password", bad.json(t)["message"])

	noAuth := do(t, app, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, noAuth.status)
}

func TestRegisterValidation(t *testing.T) {
	app, _ := setupApp(t)

	resp := do(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{"name": "A", "email": "not-an-email", "password": "1"})

	require.Equal(t, http.StatusBadRequest, resp.status)
	body := resp.json(t)
	assert.Equal(t, "Validation failed", body["message"])
	fields, ok := body["errors"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")
}

func TestCatalog(t *testing.T) {
	app, _ := setupApp(t)

	products := do(t, app, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, products.status)
	assert.Len(t, products.list(t), 3)

	search := do(t, app, http.MethodGet, "/api/products?q=cap", "", nil)
	require.Equal(t, http.StatusOK, search.status)
	require.Len(t, search.list(t), 1)
	assert.Equal(t, "Dad Cap", search.list(t)[0]["name"])

	categories := do(t, app, http.MethodGet, "/api/products/categories", "", nil)
	require.Equal(t, http.StatusOK, categories.status)
	assert.Len(t, categories.list(t), 3)

	missing := do(t, app, http.MethodGet, "/api/products/999", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.status)
}

func TestCatalogAdmin(t *testing.T) {
	app, _ := setupApp(t)
	customer := register(t, app, "ana@example.com")
	admin := login(t, app, adminEmail, adminPassword)
	product := fiber.Map{"name": "Tote Bag", "price": "12.00", "stock": 5}

	forbidden := do(t, app, http.MethodPost, "/api/products", customer, product)
	assert.Equal(t, http.StatusForbidden, forbidden.status)

	created := do(t, app, http.MethodPost, "/api/products", admin, product)
	require.Equal(t, http.StatusCreated, created.status, string(created.body))
	id := uint(created.json(t)["id"].(float64))

	stock := do(t, app, http.MethodPut, fmt.Sprintf("/api/products/%d/stock", id), admin, fiber.Map{"stock": 9})
	assert.Equal(t, http.StatusOK, stock.status)

	deleted := do(t, app, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), admin, nil)
	assert.Equal(t, http.StatusOK, deleted.status)

	products := do(t, app, http.MethodGet, "/api/products", "", nil)
	assert.Len(t, products.list(t), 3)
}

func TestCartCheckoutAndCancel(t *testing.T) {
	app, _ := setupApp(t)
	token := register(t, app, "ana@example.com")

	for i := 0; i < 2; i++ {
		resp := do(t, app, http.MethodPost, "/api/cart/add", token, fiber.Map{"productId": teeID, "qty": 1, "size": "M"})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	}

	cart := do(t, app, http.MethodGet, "/api/cart", token, nil).json(t)
	items := cart["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, float64(2), items[0].(map[string]interface{})["qty"])

	noSize := do(t, app, http.MethodPost, "/api/cart/add", token, fiber.Map{"productId": teeID, "qty": 1})
	assert.Equal(t, http.StatusBadRequest, noSize.status)

	stale := do(t, app, http.MethodPost, "/api/orders", token, fiber.Map{"total": "25.00", "deliveryInfo": deliveryInfo()})
	assert.Equal(t, http.StatusBadRequest, stale.status)

	placed := do(t, app, http.MethodPost, "/api/orders", token, fiber.Map{"total": "20.00", "deliveryInfo": deliveryInfo()})
	require.Equal(t, http.StatusCreated, placed.status, string(placed.body))
	body := placed.json(t)
	assert.True(t, money(t, body["total"]).Equal(decimal.NewFromInt(20)))
	assert.Len(t, body["orderRef"], 10)
	orderID := uint(body["orderId"].(float64))

	cart = do(t, app, http.MethodGet, "/api/cart", token, nil).json(t)
	assert.Empty(t, cart["items"])

	orders := do(t, app, http.MethodGet, "/api/orders", token, nil).list(t)
	require.Len(t, orders, 1)
	assert.Equal(t, "new", orders[0]["status"])
	assert.Len(t, orders[0]["items"], 1)

	cancel := do(t, app, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", orderID), token, nil)
	assert.Equal(t, http.StatusOK, cancel.status)

	again := do(t, app, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", orderID), token, nil)
	assert.Equal(t, http.StatusBadRequest, again.status)

	other := register(t, app, "bob@example.com")
	notMine := do(t, app, http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", orderID), other, nil)
	assert.Equal(t, http.StatusNotFound, notMine.status)

	cancelled := do(t, app, http.MethodGet, "/api/orders?status=cancelled", token, nil).list(t)
	assert.Len(t, cancelled, 1)
}

func TestGuestCheckout(t *testing.T) {
	app, _ := setupApp(t)

	placed := do(t, app, http.MethodPost, "/api/orders", "", fiber.Map{
		"items":        []fiber.Map{{"product_id": capID, "qty": 1}},
		"deliveryInfo": deliveryInfo(),
	})
	require.Equal(t, http.StatusCreated, placed.status, string(placed.body))
	assert.True(t, money(t, placed.json(t)["total"]).Equal(decimal.RequireFromString("15.50")))

	unknown := do(t, app, http.MethodPost, "/api/orders", "", fiber.Map{
		"items":        []fiber.Map{{"product_id": 999, "qty": 1}},
		"deliveryInfo": deliveryInfo(),
	})
	require.Equal(t, http.StatusBadRequest, unknown.status)
	assert.Equal(t, "Cart is empty", unknown.json(t)["message"])

	noDelivery := do(t, app, http.MethodPost, "/api/orders", "", fiber.Map{
		"items": []fiber.Map{{"product_id": capID, "qty": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, noDelivery.status)

	tooMany := do(t, app, http.MethodPost, "/api/orders", "", fiber.Map{
		"items":        []fiber.Map{{"product_id": capID, "qty": 999}},
		"deliveryInfo": deliveryInfo(),
	})
	assert.Equal(t, http.StatusConflict, tooMany.status)
}

func TestIdempotentCheckout(t *testing.T) {
	app, db := setupApp(t)
	order := fiber.Map{
		"items":        []fiber.Map{{"product_id": capID, "qty": 2}},
		"voucherCode":  "welcome10",
		"deliveryInfo": deliveryInfo(),
	}

	first := do(t, app, http.MethodPost, "/api/orders", "", order, "Idempotency-Key", "retry-key-1")
	require.Equal(t, http.StatusCreated, first.status, string(first.body))
	assert.True(t, money(t, first.json(t)["total"]).Equal(decimal.RequireFromString("27.90")))

	second := do(t, app, http.MethodPost, "/api/orders", "", order, "Idempotency-Key", "retry-key-1")
	require.Equal(t, http.StatusOK, second.status)
	assert.Equal(t, first.json(t)["orderId"], second.json(t)["orderId"])
	assert.Equal(t, true, second.json(t)["replayed"])

	var count int64
	require.NoError(t, db.Table("orders").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreatePayment_NoProvider(t *testing.T) {
	app, _ := setupApp(t)

	resp := do(t, app, http.MethodPost, "/api/orders/create-payment", "", fiber.Map{
		"items": []fiber.Map{{"product_id": capID, "qty": 1}},
	})

	assert.Equal(t, http.StatusBadGateway, resp.status)
	assert.NotEmpty(t, resp.json(t)["message"])
}

func TestBackOffice(t *testing.T) {
	app, _ := setupApp(t)
	customer := register(t, app, "ana@example.com")
	admin := login(t, app, adminEmail, adminPassword)

	placed := do(t, app, http.MethodPost, "/api/orders", customer, fiber.Map{
		"items":        []fiber.Map{{"product_id": capID, "qty": 1}},
		"deliveryInfo": deliveryInfo(),
	})
	require.Equal(t, http.StatusCreated, placed.status, string(placed.body))
	orderID := uint(placed.json(t)["orderId"].(float64))

	forbidden := do(t, app, http.MethodGet, "/api/orders/admin/all", customer, nil)
	assert.Equal(t, http.StatusForbidden, forbidden.status)

	all := do(t, app, http.MethodGet, "/api/orders/admin/all", admin, nil)
	require.Equal(t, http.StatusOK, all.status)
	assert.Len(t, all.list(t), 1)

	statusPath := fmt.Sprintf("/api/orders/%d/status", orderID)
	skip := do(t, app, http.MethodPut, statusPath, admin, fiber.Map{"status": "received"})
	assert.Equal(t, http.StatusBadRequest, skip.status)

	unknown := do(t, app, http.MethodPut, statusPath, admin, fiber.Map{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, unknown.status)

	confirmed := do(t, app, http.MethodPut, statusPath, admin, fiber.Map{"status": "confirmed"})
	assert.Equal(t, http.StatusOK, confirmed.status)

	lateCancel := do(t, app, http.MethodPut, statusPath, admin, fiber.Map{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, lateCancel.status)

	for _, status := range []string{"shipping", "received"} {
		resp := do(t, app, http.MethodPut, statusPath, admin, fiber.Map{"status": status})
		assert.Equal(t, http.StatusOK, resp.status, status)
	}

	profile := do(t, app, http.MethodGet, "/api/auth/profile", customer, nil).json(t)
	stats := profile["orderStats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["received"])

	exported := do(t, app, http.MethodGet, "/api/orders/admin/export", admin, nil)
	require.Equal(t, http.StatusOK, exported.status)
	assert.Equal(t, export.ContentType, exported.header.Get(fiber.HeaderContentType))
	assert.NotEmpty(t, exported.body)
}

func TestFeedback(t *testing.T) {
	app, db := setupApp(t)

	ok := do(t, app, http.MethodPost, "/api/feedback", "", fiber.Map{
		"name": "Ana", "email": "ana@example.com", "message": "Love the caps",
	})
	assert.Equal(t, http.StatusCreated, ok.status)

	bad := do(t, app, http.MethodPost, "/api/feedback", "", fiber.Map{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, bad.status)

	var count int64
	require.NoError(t, db.Table("feedbacks").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
