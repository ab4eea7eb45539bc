package handlers

import (
	"fmt"
	"strings"
	"time"

	"storefront/internal/export"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/realtime"
	"storefront/internal/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// IdempotencyHeader may carry the idempotency key instead of the request body.
const IdempotencyHeader = "Idempotency-Key"

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	hub     *realtime.Hub
}

// NewOrderHandler creates a new OrderHandler. hub may be nil, which disables the live feed.
func NewOrderHandler(service *services.OrderService, hub *realtime.Hub) *OrderHandler {
	return &OrderHandler{
		service: service,
		hub:     hub,
	}
}

// RegisterRoutes registers the order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth middleware.Authenticator) {
	requireAuth := middleware.AuthRequired(auth)
	optionalAuth := middleware.OptionalAuth(auth)
	staffOnly := middleware.RequireRole(models.RoleStaff, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", optionalAuth, h.HandlePlaceOrder)
	orderRoutes.Get("/", requireAuth, h.HandleListOrders)
	orderRoutes.Post("/create-payment", optionalAuth, h.HandleCreatePayment)
	orderRoutes.Put("/:id/cancel", requireAuth, h.HandleCancelOrder)
	orderRoutes.Put("/:id/status", requireAuth, staffOnly, h.HandleUpdateOrderStatus)

	admin := orderRoutes.Group("/admin", requireAuth)
	admin.Get("/all", staffOnly, h.HandleListAllOrders)
	admin.Get("/export", adminOnly, h.HandleExportOrders)
	if h.hub != nil {
		admin.Get("/live", staffOnly, func(c *fiber.Ctx) error {
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			c.Locals("live_user_id", middleware.ActorFrom(c).UserID)
			return c.Next()
		}, websocket.New(h.handleLive))
	}
}

func idempotencyKey(c *fiber.Ctx, fromBody string) string {
	if key := strings.TrimSpace(fromBody); key != "" {
		return key
	}
	return strings.TrimSpace(c.Get(IdempotencyHeader))
}

// HandlePlaceOrder places an order for the signed-in user or a guest.
func (h *OrderHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	req.IdempotencyKey = idempotencyKey(c, req.IdempotencyKey)

	res, err := h.service.PlaceOrder(c.UserContext(), middleware.ActorFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}

	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"message":  "Order placed successfully",
		"orderId":  res.OrderID,
		"orderRef": res.OrderRef,
		"total":    res.Total,
		"replayed": res.Replayed,
	})
}

// HandleCreatePayment creates a payment intent for the cart or submitted items.
func (h *OrderHandler) HandleCreatePayment(c *fiber.Ctx) error {
	var req services.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	req.IdempotencyKey = idempotencyKey(c, req.IdempotencyKey)

	res, err := h.service.CreatePayment(c.UserContext(), middleware.ActorFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// HandleListOrders lists the signed-in user's orders.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	orders, err := h.service.ListOrders(c.UserContext(), actor.UserID, c.Query("status"))
	if err != nil {
		return writeError(c, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(orders)
}

// HandleListAllOrders lists every order for the back office.
func (h *OrderHandler) HandleListAllOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAllOrders(c.UserContext(), c.Query("status"))
	if err != nil {
		return writeError(c, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(orders)
}

// HandleCancelOrder cancels one of the user's own new orders.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	actor := middleware.ActorFrom(c)
	if _, err := h.service.CancelOrder(c.UserContext(), actor.UserID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order cancelled"})
}

// HandleUpdateOrderStatus moves an order to a new status.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var updateData struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&updateData); err != nil {
		return badBody(c, err)
	}

	order, err := h.service.UpdateStatus(c.UserContext(), id, updateData.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %d status updated to %s", order.ID, order.Status),
	})
}

// HandleExportOrders downloads orders as an XLSX workbook.
func (h *OrderHandler) HandleExportOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAllOrders(c.UserContext(), c.Query("status"))
	if err != nil {
		return writeError(c, err)
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	if err := export.WriteOrders(c.Response().BodyWriter(), orders); err != nil {
		log.Error().Err(err).Msg("order export failed")
		c.Response().ResetBody()
		c.Set(fiber.HeaderContentDisposition, "")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not export orders",
		})
	}
	return nil
}

// handleLive streams order events to a staff websocket until it disconnects.
func (h *OrderHandler) handleLive(conn *websocket.Conn) {
	userID, _ := conn.Locals("live_user_id").(uint)
	client := &realtime.Client{ID: uuid.NewString(), UserID: userID, Conn: conn}
	h.hub.Register(client)
	defer func() {
		h.hub.Unregister(client)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client_id", client.ID).Msg("live feed read error")
			}
			return
		}
	}
}
