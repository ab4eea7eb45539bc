package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the signed-in user's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes. Every cart route needs a session.
func (h *CartHandler) RegisterRoutes(router fiber.Router, auth middleware.Authenticator) {
	cartRoutes := router.Group("/cart", middleware.AuthRequired(auth))
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/add", h.HandleAddItem)
	cartRoutes.Post("/update", h.HandleUpdateItem)
}

// CartItemRequest is the body of the cart mutation endpoints.
type CartItemRequest struct {
	ProductID uint   `json:"productId" validate:"required"`
	Qty       int    `json:"qty" validate:"max=999"`
	Size      string `json:"size" validate:"omitempty,max=16"`
}

// HandleGetCart returns the active cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	cart, err := h.service.GetCart(c.UserContext(), actor.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(cart)
}

// HandleAddItem adds a product to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req CartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := validate(h.validate, req); err != nil {
		return writeError(c, err)
	}

	actor := middleware.ActorFrom(c)
	if err := h.service.AddItem(c.UserContext(), actor.UserID, req.ProductID, req.Qty, req.Size); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleUpdateItem sets or removes a cart line.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req CartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := validate(h.validate, req); err != nil {
		return writeError(c, err)
	}

	actor := middleware.ActorFrom(c)
	if err := h.service.UpdateItem(c.UserContext(), actor.UserID, req.ProductID, req.Qty, req.Size); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
