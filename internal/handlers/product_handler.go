package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the catalog routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth middleware.Authenticator) {
	requireAuth := middleware.AuthRequired(auth)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staffOnly := middleware.RequireRole(models.RoleStaff, models.RoleAdmin)

	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/categories", h.HandleListCategories)
	productRoutes.Post("/categories", requireAuth, adminOnly, h.HandleCreateCategory)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", requireAuth, adminOnly, h.HandleCreateProduct)
	productRoutes.Put("/:id", requireAuth, adminOnly, h.HandleUpdateProduct)
	productRoutes.Put("/:id/stock", requireAuth, staffOnly, h.HandleUpdateStock)
	productRoutes.Delete("/:id", requireAuth, adminOnly, h.HandleDeleteProduct)
}

// HandleListProducts lists active products, optionally searched and filtered by category.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	filter := repositories.ProductFilter{
		Query:      c.Query("q"),
		CategoryID: uint(c.QueryInt("categoryId", 0)),
	}
	products, err := h.service.ListProducts(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return c.JSON(products)
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

// HandleListCategories lists every category.
func (h *ProductHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return c.JSON(categories)
}

// HandleCreateProduct adds a product to the catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req services.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := validate(h.validate, req); err != nil {
		return writeError(c, err)
	}

	product, err := h.service.CreateProduct(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct overwrites a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req services.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := validate(h.validate, req); err != nil {
		return writeError(c, err)
	}

	product, err := h.service.UpdateProduct(c.UserContext(), id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

// HandleUpdateStock sets the stock level of a product.
func (h *ProductHandler) HandleUpdateStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req struct {
		Stock *int `json:"stock" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := validate(h.validate, req); err != nil {
		return writeError(c, err)
	}

	if err := h.service.UpdateStock(c.UserContext(), id, *req.Stock); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock updated"})
}

// HandleDeleteProduct retires a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// HandleCreateCategory adds a category.
func (h *ProductHandler) HandleCreateCategory(c *fiber.Ctx) error {
	var category models.Category
	if err := c.BodyParser(&category); err != nil {
		return badBody(c, err)
	}
	if err := validate(h.validate, category); err != nil {
		return writeError(c, err)
	}

	category.ID = 0
	if err := h.service.CreateCategory(c.UserContext(), &category); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}
