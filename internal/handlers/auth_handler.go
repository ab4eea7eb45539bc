package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService  *services.AuthService
	validate     *validator.Validate
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the session
// cookie as HTTPS only.
func NewAuthHandler(authService *services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		validate:     validator.New(),
		secureCookie: secureCookie,
	}
}

// RegisterRoutes registers the authentication routes. limit guards the
// credential endpoints.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, limit fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", limit, h.HandleRegister)
	authRoutes.Post("/login", limit, h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/profile", middleware.AuthRequired(h.authService), h.HandleProfile)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := validate(h.validate, req); err != nil {
		return writeError(c, err)
	}

	user, token, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}

	log.Info().Uint("user_id", user.ID).Msg("user registered")
	middleware.SetAuthCookie(c, token, h.authService.TokenTTL(), h.secureCookie)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := validate(h.validate, req); err != nil {
		return writeError(c, err)
	}

	user, token, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		log.Debug().Str("email", req.Email).Msg("login failed")
		return writeError(c, err)
	}

	middleware.SetAuthCookie(c, token, h.authService.TokenTTL(), h.secureCookie)
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// HandleLogout clears the session cookie.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	middleware.ClearAuthCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleProfile returns the signed-in user with their order counts.
func (h *AuthHandler) HandleProfile(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	profile, err := h.authService.Profile(c.UserContext(), actor.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(profile)
}
