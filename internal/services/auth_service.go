package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the data needed to open a customer account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
	Address  string `json:"address" validate:"omitempty,max=255"`
}

// Profile is a user together with how many orders they have in each status.
type Profile struct {
	User       *models.User                 `json:"user"`
	OrderStats map[models.OrderStatus]int64 `json:"orderStats"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	orderRepo repositories.OrderRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService. Tokens expire after tokenTTL.
func NewAuthService(userRepo repositories.UserRepository, orderRepo repositories.OrderRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &AuthService{
		userRepo:  userRepo,
		orderRepo: orderRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// TokenTTL is how long issued tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Register creates a customer account and returns it with a session token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Password: string(hashedPassword),
		Phone:    in.Phone,
		Address:  in.Address,
		Role:     models.RoleCustomer,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks the credentials and returns the user with a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	invalid := apperr.New(apperr.ErrAuth, "Invalid email or password")

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, "", invalid
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", invalid
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrAuth, "Invalid or expired token", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperr.New(apperr.ErrAuth, "Invalid or expired token")
}

// Authenticate turns a token into an Actor. The role is reloaded from the
// database so that demotions take effect before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*Actor, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	// JSON numbers decode as float64 in MapClaims.
	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return nil, apperr.New(apperr.ErrAuth, "Invalid or expired token")
	}

	user, err := s.userRepo.GetByID(ctx, uint(rawID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.ErrAuth, "User no longer exists")
		}
		return nil, err
	}

	return &Actor{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// Profile returns the user and their order counts per status.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.orderRepo.CountByStatus(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Uint("user_id", userID).Msg("failed to count orders for profile")
		stats = map[models.OrderStatus]int64{}
	}
	return &Profile{User: user, OrderStats: stats}, nil
}
