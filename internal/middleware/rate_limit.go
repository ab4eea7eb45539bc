package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis/v3"
)

// Rate limit windows applied by the server.
const (
	GlobalLimit = 1000
	APILimit    = 200
	AuthLimit   = 10
	LimitWindow = 15 * time.Minute
)

// NewRedisStorage returns limiter storage shared between instances through Redis.
func NewRedisStorage(host string, port int, password string) fiber.Storage {
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
	})
}

// RateLimit limits each client IP to max requests per window. A nil storage
// keeps counters in memory. Keys are namespaced by name so that several
// limiters can share one storage.
func RateLimit(name string, max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests, please try again later",
			})
		},
		Storage: storage,
	})
}
