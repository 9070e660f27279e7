package middleware

import (
	"github.com/gofiber/fiber/v2"

	"npmdeck/internal/config"
)

// Security applies the CORS policy from configuration plus a fixed set of
// security headers to every response, and answers preflight OPTIONS
// requests directly.
func Security(cors config.CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", cors.AllowOrigins)
		c.Set("Access-Control-Allow-Methods", cors.AllowMethods)
		c.Set("Access-Control-Allow-Headers", cors.AllowHeaders)
		c.Set("Access-Control-Expose-Headers", RequestIDHeader)

		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
