package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS разрешает origins из конфигурации; пустой список - любой origin без credentials
func CORS(origins string) fiber.Handler {
	if origins == "" {
		return cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Content-Type,Accept,Authorization",
		})
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Content-Type,Accept,Authorization",
		ExposeHeaders:    "X-Records,X-Features,X-Skipped",
		AllowCredentials: true,
	})
}
