package server

import (
	"log"
	"os"

	"team-messenger-be/internal/bootstrap"
	"team-messenger-be/internal/config"
	"team-messenger-be/internal/pkg/serverutils"
	ws "team-messenger-be/internal/websocket"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Routes
	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.ChatMessageController.RegisterRoutes(api)
	c.ChatRoomController.RegisterRoutes(api)
	c.PresenceController.RegisterRoutes(api)
	c.NotificationController.RegisterRoutes(api)

	registerWebSocket(app, c)
}

// registerWebSocket wires the upgrade endpoint. Browsers cannot set an
// Authorization header on a WebSocket handshake, so the token rides in the
// query string instead.
func registerWebSocket(app *fiber.App, c *bootstrap.Container) {
	app.Use("/ws", func(ctx *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(ctx) {
			return fiber.ErrUpgradeRequired
		}

		tokenStr := ctx.Query("token")
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			return fiber.ErrUnauthorized
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.ErrUnauthorized
		}
		uid, ok := claims["user_id"].(float64)
		if !ok {
			return fiber.ErrUnauthorized
		}

		ctx.Locals("user_id", int64(uid))
		if name, ok := claims["display_name"].(string); ok {
			ctx.Locals("display_name", name)
		}
		return ctx.Next()
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("user_id").(int64)
		displayName, _ := conn.Locals("display_name").(string)
		ws.ServeWs(c.WebSocketHub, c.ProducerService, c.PresenceService, conn, userID, displayName)
	}))
}
