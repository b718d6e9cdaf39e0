package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/auth"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/config"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/handlers"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/metrics"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/middleware"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/service"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/ws"
)

// New assembles the fiber app: REST surface under /api, websocket gateway on
// /ws, health probe on /health.
func New(
	cfg *config.Config,
	svc *service.ChatService,
	gateway *ws.Gateway,
	verifier *auth.Verifier,
	rdb *redis.Client,
	log *zap.SugaredLogger,
) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: !cfg.Development()})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	h := handlers.NewChatHandler(svc, log)
	userLimiter := middleware.NewRedisRateLimiter(rdb, cfg.Redis.Prefix, cfg.RateLimit.PerMinute, cfg.RateWindow, log)

	api := app.Group("/api",
		handlers.AuthRequired(verifier),
		userLimiter.ByKey(func(c *fiber.Ctx) string {
			id, _ := c.Locals(handlers.LocalUserID).(string)
			return id
		}),
	)

	api.Post("/conversations", h.CreateConversation)
	api.Get("/conversations", h.ListConversations)
	api.Get("/conversations/:id", h.GetConversation)
	api.Delete("/conversations/:id", h.DeleteConversation)
	api.Get("/conversations/:id/messages", h.GetMessages)
	api.Post("/conversations/:id/messages", h.SendMessage)
	api.Post("/conversations/:id/read", h.MarkConversationAsRead)
	api.Get("/conversations/:id/unread", h.GetConversationUnreadCount)
	api.Get("/unread", h.GetUnreadCounts)
	api.Post("/messages/:id/read", h.MarkMessageAsRead)
	api.Get("/users/:id/online", h.GetUserOnline)
	api.Get("/presence/count", h.GetOnlineCount)

	handshakeLimiter := middleware.NewIPRateLimiter(cfg.WS.HandshakePerMinute)
	app.Get("/ws", handshakeLimiter.Handler(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(gateway.Handle()))

	return app
}
