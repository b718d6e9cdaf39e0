package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
	log *zap.SugaredLogger
}

func NewChatHandler(svc *service.ChatService, log *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

type createConversationRequest struct {
	OtherUserID string `json:"otherUserId"`
}

func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil || req.OtherUserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "otherUserId is required"})
	}
	conv, err := h.svc.CreateOrGetConversation(c.Context(), callerID(c), req.OtherUserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	list, err := h.svc.ListConversations(c.Context(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"conversations": list})
}

func (h *ChatHandler) GetConversation(c *fiber.Ctx) error {
	conv, err := h.svc.GetConversation(c.Context(), c.Params("id"), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

func (h *ChatHandler) DeleteConversation(c *fiber.Ctx) error {
	res, err := h.svc.DeleteConversation(c.Context(), c.Params("id"), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	msg, err := h.svc.SendMessage(c.Context(), callerID(c), c.Params("id"), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	msgs, err := h.svc.GetMessages(c.Context(), c.Params("id"), callerID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func (h *ChatHandler) MarkMessageAsRead(c *fiber.Ctx) error {
	if err := h.svc.MarkMessageAsRead(c.Context(), c.Params("id"), callerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *ChatHandler) MarkConversationAsRead(c *fiber.Ctx) error {
	res, err := h.svc.MarkConversationAsRead(c.Context(), c.Params("id"), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *ChatHandler) GetUnreadCounts(c *fiber.Ctx) error {
	counts, err := h.svc.GetUnreadCounts(c.Context(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}

func (h *ChatHandler) GetUserOnline(c *fiber.Ctx) error {
	id := c.Params("id")
	return c.JSON(fiber.Map{"userId": id, "isOnline": h.svc.IsUserOnline(c.Context(), id)})
}

func (h *ChatHandler) GetOnlineCount(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"onlineCount": h.svc.OnlineCount(c.Context())})
}

func (h *ChatHandler) GetConversationUnreadCount(c *fiber.Ctx) error {
	n, err := h.svc.GetConversationUnreadCount(c.Context(), callerID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"conversationId": c.Params("id"), "count": n})
}
