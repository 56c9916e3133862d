package controller

import (
	"time"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/pkg/serverutils"
	"team-messenger-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatMessageController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	GetSenderActivity(ctx *fiber.Ctx) error
}

type chatMessageController struct {
	producer service.IChatProducerService
	messages service.IMessageService
}

func NewChatMessageController(producer service.IChatProducerService, messages service.IMessageService) IChatMessageController {
	return &chatMessageController{
		producer: producer,
		messages: messages,
	}
}

func (c *chatMessageController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/messages")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/", c.SendMessage)
	h.Get("/room/:roomId", c.GetHistory)
	h.Get("/activity", c.GetSenderActivity)
}

// SendMessage enqueues the message and returns immediately with the event
// id. Persistence and fan-out happen asynchronously.
func (c *chatMessageController) SendMessage(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	displayName, _ := ctx.Locals("display_name").(string)
	event := c.producer.Send(ctx.UserContext(), userID, displayName, req)

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Message accepted", fiber.Map{
		"event_id": event.EventID,
		"sent_at":  event.SentAt,
	}))
}

func (c *chatMessageController) GetHistory(ctx *fiber.Ctx) error {
	if _, ok := serverutils.UserID(ctx); !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	roomID, err := ctx.ParamsInt("roomId")
	if err != nil || roomID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid room id"))
	}

	page := ctx.QueryInt("page", 1)
	pageSize := ctx.QueryInt("page_size", 50)

	res, err := c.messages.History(ctx.UserContext(), int64(roomID), page, pageSize)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Room history", res))
}

// GetSenderActivity fans the query out over every shard and merges the
// results, so it is noticeably heavier than room history.
func (c *chatMessageController) GetSenderActivity(ctx *fiber.Ctx) error {
	if _, ok := serverutils.UserID(ctx); !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	senderID := int64(ctx.QueryInt("sender_id"))
	if senderID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "sender_id is required"))
	}

	start, err := time.Parse(time.RFC3339, ctx.Query("start"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "start must be RFC3339"))
	}
	end, err := time.Parse(time.RFC3339, ctx.Query("end"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "end must be RFC3339"))
	}

	res, err := c.messages.SenderActivity(ctx.UserContext(), senderID, start, end)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Sender activity", res))
}
