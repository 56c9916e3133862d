package controller

import (
	"team-messenger-be/internal/pkg/serverutils"
	"team-messenger-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type INotificationController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	MarkAsRead(ctx *fiber.Ctx) error
	MarkAllAsRead(ctx *fiber.Ctx) error
}

type notificationController struct {
	notifications service.INotificationService
}

func NewNotificationController(notifications service.INotificationService) INotificationController {
	return &notificationController{notifications: notifications}
}

func (c *notificationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/notifications")
	h.Use(serverutils.JwtMiddleware)
	h.Get("/", c.List)
	h.Post("/:id/read", c.MarkAsRead)
	h.Post("/read-all", c.MarkAllAsRead)
}

func (c *notificationController) List(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.notifications.List(ctx.UserContext(), userID, limit, offset)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Notifications", res))
}

func (c *notificationController) MarkAsRead(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid notification id"))
	}

	if err := c.notifications.MarkAsRead(ctx.UserContext(), userID, id); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Notification marked read", nil))
}

func (c *notificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	if err := c.notifications.MarkAllAsRead(ctx.UserContext(), userID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("All notifications marked read", nil))
}
