package controller

import (
	"team-messenger-be/internal/pkg/serverutils"
	"team-messenger-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPresenceController interface {
	RegisterRoutes(r fiber.Router)
	OnlineUsers(ctx *fiber.Ctx) error
	IsOnline(ctx *fiber.Ctx) error
}

type presenceController struct {
	presence service.IPresenceService
}

func NewPresenceController(presence service.IPresenceService) IPresenceController {
	return &presenceController{presence: presence}
}

func (c *presenceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/presence")
	h.Use(serverutils.JwtMiddleware)
	h.Get("/online", c.OnlineUsers)
	h.Get("/online/:userId", c.IsOnline)
}

func (c *presenceController) OnlineUsers(ctx *fiber.Ctx) error {
	ids, err := c.presence.OnlineUsers(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Online users", ids))
}

func (c *presenceController) IsOnline(ctx *fiber.Ctx) error {
	userID, err := ctx.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid user id"))
	}

	online, err := c.presence.IsOnline(ctx.UserContext(), int64(userID))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Presence", fiber.Map{"online": online}))
}
