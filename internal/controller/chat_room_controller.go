package controller

import (
	"errors"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/pkg/serverutils"
	"team-messenger-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatRoomController interface {
	RegisterRoutes(r fiber.Router)
	CreateRoom(ctx *fiber.Ctx) error
	DirectRoom(ctx *fiber.Ctx) error
	GetRoom(ctx *fiber.Ctx) error
	ListRooms(ctx *fiber.Ctx) error
	MarkRead(ctx *fiber.Ctx) error
	Invite(ctx *fiber.Ctx) error
	RemoveMember(ctx *fiber.Ctx) error
	Leave(ctx *fiber.Ctx) error
	Members(ctx *fiber.Ctx) error
}

type chatRoomController struct {
	rooms service.IRoomService
}

func NewChatRoomController(rooms service.IRoomService) IChatRoomController {
	return &chatRoomController{rooms: rooms}
}

func (c *chatRoomController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rooms")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/", c.CreateRoom)
	h.Post("/direct", c.DirectRoom)
	h.Get("/", c.ListRooms)
	h.Get("/:roomId", c.GetRoom)
	h.Post("/:roomId/read", c.MarkRead)
	h.Post("/:roomId/members", c.Invite)
	h.Delete("/:roomId/members/:userId", c.RemoveMember)
	h.Post("/:roomId/leave", c.Leave)
	h.Get("/:roomId/members", c.Members)
}

func (c *chatRoomController) CreateRoom(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	var req dto.CreateRoomRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.rooms.CreateRoom(ctx.UserContext(), userID, req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Room created", res))
}

func (c *chatRoomController) DirectRoom(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	var req dto.DirectRoomRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.rooms.DirectRoom(ctx.UserContext(), userID, req.PeerID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Direct room", res))
}

func (c *chatRoomController) GetRoom(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	roomID, err := ctx.ParamsInt("roomId")
	if err != nil || roomID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid room id"))
	}

	res, err := c.rooms.GetRoom(ctx.UserContext(), userID, int64(roomID))
	if err != nil {
		return roomError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Room", res))
}

func (c *chatRoomController) ListRooms(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	res, err := c.rooms.ListRooms(ctx.UserContext(), userID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Rooms", res))
}

func (c *chatRoomController) MarkRead(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	roomID, err := ctx.ParamsInt("roomId")
	if err != nil || roomID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid room id"))
	}

	if err := c.rooms.MarkRead(ctx.UserContext(), userID, int64(roomID)); err != nil {
		return roomError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Room marked read", nil))
}

func (c *chatRoomController) Invite(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	roomID, err := ctx.ParamsInt("roomId")
	if err != nil || roomID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid room id"))
	}

	var req dto.InviteMemberRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.rooms.Invite(ctx.UserContext(), userID, int64(roomID), req.UserID); err != nil {
		return roomError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Member invited", nil))
}

func (c *chatRoomController) RemoveMember(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	roomID, err := ctx.ParamsInt("roomId")
	if err != nil || roomID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid room id"))
	}
	targetID, err := ctx.ParamsInt("userId")
	if err != nil || targetID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid user id"))
	}

	if err := c.rooms.RemoveMember(ctx.UserContext(), userID, int64(roomID), int64(targetID)); err != nil {
		return roomError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Member removed", nil))
}

func (c *chatRoomController) Leave(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	roomID, err := ctx.ParamsInt("roomId")
	if err != nil || roomID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid room id"))
	}

	if err := c.rooms.Leave(ctx.UserContext(), userID, int64(roomID)); err != nil {
		return roomError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Left room", nil))
}

func (c *chatRoomController) Members(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}
	roomID, err := ctx.ParamsInt("roomId")
	if err != nil || roomID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid room id"))
	}

	res, err := c.rooms.Members(ctx.UserContext(), userID, int64(roomID))
	if err != nil {
		return roomError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Room members", res))
}

func roomError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	case errors.Is(err, service.ErrNotMember):
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(403, err.Error()))
	case errors.Is(err, service.ErrAlreadyMember), errors.Is(err, service.ErrDirectRoom):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
}
