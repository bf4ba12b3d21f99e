package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mhrkq/RumorChat/internal/domain"
)

// RoomCreateRequest is the request to create a room.
type RoomCreateRequest struct {
	Topic string `json:"topic"`
}

// CreateRoom creates a new room with a generated code.
// POST /v1/rooms
func (h *Handler) CreateRoom(c echo.Context) error {
	ctx := c.Request().Context()

	var req RoomCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	room, err := h.service.CreateRoom(ctx, req.Topic)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, room)
}

// ListRooms lists all rooms.
// GET /v1/rooms
func (h *Handler) ListRooms(c echo.Context) error {
	ctx := c.Request().Context()

	rooms, err := h.service.ListRooms(ctx)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"rooms": rooms,
	})
}

// GetRoom gets a room by code.
// GET /v1/rooms/:code
func (h *Handler) GetRoom(c echo.Context) error {
	ctx := c.Request().Context()

	room, err := h.service.GetRoom(ctx, c.Param("code"))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, room)
}

// DeleteRoom removes a room. Administrator only; the caller identifies
// itself through the X-Actor and X-Actor-Role headers.
// DELETE /v1/rooms/:code
func (h *Handler) DeleteRoom(c echo.Context) error {
	ctx := c.Request().Context()

	actor := c.Request().Header.Get("X-Actor")
	role := domain.Role(c.Request().Header.Get("X-Actor-Role"))

	if err := h.service.DeleteRoom(ctx, c.Param("code"), actor, role); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
}

// GetMembers lists a room's current members.
// GET /v1/rooms/:code/members
func (h *Handler) GetMembers(c echo.Context) error {
	ctx := c.Request().Context()

	members, err := h.service.ListMembers(ctx, c.Param("code"))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"members": members,
	})
}
