package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetMessages retrieves a room's message history, oldest first. A limit
// query parameter returns only the most recent messages.
// GET /v1/rooms/:code/messages
func (h *Handler) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.Param("code")

	if l := c.QueryParam("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		messages, err := h.service.Tail(ctx, code, limit, nil)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"messages": messages,
		})
	}

	messages, err := h.service.All(ctx, code)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}
