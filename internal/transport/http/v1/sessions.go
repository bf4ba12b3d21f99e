package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// SessionCreateRequest is the request to open an assistant session.
type SessionCreateRequest struct {
	Owner string `json:"owner"`
}

// CreateSession opens the owner's next numbered assistant session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req SessionCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Owner == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "owner is required"})
	}

	number, err := h.service.CreateSession(ctx, req.Owner)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"owner":  req.Owner,
		"number": number,
	})
}

// ListSessions lists an owner's session numbers.
// GET /v1/sessions?owner=
func (h *Handler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()

	owner := c.QueryParam("owner")
	if owner == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "owner is required"})
	}

	numbers, err := h.service.ListSessions(ctx, owner)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"owner":    owner,
		"sessions": numbers,
	})
}

// GetSessionEntries returns a session's entry log, header included.
// GET /v1/sessions/:owner/:number/entries
func (h *Handler) GetSessionEntries(c echo.Context) error {
	ctx := c.Request().Context()

	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session number"})
	}

	entries, err := h.service.ListSessionEntries(ctx, c.Param("owner"), number)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// GetInFlight reports the number of assistant prompts awaiting replies.
// GET /v1/assistant/inflight
func (h *Handler) GetInFlight(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{
		"in_flight": h.service.InFlightCount(),
	})
}
