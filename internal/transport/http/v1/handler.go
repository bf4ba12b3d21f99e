// Package v1 provides the REST API handlers for the chat service.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mhrkq/RumorChat/internal/domain"
	"github.com/mhrkq/RumorChat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Room API
	e.POST("/v1/rooms", h.CreateRoom)
	e.GET("/v1/rooms", h.ListRooms)
	e.GET("/v1/rooms/:code", h.GetRoom)
	e.DELETE("/v1/rooms/:code", h.DeleteRoom)

	// Room content API
	e.GET("/v1/rooms/:code/messages", h.GetMessages)
	e.GET("/v1/rooms/:code/members", h.GetMembers)
	e.POST("/v1/rooms/:code/comments", h.SubmitComment)
	e.GET("/v1/rooms/:code/comments", h.GetCommentTree)

	// Comment moderation API
	e.POST("/v1/comments/:comment_id/vote", h.VoteComment)
	e.POST("/v1/comments/:comment_id/report", h.ReportComment)

	// Assistant session API
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions", h.ListSessions)
	e.GET("/v1/sessions/:owner/:number/entries", h.GetSessionEntries)
	e.GET("/v1/assistant/inflight", h.GetInFlight)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorJSON maps a service error to an HTTP response.
func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrCommentNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParent):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidVote):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
