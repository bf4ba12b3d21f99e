package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mhrkq/RumorChat/internal/domain"
)

// CommentSubmitRequest is the request to submit a comment.
type CommentSubmitRequest struct {
	Author   string `json:"author"`
	Role     string `json:"role,omitempty"`
	Content  string `json:"content"`
	ParentID string `json:"parent_id,omitempty"`
}

// SubmitComment attaches a comment to a room or a parent comment.
// POST /v1/rooms/:code/comments
func (h *Handler) SubmitComment(c echo.Context) error {
	ctx := c.Request().Context()

	var req CommentSubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Author == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "author is required"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}

	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleParticipant
	}

	comment, err := h.service.AddComment(ctx, c.Param("code"), req.Author, role, req.Content, req.ParentID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, comment)
}

// GetCommentTree returns a room's comment forest decorated for the viewer.
// GET /v1/rooms/:code/comments?viewer=
func (h *Handler) GetCommentTree(c echo.Context) error {
	ctx := c.Request().Context()

	tree, err := h.service.Tree(ctx, c.Param("code"), c.QueryParam("viewer"))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"comments": tree,
	})
}

// VoteRequest is the request to vote on a comment.
type VoteRequest struct {
	Voter     string `json:"voter"`
	Direction int    `json:"direction"`
}

// VoteComment applies a vote toggle on a comment.
// POST /v1/comments/:comment_id/vote
func (h *Handler) VoteComment(c echo.Context) error {
	ctx := c.Request().Context()

	var req VoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Voter == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "voter is required"})
	}

	total, viewerVote, err := h.service.Vote(ctx, c.Param("comment_id"), req.Voter, req.Direction)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":      total,
		"voter_vote": viewerVote,
	})
}

// ReportRequest is the request to report a comment.
type ReportRequest struct {
	Reporter string `json:"reporter"`
	Reason   string `json:"reason,omitempty"`
}

// ReportComment records a moderation report on a comment. A repeated
// report by the same reporter is acknowledged with accepted=false.
// POST /v1/comments/:comment_id/report
func (h *Handler) ReportComment(c echo.Context) error {
	ctx := c.Request().Context()

	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Reporter == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "reporter is required"})
	}

	accepted, err := h.service.Report(ctx, c.Param("comment_id"), req.Reporter, req.Reason)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"accepted": accepted})
}
