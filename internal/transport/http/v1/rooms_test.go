package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/mhrkq/RumorChat/internal/domain"
)

func TestCreateAndGetRoom(t *testing.T) {
	e := echo.New()
	handler, _ := newTestHandler(t)

	reqBody, _ := json.Marshal(RoomCreateRequest{Topic: "launch rumors"})
	req := httptest.NewRequest(http.MethodPost, "/v1/rooms", bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.CreateRoom(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var room domain.Room
	json.Unmarshal(rec.Body.Bytes(), &room)
	assert.Len(t, room.Code, 4)
	assert.Equal(t, "launch rumors", room.Topic)

	req = httptest.NewRequest(http.MethodGet, "/v1/rooms/"+room.Code, nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetPath("/v1/rooms/:code")
	c.SetParamNames("code")
	c.SetParamValues(room.Code)

	err = handler.GetRoom(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	e := echo.New()
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/ZZZZ", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/rooms/:code")
	c.SetParamNames("code")
	c.SetParamValues("ZZZZ")

	err := handler.GetRoom(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRoomPolicy(t *testing.T) {
	e := echo.New()
	handler, svc := newTestHandler(t)
	room := mustRoom(t, svc)

	t.Run("Participant Forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/rooms/"+room.Code, nil)
		req.Header.Set("X-Actor", "mallory")
		req.Header.Set("X-Actor-Role", "participant")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/rooms/:code")
		c.SetParamNames("code")
		c.SetParamValues(room.Code)

		err := handler.DeleteRoom(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Administrator Allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/rooms/"+room.Code, nil)
		req.Header.Set("X-Actor", "admin")
		req.Header.Set("X-Actor-Role", "administrator")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/rooms/:code")
		c.SetParamNames("code")
		c.SetParamValues(room.Code)

		err := handler.DeleteRoom(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetMembersAndMessages(t *testing.T) {
	e := echo.New()
	handler, svc := newTestHandler(t)
	room := mustRoom(t, svc)
	ctx := context.Background()

	if _, _, err := svc.Join(ctx, room.Code, "alice", domain.RoleParticipant); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := svc.Append(ctx, room.Code, "alice", domain.RoleParticipant, "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/"+room.Code+"/members", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/rooms/:code/members")
	c.SetParamNames("code")
	c.SetParamValues(room.Code)

	err := handler.GetMembers(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var membersResp struct {
		Members []domain.Member `json:"members"`
	}
	json.Unmarshal(rec.Body.Bytes(), &membersResp)
	assert.Len(t, membersResp.Members, 1)

	req = httptest.NewRequest(http.MethodGet, "/v1/rooms/"+room.Code+"/messages", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetPath("/v1/rooms/:code/messages")
	c.SetParamNames("code")
	c.SetParamValues(room.Code)

	err = handler.GetMessages(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var msgResp struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	json.Unmarshal(rec.Body.Bytes(), &msgResp)
	// join notice plus the chat message
	assert.Len(t, msgResp.Messages, 2)

	// limited tail
	req = httptest.NewRequest(http.MethodGet, "/v1/rooms/"+room.Code+"/messages?limit=1", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetPath("/v1/rooms/:code/messages")
	c.SetParamNames("code")
	c.SetParamValues(room.Code)

	err = handler.GetMessages(c)
	assert.NoError(t, err)
	json.Unmarshal(rec.Body.Bytes(), &msgResp)
	assert.Len(t, msgResp.Messages, 1)
	assert.Equal(t, "hello", msgResp.Messages[0].Content)
}
