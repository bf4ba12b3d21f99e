// Package ws provides the WebSocket server for chat clients.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mhrkq/RumorChat/internal/config"
	"github.com/mhrkq/RumorChat/internal/domain"
	"github.com/mhrkq/RumorChat/internal/hub"
	"github.com/mhrkq/RumorChat/internal/protocol"
	"github.com/mhrkq/RumorChat/internal/service"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	svc      *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service) *Server {
	return &Server{
		cfg: cfg,
		hub: h,
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection. A dropped
// connection counts as leaving the room.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.leaveRoom(conn)
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		// a pong is as good as an explicit heartbeat
		if room, name := conn.Identity(); room != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.svc.Heartbeat(ctx, room, name, time.Now()); err != nil {
				log.Printf("WARN: pong heartbeat failed for %s/%s: %v", room, name, err)
			}
		}
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeJoin:
		s.handleJoin(conn, data)
	case protocol.TypeLeave:
		s.handleLeave(conn, data)
	case protocol.TypeHeartbeat:
		s.handleHeartbeat(conn, data)
	case protocol.TypeSendMessage:
		s.handleSendMessage(conn, data)
	case protocol.TypeSubmitComment:
		s.handleSubmitComment(conn, data)
	case protocol.TypeVoteComment:
		s.handleVoteComment(conn, data)
	case protocol.TypeReportComment:
		s.handleReportComment(conn, data)
	case protocol.TypeCreateSession:
		s.handleCreateSession(conn, data)
	case protocol.TypePromptAssistant:
		s.handlePromptAssistant(conn, data)
	default:
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleJoin binds the connection to a room identity and enters the room.
func (s *Server) handleJoin(conn *hub.Connection, data []byte) {
	var msg protocol.JoinMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid join message")
		return
	}
	if msg.Room == "" || msg.Name == "" {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "room and name are required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	room, err := s.svc.GetRoom(ctx, msg.Room)
	if err != nil {
		s.sendServiceError(conn, err)
		return
	}

	if err := s.hub.Bind(conn, msg.Room, msg.Name); err != nil {
		s.sendServiceError(conn, err)
		return
	}

	members, _, err := s.svc.Join(ctx, msg.Room, msg.Name, domain.Role(msg.Role))
	if err != nil {
		s.hub.Unbind(conn)
		s.sendServiceError(conn, err)
		return
	}

	messages, err := s.svc.All(ctx, msg.Room)
	if err != nil {
		s.sendServiceError(conn, err)
		return
	}

	ack := protocol.JoinedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeJoined, Ts: time.Now().UnixMilli()},
		Room:        room.Code,
		Topic:       room.Topic,
		Members:     members,
		Messages:    messages,
	}
	s.hub.SendJSONToConnection(conn, ack)

	log.Printf("%s joined room %s", msg.Name, msg.Room)
}

// handleLeave detaches the connection from its room.
func (s *Server) handleLeave(conn *hub.Connection, data []byte) {
	var msg protocol.LeaveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid leave message")
		return
	}
	if room, _ := conn.Identity(); room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}
	s.leaveRoom(conn)
}

// leaveRoom runs the leave flow for a bound connection. Safe to call on an
// unbound one.
func (s *Server) leaveRoom(conn *hub.Connection) {
	room, name := conn.Identity()
	if room == "" {
		return
	}
	s.hub.Unbind(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.svc.Leave(ctx, room, name); err != nil {
		log.Printf("WARN: leave failed for %s/%s: %v", room, name, err)
	}
}

// handleHeartbeat refreshes the member's liveness.
func (s *Server) handleHeartbeat(conn *hub.Connection, data []byte) {
	var msg protocol.HeartbeatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid heartbeat message")
		return
	}
	room, name := conn.Identity()
	if room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.svc.Heartbeat(ctx, room, name, time.Now()); err != nil {
		s.sendServiceError(conn, err)
	}
}

// handleSendMessage appends a chat message to the room log.
func (s *Server) handleSendMessage(conn *hub.Connection, data []byte) {
	var msg protocol.SendMessageMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid send_message message")
		return
	}
	room, name := conn.Identity()
	if room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}
	if msg.Content == "" {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "content is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.svc.Append(ctx, room, name, s.memberRole(ctx, room, name), msg.Content); err != nil {
		s.sendServiceError(conn, err)
	}
}

// handleSubmitComment attaches a comment to the room or a parent comment.
func (s *Server) handleSubmitComment(conn *hub.Connection, data []byte) {
	var msg protocol.SubmitCommentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid submit_comment message")
		return
	}
	room, name := conn.Identity()
	if room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}
	if msg.Content == "" {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "content is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.svc.AddComment(ctx, room, name, s.memberRole(ctx, room, name), msg.Content, msg.ParentID); err != nil {
		s.sendServiceError(conn, err)
	}
}

// handleVoteComment applies a vote toggle.
func (s *Server) handleVoteComment(conn *hub.Connection, data []byte) {
	var msg protocol.VoteCommentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid vote_comment message")
		return
	}
	room, name := conn.Identity()
	if room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, _, err := s.svc.Vote(ctx, msg.CommentID, name, msg.Direction); err != nil {
		s.sendServiceError(conn, err)
	}
}

// handleReportComment records a moderation report.
func (s *Server) handleReportComment(conn *hub.Connection, data []byte) {
	var msg protocol.ReportCommentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid report_comment message")
		return
	}
	room, name := conn.Identity()
	if room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.svc.Report(ctx, msg.CommentID, name, msg.Reason); err != nil {
		s.sendServiceError(conn, err)
	}
}

// handleCreateSession opens a new assistant session for the connection's
// identity.
func (s *Server) handleCreateSession(conn *hub.Connection, data []byte) {
	var msg protocol.CreateSessionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid create_session message")
		return
	}
	room, name := conn.Identity()
	if room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	number, err := s.svc.CreateSession(ctx, name)
	if err != nil {
		s.sendServiceError(conn, err)
		return
	}

	s.hub.SendJSONToConnection(conn, protocol.SessionCreatedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeSessionCreated, Ts: time.Now().UnixMilli()},
		Number:      number,
	})
}

// handlePromptAssistant schedules an assistant exchange.
func (s *Server) handlePromptAssistant(conn *hub.Connection, data []byte) {
	var msg protocol.PromptAssistantMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid prompt_assistant message")
		return
	}
	room, name := conn.Identity()
	if room == "" {
		s.sendError(conn, protocol.ErrorCodeNotJoined, "must join a room first")
		return
	}
	if msg.Prompt == "" {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "prompt is required")
		return
	}
	session := msg.Session
	if session == 0 {
		session = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.svc.Dispatch(ctx, name, session, room, msg.Prompt); err != nil {
		s.sendServiceError(conn, err)
	}
}

// memberRole looks up a member's role in a room, defaulting to participant.
func (s *Server) memberRole(ctx context.Context, room, name string) domain.Role {
	members, err := s.svc.ListMembers(ctx, room)
	if err != nil {
		return domain.RoleParticipant
	}
	for _, m := range members {
		if m.Name == name {
			return m.Role
		}
	}
	return domain.RoleParticipant
}

// sendServiceError maps a service error to a protocol error message.
func (s *Server) sendServiceError(conn *hub.Connection, err error) {
	code := protocol.ErrorCodeInternalError
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		code = protocol.ErrorCodeRoomNotFound
	case errors.Is(err, domain.ErrCommentNotFound):
		code = protocol.ErrorCodeCommentNotFound
	case errors.Is(err, domain.ErrSessionNotFound):
		code = protocol.ErrorCodeSessionUnknown
	case errors.Is(err, domain.ErrDuplicateName):
		code = protocol.ErrorCodeDuplicateName
	case errors.Is(err, domain.ErrInvalidParent):
		code = protocol.ErrorCodeInvalidParent
	case errors.Is(err, domain.ErrInvalidVote):
		code = protocol.ErrorCodeInvalidVote
	}
	if code == protocol.ErrorCodeInternalError {
		log.Printf("ERROR: websocket operation failed: %v", err)
	}
	s.sendError(conn, code, err.Error())
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.TypeError,
			Ts:   time.Now().UnixMilli(),
		},
		Code:    code,
		Message: message,
	}
	s.hub.SendJSONToConnection(conn, errMsg)
}
