package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mhrkq/RumorChat/internal/domain"
	"github.com/mhrkq/RumorChat/internal/metrics"
	"github.com/mhrkq/RumorChat/internal/protocol"
)

// AddComment appends a comment to a room's forest. A non-empty parentID
// must resolve to an existing comment in the same room.
func (s *Service) AddComment(ctx context.Context, roomCode, author string, role domain.Role, content, parentID string) (*domain.Comment, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	if parentID != "" {
		parent, err := s.store.GetComment(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.RoomCode != roomCode {
			return nil, domain.ErrInvalidParent
		}
	}

	comment := &domain.Comment{
		CommentID: "cmt_" + uuid.New().String()[:8],
		RoomCode:  roomCode,
		ParentID:  parentID,
		Author:    author,
		Role:      role,
		Content:   content,
		VoteTotal: 0,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	metrics.CommentsSubmitted.Inc()

	s.broadcastToRoom(roomCode, &protocol.CommentAddedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeCommentAdded, Ts: time.Now().UnixMilli()},
		Comment:     *comment,
	})

	return comment, nil
}

// Vote applies a vote toggle for a voter on a comment and returns the new
// cached total plus the voter's resulting direction (0 after a rescind).
// A repeated vote in the same direction rescinds; the opposite direction
// flips. Serialized per comment.
func (s *Service) Vote(ctx context.Context, commentID, voter string, direction int) (int, int, error) {
	if direction != 1 && direction != -1 {
		return 0, 0, domain.ErrInvalidVote
	}

	s.commentLocks.Lock(commentID)
	defer s.commentLocks.Unlock(commentID)

	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return 0, 0, err
	}
	if comment == nil {
		return 0, 0, domain.ErrCommentNotFound
	}

	newTotal, viewerVote, err := s.store.ApplyVote(ctx, &domain.Vote{CommentID: commentID, Voter: voter, Direction: direction})
	if err != nil {
		return 0, 0, err
	}
	metrics.VotesApplied.Inc()

	s.broadcastToRoom(comment.RoomCode, &protocol.VoteUpdatedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeVoteUpdated, Ts: time.Now().UnixMilli()},
		CommentID:   commentID,
		Total:       newTotal,
	})

	// the voter also learns where their toggle landed
	vv := viewerVote
	s.sendToUser(comment.RoomCode, voter, &protocol.VoteUpdatedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeVoteUpdated, Ts: time.Now().UnixMilli()},
		CommentID:   commentID,
		Total:       newTotal,
		ViewerVote:  &vv,
	})

	return newTotal, viewerVote, nil
}

// Report flags a comment for moderation. A repeated report by the same
// reporter is acknowledged without effect.
func (s *Service) Report(ctx context.Context, commentID, reporter, reason string) (bool, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return false, err
	}
	if comment == nil {
		return false, domain.ErrCommentNotFound
	}

	return s.store.CreateReport(ctx, &domain.Report{
		CommentID: commentID,
		Reporter:  reporter,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
}

// Tree returns a room's comment forest decorated for the viewer. Roots
// first, siblings in insertion order, each node carrying the vote total,
// the viewer's own direction and whether the viewer already reported it.
func (s *Service) Tree(ctx context.Context, roomCode, viewer string) ([]*domain.CommentNode, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	comments, viewerVotes, viewerReports, err := s.store.CommentTreeData(ctx, roomCode, viewer)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*domain.CommentNode, len(comments))
	roots := make([]*domain.CommentNode, 0)

	// comments arrive in insertion order, so parents precede children and
	// sibling order falls out of append order
	for i := range comments {
		c := comments[i]
		node := &domain.CommentNode{
			Comment:        c,
			ViewerVote:     viewerVotes[c.CommentID],
			ViewerReported: viewerReports[c.CommentID],
		}
		nodes[c.CommentID] = node

		if c.ParentID == "" {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[c.ParentID]; ok {
			parent.Replies = append(parent.Replies, node)
		} else {
			// orphaned reply, surface as a root rather than dropping it
			roots = append(roots, node)
		}
	}

	return roots, nil
}
