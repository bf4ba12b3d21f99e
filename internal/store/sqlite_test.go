package store

import (
	"context"
	"testing"
	"time"

	"github.com/mhrkq/RumorChat/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRoom(t *testing.T, s *SQLiteStore, code string) {
	t.Helper()
	ctx := context.Background()
	if err := s.CreateRoom(ctx, &domain.Room{Code: code, Topic: "testing", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
}

func TestSQLiteStoreRoomsAndMembers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedRoom(t, s, "ABCD")

	got, err := s.GetRoom(ctx, "ABCD")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got == nil || got.Topic != "testing" {
		t.Fatalf("unexpected room: %+v", got)
	}

	missing, err := s.GetRoom(ctx, "ZZZZ")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown room, got %+v", missing)
	}

	if err := s.AddMember(ctx, &domain.Member{RoomCode: "ABCD", Name: "alice", Role: domain.RoleParticipant, JoinedAt: time.Now()}); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if err := s.AddMember(ctx, &domain.Member{RoomCode: "ABCD", Name: "bob", Role: domain.RoleAdministrator, JoinedAt: time.Now()}); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	members, err := s.ListMembers(ctx, "ABCD")
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	removed, err := s.RemoveMember(ctx, "ABCD", "alice")
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal")
	}
	removed, err = s.RemoveMember(ctx, "ABCD", "alice")
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if removed {
		t.Fatalf("second removal should be a no-op")
	}

	// cascade
	if err := s.DeleteRoom(ctx, "ABCD"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	members, err = s.ListMembers(ctx, "ABCD")
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected members cascaded away, got %d", len(members))
	}
}

func TestSQLiteStoreStaleMembers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "ROOM")

	now := time.Now().UTC()
	old := now.Add(-10 * time.Minute)

	// stale heartbeat
	if err := s.AddMember(ctx, &domain.Member{RoomCode: "ROOM", Name: "stale", Role: domain.RoleParticipant, JoinedAt: old}); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if err := s.UpdateHeartbeat(ctx, "ROOM", "stale", old); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	// fresh heartbeat
	if err := s.AddMember(ctx, &domain.Member{RoomCode: "ROOM", Name: "fresh", Role: domain.RoleParticipant, JoinedAt: old}); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if err := s.UpdateHeartbeat(ctx, "ROOM", "fresh", now); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	// never heartbeated, past grace
	if err := s.AddMember(ctx, &domain.Member{RoomCode: "ROOM", Name: "silent", Role: domain.RoleParticipant, JoinedAt: old}); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	// never heartbeated, within grace
	if err := s.AddMember(ctx, &domain.Member{RoomCode: "ROOM", Name: "newbie", Role: domain.RoleParticipant, JoinedAt: now}); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	cutoff := now.Add(-2 * time.Minute)
	stale, err := s.ListStaleMembers(ctx, cutoff, cutoff)
	if err != nil {
		t.Fatalf("ListStaleMembers failed: %v", err)
	}

	names := make(map[string]bool)
	for _, m := range stale {
		names[m.Name] = true
	}
	if len(stale) != 2 || !names["stale"] || !names["silent"] {
		t.Fatalf("unexpected stale set: %+v", names)
	}
}

func TestSQLiteStoreMessagesOrderAndTail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "ROOM")

	base := time.Now().UTC()
	msgs := []domain.ChatMessage{
		{MessageID: "m1", RoomCode: "ROOM", Author: "system", Role: domain.RoleParticipant, Content: "alice has joined the room", CreatedAt: base},
		{MessageID: "m2", RoomCode: "ROOM", Author: "alice", Role: domain.RoleParticipant, Content: "hi", CreatedAt: base},
		{MessageID: "m3", RoomCode: "ROOM", Author: "bob", Role: domain.RoleParticipant, Content: "hello", CreatedAt: base.Add(time.Millisecond)},
		{MessageID: "m4", RoomCode: "ROOM", Author: "alice", Role: domain.RoleParticipant, Content: "how are you", CreatedAt: base.Add(2 * time.Millisecond)},
	}
	for i := range msgs {
		if err := s.CreateMessage(ctx, &msgs[i]); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	all, err := s.ListMessages(ctx, "ROOM")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(all))
	}
	// m1 and m2 share a timestamp; insertion order must break the tie
	if all[0].MessageID != "m1" || all[1].MessageID != "m2" {
		t.Fatalf("tie not broken by insertion order: %s, %s", all[0].MessageID, all[1].MessageID)
	}

	tail, err := s.TailMessages(ctx, "ROOM", 2, nil)
	if err != nil {
		t.Fatalf("TailMessages failed: %v", err)
	}
	if len(tail) != 2 || tail[0].MessageID != "m3" || tail[1].MessageID != "m4" {
		t.Fatalf("unexpected tail: %+v", tail)
	}

	tail, err = s.TailMessages(ctx, "ROOM", 3, []string{"system"})
	if err != nil {
		t.Fatalf("TailMessages failed: %v", err)
	}
	if len(tail) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(tail))
	}
	for _, m := range tail {
		if m.Author == "system" {
			t.Fatalf("system message not excluded: %+v", m)
		}
	}
	if tail[0].MessageID != "m2" {
		t.Fatalf("tail not oldest-first: %+v", tail)
	}
}

func TestSQLiteStoreVoteToggle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "ROOM")

	c := &domain.Comment{CommentID: "c1", RoomCode: "ROOM", Author: "alice", Role: domain.RoleParticipant, Content: "rumor", CreatedAt: time.Now()}
	if err := s.CreateComment(ctx, c); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	// first vote
	total, dir, err := s.ApplyVote(ctx, &domain.Vote{CommentID: "c1", Voter: "bob", Direction: 1})
	if err != nil {
		t.Fatalf("ApplyVote failed: %v", err)
	}
	if total != 1 || dir != 1 {
		t.Fatalf("expected (1,1), got (%d,%d)", total, dir)
	}

	// same direction rescinds
	total, dir, err = s.ApplyVote(ctx, &domain.Vote{CommentID: "c1", Voter: "bob", Direction: 1})
	if err != nil {
		t.Fatalf("ApplyVote failed: %v", err)
	}
	if total != 0 || dir != 0 {
		t.Fatalf("expected (0,0), got (%d,%d)", total, dir)
	}

	// vote again, then flip
	if _, _, err := s.ApplyVote(ctx, &domain.Vote{CommentID: "c1", Voter: "bob", Direction: 1}); err != nil {
		t.Fatalf("ApplyVote failed: %v", err)
	}
	total, dir, err = s.ApplyVote(ctx, &domain.Vote{CommentID: "c1", Voter: "bob", Direction: -1})
	if err != nil {
		t.Fatalf("ApplyVote failed: %v", err)
	}
	if total != -1 || dir != -1 {
		t.Fatalf("expected (-1,-1), got (%d,%d)", total, dir)
	}

	// second voter
	total, _, err = s.ApplyVote(ctx, &domain.Vote{CommentID: "c1", Voter: "carol", Direction: 1})
	if err != nil {
		t.Fatalf("ApplyVote failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected total 0, got %d", total)
	}

	// cached total matches the ledger
	sum, err := s.SumVotes(ctx, "c1")
	if err != nil {
		t.Fatalf("SumVotes failed: %v", err)
	}
	got, err := s.GetComment(ctx, "c1")
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}
	if got.VoteTotal != sum {
		t.Fatalf("cached total %d diverged from ledger %d", got.VoteTotal, sum)
	}
}

func TestSQLiteStoreReportDeduplication(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "ROOM")

	c := &domain.Comment{CommentID: "c1", RoomCode: "ROOM", Author: "alice", Role: domain.RoleParticipant, Content: "spam", CreatedAt: time.Now()}
	if err := s.CreateComment(ctx, c); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	accepted, err := s.CreateReport(ctx, &domain.Report{CommentID: "c1", Reporter: "bob", Reason: "abuse", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	if !accepted {
		t.Fatalf("first report should be accepted")
	}

	accepted, err = s.CreateReport(ctx, &domain.Report{CommentID: "c1", Reporter: "bob", Reason: "again", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("duplicate report should not error: %v", err)
	}
	if accepted {
		t.Fatalf("duplicate report should not be accepted")
	}
}

func TestSQLiteStoreCommentTreeData(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedRoom(t, s, "ROOM")

	base := time.Now().UTC()
	comments := []domain.Comment{
		{CommentID: "c1", RoomCode: "ROOM", Author: "alice", Role: domain.RoleParticipant, Content: "root one", CreatedAt: base},
		{CommentID: "c2", RoomCode: "ROOM", ParentID: "c1", Author: "bob", Role: domain.RoleParticipant, Content: "reply", CreatedAt: base.Add(time.Millisecond)},
		{CommentID: "c3", RoomCode: "ROOM", Author: "carol", Role: domain.RoleParticipant, Content: "root two", CreatedAt: base.Add(2 * time.Millisecond)},
	}
	for i := range comments {
		if err := s.CreateComment(ctx, &comments[i]); err != nil {
			t.Fatalf("CreateComment failed: %v", err)
		}
	}

	if _, _, err := s.ApplyVote(ctx, &domain.Vote{CommentID: "c1", Voter: "viewer", Direction: 1}); err != nil {
		t.Fatalf("ApplyVote failed: %v", err)
	}
	if _, err := s.CreateReport(ctx, &domain.Report{CommentID: "c2", Reporter: "viewer", CreatedAt: base}); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}

	rows, votes, reports, err := s.CommentTreeData(ctx, "ROOM", "viewer")
	if err != nil {
		t.Fatalf("CommentTreeData failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 comments, got %d", len(rows))
	}
	if rows[0].CommentID != "c1" || rows[2].CommentID != "c3" {
		t.Fatalf("rows not in insertion order: %+v", rows)
	}
	if votes["c1"] != 1 {
		t.Fatalf("expected viewer vote on c1, got %d", votes["c1"])
	}
	if !reports["c2"] {
		t.Fatalf("expected viewer report on c2")
	}
}

func TestSQLiteStoreSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.MaxSessionNumber(ctx, "alice")
	if err != nil {
		t.Fatalf("MaxSessionNumber failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 for no sessions, got %d", n)
	}

	for i := 1; i <= 3; i++ {
		if err := s.CreateSession(ctx, &domain.Session{Owner: "alice", Number: i, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	n, err = s.MaxSessionNumber(ctx, "alice")
	if err != nil {
		t.Fatalf("MaxSessionNumber failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected max 3, got %d", n)
	}

	exists, err := s.SessionExists(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("SessionExists failed: %v", err)
	}
	if !exists {
		t.Fatalf("session 2 should exist")
	}
	exists, err = s.SessionExists(ctx, "alice", 9)
	if err != nil {
		t.Fatalf("SessionExists failed: %v", err)
	}
	if exists {
		t.Fatalf("session 9 should not exist")
	}

	numbers, err := s.ListSessionNumbers(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSessionNumbers failed: %v", err)
	}
	if len(numbers) != 3 || numbers[0] != 1 || numbers[2] != 3 {
		t.Fatalf("unexpected numbers: %v", numbers)
	}

	entries := []domain.SessionEntry{
		{EntryID: "e1", Owner: "alice", SessionNumber: 1, Author: domain.EntryAuthorSystem, Content: "Assistant session 1 opened", CreatedAt: time.Now()},
		{EntryID: "e2", Owner: "alice", SessionNumber: 1, Author: domain.EntryAuthorUser, Content: "hello", CreatedAt: time.Now()},
		{EntryID: "e3", Owner: "alice", SessionNumber: 1, Author: domain.EntryAuthorAssistant, Content: "hi there", CreatedAt: time.Now()},
	}
	for i := range entries {
		if err := s.CreateSessionEntry(ctx, &entries[i]); err != nil {
			t.Fatalf("CreateSessionEntry failed: %v", err)
		}
	}

	got, err := s.ListSessionEntries(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("ListSessionEntries failed: %v", err)
	}
	if len(got) != 3 || got[0].Author != domain.EntryAuthorSystem || got[2].Content != "hi there" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}
