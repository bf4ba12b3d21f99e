package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mhrkq/RumorChat/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			code TEXT PRIMARY KEY,
			topic TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS room_members (
			room_code TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_heartbeat DATETIME,
			PRIMARY KEY (room_code, name),
			FOREIGN KEY (room_code) REFERENCES rooms(code) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			room_code TEXT NOT NULL,
			author TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_code) REFERENCES rooms(code) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_code, created_at)`,
		`CREATE TABLE IF NOT EXISTS comments (
			comment_id TEXT PRIMARY KEY,
			room_code TEXT NOT NULL,
			parent_id TEXT,
			author TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			vote_total INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_code) REFERENCES rooms(code) ON DELETE CASCADE,
			FOREIGN KEY (parent_id) REFERENCES comments(comment_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_room ON comments(room_code, created_at)`,
		`CREATE TABLE IF NOT EXISTS comment_votes (
			comment_id TEXT NOT NULL,
			voter TEXT NOT NULL,
			direction INTEGER NOT NULL,
			PRIMARY KEY (comment_id, voter),
			FOREIGN KEY (comment_id) REFERENCES comments(comment_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS comment_reports (
			comment_id TEXT NOT NULL,
			reporter TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (comment_id, reporter),
			FOREIGN KEY (comment_id) REFERENCES comments(comment_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			owner TEXT NOT NULL,
			session_number INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (owner, session_number)
		)`,
		`CREATE TABLE IF NOT EXISTS session_entries (
			entry_id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			session_number INTEGER NOT NULL,
			author TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (owner, session_number) REFERENCES sessions(owner, session_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_entries ON session_entries(owner, session_number, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (code, topic, created_at) VALUES (?, ?, ?)`,
		room.Code, room.Topic, room.CreatedAt)
	return err
}

// GetRoom retrieves a room by code.
func (s *SQLiteStore) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := s.db.QueryRowContext(ctx,
		`SELECT code, topic, created_at FROM rooms WHERE code = ?`,
		code).Scan(&room.Code, &room.Topic, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms lists all rooms.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, topic, created_at FROM rooms ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.Code, &room.Topic, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room and its members.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code)
	return err
}

// AddMember inserts a member row for a room.
func (s *SQLiteStore) AddMember(ctx context.Context, member *domain.Member) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO room_members (room_code, name, role, joined_at, last_heartbeat) VALUES (?, ?, ?, ?, ?)`,
		member.RoomCode, member.Name, member.Role, member.JoinedAt, member.LastHeartbeat)
	return err
}

// GetMember retrieves a member by room and name.
func (s *SQLiteStore) GetMember(ctx context.Context, roomCode, name string) (*domain.Member, error) {
	var m domain.Member
	var hb sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT room_code, name, role, joined_at, last_heartbeat FROM room_members WHERE room_code = ? AND name = ?`,
		roomCode, name).Scan(&m.RoomCode, &m.Name, &m.Role, &m.JoinedAt, &hb)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if hb.Valid {
		m.LastHeartbeat = &hb.Time
	}
	return &m, nil
}

// ListMembers lists the members of a room in join order.
func (s *SQLiteStore) ListMembers(ctx context.Context, roomCode string) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_code, name, role, joined_at, last_heartbeat FROM room_members WHERE room_code = ? ORDER BY joined_at, name`,
		roomCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		var hb sql.NullTime
		if err := rows.Scan(&m.RoomCode, &m.Name, &m.Role, &m.JoinedAt, &hb); err != nil {
			return nil, err
		}
		if hb.Valid {
			m.LastHeartbeat = &hb.Time
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// RemoveMember deletes a member row. Returns whether a row was removed.
func (s *SQLiteStore) RemoveMember(ctx context.Context, roomCode, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_code = ? AND name = ?`,
		roomCode, name)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateHeartbeat records a liveness timestamp for a member.
func (s *SQLiteStore) UpdateHeartbeat(ctx context.Context, roomCode, name string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE room_members SET last_heartbeat = ? WHERE room_code = ? AND name = ?`,
		ts, roomCode, name)
	return err
}

// ListStaleMembers returns members whose last heartbeat is older than
// heartbeatCutoff, or who never sent a heartbeat and joined before
// graceCutoff.
func (s *SQLiteStore) ListStaleMembers(ctx context.Context, heartbeatCutoff, graceCutoff time.Time) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_code, name, role, joined_at, last_heartbeat FROM room_members
		 WHERE (last_heartbeat IS NOT NULL AND last_heartbeat < ?)
		    OR (last_heartbeat IS NULL AND joined_at < ?)
		 ORDER BY room_code, joined_at`,
		heartbeatCutoff, graceCutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		var hb sql.NullTime
		if err := rows.Scan(&m.RoomCode, &m.Name, &m.Role, &m.JoinedAt, &hb); err != nil {
			return nil, err
		}
		if hb.Valid {
			m.LastHeartbeat = &hb.Time
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CreateMessage appends a chat message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *domain.ChatMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, room_code, author, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.RoomCode, msg.Author, msg.Role, msg.Content, msg.CreatedAt)
	return err
}

// ListMessages returns the full history of a room, oldest first. Timestamp
// ties are broken by arrival order via rowid.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomCode string) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, room_code, author, role, content, created_at FROM messages
		 WHERE room_code = ? ORDER BY created_at ASC, rowid ASC`,
		roomCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// TailMessages returns the last k messages of a room, oldest first,
// skipping any whose author is in excludeAuthors.
func (s *SQLiteStore) TailMessages(ctx context.Context, roomCode string, k int, excludeAuthors []string) ([]domain.ChatMessage, error) {
	query := `SELECT message_id, room_code, author, role, content, created_at FROM messages WHERE room_code = ?`
	args := []interface{}{roomCode}

	if len(excludeAuthors) > 0 {
		placeholders := make([]string, len(excludeAuthors))
		for i, a := range excludeAuthors {
			placeholders[i] = "?"
			args = append(args, a)
		}
		query += fmt.Sprintf(" AND author NOT IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY created_at DESC, rowid DESC`
	if k > 0 {
		query += fmt.Sprintf(" LIMIT %d", k)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Query is newest-first for the LIMIT; flip to oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func scanMessages(rows *sql.Rows) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.MessageID, &msg.RoomCode, &msg.Author, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateComment creates a new comment with a zero vote total.
func (s *SQLiteStore) CreateComment(ctx context.Context, comment *domain.Comment) error {
	var parentID sql.NullString
	if comment.ParentID != "" {
		parentID = sql.NullString{String: comment.ParentID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (comment_id, room_code, parent_id, author, role, content, vote_total, created_at) VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		comment.CommentID, comment.RoomCode, parentID, comment.Author, comment.Role, comment.Content, comment.CreatedAt)
	return err
}

// GetComment retrieves a comment by ID.
func (s *SQLiteStore) GetComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	var c domain.Comment
	var parentID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT comment_id, room_code, parent_id, author, role, content, vote_total, created_at FROM comments WHERE comment_id = ?`,
		commentID).Scan(&c.CommentID, &c.RoomCode, &parentID, &c.Author, &c.Role, &c.Content, &c.VoteTotal, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = parentID.String
	}
	return &c, nil
}

// ApplyVote applies the tri-state vote toggle for (v.CommentID, v.Voter)
// and refreshes the cached total, all inside one transaction: no prior vote
// inserts, a repeat of the same direction rescinds, the opposite direction
// flips in place. Returns the new total and the voter's resulting
// direction (0 after a rescind).
func (s *SQLiteStore) ApplyVote(ctx context.Context, v *domain.Vote) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	var total int
	err = tx.QueryRowContext(ctx,
		`SELECT vote_total FROM comments WHERE comment_id = ?`, v.CommentID).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, 0, domain.ErrCommentNotFound
	}
	if err != nil {
		return 0, 0, err
	}

	var prev int
	viewerVote := v.Direction
	err = tx.QueryRowContext(ctx,
		`SELECT direction FROM comment_votes WHERE comment_id = ? AND voter = ?`,
		v.CommentID, v.Voter).Scan(&prev)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comment_votes (comment_id, voter, direction) VALUES (?, ?, ?)`,
			v.CommentID, v.Voter, v.Direction); err != nil {
			return 0, 0, err
		}
		total += v.Direction
	case err != nil:
		return 0, 0, err
	case prev == v.Direction:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM comment_votes WHERE comment_id = ? AND voter = ?`,
			v.CommentID, v.Voter); err != nil {
			return 0, 0, err
		}
		total -= v.Direction
		viewerVote = 0
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE comment_votes SET direction = ? WHERE comment_id = ? AND voter = ?`,
			v.Direction, v.CommentID, v.Voter); err != nil {
			return 0, 0, err
		}
		total += v.Direction - prev
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE comments SET vote_total = ? WHERE comment_id = ?`,
		total, v.CommentID); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return total, viewerVote, nil
}

// SumVotes recomputes a comment's total from its vote rows.
func (s *SQLiteStore) SumVotes(ctx context.Context, commentID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(direction), 0) FROM comment_votes WHERE comment_id = ?`,
		commentID).Scan(&total)
	return total, err
}

// CreateReport records an abuse report. A second report from the same
// reporter for the same comment is rejected without error; returns whether
// the report was accepted.
func (s *SQLiteStore) CreateReport(ctx context.Context, report *domain.Report) (bool, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comment_reports (comment_id, reporter, reason, created_at) VALUES (?, ?, ?, ?)`,
		report.CommentID, report.Reporter, report.Reason, report.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CommentTreeData fetches everything the tree projection needs in one
// read transaction: all comments of the room in insertion order, plus the
// viewer's vote directions and reported flags.
func (s *SQLiteStore) CommentTreeData(ctx context.Context, roomCode, viewer string) ([]domain.Comment, map[string]int, map[string]bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT comment_id, room_code, parent_id, author, role, content, vote_total, created_at FROM comments
		 WHERE room_code = ? ORDER BY created_at ASC, rowid ASC`,
		roomCode)
	if err != nil {
		return nil, nil, nil, err
	}
	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var parentID sql.NullString
		if err := rows.Scan(&c.CommentID, &c.RoomCode, &parentID, &c.Author, &c.Role, &c.Content, &c.VoteTotal, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, nil, nil, err
		}
		if parentID.Valid {
			c.ParentID = parentID.String
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, nil, err
	}
	rows.Close()

	votes := make(map[string]int)
	voteRows, err := tx.QueryContext(ctx,
		`SELECT cv.comment_id, cv.direction FROM comment_votes cv
		 JOIN comments c ON c.comment_id = cv.comment_id
		 WHERE c.room_code = ? AND cv.voter = ?`,
		roomCode, viewer)
	if err != nil {
		return nil, nil, nil, err
	}
	for voteRows.Next() {
		var id string
		var dir int
		if err := voteRows.Scan(&id, &dir); err != nil {
			voteRows.Close()
			return nil, nil, nil, err
		}
		votes[id] = dir
	}
	if err := voteRows.Err(); err != nil {
		voteRows.Close()
		return nil, nil, nil, err
	}
	voteRows.Close()

	reported := make(map[string]bool)
	reportRows, err := tx.QueryContext(ctx,
		`SELECT cr.comment_id FROM comment_reports cr
		 JOIN comments c ON c.comment_id = cr.comment_id
		 WHERE c.room_code = ? AND cr.reporter = ?`,
		roomCode, viewer)
	if err != nil {
		return nil, nil, nil, err
	}
	for reportRows.Next() {
		var id string
		if err := reportRows.Scan(&id); err != nil {
			reportRows.Close()
			return nil, nil, nil, err
		}
		reported[id] = true
	}
	if err := reportRows.Err(); err != nil {
		reportRows.Close()
		return nil, nil, nil, err
	}
	reportRows.Close()

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, err
	}
	return comments, votes, reported, nil
}

// CreateSession creates a new assistant session row.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (owner, session_number, created_at) VALUES (?, ?, ?)`,
		session.Owner, session.Number, session.CreatedAt)
	return err
}

// MaxSessionNumber returns the highest session number allocated to owner,
// or 0 when the owner has no sessions.
func (s *SQLiteStore) MaxSessionNumber(ctx context.Context, owner string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(session_number), 0) FROM sessions WHERE owner = ?`,
		owner).Scan(&n)
	return n, err
}

// SessionExists reports whether (owner, number) exists.
func (s *SQLiteStore) SessionExists(ctx context.Context, owner string, number int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sessions WHERE owner = ? AND session_number = ?`,
		owner, number).Scan(&n)
	return n > 0, err
}

// ListSessionNumbers returns the owner's session numbers in ascending order.
func (s *SQLiteStore) ListSessionNumbers(ctx context.Context, owner string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_number FROM sessions WHERE owner = ? ORDER BY session_number`,
		owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// CreateSessionEntry appends an entry to a session log.
func (s *SQLiteStore) CreateSessionEntry(ctx context.Context, entry *domain.SessionEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_entries (entry_id, owner, session_number, author, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.EntryID, entry.Owner, entry.SessionNumber, entry.Author, entry.Content, entry.CreatedAt)
	return err
}

// ListSessionEntries returns a session's entries in insertion order.
func (s *SQLiteStore) ListSessionEntries(ctx context.Context, owner string, number int) ([]domain.SessionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, owner, session_number, author, content, created_at FROM session_entries
		 WHERE owner = ? AND session_number = ? ORDER BY created_at ASC, rowid ASC`,
		owner, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.SessionEntry
	for rows.Next() {
		var e domain.SessionEntry
		if err := rows.Scan(&e.EntryID, &e.Owner, &e.SessionNumber, &e.Author, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
