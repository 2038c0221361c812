package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sessionly/liveroom-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to seed fixtures without external migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return s, nil
}

// Migrate applies the schema. Idempotent.
func (s *SQLiteStore) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		host_id    TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS room_enrollments (
		room_id    TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (room_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS chat_logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id    TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (room_id, session_id)
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_log_id INTEGER NOT NULL,
		user_id     TEXT NOT NULL,
		user_name   TEXT NOT NULL DEFAULT '',
		body        TEXT NOT NULL,
		created_at  DATETIME NOT NULL,
		FOREIGN KEY (chat_log_id) REFERENCES chat_logs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_log ON chat_messages(chat_log_id, id);

	CREATE TABLE IF NOT EXISTS session_attendees (
		session_id       TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		participant_id   TEXT NOT NULL DEFAULT '',
		username         TEXT NOT NULL DEFAULT '',
		role             TEXT NOT NULL DEFAULT 'audience',
		is_muted         BOOLEAN NOT NULL DEFAULT 1,
		is_camera_on     BOOLEAN NOT NULL DEFAULT 0,
		is_hand_raised   BOOLEAN NOT NULL DEFAULT 0,
		is_screen_shared BOOLEAN NOT NULL DEFAULT 0,
		joined_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, user_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== ChatStore implementation ====

// AppendMessage durably appends a message, creating the (room, session) log
// on first write.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.ChatMessage) (*store.ChatMessage, error) {
	logID, err := s.ensureChatLog(ctx, msg.RoomID, msg.SessionID)
	if err != nil {
		return nil, err
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (chat_log_id, user_id, user_name, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, logID, msg.UserID, msg.UserName, msg.Body, createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	saved := *msg
	saved.ID = id
	saved.CreatedAt = createdAt
	return &saved, nil
}

// ListMessages returns the ordered log for (roomID, sessionID), oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID, sessionID string) ([]*store.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, l.room_id, l.session_id, m.user_id, m.user_name, m.body, m.created_at
		FROM chat_messages m
		JOIN chat_logs l ON l.id = m.chat_log_id
		WHERE l.room_id = ? AND l.session_id = ?
		ORDER BY m.id ASC
	`, roomID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.ChatMessage
	for rows.Next() {
		var m store.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SessionID, &m.UserID, &m.UserName, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) ensureChatLog(ctx context.Context, roomID, sessionID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM chat_logs WHERE room_id = ? AND session_id = ?
	`, roomID, sessionID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup chat log: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_logs (room_id, session_id) VALUES (?, ?)
	`, roomID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("create chat log: %w", err)
	}
	return result.LastInsertId()
}

// ==== AttendanceStore implementation ====

// UpsertAttendee records a session join, deduplicated by user ID.
func (s *SQLiteStore) UpsertAttendee(ctx context.Context, sessionID string, a *store.Attendee) error {
	joinedAt := a.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_attendees
			(session_id, user_id, participant_id, username, role,
			 is_muted, is_camera_on, is_hand_raised, is_screen_shared, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, user_id) DO UPDATE SET
			participant_id = excluded.participant_id,
			username       = excluded.username,
			role           = excluded.role
	`, sessionID, a.UserID, a.ParticipantID, a.Username, a.Role,
		a.IsMuted, a.IsCameraOn, a.IsHandRaised, a.IsScreenShared, joinedAt)
	if err != nil {
		return fmt.Errorf("upsert attendee: %w", err)
	}
	return nil
}

// RemoveAttendee removes a user from the session's attendee set.
func (s *SQLiteStore) RemoveAttendee(ctx context.Context, sessionID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM session_attendees WHERE session_id = ? AND user_id = ?
	`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("remove attendee: %w", err)
	}
	return nil
}

// ListAttendees returns the session's attendee set in join order.
func (s *SQLiteStore) ListAttendees(ctx context.Context, sessionID string) ([]*store.Attendee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, user_id, username, role,
		       is_muted, is_camera_on, is_hand_raised, is_screen_shared, joined_at
		FROM session_attendees
		WHERE session_id = ?
		ORDER BY joined_at ASC, user_id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query attendees: %w", err)
	}
	defer rows.Close()

	var attendees []*store.Attendee
	for rows.Next() {
		var a store.Attendee
		if err := rows.Scan(&a.ParticipantID, &a.UserID, &a.Username, &a.Role,
			&a.IsMuted, &a.IsCameraOn, &a.IsHandRaised, &a.IsScreenShared, &a.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		attendees = append(attendees, &a)
	}
	return attendees, rows.Err()
}

// ==== RoomStore implementation ====

// GetRoom retrieves a room directory entry by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	var r store.Room
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, host_id, created_at FROM rooms WHERE id = ?
	`, id).Scan(&r.ID, &r.Title, &r.HostID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &r, nil
}

// ListEnrolled returns user IDs enrolled in the room.
func (s *SQLiteStore) ListEnrolled(ctx context.Context, roomID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM room_enrollments WHERE room_id = ? ORDER BY created_at ASC, user_id ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateRoom registers a room in the directory.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *store.Room) error {
	createdAt := room.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, title, host_id, created_at) VALUES (?, ?, ?, ?)
	`, room.ID, room.Title, room.HostID, createdAt)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// Enroll adds a user to the room's enrollment list.
func (s *SQLiteStore) Enroll(ctx context.Context, roomID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_enrollments (room_id, user_id) VALUES (?, ?)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`, roomID, userID)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Ensure SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)
