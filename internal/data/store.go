package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthropics/whatsapp-monitor/internal/biz/domain"
	"github.com/anthropics/whatsapp-monitor/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// messageStore implements the triage store on SQLite
type messageStore struct {
	db *sql.DB
}

// NewMessageStore opens (creating if needed) the triage database
func NewMessageStore(dbPath string) (repo.MessageStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Claims rely on transactional read-then-mark; a single connection
	// keeps every claim a single writer against SQLite.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			chat_name TEXT,
			body TEXT NOT NULL,
			observed_at INTEGER NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			state INTEGER NOT NULL DEFAULT 0,
			claimed_at INTEGER
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_state ON messages(state)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_state_priority ON messages(state, priority)`)

	log.Println("[Store] Database initialized")
	return &messageStore{db: db}, nil
}

// Insert creates a new record in state Ingested
func (s *messageStore) Insert(ctx context.Context, chatID, chatName, body string, observedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, chat_name, body, observed_at, priority, state)
		VALUES (?, ?, ?, ?, ?, ?)
	`, chatID, chatName, body, observedAt.Unix(), int(domain.PriorityUnset), int(domain.StateIngested))
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// ClaimUntriaged atomically marks all Ingested records as triage-claimed
// and returns exactly the set it marked.
func (s *messageStore) ClaimUntriaged(ctx context.Context) ([]*domain.Message, error) {
	return s.claim(ctx, domain.StateIngested, domain.StateTriageClaimed, `state = ?`, int(domain.StateIngested))
}

// ClaimUndigestedLowPriority atomically marks all Triaged/Low records as
// digest-claimed and returns exactly the set it marked.
func (s *messageStore) ClaimUndigestedLowPriority(ctx context.Context) ([]*domain.Message, error) {
	return s.claim(ctx, domain.StateTriaged, domain.StateDigestClaimed,
		`state = ? AND priority = ?`, int(domain.StateTriaged), int(domain.PriorityLow))
}

// claim selects matching rows and marks them with the target state inside a
// single transaction, so two concurrent claimers never get overlapping sets.
func (s *messageStore) claim(ctx context.Context, from, to domain.LifecycleState, where string, args ...interface{}) ([]*domain.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, chat_id, chat_name, body, observed_at, priority, state
		FROM messages
		WHERE `+where+`
		ORDER BY id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query claimable messages: %w", err)
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	// Mark exactly the rows just read, guarded by the source state so a
	// row can never be claimed out from under another transition.
	placeholders := make([]string, len(msgs))
	updateArgs := make([]interface{}, 0, len(msgs)+3)
	updateArgs = append(updateArgs, int(to), time.Now().Unix(), int(from))
	for i, m := range msgs {
		placeholders[i] = "?"
		updateArgs = append(updateArgs, m.ID)
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE messages SET state = ?, claimed_at = ?
		WHERE state = ? AND id IN (%s)
	`, strings.Join(placeholders, ",")), updateArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to mark messages claimed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check claim count: %w", err)
	}
	if affected != int64(len(msgs)) {
		return nil, fmt.Errorf("claim marked %d of %d selected messages: %w", affected, len(msgs), domain.ErrInvalidState)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	for _, m := range msgs {
		m.State = to
	}
	return msgs, nil
}

// SetPriority transitions a triage-claimed record to Triaged
func (s *messageStore) SetPriority(ctx context.Context, id int64, p domain.Priority) error {
	if p != domain.PriorityLow && p != domain.PriorityHigh {
		return fmt.Errorf("priority %v: %w", p, domain.ErrInvalidState)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET priority = ?, state = ?, claimed_at = NULL
		WHERE id = ? AND state = ? AND priority = ?
	`, int(p), int(domain.StateTriaged), id, int(domain.StateTriageClaimed), int(domain.PriorityUnset))
	if err != nil {
		return fmt.Errorf("failed to set priority: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check priority update: %w", err)
	}
	if affected == 1 {
		return nil
	}
	return s.transitionError(ctx, id)
}

// MarkResolved transitions a Triaged or DigestClaimed record to Resolved.
// Idempotent on already-Resolved records so a retry after a partial failure
// between send and mark cannot fail.
func (s *messageStore) MarkResolved(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET state = ?, claimed_at = NULL
		WHERE id = ? AND state IN (?, ?)
	`, int(domain.StateResolved), id, int(domain.StateTriaged), int(domain.StateDigestClaimed))
	if err != nil {
		return fmt.Errorf("failed to mark resolved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolve update: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var state int
	err = s.db.QueryRowContext(ctx, `SELECT state FROM messages WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read message state: %w", err)
	}
	if domain.LifecycleState(state) == domain.StateResolved {
		return nil // already resolved, no-op
	}
	return fmt.Errorf("message %d in state %v: %w", id, domain.LifecycleState(state), domain.ErrInvalidState)
}

// ListUnresolvedHigh returns Triaged/High records awaiting an alert
func (s *messageStore) ListUnresolvedHigh(ctx context.Context) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, chat_name, body, observed_at, priority, state
		FROM messages
		WHERE state = ? AND priority = ?
		ORDER BY id ASC
	`, int(domain.StateTriaged), int(domain.PriorityHigh))
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved high messages: %w", err)
	}
	return scanMessages(rows)
}

// ReleaseStaleClaims returns abandoned claims to their pre-claim state
func (s *messageStore) ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin release transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := olderThan.Unix()
	var total int64

	res, err := tx.ExecContext(ctx, `
		UPDATE messages SET state = ?, claimed_at = NULL
		WHERE state = ? AND claimed_at < ?
	`, int(domain.StateIngested), int(domain.StateTriageClaimed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release triage claims: %w", err)
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = tx.ExecContext(ctx, `
		UPDATE messages SET state = ?, claimed_at = NULL
		WHERE state = ? AND claimed_at < ?
	`, int(domain.StateTriaged), int(domain.StateDigestClaimed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release digest claims: %w", err)
	}
	n, _ = res.RowsAffected()
	total += n

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit release: %w", err)
	}
	return total, nil
}

// CountByState returns record counts per lifecycle state
func (s *messageStore) CountByState(ctx context.Context) (map[domain.LifecycleState]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM messages GROUP BY state
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.LifecycleState]int)
	for rows.Next() {
		var state, count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts[domain.LifecycleState(state)] = count
	}
	return counts, rows.Err()
}

// transitionError maps a failed guarded update to the right domain error
func (s *messageStore) transitionError(ctx context.Context, id int64) error {
	var state, priority int
	err := s.db.QueryRowContext(ctx, `SELECT state, priority FROM messages WHERE id = ?`, id).Scan(&state, &priority)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read message state: %w", err)
	}
	return fmt.Errorf("message %d in state %v with priority %v: %w",
		id, domain.LifecycleState(state), domain.Priority(priority), domain.ErrInvalidState)
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var observedAt int64
		var priority, state int
		var chatName sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ChatID, &chatName, &msg.Body, &observedAt, &priority, &state); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.ChatName = chatName.String
		msg.ObservedAt = time.Unix(observedAt, 0)
		msg.Priority = domain.Priority(priority)
		msg.State = domain.LifecycleState(state)
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// Close closes the database connection
func (s *messageStore) Close() error {
	return s.db.Close()
}
