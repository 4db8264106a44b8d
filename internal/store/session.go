package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/dukerupert/benefitform/internal/model"
)

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// HashToken returns the hex blake2b-256 digest stored in place of a token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.SessionRecord, error) {
	var s model.SessionRecord
	var ended sql.NullTime
	err := scanner.Scan(&s.ID, &s.TokenHash, &s.Month, &s.ExpiresAt, &ended, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return &s, nil
}

const sessionCols = `id, token_hash, month, expires_at, ended_at, created_at`

func (s *SessionStore) Create(id, token string, month model.Period, expiresAt time.Time) (*model.SessionRecord, error) {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, token_hash, month, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, HashToken(token), string(month), expiresAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetByID(id)
}

func (s *SessionStore) GetByID(id string) (*model.SessionRecord, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// GetByToken returns the live session for token, or nil if it is unknown,
// ended or expired.
func (s *SessionStore) GetByToken(token string) (*model.SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionCols+` FROM sessions WHERE token_hash = ? AND ended_at IS NULL AND expires_at > ?`,
		HashToken(token), time.Now().UTC(),
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) End(id string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// ExpireSessions ends every live session whose expiry is at or before now
// and returns their IDs.
func (s *SessionStore) ExpireSessions(now time.Time) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT id FROM sessions WHERE ended_at IS NULL AND expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, now.UTC(), id); err != nil {
			return nil, fmt.Errorf("end session %s: %w", id, err)
		}
	}
	return ids, tx.Commit()
}

// DeleteEnded removes sessions that ended before cutoff, with their
// calculation logs.
func (s *SessionStore) DeleteEnded(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM sessions WHERE ended_at IS NOT NULL AND ended_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete ended sessions: %w", err)
	}
	return result.RowsAffected()
}
