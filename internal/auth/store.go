package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/klasroom/taskintake/internal/db"
)

// ErrTokenNotFound is returned when no live token matches the presented value.
var ErrTokenNotFound = errors.New("token not found")

// Token describes an issued API token. The plaintext value is only available
// at creation time; the database keeps a sha256 hash.
type Token struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
}

// Store provides token issuance and verification over the api_tokens table.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create mints a new token for the given name and returns its plaintext value.
// A zero ttl creates a non-expiring token.
func (s *Store) Create(ctx context.Context, name string, ttl time.Duration) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	plaintext := hex.EncodeToString(raw)

	var expiresAt sql.NullString
	if ttl > 0 {
		expiresAt = sql.NullString{
			String: time.Now().UTC().Add(ttl).Format(time.DateTime),
			Valid:  true,
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (id, name, token_hash, expires_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), name, hashToken(plaintext), expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("inserting token: %w", err)
	}
	return plaintext, nil
}

// Verify looks up a presented plaintext token. It returns ErrTokenNotFound
// for unknown, revoked, or expired tokens.
func (s *Store) Verify(ctx context.Context, plaintext string) (*Token, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, expires_at, revoked
		FROM api_tokens WHERE token_hash = ?`, hashToken(plaintext))

	var (
		t         Token
		createdAt string
		expiresAt sql.NullString
		revoked   int
	)
	if err := row.Scan(&t.ID, &t.Name, &createdAt, &expiresAt, &revoked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("querying token: %w", err)
	}

	if ts, err := time.Parse(time.DateTime, createdAt); err == nil {
		t.CreatedAt = ts
	}
	if expiresAt.Valid {
		if ts, err := time.Parse(time.DateTime, expiresAt.String); err == nil {
			t.ExpiresAt = &ts
			if time.Now().UTC().After(ts) {
				return nil, ErrTokenNotFound
			}
		}
	}
	t.Revoked = revoked != 0
	if t.Revoked {
		return nil, ErrTokenNotFound
	}

	// Best-effort last-used stamp; verification does not fail on it.
	s.db.ExecContext(ctx,
		"UPDATE api_tokens SET last_used = datetime('now') WHERE id = ?", t.ID)

	return &t, nil
}

// Revoke marks the token with the given ID as revoked.
func (s *Store) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE api_tokens SET revoked = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// List returns all tokens, newest first.
func (s *Store) List(ctx context.Context) ([]Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, expires_at, revoked
		FROM api_tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close()

	var tokens []Token
	for rows.Next() {
		var (
			t         Token
			createdAt string
			expiresAt sql.NullString
			revoked   int
		)
		if err := rows.Scan(&t.ID, &t.Name, &createdAt, &expiresAt, &revoked); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.DateTime, createdAt); err == nil {
			t.CreatedAt = ts
		}
		if expiresAt.Valid {
			if ts, err := time.Parse(time.DateTime, expiresAt.String); err == nil {
				t.ExpiresAt = &ts
			}
		}
		t.Revoked = revoked != 0
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func hashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
