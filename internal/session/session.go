// Package session provides Valkey-backed storage for visitor sessions.
// A session pairs the LINE profile obtained at bootstrap with the card
// wizard state, stored as JSON under a random token with automatic TTL
// expiry. Nothing is written to browser storage; the token travels in the
// API path.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cartecard/internal/liff"
	"cartecard/internal/wizard"
)

const (
	// DefaultTTL is how long an idle session lives before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey.
	keyPrefix = "card_session:"

	// idLength is the byte length of the random session token.
	idLength = 32
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session: not found")

// Session is one visitor's state for the duration of the campaign visit.
type Session struct {
	ID        string        `json:"id"`
	Profile   *liff.Profile `json:"profile,omitempty"`
	Wizard    *wizard.State `json:"wizard"`
	CreatedAt time.Time     `json:"created_at"`
}

// Store is the session persistence surface. The Valkey implementation is
// used in production; tests use the in-memory one.
type Store interface {
	// Create assigns a fresh token to the session and stores it.
	Create(ctx context.Context, s *Session) error

	// Get loads a session by token. Returns ErrNotFound when missing.
	Get(ctx context.Context, id string) (*Session, error)

	// Save replaces the stored session and refreshes its TTL.
	Save(ctx context.Context, s *Session) error

	// Update applies fn to the latest stored session and writes the result
	// back atomically, so a concurrent Save cannot be lost under it. fn
	// returning false abandons the update without writing. Returns
	// ErrNotFound when the session is missing.
	Update(ctx context.Context, id string, fn func(*Session) bool) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

// Connect creates a Valkey client and verifies the connection with a ping.
func Connect(host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", fmt.Sprintf("%s:%s", host, port))
	return client, nil
}

// ValkeyStore keeps sessions in Valkey with TTL expiry.
type ValkeyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValkeyStore creates a session store backed by the given client.
func NewValkeyStore(client *redis.Client) *ValkeyStore {
	return &ValkeyStore{client: client, ttl: DefaultTTL}
}

// Create generates a token, stamps the session, and stores it.
func (s *ValkeyStore) Create(ctx context.Context, sess *Session) error {
	id, err := generateID()
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	sess.ID = id
	sess.CreatedAt = time.Now()

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// Get loads a session by token.
func (s *ValkeyStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &sess, nil
}

// Save replaces the stored session and resets the TTL.
func (s *ValkeyStore) Save(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session save: missing id")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sess.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

// updateRetries bounds how often an Update is retried when the watched
// key changes mid-transaction.
const updateRetries = 3

// Update runs fn inside a WATCH transaction on the session key. When a
// concurrent write lands between read and write the transaction aborts
// and is retried against the fresh state.
func (s *ValkeyStore) Update(ctx context.Context, id string, fn func(*Session) bool) error {
	key := keyPrefix + id

	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("session get: %w", err)
		}

		var sess Session
		if err := json.Unmarshal(payload, &sess); err != nil {
			return fmt.Errorf("session unmarshal: %w", err)
		}
		if !fn(&sess) {
			return nil
		}

		out, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("session marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < updateRetries; i++ {
		err = s.client.Watch(ctx, txn, key)
		if err != redis.TxFailedErr {
			break
		}
	}
	if err == redis.TxFailedErr {
		return fmt.Errorf("session update: %w", err)
	}
	return err
}

// Delete removes the session.
func (s *ValkeyStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// generateID creates a cryptographically random session token.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
