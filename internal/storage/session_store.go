package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/signal-miniapp/internal/errors"
)

var (
	// ErrSessionNotFound is returned when a session is unknown or expired
	ErrSessionNotFound = errors.New("session not found")
	// ErrStateConflict is returned when other writers kept changing a state
	// for every attempt of UpdateState
	ErrStateConflict = errors.New("session state changed concurrently")
)

const maxStateUpdateAttempts = 5

// Session is a logged-in mini-app session
type Session struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

const (
	sessionKeyPrefix = "session:"
	sessionField     = "session"
	stateFieldPrefix = "state:"
)

// SessionStore keeps sessions and their per-session UI state in one Redis hash
// per session, so logout or expiry removes everything at once.
type SessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewSessionStore creates a store on top of client
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save writes s and sets the hash to expire with it
func (st *SessionStore) Save(ctx context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(st.now())
	if ttl <= 0 {
		return apperrors.NewInvalidParameterError("expires_at", "session already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKey(s.ID)
	pipe := st.client.TxPipeline()
	pipe.HSet(ctx, key, sessionField, data)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewSessionStoreError("save", err)
	}
	return nil
}

// Load returns the session with id or ErrSessionNotFound
func (st *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := st.client.HGet(ctx, sessionKey(id), sessionField).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, apperrors.NewSessionStoreError("load", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if !s.ExpiresAt.After(st.now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// Delete removes the session and all of its state
func (st *SessionStore) Delete(ctx context.Context, id string) error {
	if err := st.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return apperrors.NewSessionStoreError("delete", err)
	}
	return nil
}

// SaveState stores v as JSON under name inside the session's hash
func (st *SessionStore) SaveState(ctx context.Context, id, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s state: %w", name, err)
	}

	key := sessionKey(id)
	exists, err := st.client.Exists(ctx, key).Result()
	if err != nil {
		return apperrors.NewSessionStoreError("save state", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	if err := st.client.HSet(ctx, key, stateFieldPrefix+name, data).Err(); err != nil {
		return apperrors.NewSessionStoreError("save state", err)
	}
	return nil
}

// UpdateState reads the state stored under name, passes it to update (nil
// when nothing is stored) and writes back the returned value. The write only
// lands when the session hash was not changed since the read; otherwise the
// read-modify-write is replayed. Errors returned by update are passed through
// unchanged and nothing is written.
func (st *SessionStore) UpdateState(ctx context.Context, id, name string, update func(current []byte) (any, error)) error {
	key := sessionKey(id)
	field := stateFieldPrefix + name

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return apperrors.NewSessionStoreError("update state", err)
		}
		if exists == 0 {
			return ErrSessionNotFound
		}

		current, err := tx.HGet(ctx, key, field).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return apperrors.NewSessionStoreError("update state", err)
		}

		next, err := update(current)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal %s state: %w", name, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, data)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxStateUpdateAttempts; attempt++ {
		err := st.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrStateConflict
}

// LoadState decodes the state stored under name into dest. It reports false
// when nothing was stored.
func (st *SessionStore) LoadState(ctx context.Context, id, name string, dest any) (bool, error) {
	data, err := st.client.HGet(ctx, sessionKey(id), stateFieldPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewSessionStoreError("load state", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s state: %w", name, err)
	}
	return true, nil
}

// ClearState removes the state stored under name
func (st *SessionStore) ClearState(ctx context.Context, id, name string) error {
	if err := st.client.HDel(ctx, sessionKey(id), stateFieldPrefix+name).Err(); err != nil {
		return apperrors.NewSessionStoreError("clear state", err)
	}
	return nil
}

// Ping checks if Redis is reachable
func (st *SessionStore) Ping(ctx context.Context) error {
	return st.client.Ping(ctx).Err()
}
