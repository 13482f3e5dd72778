package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"guestlens/internal/model"
)

// ErrNotFound is returned when no session exists for a user.
var ErrNotFound = errors.New("session: not found")

const sessionTTL = 30 * 24 * time.Hour

// Store keeps sessions and premium status in Redis. The analyzer core never
// touches it; callers materialize a model.Session and pass it in.
type Store struct {
	rdb redis.Cmdable
}

func NewStore(rdb redis.Cmdable) *Store { return &Store{rdb: rdb} }

// NewStoreAddr dials a standalone Redis at addr.
func NewStoreAddr(addr string) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func sessionKey(userID int64) string { return fmt.Sprintf("session:%d", userID) }
func premiumKey(userID int64) string { return fmt.Sprintf("premium:%d", userID) }

type storedSession struct {
	UserID      int64  `json:"userId"`
	AccessToken string `json:"accessToken"`
}

// Save persists the credential for a user.
func (s *Store) Save(ctx context.Context, sess model.Session) error {
	b, err := json.Marshal(storedSession{UserID: sess.UserID, AccessToken: sess.AccessToken})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.UserID), b, sessionTTL).Err(); err != nil {
		return err
	}
	if sess.Premium && sess.PremiumExpiry.After(time.Now()) {
		return s.SetPremium(ctx, sess.UserID, sess.PremiumExpiry)
	}
	return nil
}

// Load materializes the session for a user, including premium status.
func (s *Store) Load(ctx context.Context, userID int64) (model.Session, error) {
	var sess model.Session
	b, err := s.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sess, ErrNotFound
	}
	if err != nil {
		return sess, err
	}
	var stored storedSession
	if err := json.Unmarshal(b, &stored); err != nil {
		return sess, err
	}
	sess.UserID = stored.UserID
	sess.AccessToken = stored.AccessToken

	expiry, err := s.rdb.Get(ctx, premiumKey(userID)).Result()
	if err == nil {
		if t, perr := time.Parse(time.RFC3339, expiry); perr == nil && t.After(time.Now()) {
			sess.Premium = true
			sess.PremiumExpiry = t
		}
	} else if !errors.Is(err, redis.Nil) {
		return sess, err
	}
	return sess, nil
}

// SetPremium grants premium until expiry; the key evicts itself at expiry.
func (s *Store) SetPremium(ctx context.Context, userID int64, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return errors.New("session: premium expiry in the past")
	}
	return s.rdb.Set(ctx, premiumKey(userID), expiry.UTC().Format(time.RFC3339), ttl).Err()
}

// Delete drops the session and premium state for a user.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, sessionKey(userID), premiumKey(userID)).Err()
}
