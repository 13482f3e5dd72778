package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestlens/internal/model"
)

func TestSaveStoresCredential(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	sess := model.Session{UserID: 99, AccessToken: "tok"}
	b, err := json.Marshal(storedSession{UserID: 99, AccessToken: "tok"})
	require.NoError(t, err)
	mock.ExpectSet("session:99", b, sessionTTL).SetVal("OK")

	require.NoError(t, store.Save(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadWithoutPremium(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	b, _ := json.Marshal(storedSession{UserID: 99, AccessToken: "tok"})
	mock.ExpectGet("session:99").SetVal(string(b))
	mock.ExpectGet("premium:99").RedisNil()

	sess, err := store.Load(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, int64(99), sess.UserID)
	assert.Equal(t, "tok", sess.AccessToken)
	assert.False(t, sess.Premium)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadWithActivePremium(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	expiry := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	b, _ := json.Marshal(storedSession{UserID: 99, AccessToken: "tok"})
	mock.ExpectGet("session:99").SetVal(string(b))
	mock.ExpectGet("premium:99").SetVal(expiry.Format(time.RFC3339))

	sess, err := store.Load(context.Background(), 99)
	require.NoError(t, err)
	assert.True(t, sess.Premium)
	assert.Equal(t, expiry, sess.PremiumExpiry.UTC())
}

func TestLoadMissingSession(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("session:42").RedisNil()

	_, err := store.Load(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetPremiumRejectsPastExpiry(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	store := NewStore(rdb)

	err := store.SetPremium(context.Background(), 99, time.Now().Add(-time.Hour))
	assert.Error(t, err)
}

func TestSetPremiumStoresExpiry(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	expiry := time.Now().Add(time.Hour).UTC()
	// TTL depends on the clock at call time, so match loosely.
	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectSet("premium:99", expiry.Format(time.RFC3339), time.Hour).SetVal("OK")

	require.NoError(t, store.SetPremium(context.Background(), 99, expiry))
}

func TestDeleteDropsSessionAndPremium(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectDel("session:99", "premium:99").SetVal(2)
	require.NoError(t, store.Delete(context.Background(), 99))
	assert.NoError(t, mock.ExpectationsWereMet())
}
