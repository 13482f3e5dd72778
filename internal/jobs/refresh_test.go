package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestlens/internal/analyzer"
	"guestlens/internal/config"
	"guestlens/internal/model"
	"guestlens/internal/store/history"
)

type fixedClient struct{ followers []int64 }

func (f *fixedClient) GetFriends(context.Context, string, int64) ([]model.Profile, error) {
	return nil, nil
}
func (f *fixedClient) GetFollowers(context.Context, string, int64, int) ([]int64, error) {
	return f.followers, nil
}
func (f *fixedClient) GetWallPosts(context.Context, string, int64) ([]model.Post, error) {
	return nil, nil
}
func (f *fixedClient) GetWallLikes(context.Context, string, int64, int64) ([]int64, error) {
	return nil, nil
}
func (f *fixedClient) GetComments(context.Context, string, int64, int64) ([]model.Comment, error) {
	return nil, nil
}
func (f *fixedClient) GetStories(context.Context, string, int64) ([]model.Story, error) {
	return nil, nil
}
func (f *fixedClient) GetStoryViewers(context.Context, string, int64, int64) ([]int64, error) {
	return nil, nil
}
func (f *fixedClient) GetConversations(context.Context, string, int) ([]model.Conversation, error) {
	return nil, nil
}
func (f *fixedClient) GetUsers(context.Context, string, []int64) ([]model.Profile, error) {
	return nil, nil
}

func TestRunRefreshOnce(t *testing.T) {
	db, err := history.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	an := analyzer.New(&fixedClient{followers: []int64{1, 2, 3}}, config.Default())
	sess := model.Session{UserID: 99, AccessToken: "tok"}
	ctx := context.Background()

	require.NoError(t, RunRefreshOnce(ctx, db, an, sess))

	snap, err := db.LatestSnapshot(ctx, 99)
	require.NoError(t, err)
	assert.Len(t, snap.Guests, 3)
	assert.NotEmpty(t, snap.RunID)

	cursor, err := db.LoadCursor(ctx, cursorKey)
	require.NoError(t, err)
	parsed, err := time.Parse(time.RFC3339Nano, cursor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)

	today := time.Now().UTC()
	days, err := db.LoadDailyStats(ctx, 99, today, today)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 3, days[0].Visitors)
}

func TestRunRefreshLoopStopsOnCancel(t *testing.T) {
	db, err := history.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	an := analyzer.New(&fixedClient{}, config.Default())
	sess := model.Session{UserID: 99, AccessToken: "tok"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunRefreshLoop(ctx, db, an, sess, time.Hour) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}
