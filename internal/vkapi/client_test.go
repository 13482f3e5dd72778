package vkapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestlens/internal/config"
)

func newTestClient(baseURL string) *HTTPClient {
	c := NewHTTPClient(config.APIConfig{
		BaseURL:       baseURL,
		Version:       "5.131",
		MaxAttempts:   3,
		BaseBackoffMS: 10,
		RPS:           1000,
		Burst:         1000,
	})
	return c
}

func TestCallRaisesErrorEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"error_code":5,"error_msg":"User authorization failed"}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.GetFriends(context.Background(), "token", 1)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %T", err)
	assert.Equal(t, ErrCodeAuthFailed, apiErr.Code)
	assert.Contains(t, apiErr.Error(), "authorization failed")
}

func TestCallRejectsEmptyToken(t *testing.T) {
	c := newTestClient("http://unused.invalid")
	_, err := c.GetFriends(context.Background(), "", 1)
	require.Error(t, err)
}

func TestGetFriendsMapsProfilesAndParams(t *testing.T) {
	var gotQuery map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"order":        r.URL.Query().Get("order"),
			"access_token": r.URL.Query().Get("access_token"),
			"v":            r.URL.Query().Get("v"),
		}
		_, _ = w.Write([]byte(`{"response":{"count":2,"items":[
			{"id":11,"first_name":"Anna","last_name":"Ivanova","photo_100":"http://p/11.jpg","sex":1,"bdate":"2.4.1995","city":{"id":1,"title":"Moscow"}},
			{"id":22,"first_name":"Boris","last_name":"Orlov"}
		]}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	friends, err := c.GetFriends(context.Background(), "tok", 99)
	require.NoError(t, err)
	require.Len(t, friends, 2)

	assert.Equal(t, "hints", gotQuery["order"], "friend list must use interaction ranking")
	assert.Equal(t, "tok", gotQuery["access_token"])
	assert.Equal(t, "5.131", gotQuery["v"])

	assert.Equal(t, int64(11), friends[0].ID)
	assert.Equal(t, "Anna", friends[0].FirstName)
	assert.Equal(t, "Moscow", friends[0].City)
	assert.Equal(t, "2.4.1995", friends[0].BDate)
	assert.Empty(t, friends[1].City)
}

func TestGetUsersDecodesBareArray(t *testing.T) {
	var gotIDs string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("user_ids")
		_, _ = w.Write([]byte(`{"response":[{"id":7,"first_name":"Olga"},{"id":8,"first_name":"Pyotr"}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	users, err := c.GetUsers(context.Background(), "tok", []int64{7, 8})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "7,8", gotIDs)
	assert.Equal(t, "Olga", users[0].FirstName)
}

func TestGetUsersEmptyInput(t *testing.T) {
	c := newTestClient("http://unused.invalid")
	users, err := c.GetUsers(context.Background(), "tok", nil)
	require.NoError(t, err)
	assert.Nil(t, users)
}

func TestGetConversationsMapsThreads(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"count":2,"items":[
			{"conversation":{"peer":{"id":301,"type":"user"}},"last_message":{"date":1700000000,"from_id":301}},
			{"conversation":{"peer":{"id":2000000001,"type":"chat"}},"last_message":{"date":1700000100,"from_id":42}}
		]}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	convs, err := c.GetConversations(context.Background(), "tok", 200)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "user", convs[0].PeerType)
	assert.Equal(t, int64(301), convs[0].PeerID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), convs[0].LastMessageDate)
	assert.Equal(t, "chat", convs[1].PeerType)
}

func TestGetWallPostsMapsDatesAndCounts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"count":1,"items":[
			{"id":5,"owner_id":99,"date":1700000000,"likes":{"count":3},"comments":{"count":1}}
		]}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	posts, err := c.GetWallPosts(context.Background(), "tok", 99)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 3, posts[0].LikeCount)
	assert.Equal(t, 1, posts[0].CommentCount)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), posts[0].Date)
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"response":{"count":0,"items":[]}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	likers, err := c.GetWallLikes(context.Background(), "tok", 1, 2)
	require.NoError(t, err)
	assert.Empty(t, likers)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestDoWithRetryGivesUp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.GetFollowers(context.Background(), "tok", 1, 10)
	require.Error(t, err)
}
