package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://api.vk.com/method", cfg.API.BaseURL)
	assert.Equal(t, "5.131", cfg.API.Version)
	assert.Equal(t, 20, cfg.Signals.MaxLikedPosts)
	assert.Equal(t, 10, cfg.Signals.MaxCommentedPosts)
	assert.Equal(t, 200, cfg.Signals.MaxConversations)
	assert.Equal(t, 1000, cfg.Signals.MaxFollowers)
	assert.Equal(t, 100, cfg.Signals.TopN)
	assert.Equal(t, 5, cfg.Signals.FreeTierLimit)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "guestlens.yaml")

	want := Default()
	want.Account.UserID = 123
	want.Credentials.AccessToken = "secret"
	want.Signals.TopN = 50
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(123), got.Account.UserID)
	assert.Equal(t, "secret", got.Credentials.AccessToken)
	assert.Equal(t, 50, got.Signals.TopN)
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("VK_ACCESS_TOKEN", "env-token")
	t.Setenv("VK_USER_ID", "456")

	cfg := Config{}
	cfg.ResolveEnv()
	assert.Equal(t, "env-token", cfg.Credentials.AccessToken)
	assert.Equal(t, int64(456), cfg.Account.UserID)
}

func TestResolveEnvDoesNotOverride(t *testing.T) {
	t.Setenv("VK_ACCESS_TOKEN", "env-token")

	cfg := Config{}
	cfg.Credentials.AccessToken = "file-token"
	cfg.ResolveEnv()
	assert.Equal(t, "file-token", cfg.Credentials.AccessToken)
}

func TestSaveEmptyPath(t *testing.T) {
	assert.Error(t, Save("", Default()))
}
