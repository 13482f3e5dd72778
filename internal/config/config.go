package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the account identity, API credentials, signal caps, and storage.
type Config struct {
	Account     AccountConfig     `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
	API         APIConfig         `yaml:"api"`
	Signals     SignalsConfig     `yaml:"signals"`
	Storage     StorageConfig     `yaml:"storage"`
	Serve       ServeConfig       `yaml:"serve"`
}

type AccountConfig struct {
	// Numeric platform identity of the profile owner.
	UserID int64 `yaml:"userId"`
}

type CredentialsConfig struct {
	// Bearer access token. If empty, read from env VK_ACCESS_TOKEN.
	AccessToken string `yaml:"accessToken"`
}

type APIConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Version string `yaml:"version"`
	// Per-request timeout in seconds.
	RequestTimeoutSec int `yaml:"requestTimeoutSec"`
	// Overall pipeline deadline in seconds; partial scores are kept on expiry.
	PipelineTimeoutSec int     `yaml:"pipelineTimeoutSec"`
	MaxAttempts        int     `yaml:"maxAttempts"`
	BaseBackoffMS      int     `yaml:"baseBackoffMs"`
	RPS                float64 `yaml:"rps"`
	Burst              int     `yaml:"burst"`
}

type SignalsConfig struct {
	// Caps per collector; zero values fall back to defaults.
	MaxLikedPosts     int `yaml:"maxLikedPosts"`
	MaxCommentedPosts int `yaml:"maxCommentedPosts"`
	MaxStories        int `yaml:"maxStories"`
	MaxConversations  int `yaml:"maxConversations"`
	MaxFollowers      int `yaml:"maxFollowers"`
	// TopN bounds the ranked output before profile enrichment.
	TopN int `yaml:"topN"`
	// FreeTierLimit bounds the guests shown without premium.
	FreeTierLimit int `yaml:"freeTierLimit"`
}

type StorageConfig struct {
	DBPath    string `yaml:"dbPath"`
	RedisAddr string `yaml:"redisAddr"`
}

type ServeConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account:     AccountConfig{UserID: 0},
		Credentials: CredentialsConfig{AccessToken: ""},
		API: APIConfig{
			BaseURL:            "https://api.vk.com/method",
			Version:            "5.131",
			RequestTimeoutSec:  10,
			PipelineTimeoutSec: 45,
			MaxAttempts:        5,
			BaseBackoffMS:      500,
			RPS:                3,
			Burst:              10,
		},
		Signals: SignalsConfig{
			MaxLikedPosts:     20,
			MaxCommentedPosts: 10,
			MaxStories:        10,
			MaxConversations:  200,
			MaxFollowers:      1000,
			TopN:              100,
			FreeTierLimit:     5,
		},
		Storage: StorageConfig{DBPath: "./guestlens.db", RedisAddr: "localhost:6379"},
		Serve:   ServeConfig{Addr: ":8080", MetricsAddr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.AccessToken == "" {
		c.Credentials.AccessToken = os.Getenv("VK_ACCESS_TOKEN")
	}
	if c.Account.UserID == 0 {
		if v := os.Getenv("VK_USER_ID"); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				c.Account.UserID = id
			}
		}
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = os.Getenv("REDIS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
