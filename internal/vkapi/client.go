package vkapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"guestlens/internal/config"
	"guestlens/internal/metrics"
	"guestlens/internal/model"
)

// Client defines the platform read endpoints the analyzer depends on.
// Every call takes the caller's bearer token; the client adds the API version.
type Client interface {
	GetFriends(ctx context.Context, token string, userID int64) ([]model.Profile, error)
	GetFollowers(ctx context.Context, token string, userID int64, count int) ([]int64, error)
	GetWallPosts(ctx context.Context, token string, ownerID int64) ([]model.Post, error)
	GetWallLikes(ctx context.Context, token string, ownerID, postID int64) ([]int64, error)
	GetComments(ctx context.Context, token string, ownerID, postID int64) ([]model.Comment, error)
	GetStories(ctx context.Context, token string, ownerID int64) ([]model.Story, error)
	GetStoryViewers(ctx context.Context, token string, ownerID, storyID int64) ([]int64, error)
	GetConversations(ctx context.Context, token string, count int) ([]model.Conversation, error)
	GetUsers(ctx context.Context, token string, ids []int64) ([]model.Profile, error)
}

const profileFields = "photo_100,city,sex,bdate,online,last_seen"

// HTTPClient talks to the VK-style REST API. It owns rate limiting, bounded
// retry with backoff, and a circuit breaker; it carries no business logic.
type HTTPClient struct {
	baseURL     string
	version     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(cfg config.APIConfig) *HTTPClient {
	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	backoff := time.Duration(cfg.BaseBackoffMS) * time.Millisecond
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	st := gobreaker.Settings{Name: "vkapi"}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}

	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		version:     cfg.Version,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     newLimiter(cfg.RPS, cfg.Burst),
		breaker:     gobreaker.NewCircuitBreaker(st),
		maxAttempts: attempts,
		baseBackoff: backoff,
	}
}

// envelope is the platform's top-level response shape: exactly one of
// response or error is set.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

func (c *HTTPClient) call(ctx context.Context, method, token string, params url.Values) (json.RawMessage, error) {
	if token == "" {
		return nil, errors.New("empty access token")
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", token)
	params.Set("v", c.version)

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.doWithRetry(ctx, method, req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%s: http status %d", method, resp.StatusCode)
		}
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", method, err)
		}
		if env.Error != nil {
			return nil, env.Error
		}
		return env.Response, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(json.RawMessage), nil
}

func (c *HTTPClient) doWithRetry(ctx context.Context, method string, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				lastErr = fmt.Errorf("http status %d", resp.StatusCode)
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				metrics.IncAPIRetry(method)
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(method)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", method, c.maxAttempts, lastErr)
}

// rawUser is a platform user object; only fields we render survive mapping.
type rawUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Photo100  string `json:"photo_100"`
	Sex       int    `json:"sex"`
	BDate     string `json:"bdate"`
	City      *struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"city"`
}

func (r rawUser) profile() model.Profile {
	p := model.Profile{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Photo:     r.Photo100,
		Sex:       r.Sex,
		BDate:     r.BDate,
	}
	if r.City != nil {
		p.City = r.City.Title
	}
	return p
}

// GetFriends returns the caller's friend list ordered by the platform's
// interaction ranking (order=hints). The ordering is the signal.
func (c *HTTPClient) GetFriends(ctx context.Context, token string, userID int64) ([]model.Profile, error) {
	params := url.Values{}
	if userID > 0 {
		params.Set("user_id", strconv.FormatInt(userID, 10))
	}
	params.Set("order", "hints")
	params.Set("fields", profileFields)
	raw, err := c.call(ctx, "friends.get", token, params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count int       `json:"count"`
		Items []rawUser `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("friends.get: %w", err)
	}
	out := make([]model.Profile, 0, len(body.Items))
	for _, u := range body.Items {
		out = append(out, u.profile())
	}
	return out, nil
}

// GetFollowers returns follower user ids, capped at count.
func (c *HTTPClient) GetFollowers(ctx context.Context, token string, userID int64, count int) ([]int64, error) {
	params := url.Values{}
	if userID > 0 {
		params.Set("user_id", strconv.FormatInt(userID, 10))
	}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}
	raw, err := c.call(ctx, "users.getFollowers", token, params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count int     `json:"count"`
		Items []int64 `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("users.getFollowers: %w", err)
	}
	return body.Items, nil
}

// GetWallPosts returns the owner's recent wall posts, newest first.
func (c *HTTPClient) GetWallPosts(ctx context.Context, token string, ownerID int64) ([]model.Post, error) {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("count", "100")
	raw, err := c.call(ctx, "wall.get", token, params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count int `json:"count"`
		Items []struct {
			ID       int64 `json:"id"`
			OwnerID  int64 `json:"owner_id"`
			Date     int64 `json:"date"`
			Likes    struct {
				Count int `json:"count"`
			} `json:"likes"`
			Comments struct {
				Count int `json:"count"`
			} `json:"comments"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("wall.get: %w", err)
	}
	out := make([]model.Post, 0, len(body.Items))
	for _, p := range body.Items {
		out = append(out, model.Post{
			ID:           p.ID,
			OwnerID:      p.OwnerID,
			Date:         time.Unix(p.Date, 0).UTC(),
			LikeCount:    p.Likes.Count,
			CommentCount: p.Comments.Count,
		})
	}
	return out, nil
}

// GetWallLikes returns the ids of users who liked one post.
func (c *HTTPClient) GetWallLikes(ctx context.Context, token string, ownerID, postID int64) ([]int64, error) {
	params := url.Values{}
	params.Set("type", "post")
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("item_id", strconv.FormatInt(postID, 10))
	raw, err := c.call(ctx, "likes.getList", token, params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count int     `json:"count"`
		Items []int64 `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("likes.getList: %w", err)
	}
	return body.Items, nil
}

// GetComments returns the comments on one post.
func (c *HTTPClient) GetComments(ctx context.Context, token string, ownerID, postID int64) ([]model.Comment, error) {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("post_id", strconv.FormatInt(postID, 10))
	params.Set("count", "100")
	raw, err := c.call(ctx, "wall.getComments", token, params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count int `json:"count"`
		Items []struct {
			ID     int64  `json:"id"`
			FromID int64  `json:"from_id"`
			Date   int64  `json:"date"`
			Text   string `json:"text"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("wall.getComments: %w", err)
	}
	out := make([]model.Comment, 0, len(body.Items))
	for _, cm := range body.Items {
		out = append(out, model.Comment{
			ID:     cm.ID,
			FromID: cm.FromID,
			Date:   time.Unix(cm.Date, 0).UTC(),
			Text:   cm.Text,
		})
	}
	return out, nil
}

// GetStories returns the owner's active stories.
func (c *HTTPClient) GetStories(ctx context.Context, token string, ownerID int64) ([]model.Story, error) {
	params := url.Values{}
	if ownerID > 0 {
		params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	}
	raw, err := c.call(ctx, "stories.get", token, params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count int `json:"count"`
		Items []struct {
			ID      int64 `json:"id"`
			OwnerID int64 `json:"owner_id"`
			Date    int64 `json:"date"`
			Views   int   `json:"views"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("stories.get: %w", err)
	}
	out := make([]model.Story, 0, len(body.Items))
	for _, s := range body.Items {
		out = append(out, model.Story{
			ID:      s.ID,
			OwnerID: s.OwnerID,
			Date:    time.Unix(s.Date, 0).UTC(),
			Views:   s.Views,
		})
	}
	return out, nil
}

// GetStoryViewers returns the ids of users who viewed one story.
func (c *HTTPClient) GetStoryViewers(ctx context.Context, token string, ownerID, storyID int64) ([]int64, error) {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("story_id", strconv.FormatInt(storyID, 10))
	raw, err := c.call(ctx, "stories.getViewers", token, params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count int `json:"count"`
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("stories.getViewers: %w", err)
	}
	out := make([]int64, 0, len(body.Items))
	for _, v := range body.Items {
		out = append(out, v.ID)
	}
	return out, nil
}

// GetConversations returns recent threads, newest activity first.
func (c *HTTPClient) GetConversations(ctx context.Context, token string, count int) ([]model.Conversation, error) {
	params := url.Values{}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}
	raw, err := c.call(ctx, "messages.getConversations", token, params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count int `json:"count"`
		Items []struct {
			Conversation struct {
				Peer struct {
					ID   int64  `json:"id"`
					Type string `json:"type"`
				} `json:"peer"`
			} `json:"conversation"`
			LastMessage struct {
				Date   int64 `json:"date"`
				FromID int64 `json:"from_id"`
			} `json:"last_message"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("messages.getConversations: %w", err)
	}
	out := make([]model.Conversation, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, model.Conversation{
			PeerID:          it.Conversation.Peer.ID,
			PeerType:        it.Conversation.Peer.Type,
			LastMessageDate: time.Unix(it.LastMessage.Date, 0).UTC(),
			LastMessageFrom: it.LastMessage.FromID,
		})
	}
	return out, nil
}

// GetUsers fetches display profiles for up to 1000 ids in one request.
func (c *HTTPClient) GetUsers(ctx context.Context, token string, ids []int64) ([]model.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > 1000 {
		ids = ids[:1000]
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	params := url.Values{}
	params.Set("user_ids", strings.Join(parts, ","))
	params.Set("fields", profileFields)
	raw, err := c.call(ctx, "users.get", token, params)
	if err != nil {
		return nil, err
	}
	var items []rawUser
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("users.get: %w", err)
	}
	out := make([]model.Profile, 0, len(items))
	for _, u := range items {
		out = append(out, u.profile())
	}
	return out, nil
}
