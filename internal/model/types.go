package model

import "time"

// ActivityType classifies a behavioral signal tied to a user.
type ActivityType string

const (
	ActivityLike        ActivityType = "like"
	ActivityComment     ActivityType = "comment"
	ActivityStoryView   ActivityType = "story_view"
	ActivityMessage     ActivityType = "message"
	ActivityFriendOrder ActivityType = "friend_order"
	ActivityFollower    ActivityType = "follower"

	// ActivityView is the generic classification used when a ranked user has
	// no recorded activity of any concrete type.
	ActivityView ActivityType = "view"
)

// Priority orders activity types by engagement strength. Story views rank
// highest: the platform only records them for deliberate opens.
func (t ActivityType) Priority() int {
	switch t {
	case ActivityStoryView:
		return 5
	case ActivityMessage:
		return 4
	case ActivityComment:
		return 3
	case ActivityLike:
		return 2
	case ActivityFriendOrder:
		return 1
	default:
		return 0
	}
}

// ActivityRecord accumulates repeated signals of one type for one user.
// LastOccurrence only moves forward on merge.
type ActivityRecord struct {
	Type           ActivityType `json:"type"`
	Count          int          `json:"count"`
	LastOccurrence time.Time    `json:"lastOccurrence"`
}

// Profile is the subset of platform user fields shown for a guest.
type Profile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Photo     string `json:"photo"`
	City      string `json:"city,omitempty"`
	Sex       int    `json:"sex,omitempty"` // 1 female, 2 male, 0 unknown
	Age       int    `json:"age,omitempty"` // 0 when birth date is hidden
	BDate     string `json:"-"`
}

// Guest is one ranked candidate presumed to have viewed the profile.
type Guest struct {
	ID           int64        `json:"id"`
	Profile      Profile      `json:"profile"`
	Probability  int          `json:"probability"` // 0-100 display value, capped at 95
	LastActivity time.Time    `json:"lastActivity"`
	ActivityType ActivityType `json:"activityType"`
	Details      string       `json:"details"`
}

// Session carries the caller's credential and identity into an analysis run.
// It is materialized by the session store; the core never reads storage.
type Session struct {
	UserID        int64
	AccessToken   string
	Premium       bool
	PremiumExpiry time.Time
}

// Valid reports whether the session satisfies the analysis precondition.
func (s Session) Valid() bool { return s.UserID > 0 && s.AccessToken != "" }

// Post is a wall post as returned by the platform.
type Post struct {
	ID           int64
	OwnerID      int64
	Date         time.Time
	LikeCount    int
	CommentCount int
}

// Comment on a wall post.
type Comment struct {
	ID     int64
	FromID int64
	Date   time.Time
	Text   string
}

// Story published by the owner.
type Story struct {
	ID      int64
	OwnerID int64
	Date    time.Time
	Views   int
}

// Conversation is one thread from the recency-sorted conversation list.
type Conversation struct {
	PeerID          int64
	PeerType        string // "user", "chat", "group"
	LastMessageDate time.Time
	LastMessageFrom int64
}
