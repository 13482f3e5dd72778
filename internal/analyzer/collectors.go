package analyzer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"guestlens/internal/model"
)

// Signal weights. Comments outweigh likes: commenting costs more effort.
// Followers are the weakest category, they carry no direct interaction proof.
const (
	friendOrderBase  = 100.0
	friendOrderDecay = 2.0
	likeWeight       = 30.0
	commentWeight    = 50.0
	storyViewWeight  = 40.0
	messageWeight    = 60.0
	followerBase     = 20.0
	followerFloor    = 5.0
)

// analyzeFriendsOrder scores friends by their position in the platform-ranked
// friend list. The platform sorts by interaction, so earlier positions
// correlate with recent profile visits. Linear decay, floored at zero.
func (a *Analyzer) analyzeFriendsOrder(ctx context.Context, sess model.Session, board *ScoreBoard, now time.Time) error {
	friends, err := a.client.GetFriends(ctx, sess.AccessToken, sess.UserID)
	if err != nil {
		return err
	}
	for i := range friends {
		pts := friendOrderBase - friendOrderDecay*float64(i)
		if pts < 0 {
			pts = 0
		}
		board.AddScore(friends[i].ID, pts, model.ActivityRecord{
			Type:           model.ActivityFriendOrder,
			Count:          1,
			LastOccurrence: now,
		})
	}
	return nil
}

// analyzeWallLikes scores users who liked the owner's recent posts.
// Per-post failures are skipped so one bad post cannot sink the collector.
func (a *Analyzer) analyzeWallLikes(ctx context.Context, sess model.Session, board *ScoreBoard, now time.Time) error {
	posts, err := a.client.GetWallPosts(ctx, sess.AccessToken, sess.UserID)
	if err != nil {
		return err
	}
	if len(posts) > a.signals.MaxLikedPosts {
		posts = posts[:a.signals.MaxLikedPosts]
	}
	for _, post := range posts {
		likers, err := a.client.GetWallLikes(ctx, sess.AccessToken, sess.UserID, post.ID)
		if err != nil {
			log.Debug().Err(err).Int64("post", post.ID).Msg("skipping post likes")
			continue
		}
		bonus := RecencyBonus(now, post.Date)
		for _, userID := range likers {
			board.AddScore(userID, likeWeight*bonus, model.ActivityRecord{
				Type:           model.ActivityLike,
				Count:          1,
				LastOccurrence: post.Date,
			})
		}
	}
	return nil
}

// analyzeComments scores commenters on recent posts that have comments.
func (a *Analyzer) analyzeComments(ctx context.Context, sess model.Session, board *ScoreBoard, now time.Time) error {
	posts, err := a.client.GetWallPosts(ctx, sess.AccessToken, sess.UserID)
	if err != nil {
		return err
	}
	if len(posts) > a.signals.MaxCommentedPosts {
		posts = posts[:a.signals.MaxCommentedPosts]
	}
	for _, post := range posts {
		if post.CommentCount == 0 {
			continue
		}
		comments, err := a.client.GetComments(ctx, sess.AccessToken, sess.UserID, post.ID)
		if err != nil {
			log.Debug().Err(err).Int64("post", post.ID).Msg("skipping post comments")
			continue
		}
		for _, cm := range comments {
			board.AddScore(cm.FromID, commentWeight*RecencyBonus(now, cm.Date), model.ActivityRecord{
				Type:           model.ActivityComment,
				Count:          1,
				LastOccurrence: cm.Date,
			})
		}
	}
	return nil
}

// analyzeStoryViews scores story viewers with a flat weight. No recency
// scaling: stories expire on their own, viewing one is already time-bounded.
func (a *Analyzer) analyzeStoryViews(ctx context.Context, sess model.Session, board *ScoreBoard, _ time.Time) error {
	stories, err := a.client.GetStories(ctx, sess.AccessToken, sess.UserID)
	if err != nil {
		return err
	}
	if len(stories) > a.signals.MaxStories {
		stories = stories[:a.signals.MaxStories]
	}
	for _, story := range stories {
		viewers, err := a.client.GetStoryViewers(ctx, sess.AccessToken, story.OwnerID, story.ID)
		if err != nil {
			log.Debug().Err(err).Int64("story", story.ID).Msg("skipping story viewers")
			continue
		}
		for _, userID := range viewers {
			board.AddScore(userID, storyViewWeight, model.ActivityRecord{
				Type:           model.ActivityStoryView,
				Count:          1,
				LastOccurrence: story.Date,
			})
		}
	}
	return nil
}

// analyzeMessages scores one-to-one conversation peers. Threads higher in the
// recency-sorted list decay less; the index counts every thread, group chats
// included, because position in the raw list is the signal.
func (a *Analyzer) analyzeMessages(ctx context.Context, sess model.Session, board *ScoreBoard, now time.Time) error {
	convs, err := a.client.GetConversations(ctx, sess.AccessToken, a.signals.MaxConversations)
	if err != nil {
		return err
	}
	for i, conv := range convs {
		if conv.PeerType != "user" {
			continue
		}
		positionBonus := 1 - 0.02*float64(i)
		if positionBonus < 0 {
			positionBonus = 0
		}
		pts := messageWeight * RecencyBonus(now, conv.LastMessageDate) * positionBonus
		board.AddScore(conv.PeerID, pts, model.ActivityRecord{
			Type:           model.ActivityMessage,
			Count:          1,
			LastOccurrence: conv.LastMessageDate,
		})
	}
	return nil
}

// analyzeFollowers scores followers by list position with a floor.
func (a *Analyzer) analyzeFollowers(ctx context.Context, sess model.Session, board *ScoreBoard, now time.Time) error {
	followers, err := a.client.GetFollowers(ctx, sess.AccessToken, sess.UserID, a.signals.MaxFollowers)
	if err != nil {
		return err
	}
	for i, userID := range followers {
		pts := followerBase - 0.1*float64(i)
		if pts < followerFloor {
			pts = followerFloor
		}
		board.AddScore(userID, pts, model.ActivityRecord{
			Type:           model.ActivityFollower,
			Count:          1,
			LastOccurrence: now,
		})
	}
	return nil
}
