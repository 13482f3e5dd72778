package analyzer

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"guestlens/internal/config"
	"guestlens/internal/metrics"
	"guestlens/internal/model"
	"guestlens/internal/util"
	"guestlens/internal/vkapi"
)

// maxProbability caps the display probability. Never 100: the ranking is an
// inference, not an observation.
const maxProbability = 95

// Analyzer runs the guest inference pipeline: six signal collectors feeding a
// shared score board, then ranking and profile enrichment.
type Analyzer struct {
	client          vkapi.Client
	signals         config.SignalsConfig
	pipelineTimeout time.Duration
	now             func() time.Time
}

func New(client vkapi.Client, cfg config.Config) *Analyzer {
	timeout := time.Duration(cfg.API.PipelineTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	signals := cfg.Signals
	if signals.MaxLikedPosts <= 0 {
		signals.MaxLikedPosts = 20
	}
	if signals.MaxCommentedPosts <= 0 {
		signals.MaxCommentedPosts = 10
	}
	if signals.MaxStories <= 0 {
		signals.MaxStories = 10
	}
	if signals.MaxConversations <= 0 {
		signals.MaxConversations = 200
	}
	if signals.MaxFollowers <= 0 {
		signals.MaxFollowers = 1000
	}
	if signals.TopN <= 0 {
		signals.TopN = 100
	}
	return &Analyzer{
		client:          client,
		signals:         signals,
		pipelineTimeout: timeout,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type collectorFn func(ctx context.Context, sess model.Session, board *ScoreBoard, now time.Time) error

// AnalyzeGuests runs one analysis for the session's owner and returns the
// ranked guest list. It never returns an error: a total failure (invalid
// session, or every collector failing) yields the synthetic fallback dataset,
// and partial failures degrade silently per collector.
func (a *Analyzer) AnalyzeGuests(ctx context.Context, sess model.Session) []model.Guest {
	start := time.Now()
	now := a.now()
	metrics.AnalysisRuns.Inc()
	defer metrics.ObserveAnalysisDuration(start)

	runLog := log.With().Str("run_id", uuid.NewString()).Int64("owner", sess.UserID).Logger()

	if !sess.Valid() {
		runLog.Warn().Msg("missing credential or identity, serving fallback")
		metrics.FallbackServed.Inc()
		return FallbackGuests(now)
	}

	// Pipeline deadline: scores collected before expiry are still ranked.
	ctx, cancel := context.WithTimeout(ctx, a.pipelineTimeout)
	defer cancel()

	board := NewScoreBoard(a.signals.TopN)

	// Fixed execution order: ties among equal scores resolve to the user seen
	// first by the earliest collector, identically on every run.
	collectors := []struct {
		name string
		run  collectorFn
	}{
		{"friend_order", a.analyzeFriendsOrder},
		{"wall_likes", a.analyzeWallLikes},
		{"comments", a.analyzeComments},
		{"story_views", a.analyzeStoryViews},
		{"messages", a.analyzeMessages},
		{"followers", a.analyzeFollowers},
	}

	succeeded := 0
	for _, c := range collectors {
		if err := c.run(ctx, sess, board, now); err != nil {
			runLog.Warn().Err(err).Str("collector", c.name).Msg("collector contributed zero signal")
			metrics.IncCollectorError(c.name)
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		runLog.Error().Msg("all collectors failed, serving fallback")
		metrics.FallbackServed.Inc()
		return FallbackGuests(now)
	}

	ranked := board.Finalize()
	runLog.Info().Int("candidates", board.Len()).Int("ranked", len(ranked)).
		Int("collectors_ok", succeeded).Msg("analysis complete")
	if len(ranked) == 0 {
		return []model.Guest{}
	}

	profiles := a.lookupProfiles(ctx, sess, ranked, runLog)
	maxScore := ranked[0].Score

	guests := make([]model.Guest, 0, len(ranked))
	for _, score := range ranked {
		guests = append(guests, buildGuest(score, profiles[score.UserID], maxScore, now))
	}
	return guests
}

// lookupProfiles fetches display data for the survivors in one batch call.
// A failure here degrades to placeholder profiles rather than discarding the
// collected scores.
func (a *Analyzer) lookupProfiles(ctx context.Context, sess model.Session, ranked []ActivityScore, runLog zerolog.Logger) map[int64]model.Profile {
	ids := make([]int64, len(ranked))
	for i, s := range ranked {
		ids[i] = s.UserID
	}
	out := make(map[int64]model.Profile, len(ids))
	profiles, err := a.client.GetUsers(ctx, sess.AccessToken, ids)
	if err != nil {
		runLog.Warn().Err(err).Msg("profile enrichment failed, using placeholders")
		return out
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out
}

func buildGuest(score ActivityScore, profile model.Profile, maxScore float64, now time.Time) model.Guest {
	profile.ID = score.UserID
	if profile.FirstName == "" {
		profile.FirstName = "User"
	}
	profile.Age = ageFromBDate(profile.BDate, now)

	return model.Guest{
		ID:           score.UserID,
		Profile:      profile,
		Probability:  probability(score.Score, maxScore),
		LastActivity: lastActivity(score.Activities, now),
		ActivityType: primaryActivityType(score.Activities),
		Details:      buildDetails(score.Activities),
	}
}

// probability maps a score to a 0-100 display value relative to the run's
// maximum. Order-preserving, capped at 95, and defined as 0 when no signal
// exists at all (guards the zero division).
func probability(score, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	p := int(math.Round(100 * score / maxScore))
	if p > maxProbability {
		p = maxProbability
	}
	if p < 0 {
		p = 0
	}
	return p
}

// primaryActivityType picks the strongest evidence class by the fixed
// priority table, ignoring occurrence counts.
func primaryActivityType(activities []model.ActivityRecord) model.ActivityType {
	if len(activities) == 0 {
		return model.ActivityView
	}
	best := activities[0].Type
	for _, rec := range activities[1:] {
		if rec.Type.Priority() > best.Priority() {
			best = rec.Type
		}
	}
	return best
}

// lastActivity returns the most recent occurrence across all records, or now
// when nothing was recorded.
func lastActivity(activities []model.ActivityRecord, now time.Time) time.Time {
	var latest time.Time
	for _, rec := range activities {
		if rec.LastOccurrence.After(latest) {
			latest = rec.LastOccurrence
		}
	}
	if latest.IsZero() {
		return now
	}
	return latest
}

// buildDetails renders a human-readable summary of the evidence, e.g.
// "3 likes, 1 comment". Follower-only evidence gets the generic fallback.
func buildDetails(activities []model.ActivityRecord) string {
	parts := make([]string, 0, len(activities))
	for _, rec := range activities {
		switch rec.Type {
		case model.ActivityLike:
			parts = append(parts, util.Plural(rec.Count, "like"))
		case model.ActivityComment:
			parts = append(parts, util.Plural(rec.Count, "comment"))
		case model.ActivityStoryView:
			parts = append(parts, "viewed stories")
		case model.ActivityMessage:
			parts = append(parts, "recent conversation")
		case model.ActivityFriendOrder:
			parts = append(parts, "frequent interactions")
		}
	}
	if s := util.JoinNonEmpty(parts, ", "); s != "" {
		return s
	}
	return "possible interest in the profile"
}

// ageFromBDate derives an age from a "D.M.YYYY" birth-date string by the year
// component alone. Off by up to one year depending on the calendar; kept as
// the product-approved approximation.
func ageFromBDate(bdate string, now time.Time) int {
	if bdate == "" {
		return 0
	}
	parts := strings.Split(bdate, ".")
	if len(parts) < 3 {
		return 0
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year <= 0 {
		return 0
	}
	age := now.Year() - year
	if age < 0 {
		return 0
	}
	return age
}
