package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"guestlens/internal/analyzer"
	"guestlens/internal/model"
	"guestlens/internal/stats"
	"guestlens/internal/store/history"
)

const cursorKey = "refresh:last_run"

// RunRefreshOnce runs one analysis, stores the snapshot and the derived daily
// stats, and advances the refresh cursor.
func RunRefreshOnce(ctx context.Context, db *history.DB, an *analyzer.Analyzer, sess model.Session) error {
	now := time.Now().UTC()
	runID := uuid.NewString()

	guests := an.AnalyzeGuests(ctx, sess)
	if err := db.SaveSnapshot(ctx, sess.UserID, runID, now, guests); err != nil {
		return err
	}
	if err := db.SaveDailyStats(ctx, sess.UserID, stats.FromGuests(now, guests)); err != nil {
		return err
	}
	_ = db.SaveCursor(ctx, cursorKey, now.Format(time.RFC3339Nano))
	log.Info().Str("run_id", runID).Int("guests", len(guests)).Msg("refresh_once")
	return nil
}

// RunRefreshLoop runs RunRefreshOnce on a ticker until ctx is cancelled.
func RunRefreshLoop(ctx context.Context, db *history.DB, an *analyzer.Analyzer, sess model.Session, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	if err := RunRefreshOnce(ctx, db, an, sess); err != nil {
		log.Error().Err(err).Msg("refresh_once_error")
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("refresh_loop_stop")
			return ctx.Err()
		case <-t.C:
			if err := RunRefreshOnce(ctx, db, an, sess); err != nil {
				log.Error().Err(err).Msg("refresh_once_error")
			}
		}
	}
}
