package services

import (
	"context"
	"log"
	"time"

	"mingle_server/models"
)

const (
	// StaleEntryAge is how long a waiting entry may sit in an otherwise empty
	// bucket before the reaper deletes it.
	StaleEntryAge = 5 * time.Minute
	// MatchedEntryAge is how long a matched entry lingers so pollers can read
	// their match result before cleanup.
	MatchedEntryAge = 5 * time.Minute
	// CompletedRetention is how long finished sessions stay readable.
	CompletedRetention = 15 * time.Minute
)

// ReaperService sweeps stale pool entries and expired sessions on a fixed
// interval. DynamoDB's TTL on expiresAt is the storage-layer backstop; the
// sweep keeps the tables tidy well before TTL lag catches up.
type ReaperService struct {
	Store    GameStore
	Interval time.Duration

	stop chan struct{}
}

// Start launches the background sweep loop. Call Stop to end it.
func (rs *ReaperService) Start() {
	if rs.Interval <= 0 {
		rs.Interval = 45 * time.Second
	}
	rs.stop = make(chan struct{})

	go func() {
		ticker := time.NewTicker(rs.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rs.Sweep(context.Background())
			case <-rs.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop.
func (rs *ReaperService) Stop() {
	if rs.stop != nil {
		close(rs.stop)
	}
}

// Sweep runs one pass over both tables. Errors are logged and skipped; a
// failed sweep just leaves work for the next tick.
func (rs *ReaperService) Sweep(ctx context.Context) {
	now := time.Now().UTC()
	rs.sweepPool(ctx, now)
	rs.sweepSessions(ctx, now)
}

func (rs *ReaperService) sweepPool(ctx context.Context, now time.Time) {
	entries, err := rs.Store.ScanWaitingPool(ctx)
	if err != nil {
		log.Printf("❌ Reaper: pool scan failed: %v", err)
		return
	}

	// Count waiting members per bucket: an aged entry is only swept when its
	// bucket holds no other member who could still match it. A bucket with
	// members is never deleted for age alone, only by hard TTL.
	waitingByBucket := map[string]int{}
	for _, e := range entries {
		if e.MatchStatus == models.MatchStatusWaiting {
			waitingByBucket[bucketKey(e)]++
		}
	}

	for _, e := range entries {
		expired := e.ExpiresAt > 0 && now.Unix() > e.ExpiresAt

		switch {
		case expired:
			// Past hard TTL regardless of state.
		case e.MatchStatus == models.MatchStatusMatched:
			if now.Sub(e.JoinedAt) <= MatchedEntryAge {
				continue
			}
		case now.Sub(e.JoinedAt) <= StaleEntryAge:
			continue
		case waitingByBucket[bucketKey(e)] > 1:
			// Old, but the bucket still has other members who could match it.
			continue
		}

		if err := rs.Store.DeleteWaitingEntry(ctx, e.Mode, e.ParticipantID); err != nil {
			log.Printf("❌ Reaper: failed to delete entry %s/%s: %v", e.Mode, e.ParticipantID, err)
			continue
		}
		log.Printf("🧹 Reaper: removed stale entry %s/%s", e.Mode, e.ParticipantID)
	}
}

func (rs *ReaperService) sweepSessions(ctx context.Context, now time.Time) {
	sessions, err := rs.Store.ScanSessions(ctx)
	if err != nil {
		log.Printf("❌ Reaper: session scan failed: %v", err)
		return
	}

	for _, s := range sessions {
		hardExpired := s.ExpiresAt > 0 && now.Unix() > s.ExpiresAt
		doneAndCold := s.Status == models.SessionStatusCompleted && now.Sub(s.CreatedAt) > CompletedRetention
		abandoned := len(s.Participants) == 0

		if !hardExpired && !doneAndCold && !abandoned {
			continue
		}
		if err := rs.Store.DeleteSession(ctx, s.SessionID); err != nil {
			log.Printf("❌ Reaper: failed to delete session %s: %v", s.SessionID, err)
			continue
		}
		log.Printf("🧹 Reaper: removed session %s (%s)", s.SessionID, s.Status)
	}
}

func bucketKey(e models.WaitingEntry) string {
	return e.Mode + "|" + e.Criteria
}
