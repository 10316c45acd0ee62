package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"mingle_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoolService() (*PoolService, *MemoryGameStore) {
	store := NewMemoryGameStore()
	return &PoolService{
		Store:    store,
		Notifier: NopNotifier{},
		Profiles: StaticProfileResolver{},
	}, store
}

func TestJoin_UnknownMode(t *testing.T) {
	ps, _ := newPoolService()

	_, err := ps.Join(context.Background(), "charades", "p1", "X")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestJoin_InvalidGroupSize(t *testing.T) {
	ps, _ := newPoolService()

	_, err := ps.Join(context.Background(), models.ModeHuddle, "p1", "2")
	assert.ErrorIs(t, err, ErrInvalidGroupSize)

	_, err = ps.Join(context.Background(), models.ModeHuddle, "p1", "6")
	assert.ErrorIs(t, err, ErrInvalidGroupSize)

	_, err = ps.Join(context.Background(), models.ModeHuddle, "p1", "banana")
	assert.ErrorIs(t, err, ErrInvalidGroupSize)
}

func TestJoin_Idempotent(t *testing.T) {
	ps, store := newPoolService()
	ctx := context.Background()

	first, err := ps.Join(ctx, models.ModeSpark, "p1", "X")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusWaiting, first.Status)

	second, err := ps.Join(ctx, models.ModeSpark, "p1", "X")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := store.ListWaitingEntries(ctx, models.ModeSpark)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "re-joining must not create a duplicate entry")
}

func TestPairMatch_SymmetricAndExclusive(t *testing.T) {
	ps, _ := newPoolService()
	ctx := context.Background()

	res1, err := ps.Join(ctx, models.ModeSpark, "p1", "X")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusWaiting, res1.Status)

	res2, err := ps.Join(ctx, models.ModeSpark, "p2", "X")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusMatched, res2.Status)
	require.NotEmpty(t, res2.SessionID)

	poll1, err := ps.Poll(ctx, models.ModeSpark, "p1")
	require.NoError(t, err)
	poll2, err := ps.Poll(ctx, models.ModeSpark, "p2")
	require.NoError(t, err)

	assert.True(t, poll1.Matched)
	assert.True(t, poll2.Matched)
	assert.Equal(t, poll1.SessionID, poll2.SessionID)
	assert.Len(t, poll1.Participants, 2)

	// Exactly one side holds the chooser role.
	e1, err := ps.Store.GetWaitingEntry(ctx, models.ModeSpark, "p1")
	require.NoError(t, err)
	e2, err := ps.Store.GetWaitingEntry(ctx, models.ModeSpark, "p2")
	require.NoError(t, err)
	assert.NotEqual(t, e1.IsPrimary, e2.IsPrimary)
}

func TestPairMatch_CriteriaMustAgree(t *testing.T) {
	ps, _ := newPoolService()
	ctx := context.Background()

	_, err := ps.Join(ctx, models.ModeSpark, "p1", "X")
	require.NoError(t, err)

	res, err := ps.Join(ctx, models.ModeSpark, "p2", "Y")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusWaiting, res.Status)

	poll, err := ps.Poll(ctx, models.ModeSpark, "p1")
	require.NoError(t, err)
	assert.False(t, poll.Matched)
}

func TestPairMatch_ClaimedCandidateIsSkipped(t *testing.T) {
	ps, store := newPoolService()
	ctx := context.Background()

	_, err := ps.Join(ctx, models.ModeSpark, "p1", "X")
	require.NoError(t, err)

	// Simulate a concurrent matcher winning p1 before p2's search lands.
	require.NoError(t, store.ClaimWaitingEntry(ctx, models.ModeSpark, "p1", "stolen-session", true))

	res, err := ps.Join(ctx, models.ModeSpark, "p2", "X")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusWaiting, res.Status, "losing a candidate race must leave the joiner waiting, not erroring")
}

func TestPairMatch_ConcurrentJoinsNeverDoubleBook(t *testing.T) {
	ps, store := newPoolService()
	ctx := context.Background()

	const players = 8
	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := ps.Join(ctx, models.ModeSpark, fmt.Sprintf("p%d", n), "X")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Let any stragglers converge the way real clients would.
	for i := 0; i < players; i++ {
		_, err := ps.Poll(ctx, models.ModeSpark, fmt.Sprintf("p%d", i))
		require.NoError(t, err)
	}

	sessions, err := store.ScanSessions(ctx)
	require.NoError(t, err)

	seen := map[string]string{}
	for _, s := range sessions {
		assert.Len(t, s.Participants, 2)
		for _, p := range s.Participants {
			other, dup := seen[p]
			assert.False(t, dup, "participant %s is in sessions %s and %s", p, other, s.SessionID)
			seen[p] = s.SessionID
		}
	}
}

func TestGroupMatch_FormsAtTargetSize(t *testing.T) {
	ps, _ := newPoolService()
	ctx := context.Background()

	for _, p := range []string{"p1", "p2"} {
		res, err := ps.Join(ctx, models.ModeHuddle, p, "3")
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusWaiting, res.Status)
	}

	status, err := ps.Status(ctx, models.ModeHuddle, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, status.PlayersJoined)
	assert.Equal(t, 3, status.RequiredPlayers)
	assert.False(t, status.ReadyToStart)

	res, err := ps.Join(ctx, models.ModeHuddle, "p3", "3")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusMatched, res.Status)

	for _, p := range []string{"p1", "p2", "p3"} {
		status, err := ps.Status(ctx, models.ModeHuddle, p)
		require.NoError(t, err)
		assert.True(t, status.ReadyToStart)
		assert.Equal(t, res.SessionID, status.SessionID)
	}

	session, err := ps.Store.GetSession(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Participants, 3)
	assert.Equal(t, models.SessionStatusInProgress, session.Status)
	assert.GreaterOrEqual(t, session.TurnIndex, 0)
	assert.Less(t, session.TurnIndex, 3)
}

func TestGroupMatch_DistinctSizesDoNotMix(t *testing.T) {
	ps, _ := newPoolService()
	ctx := context.Background()

	_, err := ps.Join(ctx, models.ModeHuddle, "p1", "3")
	require.NoError(t, err)
	_, err = ps.Join(ctx, models.ModeHuddle, "p2", "4")
	require.NoError(t, err)

	res, err := ps.Join(ctx, models.ModeHuddle, "p3", "3")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusWaiting, res.Status, "a size-4 joiner must not complete a size-3 bucket")
}

func TestLeave_WhileWaiting(t *testing.T) {
	ps, _ := newPoolService()
	ctx := context.Background()

	_, err := ps.Join(ctx, models.ModeSpark, "p1", "X")
	require.NoError(t, err)

	require.NoError(t, ps.Leave(ctx, models.ModeSpark, "p1"))

	_, err = ps.Poll(ctx, models.ModeSpark, "p1")
	assert.ErrorIs(t, err, ErrNotInQueue)
}

func TestLeave_NoEntry(t *testing.T) {
	ps, _ := newPoolService()

	err := ps.Leave(context.Background(), models.ModeSpark, "ghost")
	assert.ErrorIs(t, err, ErrNotInQueue)
}

func TestLeave_MatchedEntryPreservesSession(t *testing.T) {
	ps, _ := newPoolService()
	ctx := context.Background()

	_, err := ps.Join(ctx, models.ModeSpark, "p1", "X")
	require.NoError(t, err)
	res, err := ps.Join(ctx, models.ModeSpark, "p2", "X")
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusMatched, res.Status)

	require.NoError(t, ps.Leave(ctx, models.ModeSpark, "p1"))

	session, err := ps.Store.GetSession(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Participants, 2, "leaving the pool must never destroy a formed session")

	poll, err := ps.Poll(ctx, models.ModeSpark, "p1")
	require.NoError(t, err)
	assert.True(t, poll.Matched)
}

func TestStatus_NoEntry(t *testing.T) {
	ps, _ := newPoolService()

	_, err := ps.Status(context.Background(), models.ModeHuddle, "ghost")
	assert.ErrorIs(t, err, ErrNotInQueue)
}

func TestStatus_PairCountsOnlyMatchingCriteria(t *testing.T) {
	ps, _ := newPoolService()
	ctx := context.Background()

	_, err := ps.Join(ctx, models.ModeSpark, "a", "X")
	require.NoError(t, err)
	_, err = ps.Join(ctx, models.ModeSpark, "b", "Y")
	require.NoError(t, err)

	// b waits on a different label; a's bucket holds only a.
	status, err := ps.Status(ctx, models.ModeSpark, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, status.PlayersJoined)
	assert.Equal(t, 2, status.RequiredPlayers)
	assert.False(t, status.ReadyToStart)
}
