package services

import (
	"context"
	"testing"
	"time"

	"github.com/Baku-1/kingdom-tournament-sub000/events"
	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startedTournament creates a two-position tournament with both players
// registered and advances the clock past the start time.
func startedTournament(t *testing.T, env *testEnv) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	env.fund(creatorID, models.AssetNative, 1_000)
	tournament, err := env.tournaments.CreateTournament(ctx, creatorID, env.validCreateInput(models.AssetNative, 600, 400))
	require.NoError(t, err)
	require.NoError(t, env.registrations.RegisterNoFee(ctx, playerID, tournament.ID))
	require.NoError(t, env.registrations.RegisterNoFee(ctx, otherID, tournament.ID))
	env.advance(3 * time.Hour)
	return tournament
}

func TestDeclareWinner(t *testing.T) {
	t.Run("records the winner", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)

		require.NoError(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, playerID))

		p, err := env.tournaments.GetPositionInfo(ctx, tournament.ID, 0)
		require.NoError(t, err)
		require.NotNil(t, p.WinnerID)
		assert.Equal(t, playerID, *p.WinnerID)
		assert.Len(t, env.notifier.byType(events.TypeWinnerDeclared), 1)
	})

	t.Run("only the creator may declare", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env)

		err := env.rewards.DeclareWinner(context.Background(), playerID, tournament.ID, 0, playerID)
		assert.ErrorIs(t, err, ErrNotCreator)
	})

	t.Run("rejects before the start time", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		env.fund(creatorID, models.AssetNative, 100)
		tournament, err := env.tournaments.CreateTournament(ctx, creatorID, env.validCreateInput(models.AssetNative, 100))
		require.NoError(t, err)
		require.NoError(t, env.registrations.RegisterNoFee(ctx, playerID, tournament.ID))

		err = env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, playerID)
		assert.ErrorIs(t, err, ErrNotStarted)
	})

	t.Run("rejects a winner who never registered", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env)

		const strangerID = 77
		err := env.rewards.DeclareWinner(context.Background(), creatorID, tournament.ID, 0, strangerID)
		assert.ErrorIs(t, err, ErrWinnerNotParticipant)
	})

	t.Run("allows any winner when nobody registered", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		env.fund(creatorID, models.AssetNative, 100)
		tournament, err := env.tournaments.CreateTournament(ctx, creatorID, env.validCreateInput(models.AssetNative, 100))
		require.NoError(t, err)
		env.advance(3 * time.Hour)

		// Off-platform roster: no participant record exists for the winner.
		require.NoError(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, playerID))
	})

	t.Run("re-declaring an unclaimed position overwrites", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)

		require.NoError(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, playerID))
		require.NoError(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, otherID))

		p, err := env.tournaments.GetPositionInfo(ctx, tournament.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, otherID, *p.WinnerID)
	})

	t.Run("rejects invalid positions and winners", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)

		assert.ErrorIs(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 5, playerID), ErrPositionNotFound)
		assert.ErrorIs(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, -1, playerID), ErrPositionNotFound)
		assert.ErrorIs(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, 0), ErrInvalidWinner)
	})
}

func TestDeclareWinners_Batch(t *testing.T) {
	t.Run("declares all positions in one call", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)

		require.NoError(t, env.rewards.DeclareWinners(ctx, creatorID, tournament.ID,
			[]int{0, 1}, []int{playerID, otherID}))

		first, err := env.tournaments.GetPositionInfo(ctx, tournament.ID, 0)
		require.NoError(t, err)
		second, err := env.tournaments.GetPositionInfo(ctx, tournament.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, playerID, *first.WinnerID)
		assert.Equal(t, otherID, *second.WinnerID)
		assert.Len(t, env.notifier.byType(events.TypeWinnerDeclared), 2)
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env)

		err := env.rewards.DeclareWinners(context.Background(), creatorID, tournament.ID,
			[]int{0, 1}, []int{playerID})
		assert.ErrorIs(t, err, ErrBatchLengthMismatch)

		err = env.rewards.DeclareWinners(context.Background(), creatorID, tournament.ID, nil, nil)
		assert.ErrorIs(t, err, ErrBatchLengthMismatch)
	})

	t.Run("one invalid entry fails the whole batch", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)

		err := env.rewards.DeclareWinners(ctx, creatorID, tournament.ID,
			[]int{0, 7}, []int{playerID, otherID})
		assert.ErrorIs(t, err, ErrPositionNotFound)

		// The valid first entry must not have been persisted.
		p, err := env.tournaments.GetPositionInfo(ctx, tournament.ID, 0)
		require.NoError(t, err)
		assert.Nil(t, p.WinnerID)
	})
}

func TestClaimReward(t *testing.T) {
	t.Run("pays the declared winner exactly once", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)
		require.NoError(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, playerID))

		amount, err := env.rewards.ClaimReward(ctx, playerID, tournament.ID, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 600, amount)
		assert.EqualValues(t, 600, env.balance(playerID, models.AssetNative))
		assert.EqualValues(t, 400, env.custody(models.AssetNative))
		assert.Len(t, env.notifier.byType(events.TypeRewardClaimed), 1)

		_, err = env.rewards.ClaimReward(ctx, playerID, tournament.ID, 0)
		assert.ErrorIs(t, err, ErrAlreadyClaimed)
		assert.EqualValues(t, 600, env.balance(playerID, models.AssetNative))
	})

	t.Run("only the declared winner may claim", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)
		require.NoError(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, playerID))

		_, err := env.rewards.ClaimReward(ctx, otherID, tournament.ID, 0)
		assert.ErrorIs(t, err, ErrNotWinner)
	})

	t.Run("rejects when no winner is declared", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env)

		_, err := env.rewards.ClaimReward(context.Background(), playerID, tournament.ID, 0)
		assert.ErrorIs(t, err, ErrNoWinnerDeclared)
	})

	t.Run("rejects after cancellation", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)
		require.NoError(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, playerID))

		_, err := env.tournaments.CancelTournament(ctx, creatorID, tournament.ID)
		require.NoError(t, err)

		_, err = env.rewards.ClaimReward(ctx, playerID, tournament.ID, 0)
		assert.ErrorIs(t, err, ErrTournamentNotActive)
	})

	t.Run("a claimed position cannot be re-declared", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := startedTournament(t, env)
		require.NoError(t, env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, playerID))
		_, err := env.rewards.ClaimReward(ctx, playerID, tournament.ID, 0)
		require.NoError(t, err)

		err = env.rewards.DeclareWinner(ctx, creatorID, tournament.ID, 0, otherID)
		assert.ErrorIs(t, err, ErrAlreadyClaimed)
	})
}
