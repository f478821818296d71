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

// paidTournamentWithPlayers creates a fee-charging tournament and registers
// the given players, each funded with exactly the fee.
func paidTournamentWithPlayers(t *testing.T, env *testEnv, fee int64, players ...int) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	tournament := createPaidTournament(t, env, EntryFeeSpec{Asset: models.AssetNative, Amount: fee})
	for _, id := range players {
		env.fund(id, models.AssetNative, fee)
		require.NoError(t, env.registrations.RegisterWithFee(ctx, id, tournament.ID, fee))
	}
	return tournament
}

func TestDistributeEntryFees(t *testing.T) {
	t.Run("splits fees between organizer and platform", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := paidTournamentWithPlayers(t, env, 1_000, playerID, otherID, 4)

		env.advance(time.Hour) // registration closed
		require.NoError(t, env.entryFees.DistributeEntryFees(ctx, tournament.ID))

		// 3 x 1000 at 250 bps: platform 75, organizer 2925.
		assert.EqualValues(t, 2_925, env.balance(creatorID, models.AssetNative))
		assert.EqualValues(t, 75, env.balance(testPlatformUserID, models.AssetNative))
		// Only the escrowed reward pool remains in custody.
		assert.EqualValues(t, 1_000, env.custody(models.AssetNative))
		assert.Len(t, env.notifier.byType(events.TypeFeesDistributed), 1)
	})

	t.Run("is permissionless but single-shot", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := paidTournamentWithPlayers(t, env, 100, playerID)
		env.advance(time.Hour)

		require.NoError(t, env.entryFees.DistributeEntryFees(ctx, tournament.ID))
		err := env.entryFees.DistributeEntryFees(ctx, tournament.ID)
		assert.ErrorIs(t, err, ErrFeesAlreadyDistributed)
		assert.EqualValues(t, 98, env.balance(creatorID, models.AssetNative))
	})

	t.Run("rejects while registration is open", func(t *testing.T) {
		env := newTestEnv()
		tournament := paidTournamentWithPlayers(t, env, 100, playerID)

		err := env.entryFees.DistributeEntryFees(context.Background(), tournament.ID)
		assert.ErrorIs(t, err, ErrRegistrationStillOpen)
	})

	t.Run("rejects on cancelled tournaments", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := paidTournamentWithPlayers(t, env, 100, playerID)
		_, err := env.tournaments.CancelTournament(ctx, creatorID, tournament.ID)
		require.NoError(t, err)

		env.advance(time.Hour)
		err = env.entryFees.DistributeEntryFees(ctx, tournament.ID)
		assert.ErrorIs(t, err, ErrTournamentNotActive)
	})

	t.Run("rejects on free tournaments", func(t *testing.T) {
		env := newTestEnv()
		tournament := createFreeTournament(t, env, nil)
		env.advance(time.Hour)

		err := env.entryFees.DistributeEntryFees(context.Background(), tournament.ID)
		assert.ErrorIs(t, err, ErrNoEntryFee)
	})

	t.Run("no registrants means nothing to move", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := createPaidTournament(t, env, EntryFeeSpec{Asset: models.AssetNative, Amount: 100})
		env.advance(time.Hour)

		require.NoError(t, env.entryFees.DistributeEntryFees(ctx, tournament.ID))
		assert.Zero(t, env.balance(testPlatformUserID, models.AssetNative))

		got, err := env.tournaments.GetTournamentByID(ctx, tournament.ID)
		require.NoError(t, err)
		assert.True(t, got.FeesDistributed)
	})
}

func TestClaimEntryFeeRefund(t *testing.T) {
	t.Run("refunds the recorded fee after cancellation", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := paidTournamentWithPlayers(t, env, 100, playerID)
		_, err := env.tournaments.CancelTournament(ctx, creatorID, tournament.ID)
		require.NoError(t, err)

		refunded, err := env.entryFees.ClaimEntryFeeRefund(ctx, playerID, tournament.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 100, refunded)
		assert.EqualValues(t, 100, env.balance(playerID, models.AssetNative))
		assert.Len(t, env.notifier.byType(events.TypeFeeRefunded), 1)
	})

	t.Run("a second refund fails", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := paidTournamentWithPlayers(t, env, 100, playerID)
		_, err := env.tournaments.CancelTournament(ctx, creatorID, tournament.ID)
		require.NoError(t, err)

		_, err = env.entryFees.ClaimEntryFeeRefund(ctx, playerID, tournament.ID)
		require.NoError(t, err)
		_, err = env.entryFees.ClaimEntryFeeRefund(ctx, playerID, tournament.ID)
		assert.ErrorIs(t, err, ErrNothingToRefund)
		assert.EqualValues(t, 100, env.balance(playerID, models.AssetNative))
	})

	t.Run("rejects while the tournament is active", func(t *testing.T) {
		env := newTestEnv()
		tournament := paidTournamentWithPlayers(t, env, 100, playerID)

		_, err := env.entryFees.ClaimEntryFeeRefund(context.Background(), playerID, tournament.ID)
		assert.ErrorIs(t, err, ErrTournamentStillActive)
	})

	t.Run("rejects once fees were distributed", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := paidTournamentWithPlayers(t, env, 100, playerID)

		env.advance(time.Hour)
		require.NoError(t, env.entryFees.DistributeEntryFees(ctx, tournament.ID))
		_, err := env.tournaments.CancelTournament(ctx, creatorID, tournament.ID)
		require.NoError(t, err)

		_, err = env.entryFees.ClaimEntryFeeRefund(ctx, playerID, tournament.ID)
		assert.ErrorIs(t, err, ErrFeesAlreadyDistributed)
	})

	t.Run("rejects callers who never registered", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		tournament := paidTournamentWithPlayers(t, env, 100, playerID)
		_, err := env.tournaments.CancelTournament(ctx, creatorID, tournament.ID)
		require.NoError(t, err)

		_, err = env.entryFees.ClaimEntryFeeRefund(ctx, otherID, tournament.ID)
		assert.ErrorIs(t, err, ErrNotRegistered)
	})
}

// TestFundConservation walks a full lifecycle and checks that no value is
// created or destroyed anywhere along the way.
func TestFundConservation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	const fee = 250
	env.fund(creatorID, models.AssetNative, 1_000)
	env.fund(playerID, models.AssetNative, fee)
	env.fund(otherID, models.AssetNative, fee)
	totalSupply := func() int64 {
		return env.balance(creatorID, models.AssetNative) +
			env.balance(playerID, models.AssetNative) +
			env.balance(otherID, models.AssetNative) +
			env.balance(testPlatformUserID, models.AssetNative) +
			env.custody(models.AssetNative)
	}
	initial := totalSupply()

	tournament, err := env.tournaments.CreateTournamentWithEntryFee(ctx, creatorID,
		env.validCreateInput(models.AssetNative, 600, 400),
		EntryFeeSpec{Asset: models.AssetNative, Amount: fee})
	require.NoError(t, err)
	assert.Equal(t, initial, totalSupply())

	require.NoError(t, env.registrations.RegisterWithFee(ctx, playerID, tournament.ID, fee))
	require.NoError(t, env.registrations.RegisterWithFee(ctx, otherID, tournament.ID, fee))
	assert.Equal(t, initial, totalSupply())

	env.advance(time.Hour)
	require.NoError(t, env.entryFees.DistributeEntryFees(ctx, tournament.ID))
	assert.Equal(t, initial, totalSupply())

	env.advance(2 * time.Hour)
	require.NoError(t, env.rewards.DeclareWinners(ctx, creatorID, tournament.ID,
		[]int{0, 1}, []int{playerID, otherID}))
	_, err = env.rewards.ClaimReward(ctx, playerID, tournament.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, initial, totalSupply())

	// Second place never claims; cancellation returns that amount.
	_, err = env.tournaments.CancelTournament(ctx, creatorID, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, initial, totalSupply())
	assert.Zero(t, env.custody(models.AssetNative))
}
