package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Baku-1/kingdom-tournament-sub000/events"
	"github.com/Baku-1/kingdom-tournament-sub000/guard"
	"github.com/Baku-1/kingdom-tournament-sub000/ledger"
	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/Baku-1/kingdom-tournament-sub000/repositories"
)

// RewardService drives the per-position sub-state machine:
// no winner → winner declared → claimed. Claimed is terminal; a claimed
// position can never be re-declared or paid twice.
type RewardService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	ledgerRepo      repositories.LedgerRepository
	locks           *guard.Keyed
	notifier        events.Notifier
	now             func() time.Time
	logger          *slog.Logger
}

func NewRewardService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	ledgerRepo repositories.LedgerRepository,
	locks *guard.Keyed,
	notifier events.Notifier,
	logger *slog.Logger,
) *RewardService {
	return &RewardService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		ledgerRepo:      ledgerRepo,
		locks:           locks,
		notifier:        notifier,
		now:             time.Now,
		logger:          logger,
	}
}

func (s *RewardService) SetNowFunc(now func() time.Time) { s.now = now }

// DeclareWinner records the winner of one position. Creator-only, after
// start time, and only while the position is unclaimed. Re-declaring an
// unclaimed position overwrites the previous declaration.
func (s *RewardService) DeclareWinner(ctx context.Context, callerID, tournamentID, position, winnerID int) error {
	return s.DeclareWinners(ctx, callerID, tournamentID, []int{position}, []int{winnerID})
}

// DeclareWinners applies the same per-entry checks to each position/winner
// pair inside one transaction; if any entry is invalid the whole call fails.
func (s *RewardService) DeclareWinners(ctx context.Context, callerID, tournamentID int, positions, winners []int) error {
	if len(positions) == 0 || len(positions) != len(winners) {
		return ErrBatchLengthMismatch
	}

	err := s.locks.Do(tournamentID, func() error {
		return s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
			if err != nil {
				return mapTournamentRepoError(err)
			}
			if t.CreatorID != callerID {
				return ErrNotCreator
			}
			if !t.Active {
				return ErrTournamentNotActive
			}
			if !t.Started(s.now()) {
				return ErrNotStarted
			}

			for i := range positions {
				if err := s.declareOne(ctx, exec, t, positions[i], winners[i]); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	for i := range positions {
		s.logger.Info("winner declared",
			slog.Int("tournament_id", tournamentID),
			slog.Int("position", positions[i]),
			slog.Int("winner_id", winners[i]),
		)
		s.notifier.Notify(events.NewNotification(events.TypeWinnerDeclared, tournamentID, map[string]interface{}{
			"position":  positions[i],
			"winner_id": winners[i],
		}))
	}
	return nil
}

func (s *RewardService) declareOne(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, position, winnerID int) error {
	if position < 0 || position >= len(t.Positions) {
		return ErrPositionNotFound
	}
	if t.Positions[position].Claimed {
		return ErrAlreadyClaimed
	}
	if winnerID <= 0 {
		return ErrInvalidWinner
	}
	// Tournaments with zero registrants skip the participant check; their
	// rosters are managed off-platform.
	if t.ParticipantCount > 0 {
		if _, err := s.participantRepo.Get(ctx, exec, t.ID, winnerID); err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrWinnerNotParticipant
			}
			return err
		}
	}
	if err := s.tournamentRepo.SetWinner(ctx, exec, t.ID, position, winnerID); err != nil {
		return mapTournamentRepoError(err)
	}
	t.Positions[position].WinnerID = &winnerID
	return nil
}

// ClaimReward pays one position's escrowed reward to its declared winner,
// exactly once.
func (s *RewardService) ClaimReward(ctx context.Context, callerID, tournamentID, position int) (int64, error) {
	var amount int64
	err := s.locks.Do(tournamentID, func() error {
		return s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
			if err != nil {
				return mapTournamentRepoError(err)
			}
			if !t.Active {
				return ErrTournamentNotActive
			}
			if position < 0 || position >= len(t.Positions) {
				return ErrPositionNotFound
			}
			p := t.Positions[position]
			if p.Claimed {
				return ErrAlreadyClaimed
			}
			if p.WinnerID == nil {
				return ErrNoWinnerDeclared
			}
			if *p.WinnerID != callerID {
				return ErrNotWinner
			}

			if err := s.tournamentRepo.MarkClaimed(ctx, exec, tournamentID, position); err != nil {
				return mapTournamentRepoError(err)
			}
			adapter := ledger.ForAsset(s.ledgerRepo, t.RewardAsset)
			if err := adapter.Payout(ctx, exec, callerID, p.Amount); err != nil {
				return translateCustodyError(err)
			}
			amount = p.Amount
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("reward claimed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("position", position),
		slog.Int("winner_id", callerID),
		slog.Int64("amount", amount),
	)
	s.notifier.Notify(events.NewNotification(events.TypeRewardClaimed, tournamentID, map[string]interface{}{
		"position":  position,
		"winner_id": callerID,
		"amount":    amount,
	}))
	return amount, nil
}
