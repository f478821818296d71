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

// RegistrationService admits participants. The two entry points are mutually
// exclusive: RegisterNoFee only works on free tournaments, RegisterWithFee
// only on fee-requiring ones, and the fee is collected before the caller is
// admitted so a failed payment admits nobody.
type RegistrationService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	ledgerRepo      repositories.LedgerRepository
	locks           *guard.Keyed
	notifier        events.Notifier
	now             func() time.Time
	logger          *slog.Logger
}

func NewRegistrationService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	ledgerRepo repositories.LedgerRepository,
	locks *guard.Keyed,
	notifier events.Notifier,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
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

func (s *RegistrationService) SetNowFunc(now func() time.Time) { s.now = now }

// RegisterNoFee admits the caller to a tournament that collects no entry fee.
func (s *RegistrationService) RegisterNoFee(ctx context.Context, callerID, tournamentID int) error {
	err := s.locks.Do(tournamentID, func() error {
		return s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := s.admissionChecks(ctx, exec, tournamentID)
			if err != nil {
				return err
			}
			if t.HasEntryFee() {
				return ErrEntryFeeRequired
			}
			return s.admit(ctx, exec, &models.Participant{
				TournamentID: tournamentID,
				UserID:       callerID,
			})
		})
	})
	if err != nil {
		return err
	}
	s.notifyRegistered(tournamentID, callerID, 0)
	return nil
}

// RegisterWithFee admits the caller to a fee-requiring tournament, collecting
// the exact entry fee into custody and recording it for refund eligibility.
// payment is the native value carried with the call; token fees are pulled
// from the caller's allowance instead.
func (s *RegistrationService) RegisterWithFee(ctx context.Context, callerID, tournamentID int, payment int64) error {
	var feePaid int64
	err := s.locks.Do(tournamentID, func() error {
		return s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := s.admissionChecks(ctx, exec, tournamentID)
			if err != nil {
				return err
			}
			if !t.HasEntryFee() {
				return ErrNoEntryFee
			}

			adapter := ledger.ForAsset(s.ledgerRepo, *t.EntryFeeAsset)
			if err := adapter.Collect(ctx, exec, callerID, t.EntryFeeAmount, payment); err != nil {
				return translateCustodyError(err)
			}
			feePaid = t.EntryFeeAmount

			return s.admit(ctx, exec, &models.Participant{
				TournamentID: tournamentID,
				UserID:       callerID,
				FeePaid:      t.EntryFeeAmount,
			})
		})
	})
	if err != nil {
		return err
	}
	s.notifyRegistered(tournamentID, callerID, feePaid)
	return nil
}

// admissionChecks enforces the guards shared by both entry points:
// tournament active, registration window open, capacity not exceeded.
func (s *RegistrationService) admissionChecks(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if !t.Active {
		return nil, ErrTournamentNotActive
	}
	if !t.RegistrationOpen(s.now()) {
		return nil, ErrRegistrationClosed
	}
	if t.MaxParticipants > 0 && t.ParticipantCount >= t.MaxParticipants {
		return nil, ErrTournamentFull
	}
	return t, nil
}

func (s *RegistrationService) admit(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	if err := s.participantRepo.Add(ctx, exec, p); err != nil {
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return ErrAlreadyRegistered
		}
		return err
	}
	return s.tournamentRepo.IncrementParticipantCount(ctx, exec, p.TournamentID)
}

func (s *RegistrationService) notifyRegistered(tournamentID, userID int, feePaid int64) {
	s.logger.Info("participant registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("user_id", userID),
		slog.Int64("fee_paid", feePaid),
	)
	s.notifier.Notify(events.NewNotification(events.TypeParticipantRegistered, tournamentID, map[string]interface{}{
		"user_id":  userID,
		"fee_paid": feePaid,
	}))
}
