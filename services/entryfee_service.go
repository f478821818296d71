package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Baku-1/kingdom-tournament-sub000/events"
	"github.com/Baku-1/kingdom-tournament-sub000/guard"
	"github.com/Baku-1/kingdom-tournament-sub000/ledger"
	"github.com/Baku-1/kingdom-tournament-sub000/repositories"
)

const feeRateDenominator = 10000

// EntryFeeService releases collected entry fees through exactly one of two
// mutually exclusive paths: a single organizer/platform split once
// registration closes, or per-participant refunds after cancellation.
type EntryFeeService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	ledgerRepo      repositories.LedgerRepository
	locks           *guard.Keyed
	notifier        events.Notifier
	platformUserID  int
	platformFeeBPS  int64
	now             func() time.Time
	logger          *slog.Logger
}

func NewEntryFeeService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	ledgerRepo repositories.LedgerRepository,
	locks *guard.Keyed,
	notifier events.Notifier,
	platformUserID int,
	platformFeeBPS int64,
	logger *slog.Logger,
) *EntryFeeService {
	return &EntryFeeService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		ledgerRepo:      ledgerRepo,
		locks:           locks,
		notifier:        notifier,
		platformUserID:  platformUserID,
		platformFeeBPS:  platformFeeBPS,
		now:             time.Now,
		logger:          logger,
	}
}

func (s *EntryFeeService) SetNowFunc(now func() time.Time) { s.now = now }

// DistributeEntryFees splits the collected fees between the organizer and
// the platform. Permissionless, callable once registration has closed; the
// fees_distributed flag makes a second call fail its precondition.
func (s *EntryFeeService) DistributeEntryFees(ctx context.Context, tournamentID int) error {
	var organizerAmount, platformCut int64
	err := s.locks.Do(tournamentID, func() error {
		return s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
			if err != nil {
				return mapTournamentRepoError(err)
			}
			if !t.Active {
				return ErrTournamentNotActive
			}
			if !t.HasEntryFee() {
				return ErrNoEntryFee
			}
			if t.FeesDistributed {
				return ErrFeesAlreadyDistributed
			}
			if s.now().Before(t.RegistrationEnd) {
				return ErrRegistrationStillOpen
			}

			if err := s.tournamentRepo.MarkFeesDistributed(ctx, exec, tournamentID); err != nil {
				return mapTournamentRepoError(err)
			}

			total := int64(t.ParticipantCount) * t.EntryFeeAmount
			if total == 0 {
				return nil
			}
			platformCut = total * s.platformFeeBPS / feeRateDenominator
			organizerAmount = total - platformCut

			adapter := ledger.ForAsset(s.ledgerRepo, *t.EntryFeeAsset)
			if organizerAmount > 0 {
				if err := adapter.Payout(ctx, exec, t.CreatorID, organizerAmount); err != nil {
					return translateCustodyError(err)
				}
			}
			if platformCut > 0 {
				if err := adapter.Payout(ctx, exec, s.platformUserID, platformCut); err != nil {
					return translateCustodyError(err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("entry fees distributed",
		slog.Int("tournament_id", tournamentID),
		slog.Int64("organizer_amount", organizerAmount),
		slog.Int64("platform_cut", platformCut),
	)
	s.notifier.Notify(events.NewNotification(events.TypeFeesDistributed, tournamentID, map[string]interface{}{
		"organizer_amount": organizerAmount,
		"platform_cut":     platformCut,
	}))
	return nil
}

// ClaimEntryFeeRefund returns the caller's recorded entry-fee payment after
// cancellation, provided fees were never distributed. Zeroing the recorded
// payment in the same transaction prevents a double refund.
func (s *EntryFeeService) ClaimEntryFeeRefund(ctx context.Context, callerID, tournamentID int) (int64, error) {
	var refunded int64
	err := s.locks.Do(tournamentID, func() error {
		return s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
			t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
			if err != nil {
				return mapTournamentRepoError(err)
			}
			if t.Active {
				return ErrTournamentStillActive
			}
			if t.FeesDistributed {
				return ErrFeesAlreadyDistributed
			}
			if !t.HasEntryFee() {
				return ErrNoEntryFee
			}

			p, err := s.participantRepo.Get(ctx, exec, tournamentID, callerID)
			if err != nil {
				if errors.Is(err, repositories.ErrParticipantNotFound) {
					return ErrNotRegistered
				}
				return err
			}
			if p.FeePaid <= 0 {
				return ErrNothingToRefund
			}

			if err := s.participantRepo.ZeroFeePaid(ctx, exec, tournamentID, callerID); err != nil {
				if errors.Is(err, repositories.ErrParticipantNotFound) {
					return ErrNothingToRefund
				}
				return err
			}
			adapter := ledger.ForAsset(s.ledgerRepo, *t.EntryFeeAsset)
			if err := adapter.Payout(ctx, exec, callerID, p.FeePaid); err != nil {
				return translateCustodyError(err)
			}
			refunded = p.FeePaid
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("entry fee refunded",
		slog.Int("tournament_id", tournamentID),
		slog.Int("user_id", callerID),
		slog.Int64("amount", refunded),
	)
	s.notifier.Notify(events.NewNotification(events.TypeFeeRefunded, tournamentID, map[string]interface{}{
		"user_id": callerID,
		"amount":  refunded,
	}))
	return refunded, nil
}
