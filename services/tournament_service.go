package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Baku-1/kingdom-tournament-sub000/events"
	"github.com/Baku-1/kingdom-tournament-sub000/guard"
	"github.com/Baku-1/kingdom-tournament-sub000/ledger"
	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/Baku-1/kingdom-tournament-sub000/repositories"
	"github.com/Baku-1/kingdom-tournament-sub000/storage"
)

// TournamentService owns the registry and cancellation halves of the custody
// lifecycle: validated creation with up-front escrow of the full reward pool,
// reads, and cancellation with return of unclaimed reward value.
type TournamentService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	ledgerRepo      repositories.LedgerRepository
	locks           *guard.Keyed
	notifier        events.Notifier
	uploader        storage.FileUploader
	minRegPeriod    time.Duration
	now             func() time.Time
	logger          *slog.Logger
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	ledgerRepo repositories.LedgerRepository,
	locks *guard.Keyed,
	notifier events.Notifier,
	uploader storage.FileUploader,
	minRegPeriod time.Duration,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		ledgerRepo:      ledgerRepo,
		locks:           locks,
		notifier:        notifier,
		uploader:        uploader,
		minRegPeriod:    minRegPeriod,
		now:             time.Now,
		logger:          logger,
	}
}

// SetNowFunc overrides the clock, used by tests to pin time-gated guards.
func (s *TournamentService) SetNowFunc(now func() time.Time) { s.now = now }

type CreateTournamentInput struct {
	Name            string       `json:"name"`
	Description     *string      `json:"description"`
	Game            *string      `json:"game"`
	RewardAsset     models.Asset `json:"reward_asset"`
	PositionAmounts []int64      `json:"position_amounts"`
	MaxParticipants int          `json:"max_participants"`
	RegistrationEnd time.Time    `json:"registration_end"`
	StartTime       time.Time    `json:"start_time"`
	// Value is the native currency carried with the call. It must equal the
	// sum of position amounts when the reward asset is native.
	Value int64 `json:"value"`
}

type EntryFeeSpec struct {
	Asset  models.Asset `json:"asset"`
	Amount int64        `json:"amount"`
}

// CreateTournament creates a tournament without an entry fee. The full
// reward pool is escrowed in the same transaction that inserts the record;
// any failure leaves neither record nor custody movement behind.
func (s *TournamentService) CreateTournament(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error) {
	return s.create(ctx, creatorID, input, nil)
}

// CreateTournamentWithEntryFee creates a tournament whose registration
// requires paying the given fee.
func (s *TournamentService) CreateTournamentWithEntryFee(ctx context.Context, creatorID int, input CreateTournamentInput, fee EntryFeeSpec) (*models.Tournament, error) {
	if !fee.Asset.Valid() || fee.Amount <= 0 {
		return nil, ErrInvalidEntryFee
	}
	return s.create(ctx, creatorID, input, &fee)
}

func (s *TournamentService) create(ctx context.Context, creatorID int, input CreateTournamentInput, fee *EntryFeeSpec) (*models.Tournament, error) {
	total, err := s.validateCreateInput(input)
	if err != nil {
		return nil, err
	}

	t := &models.Tournament{
		CreatorID:       creatorID,
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Game:            input.Game,
		RewardAsset:     input.RewardAsset,
		TotalReward:     total,
		MaxParticipants: input.MaxParticipants,
		RegistrationEnd: input.RegistrationEnd,
		StartTime:       input.StartTime,
	}
	if fee != nil {
		t.EntryFeeAsset = &fee.Asset
		t.EntryFeeAmount = fee.Amount
	}
	for i, amount := range input.PositionAmounts {
		t.Positions = append(t.Positions, models.Position{Position: i, Amount: amount})
	}

	adapter := ledger.ForAsset(s.ledgerRepo, input.RewardAsset)
	err = s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := adapter.Collect(ctx, exec, creatorID, total, input.Value); err != nil {
			return translateCustodyError(err)
		}
		return s.tournamentRepo.Create(ctx, exec, t)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID),
		slog.Int("creator_id", creatorID),
		slog.String("reward_asset", string(t.RewardAsset)),
		slog.Int64("total_reward", total),
	)
	s.notifier.Notify(events.NewNotification(events.TypeTournamentCreated, t.ID, t))
	s.populateBannerURL(t)
	return t, nil
}

func (s *TournamentService) validateCreateInput(input CreateTournamentInput) (int64, error) {
	if strings.TrimSpace(input.Name) == "" {
		return 0, ErrTournamentNameRequired
	}
	if !input.RewardAsset.Valid() {
		return 0, ErrInvalidRewardAsset
	}
	if len(input.PositionAmounts) < 1 || len(input.PositionAmounts) > models.MaxPositions {
		return 0, ErrInvalidPositionCount
	}
	var total int64
	for _, amount := range input.PositionAmounts {
		if amount <= 0 {
			return 0, ErrInvalidPositionAmount
		}
		total += amount
	}
	if input.MaxParticipants < 0 {
		return 0, ErrInvalidCapacity
	}
	now := s.now()
	if !input.RegistrationEnd.After(now) {
		return 0, ErrRegistrationEndInPast
	}
	if !input.StartTime.After(input.RegistrationEnd) {
		return 0, ErrStartBeforeRegistrationEnd
	}
	if input.StartTime.Sub(input.RegistrationEnd) < s.minRegPeriod {
		return 0, fmt.Errorf("%w: need at least %s", ErrRegistrationPeriodTooShort, s.minRegPeriod)
	}
	return total, nil
}

// CancelTournament irreversibly deactivates the tournament and returns every
// unclaimed position's reward to the creator. Entry fees stay in custody;
// cancellation merely unlocks the per-participant refund path.
func (s *TournamentService) CancelTournament(ctx context.Context, callerID, id int) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.locks.Do(id, func() error {
		return s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
			var err error
			t, err = s.tournamentRepo.GetByID(ctx, exec, id)
			if err != nil {
				return mapTournamentRepoError(err)
			}
			if t.CreatorID != callerID {
				return ErrNotCreator
			}
			if !t.Active {
				return ErrTournamentNotActive
			}
			if err := s.tournamentRepo.SetInactive(ctx, exec, id); err != nil {
				return mapTournamentRepoError(err)
			}
			t.Active = false

			refund := t.UnclaimedReward()
			if refund > 0 {
				adapter := ledger.ForAsset(s.ledgerRepo, t.RewardAsset)
				if err := adapter.Payout(ctx, exec, t.CreatorID, refund); err != nil {
					return translateCustodyError(err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament cancelled",
		slog.Int("tournament_id", id),
		slog.Int64("returned_reward", t.UnclaimedReward()),
	)
	s.notifier.Notify(events.NewNotification(events.TypeTournamentCancelled, id, map[string]interface{}{
		"creator_id":      t.CreatorID,
		"returned_reward": t.UnclaimedReward(),
	}))
	return t, nil
}

func (s *TournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	s.populateBannerURL(t)
	return t, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateBannerURL(&tournaments[i])
	}
	return tournaments, nil
}

// GetPositionInfo returns one position's reward amount, declared winner and
// claimed flag.
func (s *TournamentService) GetPositionInfo(ctx context.Context, id, position int) (*models.Position, error) {
	p, err := s.tournamentRepo.GetPosition(ctx, nil, id, position)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return p, nil
}

// RegistrationStatus reports whether the user is registered and the entry
// fee still held against them.
func (s *TournamentService) RegistrationStatus(ctx context.Context, id, userID int) (registered bool, feePaid int64, err error) {
	p, err := s.participantRepo.Get(ctx, nil, id, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, p.FeePaid, nil
}

func (s *TournamentService) ListParticipants(ctx context.Context, id int) ([]models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, id); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return s.participantRepo.ListByTournament(ctx, id)
}

// UploadBanner stores a banner image for the tournament and records its key.
// Creator-only; replaces any previous banner.
func (s *TournamentService) UploadBanner(ctx context.Context, callerID, id int, contentType string, body io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if t.CreatorID != callerID {
		return nil, ErrNotCreator
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("tournaments/%d/banner%s", id, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}

	oldKey := t.BannerKey
	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &result.Key); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if oldKey != nil && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous banner",
				slog.Int("tournament_id", id), slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	t.BannerKey = &result.Key
	s.populateBannerURL(t)
	return t, nil
}

func (s *TournamentService) populateBannerURL(t *models.Tournament) {
	if t == nil || t.BannerKey == nil || *t.BannerKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*t.BannerKey); url != "" {
		t.BannerURL = &url
	}
}

func extensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("unsupported banner content type: %q", contentType)
	}
}

func mapTournamentRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrPositionNotFound):
		return ErrPositionNotFound
	case errors.Is(err, repositories.ErrTournamentNotActive):
		return ErrTournamentNotActive
	case errors.Is(err, repositories.ErrPositionClaimed):
		return ErrAlreadyClaimed
	case errors.Is(err, repositories.ErrFeesAlreadyReleased):
		return ErrFeesAlreadyDistributed
	default:
		return err
	}
}
