package services

import (
	"context"
	"log/slog"

	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/Baku-1/kingdom-tournament-sub000/repositories"
)

// WalletService is the on-ramp around the ledger: deposits credit an
// account's balance, approvals grant the engine an allowance to pull token
// value on the account's behalf.
type WalletService struct {
	ledgerRepo repositories.LedgerRepository
	logger     *slog.Logger
}

func NewWalletService(ledgerRepo repositories.LedgerRepository, logger *slog.Logger) *WalletService {
	return &WalletService{ledgerRepo: ledgerRepo, logger: logger}
}

func (s *WalletService) Deposit(ctx context.Context, callerID int, asset models.Asset, amount int64) error {
	if !asset.Valid() {
		return ErrInvalidRewardAsset
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.ledgerRepo.AddBalance(ctx, nil, callerID, asset, amount); err != nil {
		return err
	}
	s.logger.Info("deposit credited",
		slog.Int("user_id", callerID),
		slog.String("asset", string(asset)),
		slog.Int64("amount", amount),
	)
	return nil
}

func (s *WalletService) Approve(ctx context.Context, callerID int, asset models.Asset, amount int64) error {
	if !asset.Valid() {
		return ErrInvalidRewardAsset
	}
	if amount < 0 {
		return ErrInvalidAmount
	}
	return s.ledgerRepo.SetAllowance(ctx, nil, callerID, asset, amount)
}

func (s *WalletService) Balances(ctx context.Context, callerID int) (map[models.Asset]int64, error) {
	return s.ledgerRepo.Balances(ctx, callerID)
}

func (s *WalletService) Allowance(ctx context.Context, callerID int, asset models.Asset) (int64, error) {
	return s.ledgerRepo.GetAllowance(ctx, nil, callerID, asset)
}
