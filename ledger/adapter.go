// Package ledger moves value in and out of the engine's custody. It is the
// only code path that touches balances, so every custody invariant funnels
// through the two Adapter variants defined here.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/Baku-1/kingdom-tournament-sub000/repositories"
)

var (
	// ErrValueMismatch is returned when a native transfer does not carry
	// exactly the required value.
	ErrValueMismatch = errors.New("carried value does not match required amount")
	// ErrBalanceDeltaMismatch is returned when a token collection does not
	// move exactly the requested amount into custody.
	ErrBalanceDeltaMismatch = errors.New("custody balance delta does not match requested amount")
	// ErrInvalidAmount is returned for zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("transfer amount must be positive")
)

// Adapter moves a single asset between an account and custody. Collect pulls
// value in (carried is the value the request carries alongside the call, only
// meaningful for the native variant); Payout pushes escrowed value out. Both
// run on the caller's executor so they share the operation's transaction.
type Adapter interface {
	Asset() models.Asset
	Collect(ctx context.Context, exec repositories.SQLExecutor, fromUserID int, amount, carried int64) error
	Payout(ctx context.Context, exec repositories.SQLExecutor, toUserID int, amount int64) error
}

// ForAsset selects the adapter variant for the given asset.
func ForAsset(repo repositories.LedgerRepository, asset models.Asset) Adapter {
	if asset.IsNative() {
		return &nativeAdapter{repo: repo}
	}
	return &tokenAdapter{repo: repo, asset: asset}
}

// nativeAdapter handles the built-in currency. The call must carry exactly
// the required value; there is no allowance step.
type nativeAdapter struct {
	repo repositories.LedgerRepository
}

func (a *nativeAdapter) Asset() models.Asset { return models.AssetNative }

func (a *nativeAdapter) Collect(ctx context.Context, exec repositories.SQLExecutor, fromUserID int, amount, carried int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if carried != amount {
		return fmt.Errorf("%w: carried %d, required %d", ErrValueMismatch, carried, amount)
	}
	if err := a.repo.SpendBalance(ctx, exec, fromUserID, models.AssetNative, amount); err != nil {
		return err
	}
	return a.repo.AddCustody(ctx, exec, models.AssetNative, amount)
}

func (a *nativeAdapter) Payout(ctx context.Context, exec repositories.SQLExecutor, toUserID int, amount int64) error {
	return payout(ctx, a.repo, exec, toUserID, models.AssetNative, amount)
}

// tokenAdapter handles fungible-token assets. Collection consumes the
// owner's allowance and verifies the custody balance actually grew by the
// requested amount, rejecting any path that skims or short-delivers.
type tokenAdapter struct {
	repo  repositories.LedgerRepository
	asset models.Asset
}

func (a *tokenAdapter) Asset() models.Asset { return a.asset }

func (a *tokenAdapter) Collect(ctx context.Context, exec repositories.SQLExecutor, fromUserID int, amount, _ int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	before, err := a.repo.GetCustody(ctx, exec, a.asset)
	if err != nil {
		return err
	}
	if err := a.repo.ConsumeAllowance(ctx, exec, fromUserID, a.asset, amount); err != nil {
		return err
	}
	if err := a.repo.SpendBalance(ctx, exec, fromUserID, a.asset, amount); err != nil {
		return err
	}
	if err := a.repo.AddCustody(ctx, exec, a.asset, amount); err != nil {
		return err
	}
	after, err := a.repo.GetCustody(ctx, exec, a.asset)
	if err != nil {
		return err
	}
	if after-before != amount {
		return fmt.Errorf("%w: delta %d, requested %d", ErrBalanceDeltaMismatch, after-before, amount)
	}
	return nil
}

func (a *tokenAdapter) Payout(ctx context.Context, exec repositories.SQLExecutor, toUserID int, amount int64) error {
	return payout(ctx, a.repo, exec, toUserID, a.asset, amount)
}

func payout(ctx context.Context, repo repositories.LedgerRepository, exec repositories.SQLExecutor, toUserID int, asset models.Asset, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := repo.SpendCustody(ctx, exec, asset, amount); err != nil {
		return err
	}
	return repo.AddBalance(ctx, exec, toUserID, asset, amount)
}
