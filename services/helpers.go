package services

import (
	"errors"

	"github.com/Baku-1/kingdom-tournament-sub000/ledger"
	"github.com/Baku-1/kingdom-tournament-sub000/repositories"
)

// translateCustodyError maps ledger and repository failures onto the service
// sentinel taxonomy so handlers never need to know the lower layers.
func translateCustodyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, repositories.ErrInsufficientAllowance):
		return ErrInsufficientAllowance
	case errors.Is(err, repositories.ErrCustodyShortfall):
		return ErrInsufficientFunds
	case errors.Is(err, ledger.ErrValueMismatch):
		return ErrIncorrectValue
	case errors.Is(err, ledger.ErrInvalidAmount):
		return ErrInvalidAmount
	default:
		return err
	}
}
