package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Baku-1/kingdom-tournament-sub000/models"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrCustodyShortfall      = errors.New("custody balance shortfall")
)

// LedgerRepository holds all value: per-account balances, allowances granted
// to the engine, and the engine's own custody balances per asset. Every
// debit carries a balance guard in the statement itself, so a shortfall
// surfaces as zero affected rows and aborts the surrounding transaction.
type LedgerRepository interface {
	GetBalance(ctx context.Context, exec SQLExecutor, userID int, asset models.Asset) (int64, error)
	AddBalance(ctx context.Context, exec SQLExecutor, userID int, asset models.Asset, amount int64) error
	SpendBalance(ctx context.Context, exec SQLExecutor, userID int, asset models.Asset, amount int64) error
	Balances(ctx context.Context, userID int) (map[models.Asset]int64, error)

	GetAllowance(ctx context.Context, exec SQLExecutor, ownerID int, asset models.Asset) (int64, error)
	SetAllowance(ctx context.Context, exec SQLExecutor, ownerID int, asset models.Asset, amount int64) error
	ConsumeAllowance(ctx context.Context, exec SQLExecutor, ownerID int, asset models.Asset, amount int64) error

	GetCustody(ctx context.Context, exec SQLExecutor, asset models.Asset) (int64, error)
	AddCustody(ctx context.Context, exec SQLExecutor, asset models.Asset, amount int64) error
	SpendCustody(ctx context.Context, exec SQLExecutor, asset models.Asset, amount int64) error
}

type postgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) LedgerRepository {
	return &postgresLedgerRepository{db: db}
}

func (r *postgresLedgerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLedgerRepository) GetBalance(ctx context.Context, exec SQLExecutor, userID int, asset models.Asset) (int64, error) {
	executor := r.getExecutor(exec)
	var amount int64
	err := executor.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE user_id = $1 AND asset = $2`,
		userID, asset,
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

func (r *postgresLedgerRepository) AddBalance(ctx context.Context, exec SQLExecutor, userID int, asset models.Asset, amount int64) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO balances (user_id, asset, amount) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, asset) DO UPDATE SET amount = balances.amount + $3`,
		userID, asset, amount,
	)
	return err
}

func (r *postgresLedgerRepository) SpendBalance(ctx context.Context, exec SQLExecutor, userID int, asset models.Asset, amount int64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE balances SET amount = amount - $3
		 WHERE user_id = $1 AND asset = $2 AND amount >= $3`,
		userID, asset, amount,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInsufficientFunds)
}

func (r *postgresLedgerRepository) Balances(ctx context.Context, userID int) (map[models.Asset]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT asset, amount FROM balances WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[models.Asset]int64)
	for rows.Next() {
		var asset models.Asset
		var amount int64
		if scanErr := rows.Scan(&asset, &amount); scanErr != nil {
			return nil, scanErr
		}
		balances[asset] = amount
	}
	return balances, rows.Err()
}

func (r *postgresLedgerRepository) GetAllowance(ctx context.Context, exec SQLExecutor, ownerID int, asset models.Asset) (int64, error) {
	executor := r.getExecutor(exec)
	var amount int64
	err := executor.QueryRowContext(ctx,
		`SELECT amount FROM allowances WHERE owner_id = $1 AND asset = $2`,
		ownerID, asset,
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

func (r *postgresLedgerRepository) SetAllowance(ctx context.Context, exec SQLExecutor, ownerID int, asset models.Asset, amount int64) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO allowances (owner_id, asset, amount) VALUES ($1, $2, $3)
		 ON CONFLICT (owner_id, asset) DO UPDATE SET amount = $3`,
		ownerID, asset, amount,
	)
	return err
}

func (r *postgresLedgerRepository) ConsumeAllowance(ctx context.Context, exec SQLExecutor, ownerID int, asset models.Asset, amount int64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE allowances SET amount = amount - $3
		 WHERE owner_id = $1 AND asset = $2 AND amount >= $3`,
		ownerID, asset, amount,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInsufficientAllowance)
}

func (r *postgresLedgerRepository) GetCustody(ctx context.Context, exec SQLExecutor, asset models.Asset) (int64, error) {
	executor := r.getExecutor(exec)
	var amount int64
	err := executor.QueryRowContext(ctx,
		`SELECT amount FROM custody_balances WHERE asset = $1`, asset,
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

func (r *postgresLedgerRepository) AddCustody(ctx context.Context, exec SQLExecutor, asset models.Asset, amount int64) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO custody_balances (asset, amount) VALUES ($1, $2)
		 ON CONFLICT (asset) DO UPDATE SET amount = custody_balances.amount + $2`,
		asset, amount,
	)
	return err
}

func (r *postgresLedgerRepository) SpendCustody(ctx context.Context, exec SQLExecutor, asset models.Asset, amount int64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE custody_balances SET amount = amount - $2
		 WHERE asset = $1 AND amount >= $2`,
		asset, amount,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCustodyShortfall)
}
