package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrTournamentNotActive  = errors.New("tournament is not active")
	ErrPositionNotFound     = errors.New("reward position not found")
	ErrPositionClaimed      = errors.New("reward position already claimed")
	ErrFeesAlreadyReleased  = errors.New("entry fees already distributed")
	ErrTournamentInvalidRef = errors.New("invalid tournament reference")
)

type ListTournamentsFilter struct {
	CreatorID   *int
	Active      *bool
	RewardAsset *models.Asset
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	// Create inserts the tournament record and its reward positions.
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	GetPosition(ctx context.Context, exec SQLExecutor, tournamentID, position int) (*models.Position, error)
	// SetWinner declares (or re-declares) the winner of an unclaimed position.
	SetWinner(ctx context.Context, exec SQLExecutor, tournamentID, position, winnerID int) error
	// MarkClaimed flips the claimed flag of an unclaimed position.
	MarkClaimed(ctx context.Context, exec SQLExecutor, tournamentID, position int) error
	// SetInactive cancels an active tournament; fails if already inactive.
	SetInactive(ctx context.Context, exec SQLExecutor, id int) error
	// MarkFeesDistributed flips the fees_distributed flag exactly once.
	MarkFeesDistributed(ctx context.Context, exec SQLExecutor, id int) error
	IncrementParticipantCount(ctx context.Context, exec SQLExecutor, id int) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, creator_id, name, description, game, reward_asset, total_reward,
	entry_fee_asset, entry_fee_amount, fees_distributed, max_participants,
	registration_end, start_time, active, participant_count, banner_key, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (
			creator_id, name, description, game, reward_asset, total_reward,
			entry_fee_asset, entry_fee_amount, max_participants,
			registration_end, start_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, active, fees_distributed, participant_count, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.CreatorID, t.Name, t.Description, t.Game, t.RewardAsset, t.TotalReward,
		t.EntryFeeAsset, t.EntryFeeAmount, t.MaxParticipants,
		t.RegistrationEnd, t.StartTime,
	).Scan(&t.ID, &t.Active, &t.FeesDistributed, &t.ParticipantCount, &t.CreatedAt)
	if err != nil {
		return handleTournamentError(err)
	}

	for i := range t.Positions {
		p := &t.Positions[i]
		p.TournamentID = t.ID
		_, err := executor.ExecContext(ctx,
			`INSERT INTO positions (tournament_id, position, amount) VALUES ($1, $2, $3)`,
			t.ID, p.Position, p.Amount,
		)
		if err != nil {
			return handleTournamentError(err)
		}
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.CreatorID, &t.Name, &t.Description, &t.Game, &t.RewardAsset, &t.TotalReward,
		&t.EntryFeeAsset, &t.EntryFeeAmount, &t.FeesDistributed, &t.MaxParticipants,
		&t.RegistrationEnd, &t.StartTime, &t.Active, &t.ParticipantCount, &t.BannerKey, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	rows, err := executor.QueryContext(ctx,
		`SELECT tournament_id, position, amount, winner_id, claimed
		 FROM positions WHERE tournament_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Position
		if scanErr := rows.Scan(&p.TournamentID, &p.Position, &p.Amount, &p.WinnerID, &p.Claimed); scanErr != nil {
			return nil, scanErr
		}
		t.Positions = append(t.Positions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.CreatorID != nil {
		query += fmt.Sprintf(" AND creator_id = $%d", argID)
		args = append(args, *filter.CreatorID)
		argID++
	}
	if filter.Active != nil {
		query += fmt.Sprintf(" AND active = $%d", argID)
		args = append(args, *filter.Active)
		argID++
	}
	if filter.RewardAsset != nil {
		query += fmt.Sprintf(" AND reward_asset = $%d", argID)
		args = append(args, *filter.RewardAsset)
		argID++
	}

	query += " ORDER BY start_time DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.CreatorID, &t.Name, &t.Description, &t.Game, &t.RewardAsset, &t.TotalReward,
			&t.EntryFeeAsset, &t.EntryFeeAmount, &t.FeesDistributed, &t.MaxParticipants,
			&t.RegistrationEnd, &t.StartTime, &t.Active, &t.ParticipantCount, &t.BannerKey, &t.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) GetPosition(ctx context.Context, exec SQLExecutor, tournamentID, position int) (*models.Position, error) {
	executor := r.getExecutor(exec)
	p := &models.Position{}
	err := executor.QueryRowContext(ctx,
		`SELECT tournament_id, position, amount, winner_id, claimed
		 FROM positions WHERE tournament_id = $1 AND position = $2`,
		tournamentID, position,
	).Scan(&p.TournamentID, &p.Position, &p.Amount, &p.WinnerID, &p.Claimed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresTournamentRepository) SetWinner(ctx context.Context, exec SQLExecutor, tournamentID, position, winnerID int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE positions SET winner_id = $1
		 WHERE tournament_id = $2 AND position = $3 AND claimed = FALSE`,
		winnerID, tournamentID, position,
	)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrPositionClaimed)
}

func (r *postgresTournamentRepository) MarkClaimed(ctx context.Context, exec SQLExecutor, tournamentID, position int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE positions SET claimed = TRUE
		 WHERE tournament_id = $1 AND position = $2 AND claimed = FALSE`,
		tournamentID, position,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPositionClaimed)
}

func (r *postgresTournamentRepository) SetInactive(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET active = FALSE WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotActive)
}

func (r *postgresTournamentRepository) MarkFeesDistributed(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET fees_distributed = TRUE
		 WHERE id = $1 AND fees_distributed = FALSE`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFeesAlreadyReleased)
}

func (r *postgresTournamentRepository) IncrementParticipantCount(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET participant_count = participant_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournaments SET banner_key = $1 WHERE id = $2`, bannerKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		return ErrTournamentInvalidRef
	}
	return err
}
