package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrParticipantConflict = errors.New("participant is already registered for this tournament")
)

type ParticipantRepository interface {
	Add(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	Get(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error)
	// ZeroFeePaid clears a participant's recorded entry-fee payment; fails if
	// it is already zero, which makes a second refund impossible.
	ZeroFeePaid(ctx context.Context, exec SQLExecutor, tournamentID, userID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Add(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	err := executor.QueryRowContext(ctx,
		`INSERT INTO participants (tournament_id, user_id, fee_paid)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		p.TournamentID, p.UserID, p.FeePaid,
	).Scan(&p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrParticipantConflict
		}
		return err
	}
	return nil
}

func (r *postgresParticipantRepository) Get(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.Participant, error) {
	executor := r.getExecutor(exec)
	p := &models.Participant{}
	err := executor.QueryRowContext(ctx,
		`SELECT tournament_id, user_id, fee_paid, created_at
		 FROM participants WHERE tournament_id = $1 AND user_id = $2`,
		tournamentID, userID,
	).Scan(&p.TournamentID, &p.UserID, &p.FeePaid, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tournament_id, user_id, fee_paid, created_at
		 FROM participants WHERE tournament_id = $1 ORDER BY created_at`,
		tournamentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := rows.Scan(&p.TournamentID, &p.UserID, &p.FeePaid, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *postgresParticipantRepository) ZeroFeePaid(ctx context.Context, exec SQLExecutor, tournamentID, userID int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE participants SET fee_paid = 0
		 WHERE tournament_id = $1 AND user_id = $2 AND fee_paid > 0`,
		tournamentID, userID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
