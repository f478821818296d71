package models

import "time"

// Participant records one account's registration in a tournament.
// FeePaid is the entry fee collected at registration time; it is zeroed
// when refunded so a second refund has nothing to return.
type Participant struct {
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	FeePaid      int64     `json:"fee_paid" db:"fee_paid"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
