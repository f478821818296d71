package models

import "time"

// MaxPositions bounds the reward ladder: 1st through 10th place.
const MaxPositions = 10

// Tournament is the custody record for a single competition. The reward pool
// is escrowed in full before the record exists; entry fees, if any, accumulate
// per participant and are released through exactly one of distribution or
// per-participant refund.
type Tournament struct {
	ID              int       `json:"id" db:"id"`
	CreatorID       int       `json:"creator_id" db:"creator_id"`
	Name            string    `json:"name" db:"name"`
	Description     *string   `json:"description,omitempty" db:"description"`
	Game            *string   `json:"game,omitempty" db:"game"`
	RewardAsset     Asset     `json:"reward_asset" db:"reward_asset"`
	TotalReward     int64     `json:"total_reward" db:"total_reward"`
	EntryFeeAsset   *Asset    `json:"entry_fee_asset,omitempty" db:"entry_fee_asset"`
	EntryFeeAmount  int64     `json:"entry_fee_amount" db:"entry_fee_amount"`
	FeesDistributed bool      `json:"fees_distributed" db:"fees_distributed"`
	MaxParticipants int       `json:"max_participants" db:"max_participants"` // 0 = unlimited
	RegistrationEnd time.Time `json:"registration_end" db:"registration_end"`
	StartTime       time.Time `json:"start_time" db:"start_time"`
	Active          bool      `json:"active" db:"active"`
	ParticipantCount int      `json:"participant_count" db:"participant_count"`
	BannerKey       *string   `json:"-" db:"banner_key"`
	BannerURL       *string   `json:"banner_url,omitempty" db:"-"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	// Positions is the per-rank reward ladder, ordered by position.
	Positions []Position `json:"positions,omitempty" db:"-"`
}

// HasEntryFee reports whether registration requires paying a fee.
func (t *Tournament) HasEntryFee() bool {
	return t.EntryFeeAsset != nil && t.EntryFeeAmount > 0
}

// RegistrationOpen reports whether now falls inside the registration window.
func (t *Tournament) RegistrationOpen(now time.Time) bool {
	return now.Before(t.RegistrationEnd)
}

// Started reports whether the competition has begun.
func (t *Tournament) Started(now time.Time) bool {
	return !now.Before(t.StartTime)
}

// Position is one ranked finishing slot with its escrowed reward amount.
// WinnerID is nil until a winner is declared; Claimed is terminal.
type Position struct {
	TournamentID int   `json:"tournament_id" db:"tournament_id"`
	Position     int   `json:"position" db:"position"`
	Amount       int64 `json:"amount" db:"amount"`
	WinnerID     *int  `json:"winner_id,omitempty" db:"winner_id"`
	Claimed      bool  `json:"claimed" db:"claimed"`
}

// UnclaimedReward sums the amounts of every position that has not been
// claimed, declared or not. This is what cancellation returns to the creator.
func (t *Tournament) UnclaimedReward() int64 {
	var sum int64
	for _, p := range t.Positions {
		if !p.Claimed {
			sum += p.Amount
		}
	}
	return sum
}
