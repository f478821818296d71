package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names a custody state transition. One notification is emitted per
// transition on every success path.
type Type string

const (
	TypeTournamentCreated     Type = "tournament.created"
	TypeParticipantRegistered Type = "participant.registered"
	TypeWinnerDeclared        Type = "winner.declared"
	TypeRewardClaimed         Type = "reward.claimed"
	TypeTournamentCancelled   Type = "tournament.cancelled"
	TypeFeesDistributed       Type = "fees.distributed"
	TypeFeeRefunded           Type = "fee.refunded"
)

type Notification struct {
	ID           string      `json:"id"`
	Type         Type        `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

func NewNotification(t Type, tournamentID int, payload interface{}) Notification {
	return Notification{
		ID:           uuid.NewString(),
		Type:         t,
		TournamentID: tournamentID,
		Payload:      payload,
		OccurredAt:   time.Now().UTC(),
	}
}

// Notifier is how the engine announces state transitions to external
// collaborators (UI, off-chain indexers).
type Notifier interface {
	Notify(n Notification)
}

// NoopNotifier discards notifications.
type NoopNotifier struct{}

func (NoopNotifier) Notify(Notification) {}
