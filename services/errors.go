package services

import "errors"

// Sentinel errors grouped by the failure taxonomy: validation errors reject
// before any custody movement, authorization errors before mutation,
// lifecycle errors on wrong-state transitions, custody errors abort the
// whole operation. Handlers map each group to a stable HTTP status.
var (
	// Validation
	ErrTournamentNameRequired     = errors.New("tournament name is required")
	ErrInvalidPositionCount       = errors.New("tournament must have between 1 and 10 reward positions")
	ErrInvalidPositionAmount      = errors.New("every position reward amount must be positive")
	ErrInvalidRewardAsset         = errors.New("reward asset is required")
	ErrInvalidEntryFee            = errors.New("entry fee asset and positive amount are required")
	ErrInvalidCapacity            = errors.New("max participants must not be negative")
	ErrRegistrationEndInPast      = errors.New("registration end must be in the future")
	ErrStartBeforeRegistrationEnd = errors.New("start time must be after registration end")
	ErrRegistrationPeriodTooShort = errors.New("period between registration end and start is too short")
	ErrInvalidWinner              = errors.New("winner must be a valid account")
	ErrBatchLengthMismatch        = errors.New("positions and winners must have the same non-zero length")
	ErrInvalidAmount              = errors.New("amount must be positive")
	ErrPasswordTooShort           = errors.New("password is too short")

	// Authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrNotCreator             = errors.New("only the tournament creator can perform this action")
	ErrNotWinner              = errors.New("caller is not the declared winner for this position")

	// Lifecycle
	ErrTournamentNotActive    = errors.New("tournament is not active")
	ErrTournamentStillActive  = errors.New("tournament has not been cancelled")
	ErrRegistrationClosed     = errors.New("tournament registration is closed")
	ErrRegistrationStillOpen  = errors.New("tournament registration is still open")
	ErrTournamentFull         = errors.New("tournament registration is full")
	ErrAlreadyRegistered      = errors.New("caller is already registered for this tournament")
	ErrEntryFeeRequired       = errors.New("tournament requires an entry fee to register")
	ErrNoEntryFee             = errors.New("tournament does not collect entry fees")
	ErrNotStarted             = errors.New("tournament has not started yet")
	ErrAlreadyClaimed         = errors.New("reward position already claimed")
	ErrNoWinnerDeclared       = errors.New("no winner declared for this position")
	ErrFeesAlreadyDistributed = errors.New("entry fees already released")
	ErrNothingToRefund        = errors.New("no refundable entry fee recorded for caller")
	ErrWinnerNotParticipant   = errors.New("winner must be a registered participant")

	// Custody
	ErrInsufficientFunds     = errors.New("insufficient balance to fund the operation")
	ErrInsufficientAllowance = errors.New("insufficient allowance granted to the engine")
	ErrIncorrectValue        = errors.New("carried value does not match the required amount")

	// Not found
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrPositionNotFound   = errors.New("reward position not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotRegistered      = errors.New("caller is not registered for this tournament")

	// Conflicts
	ErrAuthEmailTaken = errors.New("email is already taken")
)
