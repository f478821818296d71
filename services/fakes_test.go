package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Baku-1/kingdom-tournament-sub000/events"
	"github.com/Baku-1/kingdom-tournament-sub000/guard"
	"github.com/Baku-1/kingdom-tournament-sub000/models"
	"github.com/Baku-1/kingdom-tournament-sub000/repositories"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. Its
// transactor snapshots the whole store before running the transaction body
// and restores the snapshot when the body fails, so tests observe the same
// all-or-nothing behavior a rolled-back SQL transaction gives.
type fakeStore struct {
	mu sync.Mutex

	nextTournamentID int
	tournaments      map[int]*models.Tournament
	participants     map[participantKey]*models.Participant

	balances   map[ledgerKey]int64
	allowances map[ledgerKey]int64
	custody    map[models.Asset]int64
}

type participantKey struct {
	tournamentID int
	userID       int
}

type ledgerKey struct {
	userID int
	asset  models.Asset
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextTournamentID: 1,
		tournaments:      make(map[int]*models.Tournament),
		participants:     make(map[participantKey]*models.Participant),
		balances:         make(map[ledgerKey]int64),
		allowances:       make(map[ledgerKey]int64),
		custody:          make(map[models.Asset]int64),
	}
}

func (s *fakeStore) snapshot() *fakeStore {
	copied := newFakeStore()
	copied.nextTournamentID = s.nextTournamentID
	for id, t := range s.tournaments {
		copied.tournaments[id] = copyTournament(t)
	}
	for k, p := range s.participants {
		dup := *p
		copied.participants[k] = &dup
	}
	for k, v := range s.balances {
		copied.balances[k] = v
	}
	for k, v := range s.allowances {
		copied.allowances[k] = v
	}
	for k, v := range s.custody {
		copied.custody[k] = v
	}
	return copied
}

func (s *fakeStore) restore(from *fakeStore) {
	s.nextTournamentID = from.nextTournamentID
	s.tournaments = from.tournaments
	s.participants = from.participants
	s.balances = from.balances
	s.allowances = from.allowances
	s.custody = from.custody
}

func copyTournament(t *models.Tournament) *models.Tournament {
	dup := *t
	dup.Positions = append([]models.Position(nil), t.Positions...)
	return &dup
}

// InTx implements repositories.Transactor.
func (s *fakeStore) InTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(before)
		return err
	}
	return nil
}

// fakeTournamentRepo implements repositories.TournamentRepository over the
// shared store.
type fakeTournamentRepo struct{ store *fakeStore }

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	t.ID = r.store.nextTournamentID
	r.store.nextTournamentID++
	t.Active = true
	t.CreatedAt = time.Now()
	for i := range t.Positions {
		t.Positions[i].TournamentID = t.ID
	}
	r.store.tournaments[t.ID] = copyTournament(t)
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return copyTournament(t), nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0)
	for _, t := range r.store.tournaments {
		if filter.CreatorID != nil && t.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.Active != nil && t.Active != *filter.Active {
			continue
		}
		if filter.RewardAsset != nil && t.RewardAsset != *filter.RewardAsset {
			continue
		}
		out = append(out, *copyTournament(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) GetPosition(_ context.Context, _ repositories.SQLExecutor, tournamentID, position int) (*models.Position, error) {
	t, ok := r.store.tournaments[tournamentID]
	if !ok {
		return nil, repositories.ErrPositionNotFound
	}
	if position < 0 || position >= len(t.Positions) {
		return nil, repositories.ErrPositionNotFound
	}
	p := t.Positions[position]
	return &p, nil
}

func (r *fakeTournamentRepo) SetWinner(_ context.Context, _ repositories.SQLExecutor, tournamentID, position, winnerID int) error {
	t, ok := r.store.tournaments[tournamentID]
	if !ok || position < 0 || position >= len(t.Positions) {
		return repositories.ErrPositionClaimed
	}
	if t.Positions[position].Claimed {
		return repositories.ErrPositionClaimed
	}
	t.Positions[position].WinnerID = &winnerID
	return nil
}

func (r *fakeTournamentRepo) MarkClaimed(_ context.Context, _ repositories.SQLExecutor, tournamentID, position int) error {
	t, ok := r.store.tournaments[tournamentID]
	if !ok || position < 0 || position >= len(t.Positions) {
		return repositories.ErrPositionClaimed
	}
	if t.Positions[position].Claimed {
		return repositories.ErrPositionClaimed
	}
	t.Positions[position].Claimed = true
	return nil
}

func (r *fakeTournamentRepo) SetInactive(_ context.Context, _ repositories.SQLExecutor, id int) error {
	t, ok := r.store.tournaments[id]
	if !ok || !t.Active {
		return repositories.ErrTournamentNotActive
	}
	t.Active = false
	return nil
}

func (r *fakeTournamentRepo) MarkFeesDistributed(_ context.Context, _ repositories.SQLExecutor, id int) error {
	t, ok := r.store.tournaments[id]
	if !ok || t.FeesDistributed {
		return repositories.ErrFeesAlreadyReleased
	}
	t.FeesDistributed = true
	return nil
}

func (r *fakeTournamentRepo) IncrementParticipantCount(_ context.Context, _ repositories.SQLExecutor, id int) error {
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.ParticipantCount++
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(_ context.Context, id int, bannerKey *string) error {
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

// fakeParticipantRepo implements repositories.ParticipantRepository.
type fakeParticipantRepo struct{ store *fakeStore }

func (r *fakeParticipantRepo) Add(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	key := participantKey{p.TournamentID, p.UserID}
	if _, exists := r.store.participants[key]; exists {
		return repositories.ErrParticipantConflict
	}
	p.CreatedAt = time.Now()
	dup := *p
	r.store.participants[key] = &dup
	return nil
}

func (r *fakeParticipantRepo) Get(_ context.Context, _ repositories.SQLExecutor, tournamentID, userID int) (*models.Participant, error) {
	p, ok := r.store.participants[participantKey{tournamentID, userID}]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	dup := *p
	return &dup, nil
}

func (r *fakeParticipantRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.Participant, error) {
	out := make([]models.Participant, 0)
	for key, p := range r.store.participants {
		if key.tournamentID == tournamentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *fakeParticipantRepo) ZeroFeePaid(_ context.Context, _ repositories.SQLExecutor, tournamentID, userID int) error {
	p, ok := r.store.participants[participantKey{tournamentID, userID}]
	if !ok || p.FeePaid <= 0 {
		return repositories.ErrParticipantNotFound
	}
	p.FeePaid = 0
	return nil
}

// fakeLedgerRepo implements repositories.LedgerRepository with the same
// guarded-debit semantics as the SQL version.
type fakeLedgerRepo struct{ store *fakeStore }

func (r *fakeLedgerRepo) GetBalance(_ context.Context, _ repositories.SQLExecutor, userID int, asset models.Asset) (int64, error) {
	return r.store.balances[ledgerKey{userID, asset}], nil
}

func (r *fakeLedgerRepo) AddBalance(_ context.Context, _ repositories.SQLExecutor, userID int, asset models.Asset, amount int64) error {
	r.store.balances[ledgerKey{userID, asset}] += amount
	return nil
}

func (r *fakeLedgerRepo) SpendBalance(_ context.Context, _ repositories.SQLExecutor, userID int, asset models.Asset, amount int64) error {
	key := ledgerKey{userID, asset}
	if r.store.balances[key] < amount {
		return repositories.ErrInsufficientFunds
	}
	r.store.balances[key] -= amount
	return nil
}

func (r *fakeLedgerRepo) Balances(_ context.Context, userID int) (map[models.Asset]int64, error) {
	out := make(map[models.Asset]int64)
	for key, amount := range r.store.balances {
		if key.userID == userID {
			out[key.asset] = amount
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) GetAllowance(_ context.Context, _ repositories.SQLExecutor, ownerID int, asset models.Asset) (int64, error) {
	return r.store.allowances[ledgerKey{ownerID, asset}], nil
}

func (r *fakeLedgerRepo) SetAllowance(_ context.Context, _ repositories.SQLExecutor, ownerID int, asset models.Asset, amount int64) error {
	r.store.allowances[ledgerKey{ownerID, asset}] = amount
	return nil
}

func (r *fakeLedgerRepo) ConsumeAllowance(_ context.Context, _ repositories.SQLExecutor, ownerID int, asset models.Asset, amount int64) error {
	key := ledgerKey{ownerID, asset}
	if r.store.allowances[key] < amount {
		return repositories.ErrInsufficientAllowance
	}
	r.store.allowances[key] -= amount
	return nil
}

func (r *fakeLedgerRepo) GetCustody(_ context.Context, _ repositories.SQLExecutor, asset models.Asset) (int64, error) {
	return r.store.custody[asset], nil
}

func (r *fakeLedgerRepo) AddCustody(_ context.Context, _ repositories.SQLExecutor, asset models.Asset, amount int64) error {
	r.store.custody[asset] += amount
	return nil
}

func (r *fakeLedgerRepo) SpendCustody(_ context.Context, _ repositories.SQLExecutor, asset models.Asset, amount int64) error {
	if r.store.custody[asset] < amount {
		return repositories.ErrCustodyShortfall
	}
	r.store.custody[asset] -= amount
	return nil
}

// fakeUserRepo implements repositories.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.Email]; exists {
		return repositories.ErrUserEmailConflict
	}
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = time.Now()
	dup := *u
	r.users[u.Email] = &dup
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			dup := *u
			return &dup, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	dup := *u
	return &dup, nil
}

func (r *fakeUserRepo) EnsurePlatformAccount(ctx context.Context, email, passwordHash string) (*models.User, error) {
	if u, err := r.GetByEmail(ctx, email); err == nil {
		return u, nil
	}
	u := &models.User{Email: email, PasswordHash: passwordHash, Role: models.RolePlatform}
	if err := r.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []events.Notification
}

func (n *recordingNotifier) Notify(notification events.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
}

func (n *recordingNotifier) byType(t events.Type) []events.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]events.Notification, 0)
	for _, notification := range n.notifications {
		if notification.Type == t {
			out = append(out, notification)
		}
	}
	return out
}

// testEnv wires every service over one shared fake store with a pinned clock.
type testEnv struct {
	store    *fakeStore
	notifier *recordingNotifier
	now      time.Time

	tournaments   *TournamentService
	registrations *RegistrationService
	rewards       *RewardService
	entryFees     *EntryFeeService
}

const (
	testPlatformUserID = 99
	testPlatformFeeBPS = 250
	testMinRegPeriod   = 15 * time.Minute
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	logger := discardLogger()
	locks := guard.NewKeyed()

	tournamentRepo := &fakeTournamentRepo{store: store}
	participantRepo := &fakeParticipantRepo{store: store}
	ledgerRepo := &fakeLedgerRepo{store: store}

	env := &testEnv{
		store:    store,
		notifier: notifier,
		now:      time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	env.tournaments = NewTournamentService(store, tournamentRepo, participantRepo, ledgerRepo, locks, notifier, nil, testMinRegPeriod, logger)
	env.tournaments.SetNowFunc(clock)
	env.registrations = NewRegistrationService(store, tournamentRepo, participantRepo, ledgerRepo, locks, notifier, logger)
	env.registrations.SetNowFunc(clock)
	env.rewards = NewRewardService(store, tournamentRepo, participantRepo, ledgerRepo, locks, notifier, logger)
	env.rewards.SetNowFunc(clock)
	env.entryFees = NewEntryFeeService(store, tournamentRepo, participantRepo, ledgerRepo, locks, notifier, testPlatformUserID, testPlatformFeeBPS, logger)
	env.entryFees.SetNowFunc(clock)

	return env
}

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func (e *testEnv) fund(userID int, asset models.Asset, amount int64) {
	e.store.balances[ledgerKey{userID, asset}] += amount
}

func (e *testEnv) approve(userID int, asset models.Asset, amount int64) {
	e.store.allowances[ledgerKey{userID, asset}] = amount
}

func (e *testEnv) balance(userID int, asset models.Asset) int64 {
	return e.store.balances[ledgerKey{userID, asset}]
}

func (e *testEnv) custody(asset models.Asset) int64 {
	return e.store.custody[asset]
}

// validCreateInput returns an input that passes validation against the
// env's pinned clock: registration open for an hour, start an hour later.
func (e *testEnv) validCreateInput(asset models.Asset, amounts ...int64) CreateTournamentInput {
	var total int64
	for _, a := range amounts {
		total += a
	}
	input := CreateTournamentInput{
		Name:            "Spring Cup",
		RewardAsset:     asset,
		PositionAmounts: amounts,
		RegistrationEnd: e.now.Add(time.Hour),
		StartTime:       e.now.Add(2 * time.Hour),
	}
	if asset.IsNative() {
		input.Value = total
	}
	return input
}
