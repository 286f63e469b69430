package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/engram-api/internal/config"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/events"
	"github.com/recallhq/engram-api/internal/store"
)

// In-memory store fakes. WithTx returns the receiver so transactional code
// paths exercise the same backing maps; the fake tx runner passes a nil tx.

type fakeTxRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn store.TxFn) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return fn(ctx, nil)
}

type fakeLearnerStore struct {
	mu       sync.Mutex
	learners map[uuid.UUID]*domain.Learner
}

func newFakeLearnerStore() *fakeLearnerStore {
	return &fakeLearnerStore{learners: make(map[uuid.UUID]*domain.Learner)}
}

func (s *fakeLearnerStore) Create(ctx context.Context, learner *domain.Learner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learners[learner.ID] = learner
	return nil
}

func (s *fakeLearnerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Learner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	learner, ok := s.learners[id]
	if !ok {
		return nil, store.ErrLearnerNotFound
	}
	copied := *learner
	return &copied, nil
}

func (s *fakeLearnerStore) GetByEmail(ctx context.Context, email string) (*domain.Learner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, learner := range s.learners {
		if learner.Email == email {
			copied := *learner
			return &copied, nil
		}
	}
	return nil, store.ErrLearnerNotFound
}

func (s *fakeLearnerStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LearnerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	learner, ok := s.learners[id]
	if !ok {
		return store.ErrLearnerNotFound
	}
	learner.Status = status
	return nil
}

func (s *fakeLearnerStore) WithTx(tx *sql.Tx) store.LearnerStore { return s }

type fakeCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*domain.Card
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[uuid.UUID]*domain.Card)}
}

func (s *fakeCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, card := range cards {
		s.cards[card.ID] = card
	}
	return nil
}

func (s *fakeCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

func (s *fakeCardStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.Card, 0, len(ids))
	for _, id := range ids {
		if card, ok := s.cards[id]; ok {
			copied := *card
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakeCardStore) ListAssigned(ctx context.Context, learnerID uuid.UUID) ([]*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.Card, 0)
	for _, card := range s.cards {
		if card.LearnerID == learnerID {
			copied := *card
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (s *fakeCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return store.ErrCardNotFound
	}
	delete(s.cards, id)
	return nil
}

func (s *fakeCardStore) WithTx(tx *sql.Tx) store.CardStore { return s }

func (s *fakeCardStore) position(cardID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card, ok := s.cards[cardID]; ok {
		return card.Position
	}
	return 0
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[uuid.UUID]*domain.CardMemoryState // keyed by card ID
	cards  *fakeCardStore

	// getForUpdateErrs is consumed one per GetForUpdate call before normal
	// behavior resumes; used to simulate transient lock contention.
	getForUpdateErrs  []error
	getForUpdateCalls int
}

func newFakeStateStore(cards *fakeCardStore) *fakeStateStore {
	return &fakeStateStore{
		states: make(map[uuid.UUID]*domain.CardMemoryState),
		cards:  cards,
	}
}

func (s *fakeStateStore) put(state *domain.CardMemoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.states[state.CardID] = &copied
}

func (s *fakeStateStore) get(cardID uuid.UUID) *domain.CardMemoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[cardID]
	if !ok {
		return nil
	}
	copied := *state
	return &copied
}

func (s *fakeStateStore) Create(ctx context.Context, state *domain.CardMemoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[state.CardID]; ok {
		return store.ErrStateExists
	}
	copied := *state
	s.states[state.CardID] = &copied
	return nil
}

func (s *fakeStateStore) Get(ctx context.Context, learnerID, cardID uuid.UUID) (*domain.CardMemoryState, error) {
	state := s.get(cardID)
	if state == nil || state.LearnerID != learnerID {
		return nil, store.ErrMemoryStateNotFound
	}
	return state, nil
}

func (s *fakeStateStore) GetForUpdate(ctx context.Context, learnerID, cardID uuid.UUID) (*domain.CardMemoryState, error) {
	s.mu.Lock()
	s.getForUpdateCalls++
	if len(s.getForUpdateErrs) > 0 {
		err := s.getForUpdateErrs[0]
		s.getForUpdateErrs = s.getForUpdateErrs[1:]
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	return s.Get(ctx, learnerID, cardID)
}

func (s *fakeStateStore) Update(ctx context.Context, state *domain.CardMemoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[state.CardID]; !ok {
		return store.ErrMemoryStateNotFound
	}
	copied := *state
	s.states[state.CardID] = &copied
	return nil
}

func (s *fakeStateStore) Delete(ctx context.Context, learnerID, cardID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[cardID]; !ok {
		return store.ErrMemoryStateNotFound
	}
	delete(s.states, cardID)
	return nil
}

func (s *fakeStateStore) FindDue(
	ctx context.Context,
	learnerID uuid.UUID,
	dueBefore time.Time,
	limit int,
	exclude []uuid.UUID,
) ([]*domain.CardMemoryState, error) {
	if limit <= 0 {
		return []*domain.CardMemoryState{}, nil
	}

	excluded := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	s.mu.Lock()
	result := make([]*domain.CardMemoryState, 0)
	for _, state := range s.states {
		if state.LearnerID != learnerID || state.IsNew() || excluded[state.CardID] {
			continue
		}
		if state.DueAt.After(dueBefore) {
			continue
		}
		copied := *state
		result = append(result, &copied)
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].DueAt.Before(result[j].DueAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *fakeStateStore) FindNew(ctx context.Context, learnerID uuid.UUID, limit int) ([]*domain.CardMemoryState, error) {
	if limit <= 0 {
		return []*domain.CardMemoryState{}, nil
	}

	s.mu.Lock()
	result := make([]*domain.CardMemoryState, 0)
	for _, state := range s.states {
		if state.LearnerID != learnerID || !state.IsNew() {
			continue
		}
		copied := *state
		result = append(result, &copied)
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		return s.cards.position(result[i].CardID) < s.cards.position(result[j].CardID)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *fakeStateStore) FindByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.CardMemoryState, error) {
	s.mu.Lock()
	result := make([]*domain.CardMemoryState, 0)
	for _, state := range s.states {
		if state.LearnerID == learnerID {
			copied := *state
			result = append(result, &copied)
		}
	}
	s.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CardID.String() < result[j].CardID.String()
	})
	return result, nil
}

func (s *fakeStateStore) ReplaceForLearner(
	ctx context.Context,
	learnerID uuid.UUID,
	states []*domain.CardMemoryState,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cardID, state := range s.states {
		if state.LearnerID == learnerID {
			delete(s.states, cardID)
		}
	}
	for _, state := range states {
		copied := *state
		s.states[state.CardID] = &copied
	}
	return nil
}

func (s *fakeStateStore) WithTx(tx *sql.Tx) store.MemoryStateStore { return s }

type fakeEventStore struct {
	mu     sync.Mutex
	events []*domain.ReviewEvent
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{}
}

func (s *fakeEventStore) Append(ctx context.Context, event *domain.ReviewEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events = append(s.events, &copied)
	return nil
}

func (s *fakeEventStore) ListForCard(ctx context.Context, learnerID, cardID uuid.UUID) ([]*domain.ReviewEvent, error) {
	s.mu.Lock()
	result := make([]*domain.ReviewEvent, 0)
	for _, event := range s.events {
		if event.LearnerID == learnerID && event.CardID == cardID {
			copied := *event
			result = append(result, &copied)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(result, func(i, j int) bool { return result[i].OccurredAt.Before(result[j].OccurredAt) })
	return result, nil
}

func (s *fakeEventStore) ListForLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.ReviewEvent, error) {
	s.mu.Lock()
	result := make([]*domain.ReviewEvent, 0)
	for _, event := range s.events {
		if event.LearnerID == learnerID {
			copied := *event
			result = append(result, &copied)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(result, func(i, j int) bool { return result[i].OccurredAt.Before(result[j].OccurredAt) })
	return result, nil
}

func (s *fakeEventStore) CountForLearner(ctx context.Context, learnerID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, event := range s.events {
		if event.LearnerID == learnerID {
			count++
		}
	}
	return count, nil
}

func (s *fakeEventStore) WithTx(tx *sql.Tx) store.ReviewEventStore { return s }

type fakeParamsStore struct {
	mu     sync.Mutex
	active *domain.ModelParameters
	saves  int
}

func newFakeParamsStore() *fakeParamsStore {
	return &fakeParamsStore{}
}

func (s *fakeParamsStore) GetActive(ctx context.Context, learnerID uuid.UUID) (*domain.ModelParameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.LearnerID != learnerID {
		return nil, store.ErrParametersNotFound
	}
	copied := *s.active
	return &copied, nil
}

func (s *fakeParamsStore) SaveAndActivate(ctx context.Context, params *domain.ModelParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *params
	s.active = &copied
	s.saves++
	return nil
}

func (s *fakeParamsStore) WithTx(tx *sql.Tx) store.ModelParametersStore { return s }

// fakeLocker grants the shared lock unless sharedDenied is set, and records
// exclusive acquisitions.
type fakeLocker struct {
	mu             sync.Mutex
	sharedDenied   bool
	sharedErr      error
	exclusiveErr   error
	sharedCalls    int
	exclusiveCalls int
}

func (l *fakeLocker) AcquireExclusive(ctx context.Context, tx store.DBTX, learnerID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exclusiveCalls++
	return l.exclusiveErr
}

func (l *fakeLocker) TryAcquireShared(ctx context.Context, tx store.DBTX, learnerID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sharedCalls++
	if l.sharedErr != nil {
		return false, l.sharedErr
	}
	return !l.sharedDenied, nil
}

// captureEmitter records emitted events and optionally fails.
type captureEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (e *captureEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *captureEmitter) emitted() []*events.TaskRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.TaskRequestEvent{}, e.events...)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		DesiredRetention:                 0.9,
		NewCount:                         10,
		MaxDue:                           50,
		MinDue:                           10,
		MaxReviewRetries:                 2,
		MinReviewsForOptimization:        400,
		CandidateRetrievabilityThreshold: 0.9,
		CandidateConfidentDueDays:        7,
		CandidateCap:                     20,
	}
}

// fixture wires a scheduler service over in-memory fakes with a pinned clock
// and a no-op shuffle for deterministic candidate sampling.
type fixture struct {
	t         *testing.T
	svc       Service
	learnerID uuid.UUID
	clock     *fakeClock
	txRunner  *fakeTxRunner
	learners  *fakeLearnerStore
	cards     *fakeCardStore
	states    *fakeStateStore
	events    *fakeEventStore
	params    *fakeParamsStore
	locker    *fakeLocker
	emitter   *captureEmitter
}

func newFixture(t *testing.T, mutateCfg ...func(*config.SchedulerConfig)) *fixture {
	t.Helper()

	cfg := testSchedulerConfig()
	for _, mutate := range mutateCfg {
		mutate(&cfg)
	}

	cards := newFakeCardStore()
	f := &fixture{
		t:         t,
		learnerID: uuid.New(),
		clock:     &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		txRunner:  &fakeTxRunner{},
		learners:  newFakeLearnerStore(),
		cards:     cards,
		states:    newFakeStateStore(cards),
		events:    newFakeEventStore(),
		params:    newFakeParamsStore(),
		locker:    &fakeLocker{},
		emitter:   &captureEmitter{},
	}

	f.learners.learners[f.learnerID] = &domain.Learner{
		ID:             f.learnerID,
		Email:          "learner@example.com",
		HashedPassword: "not-a-real-hash",
		Status:         domain.LearnerStatusActive,
		CreatedAt:      f.clock.Now(),
		UpdatedAt:      f.clock.Now(),
	}

	svc, err := NewService(
		f.txRunner,
		f.learners,
		f.cards,
		f.events,
		f.states,
		f.params,
		f.locker,
		cfg,
		discardLogger(),
		WithClock(f.clock.Now),
		WithShuffle(func(n int, swap func(i, j int)) {}),
		WithEventEmitter(f.emitter),
	)
	require.NoError(t, err)

	f.svc = svc
	return f
}

// addCard creates an assigned card at the given introduction position.
func (f *fixture) addCard(position int) *domain.Card {
	f.t.Helper()
	card, err := domain.NewCard(f.learnerID, json.RawMessage(`{"front":"q","back":"a"}`), position)
	require.NoError(f.t, err)
	require.NoError(f.t, f.cards.CreateMultiple(context.Background(), []*domain.Card{card}))
	return card
}

// addNewState adds the baseline new-stage cache row for the card.
func (f *fixture) addNewState(card *domain.Card) *domain.CardMemoryState {
	f.t.Helper()
	state, err := domain.NewCardMemoryState(f.learnerID, card.ID)
	require.NoError(f.t, err)
	state.DueAt = f.clock.Now()
	f.states.put(state)
	return state
}

// addReviewedState adds a review-stage cache row with the given memory state.
func (f *fixture) addReviewedState(
	card *domain.Card,
	stability, difficulty float64,
	dueAt, lastReviewedAt time.Time,
) *domain.CardMemoryState {
	f.t.Helper()
	state := &domain.CardMemoryState{
		LearnerID:      f.learnerID,
		CardID:         card.ID,
		Stability:      stability,
		Difficulty:     difficulty,
		DueAt:          dueAt,
		LastReviewedAt: lastReviewedAt,
		RepCount:       1,
		Stage:          domain.StageReview,
		CreatedAt:      lastReviewedAt,
		UpdatedAt:      lastReviewedAt,
	}
	f.states.put(state)
	return state
}
