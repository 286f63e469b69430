package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// AssembleQueue implements Service.AssembleQueue.
//
// Due items come first by due-at ascending; new items are spaced evenly
// among them so unfamiliar material is not clustered at either end. An
// empty result signals the learner has nothing to practice right now.
func (s *schedulerService) AssembleQueue(
	ctx context.Context,
	learnerID uuid.UUID,
	cfg QueueConfig,
) ([]*QueueItem, error) {
	initial, err := s.GetInitialQueue(ctx, learnerID, cfg)
	if err != nil {
		return nil, err
	}

	return interleave(initial.DueItems, initial.NewItems), nil
}

// GetInitialQueue implements Service.GetInitialQueue.
//
// Selection:
//  1. up to maxDue non-new rows due now, ordered by due-at ascending;
//  2. if fewer than minDue, supplemented with rows due before end of day,
//     excluding those already selected;
//  3. up to newCount new rows in the cards' fixed introduction order —
//     never random, so learners meet new material in a stable sequence.
func (s *schedulerService) GetInitialQueue(
	ctx context.Context,
	learnerID uuid.UUID,
	cfg QueueConfig,
) (*InitialQueue, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	cfg = s.applyQueueDefaults(cfg)
	now := s.now()

	due, err := s.stateStore.FindDue(ctx, learnerID, now, cfg.MaxDue, nil)
	if err != nil {
		return nil, newServiceError("get_initial_queue", "failed to fetch due states", err)
	}

	if len(due) < cfg.MinDue {
		selected := make([]uuid.UUID, 0, len(due))
		for _, state := range due {
			selected = append(selected, state.CardID)
		}

		endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
		ahead, err := s.stateStore.FindDue(ctx, learnerID, endOfDay, cfg.MaxDue-len(due), selected)
		if err != nil {
			return nil, newServiceError("get_initial_queue", "failed to fetch same-day states", err)
		}
		due = append(due, ahead...)
	}

	fresh, err := s.stateStore.FindNew(ctx, learnerID, cfg.NewCount)
	if err != nil {
		return nil, newServiceError("get_initial_queue", "failed to fetch new states", err)
	}

	dueItems, err := s.joinCards(ctx, due, false)
	if err != nil {
		return nil, newServiceError("get_initial_queue", "failed to join due cards", err)
	}
	newItems, err := s.joinCards(ctx, fresh, true)
	if err != nil {
		return nil, newServiceError("get_initial_queue", "failed to join new cards", err)
	}

	log.Debug("initial queue assembled",
		slog.String("learner_id", learnerID.String()),
		slog.Int("due_count", len(dueItems)),
		slog.Int("new_count", len(newItems)))

	return &InitialQueue{DueItems: dueItems, NewItems: newItems}, nil
}

// GetDueCards implements Service.GetDueCards.
// Suspended or missing learners get an empty list: eligibility is checked
// upstream, this is only the final gate.
func (s *schedulerService) GetDueCards(
	ctx context.Context,
	learnerID uuid.UUID,
	limit int,
) ([]*QueueItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	learner, err := s.learnerStore.GetByID(ctx, learnerID)
	if err != nil {
		if errors.Is(err, store.ErrLearnerNotFound) {
			return []*QueueItem{}, nil
		}
		return nil, newServiceError("get_due_cards", "failed to load learner", err)
	}
	if !learner.IsActive() {
		log.Debug("due cards requested for inactive learner",
			slog.String("learner_id", learnerID.String()))
		return []*QueueItem{}, nil
	}

	if limit <= 0 {
		limit = s.cfg.MaxDue
	}

	due, err := s.stateStore.FindDue(ctx, learnerID, s.now(), limit, nil)
	if err != nil {
		return nil, newServiceError("get_due_cards", "failed to fetch due states", err)
	}

	items, err := s.joinCards(ctx, due, false)
	if err != nil {
		return nil, newServiceError("get_due_cards", "failed to join cards", err)
	}
	return items, nil
}

// applyQueueDefaults fills zero config fields from the service defaults.
func (s *schedulerService) applyQueueDefaults(cfg QueueConfig) QueueConfig {
	if cfg.NewCount <= 0 {
		cfg.NewCount = s.cfg.NewCount
	}
	if cfg.MaxDue <= 0 {
		cfg.MaxDue = s.cfg.MaxDue
	}
	if cfg.MinDue <= 0 {
		cfg.MinDue = s.cfg.MinDue
	}
	return cfg
}

// joinCards resolves card content for the given states, preserving state
// order. States whose card has vanished are dropped rather than failing
// the whole queue.
func (s *schedulerService) joinCards(
	ctx context.Context,
	states []*domain.CardMemoryState,
	isNew bool,
) ([]*QueueItem, error) {
	if len(states) == 0 {
		return []*QueueItem{}, nil
	}

	ids := make([]uuid.UUID, 0, len(states))
	for _, state := range states {
		ids = append(ids, state.CardID)
	}

	cards, err := s.cardStore.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	byID := make(map[uuid.UUID]*domain.Card, len(cards))
	for _, card := range cards {
		byID[card.ID] = card
	}

	items := make([]*QueueItem, 0, len(states))
	for _, state := range states {
		card, ok := byID[state.CardID]
		if !ok {
			continue
		}
		items = append(items, &QueueItem{Card: card, State: state, IsNew: isNew})
	}
	return items, nil
}

// interleave spaces new items evenly among due items. With d due and n new
// items the spacing is ⌊d/(n+1)⌋ due items before each new one; when the
// spacing rounds to zero and new items do not outnumber due ones, a spacing
// of one keeps new items from clustering.
func interleave(due, fresh []*QueueItem) []*QueueItem {
	if len(fresh) == 0 {
		return append([]*QueueItem{}, due...)
	}
	if len(due) == 0 {
		return append([]*QueueItem{}, fresh...)
	}

	spacing := len(due) / (len(fresh) + 1)
	if spacing == 0 && len(fresh) <= len(due) {
		spacing = 1
	}

	queue := make([]*QueueItem, 0, len(due)+len(fresh))
	dueIdx := 0
	for _, item := range fresh {
		for i := 0; i < spacing && dueIdx < len(due); i++ {
			queue = append(queue, due[dueIdx])
			dueIdx++
		}
		queue = append(queue, item)
	}
	queue = append(queue, due[dueIdx:]...)

	return queue
}
