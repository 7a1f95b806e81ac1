package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/database"
	"propeller/offchain/internal/models"
)

// Store holds interaction states in memory, most recent first, and mirrors
// every accepted change to Postgres. Readers always see a fully updated
// state or the previous one, never a partial mutation: updates run on a
// private clone and swap in only after validation and persistence succeed.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger
	db     *database.DB // nil in tests: in-memory only
	env    *config.Environment

	order  []string // interaction ids, most recent first
	states map[string]*models.InteractionState
	errors map[string]string
}

func NewStore(logger *zap.Logger, db *database.DB, env *config.Environment) *Store {
	return &Store{
		logger: logger.Named("store"),
		db:     db,
		env:    env,
		states: make(map[string]*models.InteractionState),
		errors: make(map[string]string),
	}
}

// Load replaces the in-memory contents with what the database holds.
// Undecodable records are skipped with a warning rather than failing the
// whole load; a single stale token id must not take the service down.
func (s *Store) Load(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	rows, err := s.db.ListInteractionStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load interaction states: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.states = make(map[string]*models.InteractionState, len(rows))
	s.errors = make(map[string]string)

	for _, row := range rows {
		state, err := Deserialize(s.env, row.Payload)
		if err != nil {
			s.logger.Warn("skipping undecodable interaction state",
				zap.String("interaction_id", row.InteractionID),
				zap.Int("version", row.Version),
				zap.Error(err))
			continue
		}
		s.order = append(s.order, state.ID())
		s.states[state.ID()] = state
	}

	s.logger.Info("loaded interaction states",
		zap.Int("loaded", len(s.order)),
		zap.Int("total", len(rows)))
	return nil
}

// AddInteractionState registers a new state at the head of the recency order.
func (s *Store) AddInteractionState(ctx context.Context, state *models.InteractionState) error {
	if err := state.Interaction.Validate(); err != nil {
		return err
	}

	clone := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := clone.ID()
	if _, exists := s.states[id]; exists {
		return fmt.Errorf("interaction %s already exists", id)
	}
	if err := s.persistLocked(ctx, clone); err != nil {
		return err
	}

	s.order = append([]string{id}, s.order...)
	s.states[id] = clone
	return nil
}

// GetInteractionState returns a deep copy of the state for the given id.
func (s *Store) GetInteractionState(id string) (*models.InteractionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "interaction", ID: id}
	}
	return state.Clone(), nil
}

// UpdateInteractionState applies mutate to a private clone of the stored
// state. The result is accepted only if no already-recorded transaction id
// was overwritten, then persisted, then swapped in. On any error the stored
// state is untouched.
func (s *Store) UpdateInteractionState(ctx context.Context, id string, mutate func(*models.InteractionState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[id]
	if !ok {
		return &models.NotFoundError{Kind: "interaction", ID: id}
	}

	draft := current.Clone()
	if err := mutate(draft); err != nil {
		return err
	}
	if draft.ID() != id {
		return fmt.Errorf("update must not change interaction id (%s -> %s)", id, draft.ID())
	}
	if err := validateTxIDTransition(current, draft); err != nil {
		return err
	}
	if err := s.persistLocked(ctx, draft); err != nil {
		return err
	}

	s.states[id] = draft
	return nil
}

// SetInteractionError records the latest failure for an interaction. The
// state itself is untouched so a retry can pick up exactly where it stopped.
func (s *Store) SetInteractionError(id string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.errors, id)
		return
	}
	s.errors[id] = message
}

func (s *Store) GetInteractionError(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.errors[id]
	return msg, ok
}

// RecentInteractions returns up to limit states, most recently added first.
// limit <= 0 means all.
func (s *Store) RecentInteractions(limit int) []*models.InteractionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.InteractionState, 0, n)
	for _, id := range s.order[:n] {
		out = append(out, s.states[id].Clone())
	}
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Reset drops all states, in memory and in the database.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.DeleteAllInteractionStates(ctx); err != nil {
			return fmt.Errorf("failed to reset interaction states: %w", err)
		}
	}
	s.order = nil
	s.states = make(map[string]*models.InteractionState)
	s.errors = make(map[string]string)
	return nil
}

func (s *Store) persistLocked(ctx context.Context, state *models.InteractionState) error {
	if s.db == nil {
		return nil
	}
	payload, err := Serialize(state)
	if err != nil {
		return fmt.Errorf("failed to serialize interaction %s: %w", state.ID(), err)
	}
	row := &database.InteractionStateRow{
		InteractionID: state.ID(),
		Version:       models.StateVersion,
		Env:           string(state.Interaction.Env),
		SubmittedAt:   state.Interaction.SubmittedAt,
		Payload:       payload,
	}
	if err := s.db.UpsertInteractionState(ctx, row); err != nil {
		return fmt.Errorf("failed to persist interaction %s: %w", state.ID(), err)
	}
	return nil
}

// validateTxIDTransition enforces that recorded transaction ids only
// accumulate. A set scalar id may not change, and an id list may only grow
// by appending; re-applying an identical value is a no-op and allowed.
func validateTxIDTransition(prev, next *models.InteractionState) error {
	for key, prevAcct := range prev.RequiredSplTokenAccounts {
		nextAcct, ok := next.RequiredSplTokenAccounts[key]
		if !ok {
			return fmt.Errorf("token account entry %s removed", key)
		}
		if err := checkScalar("token account "+key, prevAcct.TxID, nextAcct.TxID); err != nil {
			return err
		}
	}

	if len(next.ToSolanaTransfers) != len(prev.ToSolanaTransfers) {
		return fmt.Errorf("transfer list length changed")
	}
	for i, prevT := range prev.ToSolanaTransfers {
		nextT := next.ToSolanaTransfers[i]
		label := fmt.Sprintf("inbound transfer %d", i)
		if err := checkList(label+" bridge txs", prevT.TxIDs.ApproveAndTransferEVMToken, nextT.TxIDs.ApproveAndTransferEVMToken); err != nil {
			return err
		}
		if err := checkList(label+" vaa txs", prevT.TxIDs.PostVaaOnSolana, nextT.TxIDs.PostVaaOnSolana); err != nil {
			return err
		}
		if err := checkScalar(label+" claim tx", prevT.TxIDs.ClaimTokenOnSolana, nextT.TxIDs.ClaimTokenOnSolana); err != nil {
			return err
		}
	}

	if len(next.SolanaPoolOperations) != len(prev.SolanaPoolOperations) {
		return fmt.Errorf("pool operation list length changed")
	}
	for i, prevOp := range prev.SolanaPoolOperations {
		if err := checkScalar(fmt.Sprintf("pool operation %d tx", i), prevOp.TxID, next.SolanaPoolOperations[i].TxID); err != nil {
			return err
		}
	}

	if len(next.FromSolanaTransfers) != len(prev.FromSolanaTransfers) {
		return fmt.Errorf("transfer list length changed")
	}
	for i, prevT := range prev.FromSolanaTransfers {
		nextT := next.FromSolanaTransfers[i]
		label := fmt.Sprintf("outbound transfer %d", i)
		if err := checkScalar(label+" transfer tx", prevT.TxIDs.TransferSplToken, nextT.TxIDs.TransferSplToken); err != nil {
			return err
		}
		if err := checkScalar(label+" claim tx", prevT.TxIDs.ClaimTokenOnEVM, nextT.TxIDs.ClaimTokenOnEVM); err != nil {
			return err
		}
	}

	return nil
}

func checkScalar(label string, prev, next *string) error {
	if prev == nil {
		return nil
	}
	if next == nil {
		return fmt.Errorf("%s: recorded tx id cleared", label)
	}
	if *next != *prev {
		return fmt.Errorf("%s: recorded tx id changed from %s to %s", label, *prev, *next)
	}
	return nil
}

func checkList(label string, prev, next []string) error {
	if len(next) < len(prev) {
		return fmt.Errorf("%s: recorded tx ids truncated", label)
	}
	for i, id := range prev {
		if next[i] != id {
			return fmt.Errorf("%s: recorded tx id %d changed from %s to %s", label, i, id, next[i])
		}
	}
	return nil
}
