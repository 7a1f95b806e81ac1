package worker

import (
	"context"

	"go.uber.org/zap"

	"propeller/offchain/internal/store"
)

// Runner sequences the executor's steps for one interaction at a time per
// id. The latest failure is recorded on the store and cleared once a full
// pass succeeds; the step state itself is never rolled back, so a retry
// resumes from the first unfinished transaction.
type Runner struct {
	logger   *zap.Logger
	store    *store.Store
	executor *Executor
	locks    *idLocks
}

func NewRunner(logger *zap.Logger, st *store.Store, executor *Executor) *Runner {
	return &Runner{
		logger:   logger.Named("worker"),
		store:    st,
		executor: executor,
		locks:    newIDLocks(),
	}
}

// ResumeInteraction drives the interaction through all remaining steps.
func (r *Runner) ResumeInteraction(ctx context.Context, id string) error {
	release := r.locks.Acquire(id)
	defer release()

	steps := []struct {
		name string
		run  func(context.Context, string) error
	}{
		{"prepare_token_accounts", r.executor.PrepareTokenAccounts},
		{"bridge_to_solana", r.executor.BridgeToSolana},
		{"execute_pool_operations", r.executor.ExecutePoolOperations},
		{"bridge_from_solana", r.executor.BridgeFromSolana},
	}

	for _, step := range steps {
		if err := step.run(ctx, id); err != nil {
			r.logger.Error("interaction step failed",
				zap.String("interaction_id", id),
				zap.String("step", step.name),
				zap.Error(err))
			r.store.SetInteractionError(id, err.Error())
			return err
		}
	}

	r.store.SetInteractionError(id, "")
	r.logger.Info("interaction completed", zap.String("interaction_id", id))
	return nil
}
