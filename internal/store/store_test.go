package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/derive"
	"propeller/offchain/internal/models"
)

var (
	testSolanaWallet   = "7yuDvKyyUy5qSkhBPzsuBEFmEVCpJsDDbrv7M7vn6Rt1"
	testEthereumWallet = "0x7aC441b7954dEF62b27A2BD2d9F7Eb93BB7F37c8"
)

func newTestStore(t *testing.T) (*Store, *config.Environment) {
	t.Helper()
	env := config.EnvironmentFor(models.EnvMainnet)
	return NewStore(zap.NewNop(), nil, env), env
}

func newTestState(t *testing.T, env *config.Environment) *models.InteractionState {
	t.Helper()
	input, err := models.AmountFromHumanString("ethereum-usdc", "1001")
	require.NoError(t, err)
	minOut, err := models.AmountFromHumanString("solana-usdc", "995.624615")
	require.NoError(t, err)

	interaction := models.Interaction{
		ID:          models.NewInteractionID(),
		Kind:        models.InteractionSwap,
		Env:         models.EnvMainnet,
		SubmittedAt: models.NowMillis(),
		ConnectedWallets: map[models.Ecosystem]*string{
			models.EcosystemSolana:   &testSolanaWallet,
			models.EcosystemEthereum: &testEthereumWallet,
		},
		Swap: &models.SwapParams{
			ExactInputAmount:    input,
			MinimumOutputAmount: minOut,
		},
	}

	state, err := derive.NewInteractionState(env, interaction, map[string]bool{})
	require.NoError(t, err)
	return state
}

func TestStoreAddAndGet(t *testing.T) {
	st, env := newTestStore(t)
	state := newTestState(t, env)
	ctx := context.Background()

	require.NoError(t, st.AddInteractionState(ctx, state))

	got, err := st.GetInteractionState(state.ID())
	require.NoError(t, err)
	require.Equal(t, state.ID(), got.ID())

	// The returned state is a copy; mutating it must not leak into the
	// store.
	txID := "rogue"
	got.SolanaPoolOperations[0].TxID = &txID

	fresh, err := st.GetInteractionState(state.ID())
	require.NoError(t, err)
	require.Nil(t, fresh.SolanaPoolOperations[0].TxID)
}

func TestStoreGetUnknown(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.GetInteractionState("missing")
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "interaction", notFound.Kind)
}

func TestStoreAddDuplicate(t *testing.T) {
	st, env := newTestStore(t)
	state := newTestState(t, env)
	ctx := context.Background()

	require.NoError(t, st.AddInteractionState(ctx, state))
	require.Error(t, st.AddInteractionState(ctx, state))
}

func TestStoreUpdateRecordsTxID(t *testing.T) {
	st, env := newTestStore(t)
	state := newTestState(t, env)
	ctx := context.Background()
	require.NoError(t, st.AddInteractionState(ctx, state))

	txID := "5VERYrealSOLANAtx"
	err := st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.SolanaPoolOperations[0].TxID = &txID
		return nil
	})
	require.NoError(t, err)

	got, err := st.GetInteractionState(state.ID())
	require.NoError(t, err)
	require.Equal(t, txID, *got.SolanaPoolOperations[0].TxID)
}

func TestStoreUpdateRejectsTxIDOverwrite(t *testing.T) {
	st, env := newTestStore(t)
	state := newTestState(t, env)
	ctx := context.Background()
	require.NoError(t, st.AddInteractionState(ctx, state))

	first := "tx-1"
	require.NoError(t, st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.SolanaPoolOperations[0].TxID = &first
		return nil
	}))

	// Changing a recorded id is rejected.
	second := "tx-2"
	err := st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.SolanaPoolOperations[0].TxID = &second
		return nil
	})
	require.Error(t, err)

	// Clearing it is rejected too.
	err = st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.SolanaPoolOperations[0].TxID = nil
		return nil
	})
	require.Error(t, err)

	// Re-applying the same value is a no-op.
	require.NoError(t, st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.SolanaPoolOperations[0].TxID = &first
		return nil
	}))

	got, err := st.GetInteractionState(state.ID())
	require.NoError(t, err)
	require.Equal(t, first, *got.SolanaPoolOperations[0].TxID)
}

func TestStoreUpdateTxIDListsAppendOnly(t *testing.T) {
	st, env := newTestStore(t)
	state := newTestState(t, env)
	ctx := context.Background()
	require.NoError(t, st.AddInteractionState(ctx, state))
	require.Len(t, state.ToSolanaTransfers, 1)

	require.NoError(t, st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.ToSolanaTransfers[0].TxIDs.PostVaaOnSolana = []string{"batch-1"}
		return nil
	}))
	require.NoError(t, st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.ToSolanaTransfers[0].TxIDs.PostVaaOnSolana = append(
			s.ToSolanaTransfers[0].TxIDs.PostVaaOnSolana, "batch-2")
		return nil
	}))

	// Rewriting a recorded prefix is rejected.
	err := st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.ToSolanaTransfers[0].TxIDs.PostVaaOnSolana = []string{"evil", "batch-2"}
		return nil
	})
	require.Error(t, err)

	// Truncation is rejected.
	err = st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.ToSolanaTransfers[0].TxIDs.PostVaaOnSolana = []string{"batch-1"}
		return nil
	})
	require.Error(t, err)

	got, err := st.GetInteractionState(state.ID())
	require.NoError(t, err)
	require.Equal(t, []string{"batch-1", "batch-2"}, got.ToSolanaTransfers[0].TxIDs.PostVaaOnSolana)
}

func TestStoreUpdateMutateFailureLeavesStateUntouched(t *testing.T) {
	st, env := newTestStore(t)
	state := newTestState(t, env)
	ctx := context.Background()
	require.NoError(t, st.AddInteractionState(ctx, state))

	txID := "tx-1"
	err := st.UpdateInteractionState(ctx, state.ID(), func(s *models.InteractionState) error {
		s.SolanaPoolOperations[0].TxID = &txID
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	got, err := st.GetInteractionState(state.ID())
	require.NoError(t, err)
	require.Nil(t, got.SolanaPoolOperations[0].TxID)
}

func TestStoreRecentInteractionsOrder(t *testing.T) {
	st, env := newTestStore(t)
	ctx := context.Background()

	first := newTestState(t, env)
	second := newTestState(t, env)
	third := newTestState(t, env)
	require.NoError(t, st.AddInteractionState(ctx, first))
	require.NoError(t, st.AddInteractionState(ctx, second))
	require.NoError(t, st.AddInteractionState(ctx, third))

	recent := st.RecentInteractions(2)
	require.Len(t, recent, 2)
	require.Equal(t, third.ID(), recent[0].ID())
	require.Equal(t, second.ID(), recent[1].ID())

	all := st.RecentInteractions(0)
	require.Len(t, all, 3)
	require.Equal(t, first.ID(), all[2].ID())
}

func TestStoreInteractionErrors(t *testing.T) {
	st, env := newTestStore(t)
	state := newTestState(t, env)
	ctx := context.Background()
	require.NoError(t, st.AddInteractionState(ctx, state))

	_, ok := st.GetInteractionError(state.ID())
	require.False(t, ok)

	st.SetInteractionError(state.ID(), "rpc timeout")
	message, ok := st.GetInteractionError(state.ID())
	require.True(t, ok)
	require.Equal(t, "rpc timeout", message)

	st.SetInteractionError(state.ID(), "")
	_, ok = st.GetInteractionError(state.ID())
	require.False(t, ok)
}

func TestStoreReset(t *testing.T) {
	st, env := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.AddInteractionState(ctx, newTestState(t, env)))
	require.Equal(t, 1, st.Count())

	require.NoError(t, st.Reset(ctx))
	require.Equal(t, 0, st.Count())
}
