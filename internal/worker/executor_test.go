package worker

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/derive"
	"propeller/offchain/internal/models"
	"propeller/offchain/internal/store"
)

var (
	testSolanaWallet    = "7yuDvKyyUy5qSkhBPzsuBEFmEVCpJsDDbrv7M7vn6Rt1"
	testEthereumWallet  = "0x7aC441b7954dEF62b27A2BD2d9F7Eb93BB7F37c8"
	testAvalancheWallet = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
)

// mockEVM counts submissions so tests can prove steps are not re-executed.
type mockEVM struct {
	ecosystem     models.Ecosystem
	transferCalls int
	redeemCalls   int
	sequenceCalls int

	redeemedOnChain bool
	redeemErr       error
}

func (m *mockEVM) Ecosystem() models.Ecosystem { return m.ecosystem }

func (m *mockEVM) ApproveAndTransfer(_ context.Context, _ config.TokenDetails, _ *big.Int, _ string) ([]string, uint64, error) {
	m.transferCalls++
	return []string{"0xapprove", "0xtransfer"}, 7, nil
}

func (m *mockEVM) TransferSequence(_ context.Context, _ string) (uint64, error) {
	m.sequenceCalls++
	return 7, nil
}

func (m *mockEVM) RedeemTransfer(_ context.Context, _ []byte) (string, error) {
	if m.redeemErr != nil {
		return "", m.redeemErr
	}
	m.redeemCalls++
	return fmt.Sprintf("0xredeem-%d", m.redeemCalls), nil
}

func (m *mockEVM) TransferRedeemed(_ context.Context, _ []byte) (bool, error) {
	return m.redeemedOnChain, nil
}

type mockSolana struct {
	createCalls   int
	claimCalls    int
	executeCalls  int
	transferCalls int
	existsCalls   int

	signatureBatches int
	existsOnChain    map[string]bool
	claimedOnChain   bool
	createErr        error
	claimErr         error
	executeErr       error
	poolOutputs      []map[models.TokenID]decimal.Decimal
	outputsByTx      map[string]map[models.TokenID]decimal.Decimal
}

func (m *mockSolana) TokenAccountExists(_ context.Context, _, mint string) (bool, error) {
	m.existsCalls++
	return m.existsOnChain[mint], nil
}

func (m *mockSolana) CreateTokenAccount(_ context.Context, _, mint string) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.createCalls++
	return "create-" + mint, nil
}

func (m *mockSolana) PostVaaSignatures(_ context.Context, _ []byte, submitted int) (string, TxSequence, error) {
	var remaining []string
	for i := submitted; i < m.signatureBatches; i++ {
		remaining = append(remaining, fmt.Sprintf("vaa-batch-%d", i+1))
	}
	return "SigSet1111", &sliceSequence{txIDs: remaining}, nil
}

func (m *mockSolana) SignatureSetComplete(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (m *mockSolana) ClaimTransfer(_ context.Context, _ []byte, _ string) (string, error) {
	if m.claimErr != nil {
		return "", m.claimErr
	}
	m.claimCalls++
	return fmt.Sprintf("claim-%d", m.claimCalls), nil
}

func (m *mockSolana) TransferClaimed(_ context.Context, _ []byte) (bool, error) {
	return m.claimedOnChain, nil
}

func (m *mockSolana) ExecutePoolOperation(_ context.Context, _ config.PoolDetails, _ models.OperationSpec) (string, map[models.TokenID]decimal.Decimal, error) {
	if m.executeErr != nil {
		return "", nil, m.executeErr
	}
	outputs := m.poolOutputs[m.executeCalls]
	m.executeCalls++
	txID := fmt.Sprintf("pool-%d", m.executeCalls)
	if m.outputsByTx == nil {
		m.outputsByTx = make(map[string]map[models.TokenID]decimal.Decimal)
	}
	m.outputsByTx[txID] = outputs
	return txID, outputs, nil
}

func (m *mockSolana) PoolOperationOutputs(_ context.Context, txID string) (map[models.TokenID]decimal.Decimal, error) {
	outputs, ok := m.outputsByTx[txID]
	if !ok {
		return nil, fmt.Errorf("unknown transaction %s", txID)
	}
	return outputs, nil
}

func (m *mockSolana) TransferToEVM(_ context.Context, _ config.TokenDetails, _ decimal.Decimal, _ models.Ecosystem, _ string) (string, uint64, error) {
	m.transferCalls++
	return fmt.Sprintf("sol-transfer-%d", m.transferCalls), 3, nil
}

func (m *mockSolana) TransferSequence(_ context.Context, _ string) (uint64, error) {
	return 3, nil
}

type sliceSequence struct {
	txIDs []string
}

func (s *sliceSequence) Next(_ context.Context) (string, bool, error) {
	if len(s.txIDs) == 0 {
		return "", false, nil
	}
	txID := s.txIDs[0]
	s.txIDs = s.txIDs[1:]
	return txID, true, nil
}

type mockAttestation struct {
	fetchCalls int
}

func (m *mockAttestation) FetchSignedVAA(_ context.Context, _ models.Ecosystem, _ uint64) ([]byte, error) {
	m.fetchCalls++
	return []byte("signed-vaa"), nil
}

type fixture struct {
	store       *store.Store
	executor    *Executor
	runner      *Runner
	evm         map[models.Ecosystem]*mockEVM
	solana      *mockSolana
	attestation *mockAttestation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	env := config.EnvironmentFor(models.EnvMainnet)
	st := store.NewStore(logger, nil, env)

	evmMocks := map[models.Ecosystem]*mockEVM{
		models.EcosystemEthereum:  {ecosystem: models.EcosystemEthereum},
		models.EcosystemAvalanche: {ecosystem: models.EcosystemAvalanche},
	}
	clients := make(map[models.Ecosystem]EVMClient, len(evmMocks))
	for eco, mock := range evmMocks {
		clients[eco] = mock
	}

	sol := &mockSolana{
		signatureBatches: 2,
		poolOutputs: []map[models.TokenID]decimal.Decimal{
			{"solana-usdc": decimal.RequireFromString("997.5")},
		},
	}
	att := &mockAttestation{}

	executor := NewExecutor(logger, st, env, clients, sol, att)
	return &fixture{
		store:       st,
		executor:    executor,
		runner:      NewRunner(logger, st, executor),
		evm:         evmMocks,
		solana:      sol,
		attestation: att,
	}
}

func (f *fixture) addSwap(t *testing.T, inputToken, inputValue, outputToken, outputValue string, wallets map[models.Ecosystem]*string) string {
	t.Helper()
	env := config.EnvironmentFor(models.EnvMainnet)
	input, err := models.AmountFromHumanString(models.TokenID(inputToken), inputValue)
	require.NoError(t, err)
	minOut, err := models.AmountFromHumanString(models.TokenID(outputToken), outputValue)
	require.NoError(t, err)

	interaction := models.Interaction{
		ID:               models.NewInteractionID(),
		Kind:             models.InteractionSwap,
		Env:              models.EnvMainnet,
		SubmittedAt:      models.NowMillis(),
		ConnectedWallets: wallets,
		Swap: &models.SwapParams{
			ExactInputAmount:    input,
			MinimumOutputAmount: minOut,
		},
	}
	state, err := derive.NewInteractionState(env, interaction, map[string]bool{})
	require.NoError(t, err)
	require.NoError(t, f.store.AddInteractionState(context.Background(), state))
	return state.ID()
}

func (f *fixture) addRemoveUniform(t *testing.T, burnValue string, minimums map[string]string) string {
	t.Helper()
	env := config.EnvironmentFor(models.EnvMainnet)
	burn, err := models.AmountFromHumanString("propeller-usd", burnValue)
	require.NoError(t, err)
	var outs []models.Amount
	for token, value := range minimums {
		amount, err := models.AmountFromHumanString(models.TokenID(token), value)
		require.NoError(t, err)
		outs = append(outs, amount)
	}

	interaction := models.Interaction{
		ID:               models.NewInteractionID(),
		Kind:             models.InteractionRemoveUniform,
		Env:              models.EnvMainnet,
		PoolIDs:          []models.PoolID{"hexapool"},
		SubmittedAt:      models.NowMillis(),
		ConnectedWallets: evmToSolanaWallets(),
		RemoveUniform: &models.RemoveUniformParams{
			ExactBurnAmount:      burn,
			MinimumOutputAmounts: outs,
		},
	}
	state, err := derive.NewInteractionState(env, interaction, map[string]bool{})
	require.NoError(t, err)
	require.NoError(t, f.store.AddInteractionState(context.Background(), state))
	return state.ID()
}

func evmToSolanaWallets() map[models.Ecosystem]*string {
	return map[models.Ecosystem]*string{
		models.EcosystemSolana:   &testSolanaWallet,
		models.EcosystemEthereum: &testEthereumWallet,
	}
}

func TestRunnerCompletesSwapToSolana(t *testing.T) {
	f := newFixture(t)
	id := f.addSwap(t, "ethereum-usdc", "1001", "solana-usdc", "995.624615", evmToSolanaWallets())

	require.NoError(t, f.runner.ResumeInteraction(context.Background(), id))

	state, err := f.store.GetInteractionState(id)
	require.NoError(t, err)

	// Both required accounts created, transfer bridged and claimed, swap
	// executed.
	require.Equal(t, 2, f.solana.createCalls)
	require.Equal(t, 1, f.evm[models.EcosystemEthereum].transferCalls)
	require.Equal(t, 1, f.solana.claimCalls)
	require.Equal(t, 1, f.solana.executeCalls)

	transfer := state.ToSolanaTransfers[0]
	require.Equal(t, []string{"0xapprove", "0xtransfer"}, transfer.TxIDs.ApproveAndTransferEVMToken)
	require.Equal(t, []string{"vaa-batch-1", "vaa-batch-2"}, transfer.TxIDs.PostVaaOnSolana)
	require.NotNil(t, transfer.TxIDs.ClaimTokenOnSolana)
	require.NotNil(t, state.SolanaPoolOperations[0].TxID)

	_, hasErr := f.store.GetInteractionError(id)
	require.False(t, hasErr)
}

func TestRunnerResumesWithoutRepeatingBridgeTransfer(t *testing.T) {
	f := newFixture(t)
	id := f.addSwap(t, "ethereum-usdc", "1001", "solana-usdc", "995.624615", evmToSolanaWallets())
	ctx := context.Background()

	// Simulate a previous run that crashed after the source-chain transfer
	// confirmed.
	require.NoError(t, f.store.UpdateInteractionState(ctx, id, func(s *models.InteractionState) error {
		s.ToSolanaTransfers[0].TxIDs.ApproveAndTransferEVMToken = []string{"0xapprove", "0xtransfer"}
		return nil
	}))

	require.NoError(t, f.runner.ResumeInteraction(ctx, id))

	// The EVM transfer is never re-submitted; the sequence is recovered from
	// the recorded transaction instead.
	ethereum := f.evm[models.EcosystemEthereum]
	require.Equal(t, 0, ethereum.transferCalls)
	require.Equal(t, 1, ethereum.sequenceCalls)
	require.Equal(t, 1, f.solana.claimCalls)
}

func TestRunnerRerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.addSwap(t, "ethereum-usdc", "1001", "solana-usdc", "995.624615", evmToSolanaWallets())
	ctx := context.Background()

	require.NoError(t, f.runner.ResumeInteraction(ctx, id))

	creates := f.solana.createCalls
	transfers := f.evm[models.EcosystemEthereum].transferCalls
	claims := f.solana.claimCalls
	executes := f.solana.executeCalls

	// A second full pass submits nothing new.
	require.NoError(t, f.runner.ResumeInteraction(ctx, id))
	require.Equal(t, creates, f.solana.createCalls)
	require.Equal(t, transfers, f.evm[models.EcosystemEthereum].transferCalls)
	require.Equal(t, claims, f.solana.claimCalls)
	require.Equal(t, executes, f.solana.executeCalls)
}

func TestRunnerCompletesSwapFromSolana(t *testing.T) {
	f := newFixture(t)
	f.solana.poolOutputs = []map[models.TokenID]decimal.Decimal{
		{"ethereum-usdc": decimal.RequireFromString("995.7")},
	}
	id := f.addSwap(t, "solana-usdc", "1001", "ethereum-usdc", "995.624615", evmToSolanaWallets())
	ctx := context.Background()

	require.NoError(t, f.runner.ResumeInteraction(ctx, id))

	state, err := f.store.GetInteractionState(id)
	require.NoError(t, err)

	// No inbound bridging; the swap output funds the outbound transfer.
	require.Equal(t, 0, f.evm[models.EcosystemEthereum].transferCalls)
	require.Equal(t, 1, f.solana.executeCalls)
	require.Equal(t, 1, f.solana.transferCalls)
	require.Equal(t, 1, f.evm[models.EcosystemEthereum].redeemCalls)

	transfer := state.FromSolanaTransfers[0]
	require.NotNil(t, transfer.Value)
	require.Equal(t, "995.7", transfer.Value.String())
	require.NotNil(t, transfer.TxIDs.TransferSplToken)
	require.NotNil(t, transfer.TxIDs.ClaimTokenOnEVM)
}

func TestRunnerCompletesUniformRemoval(t *testing.T) {
	f := newFixture(t)
	// Burning LP pays out several tokens in one transaction; the EVM-native
	// portion funds the outbound transfer.
	f.solana.poolOutputs = []map[models.TokenID]decimal.Decimal{
		{
			"solana-usdc":   decimal.RequireFromString("600.2"),
			"ethereum-usdc": decimal.RequireFromString("400.1"),
		},
	}
	id := f.addRemoveUniform(t, "1000", map[string]string{
		"solana-usdc":   "590",
		"ethereum-usdc": "390",
	})
	ctx := context.Background()

	require.NoError(t, f.runner.ResumeInteraction(ctx, id))

	state, err := f.store.GetInteractionState(id)
	require.NoError(t, err)

	// No inbound bridging; the burn executes once.
	require.Empty(t, state.ToSolanaTransfers)
	require.Equal(t, 1, f.solana.executeCalls)

	// The EVM-native payout was recorded and bridged out.
	require.Len(t, state.FromSolanaTransfers, 1)
	transfer := state.FromSolanaTransfers[0]
	require.Equal(t, models.TokenID("ethereum-usdc"), transfer.TokenID)
	require.NotNil(t, transfer.Value)
	require.Equal(t, "400.1", transfer.Value.String())
	require.NotNil(t, transfer.TxIDs.TransferSplToken)
	require.NotNil(t, transfer.TxIDs.ClaimTokenOnEVM)
	require.Equal(t, 1, f.evm[models.EcosystemEthereum].redeemCalls)

	// Retrying submits nothing new.
	require.NoError(t, f.runner.ResumeInteraction(ctx, id))
	require.Equal(t, 1, f.solana.executeCalls)
	require.Equal(t, 1, f.solana.transferCalls)
	require.Equal(t, 1, f.evm[models.EcosystemEthereum].redeemCalls)
}

func TestRunnerFillsHopBoundaryAmount(t *testing.T) {
	f := newFixture(t)
	// First hop mints 99.9 prUSD, second hop pays out 99.5 avalanche-usdc.
	f.solana.poolOutputs = []map[models.TokenID]decimal.Decimal{
		{"propeller-usd": decimal.RequireFromString("99.9")},
		{"avalanche-usdc": decimal.RequireFromString("99.5")},
	}
	id := f.addSwap(t, "ethereum-usdc", "100", "avalanche-usdc", "99", map[models.Ecosystem]*string{
		models.EcosystemSolana:    &testSolanaWallet,
		models.EcosystemEthereum:  &testEthereumWallet,
		models.EcosystemAvalanche: &testAvalancheWallet,
	})
	ctx := context.Background()

	require.NoError(t, f.runner.ResumeInteraction(ctx, id))

	state, err := f.store.GetInteractionState(id)
	require.NoError(t, err)
	require.Equal(t, 2, f.solana.executeCalls)

	// The second hop's placeholder was replaced with the first hop's output.
	hop2 := state.SolanaPoolOperations[1].Operation
	require.Equal(t, models.PoolInstructionSwap, hop2.Instruction)
	require.Equal(t, "99.9", hop2.Swap.ExactInputAmounts[1].HumanString())

	transfer := state.FromSolanaTransfers[0]
	require.Equal(t, models.EcosystemAvalanche, transfer.ToEcosystem)
	require.Equal(t, "99.5", transfer.Value.String())
	require.Equal(t, 1, f.evm[models.EcosystemAvalanche].redeemCalls)
}

func TestPrepareTokenAccountsAdoptsExistingAccounts(t *testing.T) {
	f := newFixture(t)
	id := f.addSwap(t, "ethereum-usdc", "1001", "solana-usdc", "995.624615", evmToSolanaWallets())
	ctx := context.Background()

	// The accounts exist on chain even though nothing is recorded, as after a
	// crash between confirmation and the store write. Creating again would
	// fail.
	exists := make(map[string]bool)
	state, err := f.store.GetInteractionState(id)
	require.NoError(t, err)
	for mint := range state.RequiredSplTokenAccounts {
		exists[mint] = true
	}
	f.solana.existsOnChain = exists
	f.solana.createErr = fmt.Errorf("account already in use")

	require.NoError(t, f.executor.PrepareTokenAccounts(ctx, id))
	require.NoError(t, f.executor.PrepareTokenAccounts(ctx, id))

	require.Equal(t, 0, f.solana.createCalls)
	require.Greater(t, f.solana.existsCalls, 0)

	state, err = f.store.GetInteractionState(id)
	require.NoError(t, err)
	for mint, acct := range state.RequiredSplTokenAccounts {
		require.True(t, acct.IsExistingAccount, "account for %s not adopted", mint)
		require.Nil(t, acct.TxID)
	}
}

func TestBridgeToSolanaSkipsAlreadyClaimedTransfer(t *testing.T) {
	f := newFixture(t)
	id := f.addSwap(t, "ethereum-usdc", "1001", "solana-usdc", "995.624615", evmToSolanaWallets())
	ctx := context.Background()

	// The claim landed on chain but its transaction id was never recorded.
	// Re-claiming would fail.
	f.solana.claimedOnChain = true
	f.solana.claimErr = fmt.Errorf("transfer already completed")

	require.NoError(t, f.runner.ResumeInteraction(ctx, id))

	require.Equal(t, 0, f.solana.claimCalls)
	require.Equal(t, 1, f.solana.executeCalls)
}

func TestBridgeFromSolanaSkipsAlreadyRedeemedTransfer(t *testing.T) {
	f := newFixture(t)
	f.solana.poolOutputs = []map[models.TokenID]decimal.Decimal{
		{"ethereum-usdc": decimal.RequireFromString("995.7")},
	}
	id := f.addSwap(t, "solana-usdc", "1001", "ethereum-usdc", "995.624615", evmToSolanaWallets())
	ctx := context.Background()

	ethereum := f.evm[models.EcosystemEthereum]
	ethereum.redeemedOnChain = true
	ethereum.redeemErr = fmt.Errorf("transfer already completed")

	require.NoError(t, f.runner.ResumeInteraction(ctx, id))

	require.Equal(t, 0, ethereum.redeemCalls)
	require.Equal(t, 1, f.solana.transferCalls)
}

func TestRunnerRecordsAndClearsError(t *testing.T) {
	f := newFixture(t)
	id := f.addSwap(t, "ethereum-usdc", "1001", "solana-usdc", "995.624615", evmToSolanaWallets())
	ctx := context.Background()

	f.solana.executeErr = fmt.Errorf("pool rpc unavailable")
	require.Error(t, f.runner.ResumeInteraction(ctx, id))

	message, ok := f.store.GetInteractionError(id)
	require.True(t, ok)
	require.Contains(t, message, "pool rpc unavailable")

	// Earlier progress survived the failure.
	state, err := f.store.GetInteractionState(id)
	require.NoError(t, err)
	require.NotNil(t, state.ToSolanaTransfers[0].TxIDs.ClaimTokenOnSolana)
	claims := f.solana.claimCalls

	// Retrying after the fault heals finishes without repeating the bridge.
	f.solana.executeErr = nil
	require.NoError(t, f.runner.ResumeInteraction(ctx, id))
	require.Equal(t, claims, f.solana.claimCalls)

	_, ok = f.store.GetInteractionError(id)
	require.False(t, ok)
}
