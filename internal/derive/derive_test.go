package derive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/models"
)

var (
	solanaWallet   = "7yuDvKyyUy5qSkhBPzsuBEFmEVCpJsDDbrv7M7vn6Rt1"
	ethereumWallet = "0x7aC441b7954dEF62b27A2BD2d9F7Eb93BB7F37c8"
	bscWallet      = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
)

func mainnetEnv() *config.Environment {
	return config.EnvironmentFor(models.EnvMainnet)
}

func swapInteraction(t *testing.T, inputToken, inputValue, outputToken, outputValue string, wallets map[models.Ecosystem]*string) models.Interaction {
	t.Helper()
	input, err := models.AmountFromHumanString(models.TokenID(inputToken), inputValue)
	require.NoError(t, err)
	minOut, err := models.AmountFromHumanString(models.TokenID(outputToken), outputValue)
	require.NoError(t, err)

	return models.Interaction{
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
}

func TestSwapFromEVMToSolana(t *testing.T) {
	env := mainnetEnv()
	interaction := swapInteraction(t,
		"ethereum-usdc", "1001",
		"solana-usdc", "995.624615",
		map[models.Ecosystem]*string{
			models.EcosystemSolana:   &solanaWallet,
			models.EcosystemEthereum: &ethereumWallet,
		})

	state, err := NewInteractionState(env, interaction, map[string]bool{
		// The user already holds native USDC on Solana.
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": true,
	})
	require.NoError(t, err)

	// One inbound transfer, from Ethereum, for the exact input.
	require.Len(t, state.ToSolanaTransfers, 1)
	transfer := state.ToSolanaTransfers[0]
	require.Equal(t, models.EcosystemEthereum, transfer.FromEcosystem)
	require.Equal(t, "1001", transfer.Token.HumanString())
	require.Empty(t, transfer.TxIDs.ApproveAndTransferEVMToken)
	require.Nil(t, transfer.TxIDs.ClaimTokenOnSolana)

	// One single-pool swap on the hexapool: the input sits at the
	// ethereum-usdc position, the output index points at solana-usdc.
	require.Len(t, state.SolanaPoolOperations, 1)
	op := state.SolanaPoolOperations[0].Operation
	require.Equal(t, models.PoolID("hexapool"), op.PoolID)
	require.Equal(t, models.PoolInstructionSwap, op.Instruction)
	require.Equal(t, 0, op.Swap.OutputTokenIndex)
	require.Len(t, op.Swap.ExactInputAmounts, 6)
	require.Equal(t, "1001", op.Swap.ExactInputAmounts[2].HumanString())
	for i, a := range op.Swap.ExactInputAmounts {
		if i != 2 {
			require.True(t, a.IsZero(), "input %d should be zero", i)
		}
	}
	require.Equal(t, "995.624615", op.Swap.MinimumOutputAmount.HumanString())

	// The output token is native to Solana: no outbound transfer.
	require.Empty(t, state.FromSolanaTransfers)

	// Wrapped ethereum-usdc needs an account; the pre-existing solana-usdc
	// account is classified, not created.
	require.Contains(t, state.RequiredSplTokenAccounts, "A9mUU4qviSctJVPJdBJWkb28deg915LYJKrzQ19ji3FM")
	require.False(t, state.RequiredSplTokenAccounts["A9mUU4qviSctJVPJdBJWkb28deg915LYJKrzQ19ji3FM"].IsExistingAccount)
	require.True(t, state.RequiredSplTokenAccounts["EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"].IsExistingAccount)
}

func TestSwapFromSolanaToEVM(t *testing.T) {
	env := mainnetEnv()
	interaction := swapInteraction(t,
		"solana-usdc", "1001",
		"ethereum-usdc", "995.624615",
		map[models.Ecosystem]*string{
			models.EcosystemSolana:   &solanaWallet,
			models.EcosystemEthereum: &ethereumWallet,
		})

	state, err := NewInteractionState(env, interaction, map[string]bool{})
	require.NoError(t, err)

	// The input is already on Solana: no inbound transfer.
	require.Empty(t, state.ToSolanaTransfers)

	require.Len(t, state.SolanaPoolOperations, 1)
	op := state.SolanaPoolOperations[0].Operation
	require.Equal(t, models.PoolInstructionSwap, op.Instruction)
	require.Equal(t, 2, op.Swap.OutputTokenIndex)
	require.Equal(t, "1001", op.Swap.ExactInputAmounts[0].HumanString())

	// One outbound transfer to Ethereum; the amount is unknown until the
	// swap executes.
	require.Len(t, state.FromSolanaTransfers, 1)
	transfer := state.FromSolanaTransfers[0]
	require.Equal(t, models.EcosystemEthereum, transfer.ToEcosystem)
	require.Equal(t, models.TokenID("ethereum-usdc"), transfer.TokenID)
	require.Nil(t, transfer.Value)
	require.Nil(t, transfer.TxIDs.TransferSplToken)
}

func TestSwapFromBscToEthereum(t *testing.T) {
	env := mainnetEnv()
	interaction := swapInteraction(t,
		"bsc-usdt", "250",
		"ethereum-usdc", "248.5",
		map[models.Ecosystem]*string{
			models.EcosystemSolana:   &solanaWallet,
			models.EcosystemEthereum: &ethereumWallet,
			models.EcosystemBsc:      &bscWallet,
		})

	state, err := NewInteractionState(env, interaction, map[string]bool{})
	require.NoError(t, err)

	require.Len(t, state.ToSolanaTransfers, 1)
	require.Equal(t, models.EcosystemBsc, state.ToSolanaTransfers[0].FromEcosystem)

	require.Len(t, state.SolanaPoolOperations, 1)
	op := state.SolanaPoolOperations[0].Operation
	require.Equal(t, models.PoolInstructionSwap, op.Instruction)
	require.Equal(t, "250", op.Swap.ExactInputAmounts[5].HumanString())
	require.Equal(t, 2, op.Swap.OutputTokenIndex)

	require.Len(t, state.FromSolanaTransfers, 1)
	require.Equal(t, models.EcosystemEthereum, state.FromSolanaTransfers[0].ToEcosystem)
}

func TestSwapAcrossPools(t *testing.T) {
	env := mainnetEnv()
	interaction := swapInteraction(t,
		"ethereum-usdc", "100",
		"avalanche-usdc", "99",
		map[models.Ecosystem]*string{
			models.EcosystemSolana:    &solanaWallet,
			models.EcosystemEthereum:  &ethereumWallet,
			models.EcosystemAvalanche: &ethereumWallet,
		})

	state, err := NewInteractionState(env, interaction, map[string]bool{})
	require.NoError(t, err)

	// Route: mint prUSD in the hexapool, then swap it for avalanche-usdc in
	// the meta pool.
	require.Len(t, state.SolanaPoolOperations, 2)

	hop1 := state.SolanaPoolOperations[0].Operation
	require.Equal(t, models.PoolID("hexapool"), hop1.PoolID)
	require.Equal(t, models.PoolInstructionAdd, hop1.Instruction)
	require.Equal(t, "100", hop1.Add.InputAmounts[2].HumanString())
	require.True(t, hop1.Add.MinimumMintAmount.IsZero())

	hop2 := state.SolanaPoolOperations[1].Operation
	require.Equal(t, models.PoolID("meta-avalanche-usdc"), hop2.PoolID)
	require.Equal(t, models.PoolInstructionSwap, hop2.Instruction)
	require.Equal(t, 0, hop2.Swap.OutputTokenIndex)
	// Hop boundary placeholder: filled by the executor with the minted LP
	// amount.
	require.True(t, hop2.Swap.ExactInputAmounts[1].IsZero())
	require.Equal(t, models.TokenID("propeller-usd"), hop2.Swap.ExactInputAmounts[1].TokenID())
	require.Equal(t, "99", hop2.Swap.MinimumOutputAmount.HumanString())

	// The joining LP token needs an account too.
	require.Contains(t, state.RequiredSplTokenAccounts, "BJUH9GJLaMSLV1E7B3SQLCy9eCfyr6zsrwGcpS2MkqR1")
}

func TestRemoveExactOutputCarriesTransferValues(t *testing.T) {
	env := mainnetEnv()
	maxBurn, err := models.AmountFromHumanString("propeller-usd", "1000")
	require.NoError(t, err)
	out1, err := models.AmountFromHumanString("solana-usdc", "600")
	require.NoError(t, err)
	out2, err := models.AmountFromHumanString("ethereum-usdc", "395")
	require.NoError(t, err)

	interaction := models.Interaction{
		ID:          models.NewInteractionID(),
		Kind:        models.InteractionRemoveExactOutput,
		Env:         models.EnvMainnet,
		PoolIDs:     []models.PoolID{"hexapool"},
		SubmittedAt: models.NowMillis(),
		ConnectedWallets: map[models.Ecosystem]*string{
			models.EcosystemSolana:   &solanaWallet,
			models.EcosystemEthereum: &ethereumWallet,
		},
		RemoveExactOutput: &models.RemoveExactOutputParams{
			MaximumBurnAmount:  maxBurn,
			ExactOutputAmounts: []models.Amount{out1, out2},
		},
	}

	state, err := NewInteractionState(env, interaction, map[string]bool{})
	require.NoError(t, err)

	// The output amounts are fixed by the request, so the outbound transfer
	// is fully specified before anything executes.
	require.Len(t, state.FromSolanaTransfers, 1)
	transfer := state.FromSolanaTransfers[0]
	require.Equal(t, models.TokenID("ethereum-usdc"), transfer.TokenID)
	require.Equal(t, models.EcosystemEthereum, transfer.ToEcosystem)
	require.NotNil(t, transfer.Value)
	require.Equal(t, "395", transfer.Value.String())
}

func TestRemoveUniformLeavesTransferValuesOpen(t *testing.T) {
	env := mainnetEnv()
	burn, err := models.AmountFromHumanString("propeller-usd", "1000")
	require.NoError(t, err)
	min1, err := models.AmountFromHumanString("solana-usdc", "590")
	require.NoError(t, err)
	min2, err := models.AmountFromHumanString("ethereum-usdc", "390")
	require.NoError(t, err)

	interaction := models.Interaction{
		ID:          models.NewInteractionID(),
		Kind:        models.InteractionRemoveUniform,
		Env:         models.EnvMainnet,
		PoolIDs:     []models.PoolID{"hexapool"},
		SubmittedAt: models.NowMillis(),
		ConnectedWallets: map[models.Ecosystem]*string{
			models.EcosystemSolana:   &solanaWallet,
			models.EcosystemEthereum: &ethereumWallet,
		},
		RemoveUniform: &models.RemoveUniformParams{
			ExactBurnAmount:      burn,
			MinimumOutputAmounts: []models.Amount{min1, min2},
		},
	}

	state, err := NewInteractionState(env, interaction, map[string]bool{})
	require.NoError(t, err)

	// A uniform removal's actual payouts depend on the pool balances; the
	// transfer amount is backfilled from the executed burn.
	require.Len(t, state.FromSolanaTransfers, 1)
	transfer := state.FromSolanaTransfers[0]
	require.Equal(t, models.TokenID("ethereum-usdc"), transfer.TokenID)
	require.Nil(t, transfer.Value)

	require.Len(t, state.SolanaPoolOperations, 1)
	op := state.SolanaPoolOperations[0].Operation
	require.Equal(t, models.PoolInstructionRemoveUniform, op.Instruction)
	require.Equal(t, "1000", op.RemoveUniform.ExactBurnAmount.HumanString())
	require.Equal(t, "590", op.RemoveUniform.MinimumOutputAmounts[0].HumanString())
	require.Equal(t, "390", op.RemoveUniform.MinimumOutputAmounts[2].HumanString())
}

func TestDeriveRequiresWallets(t *testing.T) {
	env := mainnetEnv()

	// Missing Solana wallet.
	interaction := swapInteraction(t,
		"ethereum-usdc", "1", "solana-usdc", "0.9",
		map[models.Ecosystem]*string{
			models.EcosystemEthereum: &ethereumWallet,
		})
	_, err := NewInteractionState(env, interaction, nil)
	var missingWallet *models.MissingWalletError
	require.ErrorAs(t, err, &missingWallet)
	require.Equal(t, models.EcosystemSolana, missingWallet.Ecosystem)

	// Missing source-chain wallet.
	interaction = swapInteraction(t,
		"ethereum-usdc", "1", "solana-usdc", "0.9",
		map[models.Ecosystem]*string{
			models.EcosystemSolana: &solanaWallet,
		})
	_, err = NewInteractionState(env, interaction, nil)
	require.ErrorAs(t, err, &missingWallet)
	require.Equal(t, models.EcosystemEthereum, missingWallet.Ecosystem)
}

func TestDeriveUnknownToken(t *testing.T) {
	env := mainnetEnv()
	interaction := swapInteraction(t,
		"dogecoin", "1", "solana-usdc", "0.9",
		map[models.Ecosystem]*string{
			models.EcosystemSolana: &solanaWallet,
		})

	_, err := NewInteractionState(env, interaction, nil)
	var tokenErr *models.TokenResolutionError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, models.TokenID("dogecoin"), tokenErr.TokenID)
}
