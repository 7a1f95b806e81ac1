// Package derive computes the initial execution state for an interaction
// from the immutable request plus caller-supplied live chain data. All
// functions are pure: they classify and compose, they never submit anything.
package derive

import (
	"fmt"

	"github.com/shopspring/decimal"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/models"
)

// NewInteractionState derives the full initial aggregate for an interaction.
// existingAccounts is a live query result mapping Solana token account
// addresses to their existence; the caller obtains it from the chain query
// layer (see RequiredMints).
func NewInteractionState(
	env *config.Environment,
	interaction models.Interaction,
	existingAccounts map[string]bool,
) (*models.InteractionState, error) {
	if err := interaction.Validate(); err != nil {
		return nil, err
	}

	accounts, err := RequiredTokenAccounts(env, interaction, existingAccounts)
	if err != nil {
		return nil, err
	}

	toSolana, err := ToSolanaTransfers(env, interaction)
	if err != nil {
		return nil, err
	}

	poolOps, err := SolanaPoolOperations(env, interaction)
	if err != nil {
		return nil, err
	}

	fromSolana, err := FromSolanaTransfers(env, interaction)
	if err != nil {
		return nil, err
	}

	return &models.InteractionState{
		Interaction:              interaction,
		RequiredSplTokenAccounts: accounts,
		ToSolanaTransfers:        toSolana,
		SolanaPoolOperations:     poolOps,
		FromSolanaTransfers:      fromSolana,
		Version:                  models.StateVersion,
	}, nil
}

// RequiredMints returns the Solana mint addresses the flow needs destination
// token accounts for, in deterministic order. The caller queries their
// existence and passes the result to RequiredTokenAccounts.
func RequiredMints(env *config.Environment, interaction models.Interaction) ([]string, error) {
	tokenIDs, err := involvedTokens(env, interaction)
	if err != nil {
		return nil, err
	}

	mints := make([]string, 0, len(tokenIDs))
	seen := make(map[string]bool, len(tokenIDs))
	for _, id := range tokenIDs {
		token, err := env.Token(id)
		if err != nil {
			return nil, err
		}
		mint := token.SolanaMint()
		if mint == "" || seen[mint] {
			continue
		}
		seen[mint] = true
		mints = append(mints, mint)
	}
	return mints, nil
}

// RequiredTokenAccounts classifies each required mint against the supplied
// live account set. It never fabricates an account: a mint absent from
// existingAccounts is marked not-existing with no transaction recorded.
func RequiredTokenAccounts(
	env *config.Environment,
	interaction models.Interaction,
	existingAccounts map[string]bool,
) (map[string]models.TokenAccountState, error) {
	if _, err := interaction.Wallet(models.EcosystemSolana); err != nil {
		return nil, err
	}

	mints, err := RequiredMints(env, interaction)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.TokenAccountState, len(mints))
	for _, mint := range mints {
		out[mint] = models.TokenAccountState{
			IsExistingAccount: existingAccounts[mint],
		}
	}
	return out, nil
}

// ToSolanaTransfers derives the bridge-in records. A swap with a non-Solana
// source token yields exactly one record; an add yields one record per
// non-Solana non-zero input amount, grouped by source ecosystem.
func ToSolanaTransfers(env *config.Environment, interaction models.Interaction) ([]models.ToSolanaTransfer, error) {
	var inputs []models.Amount
	switch interaction.Kind {
	case models.InteractionSwap:
		inputs = []models.Amount{interaction.Swap.ExactInputAmount}
	case models.InteractionSwapV2:
		in, err := models.NewAmount(interaction.SwapV2.FromTokenID, interaction.SwapV2.ExactInputValue)
		if err != nil {
			return nil, err
		}
		inputs = []models.Amount{in}
	case models.InteractionAdd:
		inputs = interaction.Add.InputAmounts
	default:
		// Removes consume LP tokens already on Solana.
		return nil, nil
	}

	var transfers []models.ToSolanaTransfer
	for _, amount := range inputs {
		if amount.IsZero() {
			continue
		}
		token, err := env.Token(amount.TokenID())
		if err != nil {
			return nil, err
		}
		if token.NativeEcosystem == models.EcosystemSolana {
			continue
		}
		if _, err := interaction.Wallet(token.NativeEcosystem); err != nil {
			return nil, err
		}
		transfers = append(transfers, models.ToSolanaTransfer{
			Token:         amount,
			FromEcosystem: token.NativeEcosystem,
		})
	}
	return transfers, nil
}

// FromSolanaTransfers derives the bridge-out records, symmetric to
// ToSolanaTransfers. A record's Value is nil when the amount is only known
// once the upstream pool operation has executed; an exact-output removal
// fixes its amounts up front, so those transfers carry their Value already.
func FromSolanaTransfers(env *config.Environment, interaction models.Interaction) ([]models.FromSolanaTransfer, error) {
	var outputs []models.TokenID
	known := make(map[models.TokenID]decimal.Decimal)
	switch interaction.Kind {
	case models.InteractionSwap:
		outputs = []models.TokenID{interaction.Swap.MinimumOutputAmount.TokenID()}
	case models.InteractionSwapV2:
		outputs = []models.TokenID{interaction.SwapV2.ToTokenID}
	case models.InteractionRemoveExactBurn:
		outputs = []models.TokenID{interaction.RemoveExactBurn.MinimumOutputAmount.TokenID()}
	case models.InteractionRemoveUniform:
		for _, a := range interaction.RemoveUniform.MinimumOutputAmounts {
			outputs = append(outputs, a.TokenID())
		}
	case models.InteractionRemoveExactOutput:
		for _, a := range interaction.RemoveExactOutput.ExactOutputAmounts {
			if a.IsZero() {
				continue
			}
			outputs = append(outputs, a.TokenID())
			known[a.TokenID()] = a.Value()
		}
	default:
		// Add mints LP tokens, which live on Solana.
		return nil, nil
	}

	var transfers []models.FromSolanaTransfer
	for _, id := range outputs {
		token, err := env.Token(id)
		if err != nil {
			return nil, err
		}
		if token.NativeEcosystem == models.EcosystemSolana {
			continue
		}
		if _, err := interaction.Wallet(token.NativeEcosystem); err != nil {
			return nil, err
		}
		transfer := models.FromSolanaTransfer{
			TokenID:     id,
			ToEcosystem: token.NativeEcosystem,
		}
		if value, ok := known[id]; ok {
			v := value
			transfer.Value = &v
		}
		transfers = append(transfers, transfer)
	}
	return transfers, nil
}

// SolanaPoolOperations maps the interaction to the ordered pool instruction
// specs to run on Solana, one per pool hop.
func SolanaPoolOperations(env *config.Environment, interaction models.Interaction) ([]models.SolanaPoolOperationState, error) {
	var specs []models.OperationSpec
	var err error

	switch interaction.Kind {
	case models.InteractionSwap:
		specs, err = swapOperations(env, interaction,
			interaction.Swap.ExactInputAmount,
			interaction.Swap.MinimumOutputAmount)
	case models.InteractionSwapV2:
		in, aerr := models.NewAmount(interaction.SwapV2.FromTokenID, interaction.SwapV2.ExactInputValue)
		if aerr != nil {
			return nil, aerr
		}
		minOut, aerr := models.NewAmount(interaction.SwapV2.ToTokenID, interaction.SwapV2.MinimumOutputValue)
		if aerr != nil {
			return nil, aerr
		}
		specs, err = swapOperations(env, interaction, in, minOut)
	case models.InteractionAdd:
		specs, err = addOperation(env, interaction)
	case models.InteractionRemoveUniform:
		specs, err = removeUniformOperation(env, interaction)
	case models.InteractionRemoveExactBurn:
		specs, err = removeExactBurnOperation(env, interaction)
	case models.InteractionRemoveExactOutput:
		specs, err = removeExactOutputOperation(env, interaction)
	default:
		return nil, fmt.Errorf("unknown interaction kind %q", interaction.Kind)
	}
	if err != nil {
		return nil, err
	}

	ops := make([]models.SolanaPoolOperationState, len(specs))
	for i, spec := range specs {
		ops[i] = models.SolanaPoolOperationState{Operation: spec}
	}
	return ops, nil
}

// swapOperations emits one Swap spec for a single-pool route, or one spec per
// hop for a cross-pool route joined by the first pool's LP token. The second
// hop's input vector is all-zero: the executor fills it with the first hop's
// actual output before submitting.
func swapOperations(
	env *config.Environment,
	interaction models.Interaction,
	input models.Amount,
	minimumOutput models.Amount,
) ([]models.OperationSpec, error) {
	pools, err := env.PoolsForTokenPair(input.TokenID(), minimumOutput.TokenID())
	if err != nil {
		return nil, err
	}

	if len(pools) == 1 {
		spec, err := swapSpec(pools[0], interaction.ID, input, minimumOutput)
		if err != nil {
			return nil, err
		}
		return []models.OperationSpec{spec}, nil
	}

	// Two-hop route through the joining LP token. The slippage bound applies
	// to the route's final output only; hop boundaries carry zero placeholder
	// amounts that the executor fills with the previous hop's actual output.
	p1, p2 := pools[0], pools[1]

	if p2.TokenIndex(p1.LPTokenID) >= 0 {
		// Mint p1's LP single-sided, then swap it for the target in p2.
		inputs := zeroVector(p1)
		idx := p1.TokenIndex(input.TokenID())
		if idx < 0 {
			return nil, &models.NotFoundError{Kind: "pool", ID: string(input.TokenID())}
		}
		inputs[idx] = input

		hop1 := models.OperationSpec{
			InteractionID: interaction.ID,
			PoolID:        p1.ID,
			Instruction:   models.PoolInstructionAdd,
			Add: &models.AddOpParams{
				InputAmounts:      inputs,
				MinimumMintAmount: models.ZeroAmount(p1.LPTokenID),
			},
		}
		hop2, err := swapSpec(p2, interaction.ID, models.ZeroAmount(p1.LPTokenID), minimumOutput)
		if err != nil {
			return nil, err
		}
		return []models.OperationSpec{hop1, hop2}, nil
	}

	// Swap into p2's LP token inside p1, then burn it for the target in p2.
	joining := p2.LPTokenID
	hop1, err := swapSpec(p1, interaction.ID, input, models.ZeroAmount(joining))
	if err != nil {
		return nil, err
	}
	outputIdx := p2.TokenIndex(minimumOutput.TokenID())
	if outputIdx < 0 {
		return nil, &models.NotFoundError{Kind: "pool", ID: string(minimumOutput.TokenID())}
	}
	hop2 := models.OperationSpec{
		InteractionID: interaction.ID,
		PoolID:        p2.ID,
		Instruction:   models.PoolInstructionRemoveExactBurn,
		RemoveExactBurn: &models.RemoveExactBurnOpParams{
			ExactBurnAmount:     models.ZeroAmount(joining),
			OutputTokenIndex:    outputIdx,
			MinimumOutputAmount: minimumOutput,
		},
	}
	return []models.OperationSpec{hop1, hop2}, nil
}

// swapSpec positions the input amount into the pool's fixed token ordering
func swapSpec(pool config.PoolDetails, interactionID string, input, minimumOutput models.Amount) (models.OperationSpec, error) {
	inputIdx := pool.TokenIndex(input.TokenID())
	if inputIdx < 0 {
		return models.OperationSpec{}, &models.NotFoundError{Kind: "pool", ID: string(input.TokenID())}
	}
	outputIdx := pool.TokenIndex(minimumOutput.TokenID())
	if outputIdx < 0 {
		return models.OperationSpec{}, &models.NotFoundError{Kind: "pool", ID: string(minimumOutput.TokenID())}
	}

	exactInputs := zeroVector(pool)
	exactInputs[inputIdx] = input

	return models.OperationSpec{
		InteractionID: interactionID,
		PoolID:        pool.ID,
		Instruction:   models.PoolInstructionSwap,
		Swap: &models.SwapOpParams{
			ExactInputAmounts:   exactInputs,
			OutputTokenIndex:    outputIdx,
			MinimumOutputAmount: minimumOutput,
		},
	}, nil
}

func addOperation(env *config.Environment, interaction models.Interaction) ([]models.OperationSpec, error) {
	pool, err := poolForInteraction(env, interaction)
	if err != nil {
		return nil, err
	}

	inputs := zeroVector(pool)
	for _, a := range interaction.Add.InputAmounts {
		idx := pool.TokenIndex(a.TokenID())
		if idx < 0 {
			return nil, &models.NotFoundError{Kind: "pool", ID: string(a.TokenID())}
		}
		inputs[idx] = a
	}

	return []models.OperationSpec{{
		InteractionID: interaction.ID,
		PoolID:        pool.ID,
		Instruction:   models.PoolInstructionAdd,
		Add: &models.AddOpParams{
			InputAmounts:      inputs,
			MinimumMintAmount: interaction.Add.MinimumMintAmount,
		},
	}}, nil
}

func removeUniformOperation(env *config.Environment, interaction models.Interaction) ([]models.OperationSpec, error) {
	pool, err := poolForInteraction(env, interaction)
	if err != nil {
		return nil, err
	}

	minimums := zeroVector(pool)
	for _, a := range interaction.RemoveUniform.MinimumOutputAmounts {
		idx := pool.TokenIndex(a.TokenID())
		if idx < 0 {
			return nil, &models.NotFoundError{Kind: "pool", ID: string(a.TokenID())}
		}
		minimums[idx] = a
	}

	return []models.OperationSpec{{
		InteractionID: interaction.ID,
		PoolID:        pool.ID,
		Instruction:   models.PoolInstructionRemoveUniform,
		RemoveUniform: &models.RemoveUniformOpParams{
			ExactBurnAmount:      interaction.RemoveUniform.ExactBurnAmount,
			MinimumOutputAmounts: minimums,
		},
	}}, nil
}

func removeExactBurnOperation(env *config.Environment, interaction models.Interaction) ([]models.OperationSpec, error) {
	pool, err := poolForInteraction(env, interaction)
	if err != nil {
		return nil, err
	}

	minOut := interaction.RemoveExactBurn.MinimumOutputAmount
	outputIdx := pool.TokenIndex(minOut.TokenID())
	if outputIdx < 0 {
		return nil, &models.NotFoundError{Kind: "pool", ID: string(minOut.TokenID())}
	}

	return []models.OperationSpec{{
		InteractionID: interaction.ID,
		PoolID:        pool.ID,
		Instruction:   models.PoolInstructionRemoveExactBurn,
		RemoveExactBurn: &models.RemoveExactBurnOpParams{
			ExactBurnAmount:     interaction.RemoveExactBurn.ExactBurnAmount,
			OutputTokenIndex:    outputIdx,
			MinimumOutputAmount: minOut,
		},
	}}, nil
}

func removeExactOutputOperation(env *config.Environment, interaction models.Interaction) ([]models.OperationSpec, error) {
	pool, err := poolForInteraction(env, interaction)
	if err != nil {
		return nil, err
	}

	outputs := zeroVector(pool)
	for _, a := range interaction.RemoveExactOutput.ExactOutputAmounts {
		idx := pool.TokenIndex(a.TokenID())
		if idx < 0 {
			return nil, &models.NotFoundError{Kind: "pool", ID: string(a.TokenID())}
		}
		outputs[idx] = a
	}

	return []models.OperationSpec{{
		InteractionID: interaction.ID,
		PoolID:        pool.ID,
		Instruction:   models.PoolInstructionRemoveExactOutput,
		RemoveExactOutput: &models.RemoveExactOutputOpParams{
			MaximumBurnAmount:  interaction.RemoveExactOutput.MaximumBurnAmount,
			ExactOutputAmounts: outputs,
		},
	}}, nil
}

// poolForInteraction resolves the single pool a non-swap interaction targets
func poolForInteraction(env *config.Environment, interaction models.Interaction) (config.PoolDetails, error) {
	if len(interaction.PoolIDs) == 0 {
		return config.PoolDetails{}, &models.NotFoundError{Kind: "pool", ID: "(none)"}
	}
	return env.Pool(interaction.PoolIDs[0])
}

// zeroVector builds a fixed-arity amount vector matching the pool's token
// ordering, zero at every index
func zeroVector(pool config.PoolDetails) []models.Amount {
	out := make([]models.Amount, len(pool.TokenIDs))
	for i, id := range pool.TokenIDs {
		out[i] = models.ZeroAmount(id)
	}
	return out
}

// involvedTokens lists every token the flow touches on Solana
func involvedTokens(env *config.Environment, interaction models.Interaction) ([]models.TokenID, error) {
	switch interaction.Kind {
	case models.InteractionSwap:
		ids := []models.TokenID{
			interaction.Swap.ExactInputAmount.TokenID(),
			interaction.Swap.MinimumOutputAmount.TokenID(),
		}
		return appendRouteLPs(env, ids)
	case models.InteractionSwapV2:
		ids := []models.TokenID{
			interaction.SwapV2.FromTokenID,
			interaction.SwapV2.ToTokenID,
		}
		return appendRouteLPs(env, ids)
	case models.InteractionAdd:
		ids := make([]models.TokenID, 0, len(interaction.Add.InputAmounts)+1)
		for _, a := range interaction.Add.InputAmounts {
			if !a.IsZero() {
				ids = append(ids, a.TokenID())
			}
		}
		return append(ids, interaction.Add.MinimumMintAmount.TokenID()), nil
	case models.InteractionRemoveUniform:
		ids := []models.TokenID{interaction.RemoveUniform.ExactBurnAmount.TokenID()}
		for _, a := range interaction.RemoveUniform.MinimumOutputAmounts {
			ids = append(ids, a.TokenID())
		}
		return ids, nil
	case models.InteractionRemoveExactBurn:
		return []models.TokenID{
			interaction.RemoveExactBurn.ExactBurnAmount.TokenID(),
			interaction.RemoveExactBurn.MinimumOutputAmount.TokenID(),
		}, nil
	case models.InteractionRemoveExactOutput:
		ids := []models.TokenID{interaction.RemoveExactOutput.MaximumBurnAmount.TokenID()}
		for _, a := range interaction.RemoveExactOutput.ExactOutputAmounts {
			if !a.IsZero() {
				ids = append(ids, a.TokenID())
			}
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unknown interaction kind %q", interaction.Kind)
	}
}

// appendRouteLPs adds the joining LP token for cross-pool swap routes
func appendRouteLPs(env *config.Environment, ids []models.TokenID) ([]models.TokenID, error) {
	pools, err := env.PoolsForTokenPair(ids[0], ids[1])
	if err != nil {
		return nil, err
	}
	if len(pools) > 1 {
		if pools[1].TokenIndex(pools[0].LPTokenID) >= 0 {
			ids = append(ids, pools[0].LPTokenID)
		} else {
			ids = append(ids, pools[1].LPTokenID)
		}
	}
	return ids, nil
}
