package store

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/models"
)

// The persistence codec maps the rich in-memory InteractionState (amounts
// bound to full token descriptors) to a storage-safe plain form holding only
// {tokenId, decimalString} pairs and primitives. Two shapes exist side by
// side: the legacy v1 single-pool-swap shape and the current v2 shape,
// distinguished by the version field. Decoding supports both; encoding is
// always v2.

type storedAmount struct {
	TokenID string `json:"tokenId"`
	Value   string `json:"value"`
}

type storedTokenRef struct {
	ID string `json:"id"`
}

type storedTokenAccount struct {
	IsExistingAccount bool    `json:"isExistingAccount"`
	TxID              *string `json:"txId"`
}

type storedToSolanaTxIDs struct {
	ApproveAndTransferEVMToken []string `json:"approveAndTransferEvmToken"`
	PostVaaOnSolana            []string `json:"postVaaOnSolana"`
	ClaimTokenOnSolana         *string  `json:"claimTokenOnSolana"`
}

type storedToSolanaTransfer struct {
	Token               storedAmount        `json:"token"`
	FromEcosystem       string              `json:"fromEcosystem"`
	SignatureSetAddress *string             `json:"signatureSetAddress"`
	TxIDs               storedToSolanaTxIDs `json:"txIds"`
}

type storedFromSolanaTxIDs struct {
	TransferSplToken *string `json:"transferSplToken"`
	ClaimTokenOnEVM  *string `json:"claimTokenOnEvm"`
}

type storedFromSolanaTransfer struct {
	Token       storedTokenRef        `json:"token"`
	ToEcosystem string                `json:"toEcosystem"`
	Value       *string               `json:"value"`
	TxIDs       storedFromSolanaTxIDs `json:"txIds"`
}

type storedAddOpParams struct {
	InputAmounts      []storedAmount `json:"inputAmounts"`
	MinimumMintAmount storedAmount   `json:"minimumMintAmount"`
}

type storedSwapOpParams struct {
	ExactInputAmounts   []storedAmount `json:"exactInputAmounts"`
	OutputTokenIndex    int            `json:"outputTokenIndex"`
	MinimumOutputAmount storedAmount   `json:"minimumOutputAmount"`
}

type storedRemoveUniformOpParams struct {
	ExactBurnAmount      storedAmount   `json:"exactBurnAmount"`
	MinimumOutputAmounts []storedAmount `json:"minimumOutputAmounts"`
}

type storedRemoveExactBurnOpParams struct {
	ExactBurnAmount     storedAmount `json:"exactBurnAmount"`
	OutputTokenIndex    int          `json:"outputTokenIndex"`
	MinimumOutputAmount storedAmount `json:"minimumOutputAmount"`
}

type storedRemoveExactOutputOpParams struct {
	MaximumBurnAmount  storedAmount   `json:"maximumBurnAmount"`
	ExactOutputAmounts []storedAmount `json:"exactOutputAmounts"`
}

type storedOperationSpec struct {
	InteractionID string `json:"interactionId"`
	PoolID        string `json:"poolId"`
	Instruction   string `json:"instruction"`

	Add               *storedAddOpParams               `json:"add,omitempty"`
	Swap              *storedSwapOpParams              `json:"swap,omitempty"`
	RemoveUniform     *storedRemoveUniformOpParams     `json:"removeUniform,omitempty"`
	RemoveExactBurn   *storedRemoveExactBurnOpParams   `json:"removeExactBurn,omitempty"`
	RemoveExactOutput *storedRemoveExactOutputOpParams `json:"removeExactOutput,omitempty"`
}

type storedPoolOperation struct {
	Operation storedOperationSpec `json:"operation"`
	TxID      *string             `json:"txId"`
}

type storedAddParams struct {
	InputAmounts      []storedAmount `json:"inputAmounts"`
	MinimumMintAmount storedAmount   `json:"minimumMintAmount"`
}

type storedSwapParams struct {
	ExactInputAmount    storedAmount `json:"exactInputAmount"`
	MinimumOutputAmount storedAmount `json:"minimumOutputAmount"`
}

type storedRemoveUniformParams struct {
	ExactBurnAmount      storedAmount   `json:"exactBurnAmount"`
	MinimumOutputAmounts []storedAmount `json:"minimumOutputAmounts"`
}

type storedRemoveExactBurnParams struct {
	ExactBurnAmount     storedAmount `json:"exactBurnAmount"`
	MinimumOutputAmount storedAmount `json:"minimumOutputAmount"`
}

type storedRemoveExactOutputParams struct {
	MaximumBurnAmount  storedAmount   `json:"maximumBurnAmount"`
	ExactOutputAmounts []storedAmount `json:"exactOutputAmounts"`
}

type storedSwapV2Params struct {
	FromTokenID        string `json:"fromTokenId"`
	FromEcosystem      string `json:"fromEcosystem"`
	ToTokenID          string `json:"toTokenId"`
	ToEcosystem        string `json:"toEcosystem"`
	ExactInputValue    string `json:"exactInputValue"`
	MinimumOutputValue string `json:"minimumOutputValue"`
}

type storedInteraction struct {
	ID               string             `json:"id"`
	Kind             string             `json:"kind"`
	PoolIDs          []string           `json:"poolIds"`
	Env              string             `json:"env"`
	SubmittedAt      int64              `json:"submittedAt"`
	ConnectedWallets map[string]*string `json:"connectedWallets"`

	Add               *storedAddParams               `json:"add,omitempty"`
	Swap              *storedSwapParams              `json:"swap,omitempty"`
	RemoveUniform     *storedRemoveUniformParams     `json:"removeUniform,omitempty"`
	RemoveExactBurn   *storedRemoveExactBurnParams   `json:"removeExactBurn,omitempty"`
	RemoveExactOutput *storedRemoveExactOutputParams `json:"removeExactOutput,omitempty"`
	SwapV2            *storedSwapV2Params            `json:"swapV2,omitempty"`
}

type storedStateV2 struct {
	Version                  int                           `json:"version"`
	Interaction              storedInteraction             `json:"interaction"`
	RequiredSplTokenAccounts map[string]storedTokenAccount `json:"requiredSplTokenAccounts"`
	ToSolanaTransfers        []storedToSolanaTransfer      `json:"toSolanaTransfers"`
	SolanaPoolOperations     []storedPoolOperation         `json:"solanaPoolOperations"`
	FromSolanaTransfers      []storedFromSolanaTransfer    `json:"fromSolanaTransfers"`
}

// storedStateV1 is the legacy persisted shape. It predates the variant sum
// type: only single-pool swaps were representable, with flat amount fields on
// the interaction and a single pool operation object.
type storedStateV1 struct {
	Version     int `json:"version"`
	Interaction struct {
		ID                  string             `json:"id"`
		PoolID              string             `json:"poolId"`
		Env                 string             `json:"env"`
		SubmittedAt         int64              `json:"submittedAt"`
		ConnectedWallets    map[string]*string `json:"connectedWallets"`
		ExactInputAmount    storedAmount       `json:"exactInputAmount"`
		MinimumOutputAmount storedAmount       `json:"minimumOutputAmount"`
	} `json:"interaction"`
	PrepareSplTokenAccountsState map[string]storedTokenAccount `json:"prepareSplTokenAccountsState"`
	WormholeToSolanaTransfers    []storedToSolanaTransfer      `json:"wormholeToSolanaTransfers"`
	SolanaPoolOperation          *storedPoolOperation          `json:"solanaPoolOperation"`
	WormholeFromSolanaTransfers  []storedFromSolanaTransfer    `json:"wormholeFromSolanaTransfers"`
}

// Serialize encodes a state in the current persisted form.
func Serialize(state *models.InteractionState) ([]byte, error) {
	out := storedStateV2{
		Version:     models.StateVersion,
		Interaction: encodeInteraction(state.Interaction),
	}

	if state.RequiredSplTokenAccounts != nil {
		out.RequiredSplTokenAccounts = make(map[string]storedTokenAccount, len(state.RequiredSplTokenAccounts))
		for key, acct := range state.RequiredSplTokenAccounts {
			out.RequiredSplTokenAccounts[key] = storedTokenAccount{
				IsExistingAccount: acct.IsExistingAccount,
				TxID:              acct.TxID,
			}
		}
	}

	out.ToSolanaTransfers = make([]storedToSolanaTransfer, len(state.ToSolanaTransfers))
	for i, t := range state.ToSolanaTransfers {
		out.ToSolanaTransfers[i] = storedToSolanaTransfer{
			Token:               encodeAmount(t.Token),
			FromEcosystem:       string(t.FromEcosystem),
			SignatureSetAddress: t.SignatureSetAddress,
			TxIDs: storedToSolanaTxIDs{
				ApproveAndTransferEVMToken: t.TxIDs.ApproveAndTransferEVMToken,
				PostVaaOnSolana:            t.TxIDs.PostVaaOnSolana,
				ClaimTokenOnSolana:         t.TxIDs.ClaimTokenOnSolana,
			},
		}
	}

	out.SolanaPoolOperations = make([]storedPoolOperation, len(state.SolanaPoolOperations))
	for i, op := range state.SolanaPoolOperations {
		out.SolanaPoolOperations[i] = storedPoolOperation{
			Operation: encodeOperation(op.Operation),
			TxID:      op.TxID,
		}
	}

	out.FromSolanaTransfers = make([]storedFromSolanaTransfer, len(state.FromSolanaTransfers))
	for i, t := range state.FromSolanaTransfers {
		var value *string
		if t.Value != nil {
			v := t.Value.String()
			value = &v
		}
		out.FromSolanaTransfers[i] = storedFromSolanaTransfer{
			Token:       storedTokenRef{ID: string(t.TokenID)},
			ToEcosystem: string(t.ToEcosystem),
			Value:       value,
			TxIDs: storedFromSolanaTxIDs{
				TransferSplToken: t.TxIDs.TransferSplToken,
				ClaimTokenOnEVM:  t.TxIDs.ClaimTokenOnEVM,
			},
		}
	}

	return json.Marshal(out)
}

// Deserialize decodes either persisted shape, migrating legacy records to the
// current version. Token ids are resolved against the environment's registry;
// a stale id fails that one record with a TokenResolutionError.
func Deserialize(env *config.Environment, data []byte) (*models.InteractionState, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid persisted interaction state: %w", err)
	}

	switch probe.Version {
	case 0, 1:
		var v1 storedStateV1
		if err := json.Unmarshal(data, &v1); err != nil {
			return nil, fmt.Errorf("invalid v1 interaction state: %w", err)
		}
		return migrateV1(env, &v1)
	case models.StateVersion:
		var v2 storedStateV2
		if err := json.Unmarshal(data, &v2); err != nil {
			return nil, fmt.Errorf("invalid v2 interaction state: %w", err)
		}
		return decodeV2(env, &v2)
	default:
		return nil, fmt.Errorf("unsupported interaction state version %d", probe.Version)
	}
}

func decodeV2(env *config.Environment, in *storedStateV2) (*models.InteractionState, error) {
	interaction, err := decodeInteraction(env, &in.Interaction)
	if err != nil {
		return nil, err
	}

	state := &models.InteractionState{
		Interaction: interaction,
		Version:     models.StateVersion,
	}

	if in.RequiredSplTokenAccounts != nil {
		state.RequiredSplTokenAccounts = make(map[string]models.TokenAccountState, len(in.RequiredSplTokenAccounts))
		for key, acct := range in.RequiredSplTokenAccounts {
			state.RequiredSplTokenAccounts[key] = models.TokenAccountState{
				IsExistingAccount: acct.IsExistingAccount,
				TxID:              acct.TxID,
			}
		}
	}

	state.ToSolanaTransfers = make([]models.ToSolanaTransfer, len(in.ToSolanaTransfers))
	for i, t := range in.ToSolanaTransfers {
		token, err := decodeAmount(env, t.Token)
		if err != nil {
			return nil, err
		}
		state.ToSolanaTransfers[i] = models.ToSolanaTransfer{
			Token:               token,
			FromEcosystem:       models.Ecosystem(t.FromEcosystem),
			SignatureSetAddress: t.SignatureSetAddress,
			TxIDs: models.ToSolanaTxIDs{
				ApproveAndTransferEVMToken: t.TxIDs.ApproveAndTransferEVMToken,
				PostVaaOnSolana:            t.TxIDs.PostVaaOnSolana,
				ClaimTokenOnSolana:         t.TxIDs.ClaimTokenOnSolana,
			},
		}
	}

	state.SolanaPoolOperations = make([]models.SolanaPoolOperationState, len(in.SolanaPoolOperations))
	for i, op := range in.SolanaPoolOperations {
		spec, err := decodeOperation(env, &op.Operation)
		if err != nil {
			return nil, err
		}
		state.SolanaPoolOperations[i] = models.SolanaPoolOperationState{
			Operation: spec,
			TxID:      op.TxID,
		}
	}

	state.FromSolanaTransfers = make([]models.FromSolanaTransfer, len(in.FromSolanaTransfers))
	for i, t := range in.FromSolanaTransfers {
		if _, err := env.Token(models.TokenID(t.Token.ID)); err != nil {
			return nil, err
		}
		var value *decimal.Decimal
		if t.Value != nil {
			v, err := decimal.NewFromString(*t.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid transfer value %q: %w", *t.Value, err)
			}
			value = &v
		}
		state.FromSolanaTransfers[i] = models.FromSolanaTransfer{
			TokenID:     models.TokenID(t.Token.ID),
			ToEcosystem: models.Ecosystem(t.ToEcosystem),
			Value:       value,
			TxIDs: models.FromSolanaTxIDs{
				TransferSplToken: t.TxIDs.TransferSplToken,
				ClaimTokenOnEVM:  t.TxIDs.ClaimTokenOnEVM,
			},
		}
	}

	return state, nil
}

// migrateV1 lifts a legacy record into the current shape: the flat swap
// fields become a Swap variant, and the single pool operation becomes a
// one-element list.
func migrateV1(env *config.Environment, in *storedStateV1) (*models.InteractionState, error) {
	exactInput, err := decodeAmount(env, in.Interaction.ExactInputAmount)
	if err != nil {
		return nil, err
	}
	minimumOutput, err := decodeAmount(env, in.Interaction.MinimumOutputAmount)
	if err != nil {
		return nil, err
	}

	interaction := models.Interaction{
		ID:               in.Interaction.ID,
		Kind:             models.InteractionSwap,
		PoolIDs:          []models.PoolID{models.PoolID(in.Interaction.PoolID)},
		Env:              models.Env(in.Interaction.Env),
		SubmittedAt:      in.Interaction.SubmittedAt,
		ConnectedWallets: decodeWallets(in.Interaction.ConnectedWallets),
		Swap: &models.SwapParams{
			ExactInputAmount:    exactInput,
			MinimumOutputAmount: minimumOutput,
		},
	}

	v2 := storedStateV2{
		Version:                  models.StateVersion,
		RequiredSplTokenAccounts: in.PrepareSplTokenAccountsState,
		ToSolanaTransfers:        in.WormholeToSolanaTransfers,
		FromSolanaTransfers:      in.WormholeFromSolanaTransfers,
	}
	if in.SolanaPoolOperation != nil {
		v2.SolanaPoolOperations = []storedPoolOperation{*in.SolanaPoolOperation}
	}

	state, err := decodeV2(env, &v2)
	if err != nil {
		return nil, err
	}
	state.Interaction = interaction
	return state, nil
}

func encodeAmount(a models.Amount) storedAmount {
	return storedAmount{
		TokenID: string(a.TokenID()),
		Value:   a.HumanString(),
	}
}

func decodeAmount(env *config.Environment, in storedAmount) (models.Amount, error) {
	if _, err := env.Token(models.TokenID(in.TokenID)); err != nil {
		return models.Amount{}, err
	}
	return models.AmountFromHumanString(models.TokenID(in.TokenID), in.Value)
}

func encodeAmounts(amounts []models.Amount) []storedAmount {
	out := make([]storedAmount, len(amounts))
	for i, a := range amounts {
		out[i] = encodeAmount(a)
	}
	return out
}

func decodeAmounts(env *config.Environment, in []storedAmount) ([]models.Amount, error) {
	out := make([]models.Amount, len(in))
	for i, a := range in {
		amount, err := decodeAmount(env, a)
		if err != nil {
			return nil, err
		}
		out[i] = amount
	}
	return out, nil
}

func encodeWallets(wallets map[models.Ecosystem]*string) map[string]*string {
	out := make(map[string]*string, len(wallets))
	for eco, addr := range wallets {
		out[string(eco)] = addr
	}
	return out
}

func decodeWallets(wallets map[string]*string) map[models.Ecosystem]*string {
	out := make(map[models.Ecosystem]*string, len(wallets))
	for eco, addr := range wallets {
		out[models.Ecosystem(eco)] = addr
	}
	return out
}

func encodeInteraction(in models.Interaction) storedInteraction {
	out := storedInteraction{
		ID:               in.ID,
		Kind:             string(in.Kind),
		Env:              string(in.Env),
		SubmittedAt:      in.SubmittedAt,
		ConnectedWallets: encodeWallets(in.ConnectedWallets),
	}
	for _, id := range in.PoolIDs {
		out.PoolIDs = append(out.PoolIDs, string(id))
	}

	switch {
	case in.Add != nil:
		out.Add = &storedAddParams{
			InputAmounts:      encodeAmounts(in.Add.InputAmounts),
			MinimumMintAmount: encodeAmount(in.Add.MinimumMintAmount),
		}
	case in.Swap != nil:
		out.Swap = &storedSwapParams{
			ExactInputAmount:    encodeAmount(in.Swap.ExactInputAmount),
			MinimumOutputAmount: encodeAmount(in.Swap.MinimumOutputAmount),
		}
	case in.RemoveUniform != nil:
		out.RemoveUniform = &storedRemoveUniformParams{
			ExactBurnAmount:      encodeAmount(in.RemoveUniform.ExactBurnAmount),
			MinimumOutputAmounts: encodeAmounts(in.RemoveUniform.MinimumOutputAmounts),
		}
	case in.RemoveExactBurn != nil:
		out.RemoveExactBurn = &storedRemoveExactBurnParams{
			ExactBurnAmount:     encodeAmount(in.RemoveExactBurn.ExactBurnAmount),
			MinimumOutputAmount: encodeAmount(in.RemoveExactBurn.MinimumOutputAmount),
		}
	case in.RemoveExactOutput != nil:
		out.RemoveExactOutput = &storedRemoveExactOutputParams{
			MaximumBurnAmount:  encodeAmount(in.RemoveExactOutput.MaximumBurnAmount),
			ExactOutputAmounts: encodeAmounts(in.RemoveExactOutput.ExactOutputAmounts),
		}
	case in.SwapV2 != nil:
		out.SwapV2 = &storedSwapV2Params{
			FromTokenID:        string(in.SwapV2.FromTokenID),
			FromEcosystem:      string(in.SwapV2.FromEcosystem),
			ToTokenID:          string(in.SwapV2.ToTokenID),
			ToEcosystem:        string(in.SwapV2.ToEcosystem),
			ExactInputValue:    in.SwapV2.ExactInputValue.String(),
			MinimumOutputValue: in.SwapV2.MinimumOutputValue.String(),
		}
	}

	return out
}

func decodeInteraction(env *config.Environment, in *storedInteraction) (models.Interaction, error) {
	out := models.Interaction{
		ID:               in.ID,
		Kind:             models.InteractionKind(in.Kind),
		Env:              models.Env(in.Env),
		SubmittedAt:      in.SubmittedAt,
		ConnectedWallets: decodeWallets(in.ConnectedWallets),
	}
	for _, id := range in.PoolIDs {
		out.PoolIDs = append(out.PoolIDs, models.PoolID(id))
	}

	var err error
	switch {
	case in.Add != nil:
		params := &models.AddParams{}
		if params.InputAmounts, err = decodeAmounts(env, in.Add.InputAmounts); err != nil {
			return models.Interaction{}, err
		}
		if params.MinimumMintAmount, err = decodeAmount(env, in.Add.MinimumMintAmount); err != nil {
			return models.Interaction{}, err
		}
		out.Add = params
	case in.Swap != nil:
		params := &models.SwapParams{}
		if params.ExactInputAmount, err = decodeAmount(env, in.Swap.ExactInputAmount); err != nil {
			return models.Interaction{}, err
		}
		if params.MinimumOutputAmount, err = decodeAmount(env, in.Swap.MinimumOutputAmount); err != nil {
			return models.Interaction{}, err
		}
		out.Swap = params
	case in.RemoveUniform != nil:
		params := &models.RemoveUniformParams{}
		if params.ExactBurnAmount, err = decodeAmount(env, in.RemoveUniform.ExactBurnAmount); err != nil {
			return models.Interaction{}, err
		}
		if params.MinimumOutputAmounts, err = decodeAmounts(env, in.RemoveUniform.MinimumOutputAmounts); err != nil {
			return models.Interaction{}, err
		}
		out.RemoveUniform = params
	case in.RemoveExactBurn != nil:
		params := &models.RemoveExactBurnParams{}
		if params.ExactBurnAmount, err = decodeAmount(env, in.RemoveExactBurn.ExactBurnAmount); err != nil {
			return models.Interaction{}, err
		}
		if params.MinimumOutputAmount, err = decodeAmount(env, in.RemoveExactBurn.MinimumOutputAmount); err != nil {
			return models.Interaction{}, err
		}
		out.RemoveExactBurn = params
	case in.RemoveExactOutput != nil:
		params := &models.RemoveExactOutputParams{}
		if params.MaximumBurnAmount, err = decodeAmount(env, in.RemoveExactOutput.MaximumBurnAmount); err != nil {
			return models.Interaction{}, err
		}
		if params.ExactOutputAmounts, err = decodeAmounts(env, in.RemoveExactOutput.ExactOutputAmounts); err != nil {
			return models.Interaction{}, err
		}
		out.RemoveExactOutput = params
	case in.SwapV2 != nil:
		exactInput, err := decimal.NewFromString(in.SwapV2.ExactInputValue)
		if err != nil {
			return models.Interaction{}, fmt.Errorf("invalid swap input value: %w", err)
		}
		minimumOutput, err := decimal.NewFromString(in.SwapV2.MinimumOutputValue)
		if err != nil {
			return models.Interaction{}, fmt.Errorf("invalid swap output value: %w", err)
		}
		out.SwapV2 = &models.SwapV2Params{
			FromTokenID:        models.TokenID(in.SwapV2.FromTokenID),
			FromEcosystem:      models.Ecosystem(in.SwapV2.FromEcosystem),
			ToTokenID:          models.TokenID(in.SwapV2.ToTokenID),
			ToEcosystem:        models.Ecosystem(in.SwapV2.ToEcosystem),
			ExactInputValue:    exactInput,
			MinimumOutputValue: minimumOutput,
		}
	default:
		return models.Interaction{}, fmt.Errorf("persisted interaction %s has no variant params", in.ID)
	}

	return out, out.Validate()
}

func encodeOperation(in models.OperationSpec) storedOperationSpec {
	out := storedOperationSpec{
		InteractionID: in.InteractionID,
		PoolID:        string(in.PoolID),
		Instruction:   string(in.Instruction),
	}

	switch {
	case in.Add != nil:
		out.Add = &storedAddOpParams{
			InputAmounts:      encodeAmounts(in.Add.InputAmounts),
			MinimumMintAmount: encodeAmount(in.Add.MinimumMintAmount),
		}
	case in.Swap != nil:
		out.Swap = &storedSwapOpParams{
			ExactInputAmounts:   encodeAmounts(in.Swap.ExactInputAmounts),
			OutputTokenIndex:    in.Swap.OutputTokenIndex,
			MinimumOutputAmount: encodeAmount(in.Swap.MinimumOutputAmount),
		}
	case in.RemoveUniform != nil:
		out.RemoveUniform = &storedRemoveUniformOpParams{
			ExactBurnAmount:      encodeAmount(in.RemoveUniform.ExactBurnAmount),
			MinimumOutputAmounts: encodeAmounts(in.RemoveUniform.MinimumOutputAmounts),
		}
	case in.RemoveExactBurn != nil:
		out.RemoveExactBurn = &storedRemoveExactBurnOpParams{
			ExactBurnAmount:     encodeAmount(in.RemoveExactBurn.ExactBurnAmount),
			OutputTokenIndex:    in.RemoveExactBurn.OutputTokenIndex,
			MinimumOutputAmount: encodeAmount(in.RemoveExactBurn.MinimumOutputAmount),
		}
	case in.RemoveExactOutput != nil:
		out.RemoveExactOutput = &storedRemoveExactOutputOpParams{
			MaximumBurnAmount:  encodeAmount(in.RemoveExactOutput.MaximumBurnAmount),
			ExactOutputAmounts: encodeAmounts(in.RemoveExactOutput.ExactOutputAmounts),
		}
	}

	return out
}

func decodeOperation(env *config.Environment, in *storedOperationSpec) (models.OperationSpec, error) {
	out := models.OperationSpec{
		InteractionID: in.InteractionID,
		PoolID:        models.PoolID(in.PoolID),
		Instruction:   models.PoolInstruction(in.Instruction),
	}

	var err error
	switch {
	case in.Add != nil:
		params := &models.AddOpParams{}
		if params.InputAmounts, err = decodeAmounts(env, in.Add.InputAmounts); err != nil {
			return models.OperationSpec{}, err
		}
		if params.MinimumMintAmount, err = decodeAmount(env, in.Add.MinimumMintAmount); err != nil {
			return models.OperationSpec{}, err
		}
		out.Add = params
	case in.Swap != nil:
		params := &models.SwapOpParams{OutputTokenIndex: in.Swap.OutputTokenIndex}
		if params.ExactInputAmounts, err = decodeAmounts(env, in.Swap.ExactInputAmounts); err != nil {
			return models.OperationSpec{}, err
		}
		if params.MinimumOutputAmount, err = decodeAmount(env, in.Swap.MinimumOutputAmount); err != nil {
			return models.OperationSpec{}, err
		}
		out.Swap = params
	case in.RemoveUniform != nil:
		params := &models.RemoveUniformOpParams{}
		if params.ExactBurnAmount, err = decodeAmount(env, in.RemoveUniform.ExactBurnAmount); err != nil {
			return models.OperationSpec{}, err
		}
		if params.MinimumOutputAmounts, err = decodeAmounts(env, in.RemoveUniform.MinimumOutputAmounts); err != nil {
			return models.OperationSpec{}, err
		}
		out.RemoveUniform = params
	case in.RemoveExactBurn != nil:
		params := &models.RemoveExactBurnOpParams{OutputTokenIndex: in.RemoveExactBurn.OutputTokenIndex}
		if params.ExactBurnAmount, err = decodeAmount(env, in.RemoveExactBurn.ExactBurnAmount); err != nil {
			return models.OperationSpec{}, err
		}
		if params.MinimumOutputAmount, err = decodeAmount(env, in.RemoveExactBurn.MinimumOutputAmount); err != nil {
			return models.OperationSpec{}, err
		}
		out.RemoveExactBurn = params
	case in.RemoveExactOutput != nil:
		params := &models.RemoveExactOutputOpParams{}
		if params.MaximumBurnAmount, err = decodeAmount(env, in.RemoveExactOutput.MaximumBurnAmount); err != nil {
			return models.OperationSpec{}, err
		}
		if params.ExactOutputAmounts, err = decodeAmounts(env, in.RemoveExactOutput.ExactOutputAmounts); err != nil {
			return models.OperationSpec{}, err
		}
		out.RemoveExactOutput = params
	default:
		return models.OperationSpec{}, fmt.Errorf("persisted pool operation has no params")
	}

	return out, out.Validate()
}
