package worker

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/models"
	"propeller/offchain/internal/store"
)

// Executor drives an interaction through its remaining steps. Every step is
// idempotent: it consults the recorded transaction ids before acting, skips
// what is already confirmed, and records each new confirmation in the store
// before moving on. Re-running a completed step performs no chain calls.
type Executor struct {
	logger      *zap.Logger
	store       *store.Store
	env         *config.Environment
	evm         map[models.Ecosystem]EVMClient
	solana      SolanaClient
	attestation AttestationClient
}

func NewExecutor(
	logger *zap.Logger,
	st *store.Store,
	env *config.Environment,
	evm map[models.Ecosystem]EVMClient,
	solana SolanaClient,
	attestation AttestationClient,
) *Executor {
	return &Executor{
		logger:      logger.Named("executor"),
		store:       st,
		env:         env,
		evm:         evm,
		solana:      solana,
		attestation: attestation,
	}
}

func (e *Executor) evmClient(ecosystem models.Ecosystem) (EVMClient, error) {
	if !ecosystem.IsEVM() {
		return nil, fmt.Errorf("ecosystem %s is not an EVM chain", ecosystem)
	}
	client, ok := e.evm[ecosystem]
	if !ok {
		return nil, fmt.Errorf("no client configured for ecosystem %s", ecosystem)
	}
	return client, nil
}

// PrepareTokenAccounts creates the missing Solana token accounts for the
// interaction's required mints.
func (e *Executor) PrepareTokenAccounts(ctx context.Context, id string) error {
	state, err := e.store.GetInteractionState(id)
	if err != nil {
		return err
	}
	owner, err := state.Interaction.Wallet(models.EcosystemSolana)
	if err != nil {
		return err
	}

	mints := make([]string, 0, len(state.RequiredSplTokenAccounts))
	for mint := range state.RequiredSplTokenAccounts {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	for _, mint := range mints {
		acct := state.RequiredSplTokenAccounts[mint]
		if acct.IsExistingAccount || acct.TxID != nil {
			continue
		}

		// The account may exist even though no creation is recorded: a prior
		// run can crash between confirmation and the store write.
		exists, err := e.solana.TokenAccountExists(ctx, owner, mint)
		if err != nil {
			return err
		}
		if exists {
			if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
				entry := st.RequiredSplTokenAccounts[mint]
				entry.IsExistingAccount = true
				st.RequiredSplTokenAccounts[mint] = entry
				return nil
			}); err != nil {
				return err
			}
			continue
		}

		txID, err := e.solana.CreateTokenAccount(ctx, owner, mint)
		if err != nil {
			return err
		}
		e.logger.Info("created token account",
			zap.String("interaction_id", id),
			zap.String("mint", mint),
			zap.String("tx_id", txID))

		if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
			entry := st.RequiredSplTokenAccounts[mint]
			entry.TxID = &txID
			st.RequiredSplTokenAccounts[mint] = entry
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// BridgeToSolana moves each inbound transfer across the bridge: lock on the
// source chain, post the attestation signatures on Solana, claim the wrapped
// tokens. Each phase is skipped when its transaction ids are already set.
func (e *Executor) BridgeToSolana(ctx context.Context, id string) error {
	state, err := e.store.GetInteractionState(id)
	if err != nil {
		return err
	}
	solanaWallet, err := state.Interaction.Wallet(models.EcosystemSolana)
	if err != nil {
		return err
	}

	for i := range state.ToSolanaTransfers {
		// Re-read: earlier iterations may have advanced the state.
		state, err = e.store.GetInteractionState(id)
		if err != nil {
			return err
		}
		transfer := state.ToSolanaTransfers[i]
		if models.ScalarTxStatus(transfer.TxIDs.ClaimTokenOnSolana) == models.StepStatusSubmitted {
			continue
		}

		client, err := e.evmClient(transfer.FromEcosystem)
		if err != nil {
			return err
		}
		token, err := e.env.Token(transfer.Token.TokenID())
		if err != nil {
			return err
		}

		// Lock on the source chain, or recover the sequence from the
		// already-recorded transfer transaction.
		var sequence uint64
		if models.ListTxStatus(transfer.TxIDs.ApproveAndTransferEVMToken, 2) != models.StepStatusSubmitted {
			amount, err := transfer.Token.Atomic(token.Decimals[transfer.FromEcosystem])
			if err != nil {
				return err
			}
			txIDs, seq, err := client.ApproveAndTransfer(ctx, token, amount, solanaWallet)
			if err != nil {
				return err
			}
			sequence = seq
			e.logger.Info("locked tokens on source chain",
				zap.String("interaction_id", id),
				zap.String("ecosystem", string(transfer.FromEcosystem)),
				zap.Strings("tx_ids", txIDs),
				zap.Uint64("sequence", seq))

			if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
				st.ToSolanaTransfers[i].TxIDs.ApproveAndTransferEVMToken = txIDs
				return nil
			}); err != nil {
				return err
			}
		} else {
			last := transfer.TxIDs.ApproveAndTransferEVMToken[len(transfer.TxIDs.ApproveAndTransferEVMToken)-1]
			sequence, err = client.TransferSequence(ctx, last)
			if err != nil {
				return err
			}
		}

		vaa, err := e.attestation.FetchSignedVAA(ctx, transfer.FromEcosystem, sequence)
		if err != nil {
			return err
		}

		if err := e.postVaaOnSolana(ctx, id, i, vaa); err != nil {
			return err
		}

		// Claim the wrapped tokens.
		state, err = e.store.GetInteractionState(id)
		if err != nil {
			return err
		}
		if state.ToSolanaTransfers[i].TxIDs.ClaimTokenOnSolana == nil {
			claimed, err := e.solana.TransferClaimed(ctx, vaa)
			if err != nil {
				return err
			}
			if claimed {
				// Claimed by a run that crashed before recording the
				// transaction id. The tokens are in place; move on.
				e.logger.Info("transfer already claimed on solana",
					zap.String("interaction_id", id))
				continue
			}
			txID, err := e.solana.ClaimTransfer(ctx, vaa, solanaWallet)
			if err != nil {
				return err
			}
			e.logger.Info("claimed tokens on solana",
				zap.String("interaction_id", id),
				zap.String("tx_id", txID))
			if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
				st.ToSolanaTransfers[i].TxIDs.ClaimTokenOnSolana = &txID
				return nil
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// postVaaOnSolana uploads the attestation's signature batches, recording each
// confirmed batch transaction before the next is submitted so a crash loses
// at most one in-flight transaction.
func (e *Executor) postVaaOnSolana(ctx context.Context, id string, transferIndex int, vaa []byte) error {
	state, err := e.store.GetInteractionState(id)
	if err != nil {
		return err
	}
	transfer := state.ToSolanaTransfers[transferIndex]

	if transfer.SignatureSetAddress != nil {
		complete, err := e.solana.SignatureSetComplete(ctx, *transfer.SignatureSetAddress)
		if err != nil {
			return err
		}
		if complete {
			return nil
		}
	}

	sigSet, seq, err := e.solana.PostVaaSignatures(ctx, vaa, len(transfer.TxIDs.PostVaaOnSolana))
	if err != nil {
		return err
	}

	if transfer.SignatureSetAddress == nil {
		if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
			st.ToSolanaTransfers[transferIndex].SignatureSetAddress = &sigSet
			return nil
		}); err != nil {
			return err
		}
	}

	for {
		txID, ok, err := seq.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
			st.ToSolanaTransfers[transferIndex].TxIDs.PostVaaOnSolana =
				append(st.ToSolanaTransfers[transferIndex].TxIDs.PostVaaOnSolana, txID)
			return nil
		}); err != nil {
			return err
		}
	}
}

// ExecutePoolOperations runs the interaction's pool instructions in order. A
// later hop whose input depends on an earlier hop's output carries a zero
// placeholder; it is filled with the actual output before submission. After
// the final operation the outbound transfer values are recorded.
func (e *Executor) ExecutePoolOperations(ctx context.Context, id string) error {
	state, err := e.store.GetInteractionState(id)
	if err != nil {
		return err
	}

	var (
		lastOutputs  map[models.TokenID]decimal.Decimal
		lastHopToken models.TokenID
	)

	for i := range state.SolanaPoolOperations {
		state, err = e.store.GetInteractionState(id)
		if err != nil {
			return err
		}
		op := state.SolanaPoolOperations[i]

		pool, err := e.env.Pool(op.Operation.PoolID)
		if err != nil {
			return err
		}

		if op.TxID != nil {
			// Already executed; recover the payouts for downstream hops.
			outputs, err := e.solana.PoolOperationOutputs(ctx, *op.TxID)
			if err != nil {
				return err
			}
			lastOutputs, lastHopToken = outputs, operationOutputToken(pool, op.Operation)
			continue
		}

		spec := op.Operation
		if i > 0 && lastOutputs != nil {
			hopValue, ok := lastOutputs[lastHopToken]
			if !ok {
				return fmt.Errorf("operation %d of interaction %s recorded no %s output", i-1, id, lastHopToken)
			}
			spec, err = fillHopInput(pool, spec, lastHopToken, hopValue)
			if err != nil {
				return err
			}
			if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
				st.SolanaPoolOperations[i].Operation = spec
				return nil
			}); err != nil {
				return err
			}
		}

		txID, outputs, err := e.solana.ExecutePoolOperation(ctx, pool, spec)
		if err != nil {
			return err
		}
		e.logger.Info("executed pool operation",
			zap.String("interaction_id", id),
			zap.String("pool_id", string(pool.ID)),
			zap.String("instruction", string(spec.Instruction)),
			zap.String("tx_id", txID))

		if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
			st.SolanaPoolOperations[i].TxID = &txID
			return nil
		}); err != nil {
			return err
		}
		lastOutputs, lastHopToken = outputs, operationOutputToken(pool, spec)
	}

	if lastOutputs == nil {
		return nil
	}

	// Record the outbound transfer amounts now that they are known. A uniform
	// removal pays out several tokens at once, so each transfer is matched
	// against its own token's payout.
	return e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
		for i := range st.FromSolanaTransfers {
			if st.FromSolanaTransfers[i].Value != nil {
				continue
			}
			output, ok := lastOutputs[st.FromSolanaTransfers[i].TokenID]
			if !ok {
				continue
			}
			value := output
			st.FromSolanaTransfers[i].Value = &value
		}
		return nil
	})
}

// BridgeFromSolana moves each outbound transfer across the bridge: lock on
// Solana, then redeem the attestation on the target chain.
func (e *Executor) BridgeFromSolana(ctx context.Context, id string) error {
	state, err := e.store.GetInteractionState(id)
	if err != nil {
		return err
	}

	for i := range state.FromSolanaTransfers {
		state, err = e.store.GetInteractionState(id)
		if err != nil {
			return err
		}
		transfer := state.FromSolanaTransfers[i]
		if models.ScalarTxStatus(transfer.TxIDs.ClaimTokenOnEVM) == models.StepStatusSubmitted {
			continue
		}
		if transfer.Value == nil {
			return fmt.Errorf("transfer %d of interaction %s has no recorded amount", i, id)
		}

		client, err := e.evmClient(transfer.ToEcosystem)
		if err != nil {
			return err
		}
		token, err := e.env.Token(transfer.TokenID)
		if err != nil {
			return err
		}
		recipient, err := state.Interaction.Wallet(transfer.ToEcosystem)
		if err != nil {
			return err
		}

		var sequence uint64
		if transfer.TxIDs.TransferSplToken == nil {
			txID, seq, err := e.solana.TransferToEVM(ctx, token, *transfer.Value, transfer.ToEcosystem, recipient)
			if err != nil {
				return err
			}
			sequence = seq
			e.logger.Info("locked tokens on solana",
				zap.String("interaction_id", id),
				zap.String("target", string(transfer.ToEcosystem)),
				zap.String("tx_id", txID))
			if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
				st.FromSolanaTransfers[i].TxIDs.TransferSplToken = &txID
				return nil
			}); err != nil {
				return err
			}
		} else {
			sequence, err = e.solana.TransferSequence(ctx, *transfer.TxIDs.TransferSplToken)
			if err != nil {
				return err
			}
		}

		vaa, err := e.attestation.FetchSignedVAA(ctx, models.EcosystemSolana, sequence)
		if err != nil {
			return err
		}

		redeemed, err := client.TransferRedeemed(ctx, vaa)
		if err != nil {
			return err
		}
		if redeemed {
			// Redeemed by a run that crashed before recording the transaction
			// id. The tokens are released; move on.
			e.logger.Info("transfer already redeemed on target chain",
				zap.String("interaction_id", id),
				zap.String("ecosystem", string(transfer.ToEcosystem)))
			continue
		}

		txID, err := client.RedeemTransfer(ctx, vaa)
		if err != nil {
			return err
		}
		e.logger.Info("redeemed tokens on target chain",
			zap.String("interaction_id", id),
			zap.String("ecosystem", string(transfer.ToEcosystem)),
			zap.String("tx_id", txID))
		if err := e.store.UpdateInteractionState(ctx, id, func(st *models.InteractionState) error {
			st.FromSolanaTransfers[i].TxIDs.ClaimTokenOnEVM = &txID
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// operationOutputToken identifies the token carried across a hop boundary.
// Only single-output instructions can feed a downstream hop; multi-output
// removals are always terminal and settle through the per-token payout map.
func operationOutputToken(pool config.PoolDetails, op models.OperationSpec) models.TokenID {
	switch op.Instruction {
	case models.PoolInstructionAdd:
		return pool.LPTokenID
	case models.PoolInstructionSwap:
		return pool.TokenIDs[op.Swap.OutputTokenIndex]
	case models.PoolInstructionRemoveExactBurn:
		return pool.TokenIDs[op.RemoveExactBurn.OutputTokenIndex]
	default:
		return ""
	}
}

// fillHopInput replaces the zero placeholder in a downstream hop with the
// upstream hop's actual output amount.
func fillHopInput(pool config.PoolDetails, op models.OperationSpec, token models.TokenID, value decimal.Decimal) (models.OperationSpec, error) {
	amount, err := models.NewAmount(token, value)
	if err != nil {
		return models.OperationSpec{}, err
	}

	switch op.Instruction {
	case models.PoolInstructionSwap:
		idx := pool.TokenIndex(token)
		if idx < 0 {
			return models.OperationSpec{}, fmt.Errorf("token %s is not in pool %s", token, pool.ID)
		}
		op.Swap.ExactInputAmounts[idx] = amount
	case models.PoolInstructionRemoveExactBurn:
		op.RemoveExactBurn.ExactBurnAmount = amount
	default:
		return models.OperationSpec{}, fmt.Errorf("instruction %s cannot take a hop input", op.Instruction)
	}
	return op, nil
}
