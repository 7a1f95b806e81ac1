package solana

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	"go.uber.org/zap"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/models"
	"propeller/offchain/internal/worker"
)

const (
	confirmTimeout = 2 * time.Minute

	// Guardian signatures per verification transaction; bounded by the
	// secp256k1 instruction budget of one Solana transaction.
	signatureBatchSize = 7

	// Core bridge instruction indices.
	instructionPostVAA          = 2
	instructionVerifySignatures = 7

	// Token bridge instruction indices.
	instructionCompleteWrapped = 3
	instructionTransferWrapped = 4
)

// Client submits pool and bridge transactions on Solana.
type Client struct {
	rpcClient   *rpc.Client
	cfg         config.SolanaConfig
	env         *config.Environment
	poolProgram solana.PublicKey
	coreBridge  solana.PublicKey
	tokenBridge solana.PublicKey
	signer      solana.PrivateKey
	logger      *zap.Logger
}

func NewClient(cfg config.SolanaConfig, env *config.Environment, logger *zap.Logger) (*Client, error) {
	signer, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse solana private key: %w", err)
	}
	poolProgram, err := solana.PublicKeyFromBase58(cfg.PoolProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid pool program id: %w", err)
	}
	coreBridge, err := solana.PublicKeyFromBase58(cfg.CoreBridgeAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid core bridge address: %w", err)
	}
	tokenBridge, err := solana.PublicKeyFromBase58(cfg.TokenBridgeAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid token bridge address: %w", err)
	}

	logger.Info("solana client initialized",
		zap.String("rpc_endpoint", cfg.RPCEndpoint),
		zap.String("relayer_address", signer.PublicKey().String()))

	return &Client{
		rpcClient:   rpc.New(cfg.RPCEndpoint),
		cfg:         cfg,
		env:         env,
		poolProgram: poolProgram,
		coreBridge:  coreBridge,
		tokenBridge: tokenBridge,
		signer:      signer,
		logger:      logger,
	}, nil
}

func (c *Client) rpcError(op string, err error) error {
	return &models.ChainRpcError{Ecosystem: models.EcosystemSolana, Op: op, Err: err}
}

// TokenAccountExists reports whether the owner's associated token account for
// the mint exists on chain.
func (c *Client) TokenAccountExists(ctx context.Context, owner, mint string) (bool, error) {
	account, err := c.associatedTokenAccount(owner, mint)
	if err != nil {
		return false, err
	}
	_, err = c.rpcClient.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, c.rpcError("getAccountInfo", err)
	}
	return true, nil
}

// CreateTokenAccount creates the owner's associated token account for the
// mint, with the relayer paying rent.
func (c *Client) CreateTokenAccount(ctx context.Context, owner, mint string) (string, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return "", fmt.Errorf("invalid owner address %s: %w", owner, err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("invalid mint address %s: %w", mint, err)
	}

	instruction := associatedtokenaccount.NewCreateInstruction(
		c.signer.PublicKey(),
		ownerKey,
		mintKey,
	).Build()

	sig, err := c.sendAndConfirm(ctx, []solana.Instruction{instruction})
	if err != nil {
		return "", c.rpcError("createTokenAccount", err)
	}
	c.logger.Info("token account created",
		zap.String("owner", owner),
		zap.String("mint", mint),
		zap.String("tx_id", sig))
	return sig, nil
}

// PostVaaSignatures prepares the guardian signature verification batches for
// the attestation, skipping the first submitted batches, and finishes with
// the postVAA transaction. The signature set address is derived from the
// attestation digest so a restart resumes into the same set.
func (c *Client) PostVaaSignatures(ctx context.Context, rawVAA []byte, submitted int) (string, worker.TxSequence, error) {
	parsed, err := vaa.Unmarshal(rawVAA)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse attestation: %w", err)
	}
	digest := parsed.SigningDigest()

	signatureSet, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("SignatureSet"), digest.Bytes()},
		c.coreBridge,
	)
	if err != nil {
		return "", nil, fmt.Errorf("failed to derive signature set address: %w", err)
	}

	var batches [][]solana.Instruction
	for start := 0; start < len(parsed.Signatures); start += signatureBatchSize {
		end := start + signatureBatchSize
		if end > len(parsed.Signatures) {
			end = len(parsed.Signatures)
		}
		batches = append(batches, c.verifySignaturesInstructions(
			signatureSet, digest, parsed.Signatures[start:end]))
	}
	batches = append(batches, []solana.Instruction{c.postVAAInstruction(signatureSet, rawVAA)})

	if submitted > len(batches) {
		submitted = len(batches)
	}
	seq := &txSequence{client: c, batches: batches[submitted:]}
	return signatureSet.String(), seq, nil
}

// SignatureSetComplete reports whether every guardian signature for the set
// has been verified. The set account stores a borsh Vec<bool>, one flag per
// guardian index.
func (c *Client) SignatureSetComplete(ctx context.Context, signatureSetAddress string) (bool, error) {
	address, err := solana.PublicKeyFromBase58(signatureSetAddress)
	if err != nil {
		return false, fmt.Errorf("invalid signature set address %s: %w", signatureSetAddress, err)
	}
	info, err := c.rpcClient.GetAccountInfo(ctx, address)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, c.rpcError("getAccountInfo", err)
	}

	data := info.Value.Data.GetBinary()
	if len(data) < 4 {
		return false, nil
	}
	count := binary.LittleEndian.Uint32(data[:4])
	if len(data) < 4+int(count) {
		return false, nil
	}
	for _, flag := range data[4 : 4+count] {
		if flag == 0 {
			return false, nil
		}
	}
	return true, nil
}

// ClaimTransfer completes the bridge transfer, minting the wrapped tokens to
// the owner's associated token account.
func (c *Client) ClaimTransfer(ctx context.Context, rawVAA []byte, owner string) (string, error) {
	parsed, err := vaa.Unmarshal(rawVAA)
	if err != nil {
		return "", fmt.Errorf("failed to parse attestation: %w", err)
	}
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return "", fmt.Errorf("invalid owner address %s: %w", owner, err)
	}

	postedVAA, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("PostedVAA"), parsed.SigningDigest().Bytes()},
		c.coreBridge,
	)
	if err != nil {
		return "", fmt.Errorf("failed to derive posted VAA address: %w", err)
	}

	data := []byte{instructionCompleteWrapped}
	instruction := solana.NewInstruction(
		c.tokenBridge,
		solana.AccountMetaSlice{
			solana.Meta(c.signer.PublicKey()).WRITE().SIGNER(),
			solana.Meta(postedVAA),
			solana.Meta(ownerKey).WRITE(),
			solana.Meta(c.coreBridge),
			solana.Meta(solana.SystemProgramID),
		},
		data,
	)

	sig, err := c.sendAndConfirm(ctx, []solana.Instruction{instruction})
	if err != nil {
		return "", c.rpcError("completeTransfer", err)
	}
	c.logger.Info("bridge transfer claimed",
		zap.String("owner", owner),
		zap.String("tx_id", sig))
	return sig, nil
}

// TransferClaimed reports whether the attestation was already redeemed. The
// token bridge allocates a claim account per message, keyed by emitter and
// sequence, so its existence is the on-chain completion marker.
func (c *Client) TransferClaimed(ctx context.Context, rawVAA []byte) (bool, error) {
	parsed, err := vaa.Unmarshal(rawVAA)
	if err != nil {
		return false, fmt.Errorf("failed to parse attestation: %w", err)
	}

	var chain [2]byte
	binary.BigEndian.PutUint16(chain[:], uint16(parsed.EmitterChain))
	var sequence [8]byte
	binary.BigEndian.PutUint64(sequence[:], parsed.Sequence)

	claim, _, err := solana.FindProgramAddress(
		[][]byte{parsed.EmitterAddress[:], chain[:], sequence[:]},
		c.tokenBridge,
	)
	if err != nil {
		return false, fmt.Errorf("failed to derive claim address: %w", err)
	}

	_, err = c.rpcClient.GetAccountInfo(ctx, claim)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, c.rpcError("getAccountInfo", err)
	}
	return true, nil
}

// ExecutePoolOperation submits one pool instruction and reads back the payout
// amounts from the confirmed transaction.
func (c *Client) ExecutePoolOperation(ctx context.Context, pool config.PoolDetails, op models.OperationSpec) (string, map[models.TokenID]decimal.Decimal, error) {
	data, err := c.encodePoolInstruction(pool, op)
	if err != nil {
		return "", nil, err
	}

	poolAddress, err := solana.PublicKeyFromBase58(pool.Address)
	if err != nil {
		return "", nil, fmt.Errorf("invalid pool address %s: %w", pool.Address, err)
	}

	instruction := solana.NewInstruction(
		c.poolProgram,
		solana.AccountMetaSlice{
			solana.Meta(poolAddress).WRITE(),
			solana.Meta(c.signer.PublicKey()).WRITE().SIGNER(),
			solana.Meta(solana.TokenProgramID),
		},
		data,
	)

	sig, err := c.sendAndConfirm(ctx, []solana.Instruction{instruction})
	if err != nil {
		return "", nil, c.rpcError("executePoolOperation", err)
	}
	c.logger.Info("pool operation executed",
		zap.String("pool_id", string(pool.ID)),
		zap.String("instruction", string(op.Instruction)),
		zap.String("tx_id", sig))

	outputs, err := c.PoolOperationOutputs(ctx, sig)
	if err != nil {
		return "", nil, err
	}
	return sig, outputs, nil
}

// PoolOperationOutputs reads the payout amounts of a confirmed pool
// operation: the positive balance deltas on the relayer's token accounts,
// keyed by token id. Pool-side accounts belong to the pool authority and are
// ignored; so are mints outside the registry.
func (c *Client) PoolOperationOutputs(ctx context.Context, txID string) (map[models.TokenID]decimal.Decimal, error) {
	sig, err := solana.SignatureFromBase58(txID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %s: %w", txID, err)
	}

	result, err := c.rpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return nil, c.rpcError("getTransaction", err)
	}
	if result.Meta == nil {
		return nil, fmt.Errorf("transaction %s has no metadata", txID)
	}

	relayer := c.signer.PublicKey()
	pre := make(map[uint16]*big.Int, len(result.Meta.PreTokenBalances))
	for _, balance := range result.Meta.PreTokenBalances {
		atoms, err := tokenBalanceAtoms(balance)
		if err != nil {
			return nil, err
		}
		pre[balance.AccountIndex] = atoms
	}

	outputs := make(map[models.TokenID]decimal.Decimal)
	for _, balance := range result.Meta.PostTokenBalances {
		if balance.Owner == nil || !balance.Owner.Equals(relayer) {
			continue
		}
		token, ok := c.env.TokenBySolanaMint(balance.Mint.String())
		if !ok {
			continue
		}
		atoms, err := tokenBalanceAtoms(balance)
		if err != nil {
			return nil, err
		}
		delta := new(big.Int).Set(atoms)
		if before, ok := pre[balance.AccountIndex]; ok {
			delta.Sub(delta, before)
		}
		if delta.Sign() <= 0 {
			continue
		}
		amount, err := models.AmountFromAtomic(token.ID, delta, balance.UiTokenAmount.Decimals)
		if err != nil {
			return nil, err
		}
		outputs[token.ID] = amount.Value()
	}
	return outputs, nil
}

// TransferToEVM locks value of the token with the token bridge, addressed to
// the recipient on the target EVM chain.
func (c *Client) TransferToEVM(
	ctx context.Context,
	token config.TokenDetails,
	value decimal.Decimal,
	target models.Ecosystem,
	recipient string,
) (string, uint64, error) {
	amount, err := atomicU64(value, token.SolanaDecimals())
	if err != nil {
		return "", 0, err
	}
	mint, err := solana.PublicKeyFromBase58(token.SolanaMint())
	if err != nil {
		return "", 0, fmt.Errorf("invalid mint for token %s: %w", token.ID, err)
	}

	// The bridge debits the relayer's token account; locking fails late and
	// opaquely if it does not exist.
	source, err := c.associatedTokenAccount(c.signer.PublicKey().String(), token.SolanaMint())
	if err != nil {
		return "", 0, err
	}
	exists, err := c.TokenAccountExists(ctx, c.signer.PublicKey().String(), token.SolanaMint())
	if err != nil {
		return "", 0, err
	}
	if !exists {
		return "", 0, &models.MissingAccountError{Account: source.String()}
	}

	var targetAddress [32]byte
	copy(targetAddress[12:], common.HexToAddress(recipient).Bytes())

	data := make([]byte, 0, 1+8+8+32+2)
	data = append(data, instructionTransferWrapped)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, 0) // arbiter fee
	data = append(data, targetAddress[:]...)
	data = binary.LittleEndian.AppendUint16(data, target.WormholeChainID())

	instruction := solana.NewInstruction(
		c.tokenBridge,
		solana.AccountMetaSlice{
			solana.Meta(c.signer.PublicKey()).WRITE().SIGNER(),
			solana.Meta(mint).WRITE(),
			solana.Meta(c.coreBridge).WRITE(),
			solana.Meta(solana.TokenProgramID),
			solana.Meta(solana.SystemProgramID),
		},
		data,
	)

	sig, err := c.sendAndConfirm(ctx, []solana.Instruction{instruction})
	if err != nil {
		return "", 0, c.rpcError("transferTokens", err)
	}

	sequence, err := c.TransferSequence(ctx, sig)
	if err != nil {
		return "", 0, err
	}
	c.logger.Info("bridge transfer submitted",
		zap.String("token", string(token.ID)),
		zap.String("target", string(target)),
		zap.String("tx_id", sig),
		zap.Uint64("sequence", sequence))
	return sig, sequence, nil
}

// TransferSequence recovers the bridge message sequence from a confirmed
// transfer transaction's program logs.
func (c *Client) TransferSequence(ctx context.Context, txID string) (uint64, error) {
	sig, err := solana.SignatureFromBase58(txID)
	if err != nil {
		return 0, fmt.Errorf("invalid transaction id %s: %w", txID, err)
	}

	result, err := c.rpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return 0, c.rpcError("getTransaction", err)
	}
	if result.Meta == nil {
		return 0, fmt.Errorf("transaction %s has no metadata", txID)
	}

	// The core bridge logs "Program log: Sequence: N" when the message is
	// posted.
	for _, line := range result.Meta.LogMessages {
		idx := strings.Index(line, "Sequence: ")
		if idx < 0 {
			continue
		}
		sequence, err := strconv.ParseUint(strings.TrimSpace(line[idx+len("Sequence: "):]), 10, 64)
		if err != nil {
			continue
		}
		return sequence, nil
	}
	return 0, fmt.Errorf("no sequence logged in transaction %s", txID)
}

func (c *Client) associatedTokenAccount(owner, mint string) (solana.PublicKey, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid owner address %s: %w", owner, err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid mint address %s: %w", mint, err)
	}
	account, _, err := solana.FindAssociatedTokenAddress(ownerKey, mintKey)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive token account: %w", err)
	}
	return account, nil
}

func (c *Client) verifySignaturesInstructions(
	signatureSet solana.PublicKey,
	digest common.Hash,
	signatures []*vaa.Signature,
) []solana.Instruction {
	data := make([]byte, 0, 1+32+1+len(signatures)*66)
	data = append(data, instructionVerifySignatures)
	data = append(data, digest.Bytes()...)
	data = append(data, byte(len(signatures)))
	for _, sig := range signatures {
		data = append(data, sig.Index)
		data = append(data, sig.Signature[:]...)
	}

	return []solana.Instruction{solana.NewInstruction(
		c.coreBridge,
		solana.AccountMetaSlice{
			solana.Meta(c.signer.PublicKey()).WRITE().SIGNER(),
			solana.Meta(signatureSet).WRITE(),
			solana.Meta(solana.SysVarInstructionsPubkey),
			solana.Meta(solana.SystemProgramID),
		},
		data,
	)}
}

func (c *Client) postVAAInstruction(signatureSet solana.PublicKey, rawVAA []byte) solana.Instruction {
	data := make([]byte, 0, 1+len(rawVAA))
	data = append(data, instructionPostVAA)
	data = append(data, rawVAA...)

	return solana.NewInstruction(
		c.coreBridge,
		solana.AccountMetaSlice{
			solana.Meta(c.signer.PublicKey()).WRITE().SIGNER(),
			solana.Meta(signatureSet),
			solana.Meta(solana.SystemProgramID),
		},
		data,
	)
}

// encodePoolInstruction serializes a pool operation the way the pool program
// expects it: instruction index, then each amount as an atomic u64.
func (c *Client) encodePoolInstruction(pool config.PoolDetails, op models.OperationSpec) ([]byte, error) {
	var data []byte

	appendAmount := func(amount models.Amount) error {
		token, err := c.env.Token(amount.TokenID())
		if err != nil {
			return err
		}
		value, err := atomicU64(amount.Value(), token.SolanaDecimals())
		if err != nil {
			return err
		}
		data = binary.LittleEndian.AppendUint64(data, value)
		return nil
	}
	appendAmounts := func(amounts []models.Amount) error {
		for _, a := range amounts {
			if err := appendAmount(a); err != nil {
				return err
			}
		}
		return nil
	}

	switch op.Instruction {
	case models.PoolInstructionAdd:
		data = append(data, 0)
		if err := appendAmounts(op.Add.InputAmounts); err != nil {
			return nil, err
		}
		if err := appendAmount(op.Add.MinimumMintAmount); err != nil {
			return nil, err
		}
	case models.PoolInstructionSwap:
		data = append(data, 1)
		if err := appendAmounts(op.Swap.ExactInputAmounts); err != nil {
			return nil, err
		}
		data = append(data, byte(op.Swap.OutputTokenIndex))
		if err := appendAmount(op.Swap.MinimumOutputAmount); err != nil {
			return nil, err
		}
	case models.PoolInstructionRemoveUniform:
		data = append(data, 2)
		if err := appendAmount(op.RemoveUniform.ExactBurnAmount); err != nil {
			return nil, err
		}
		if err := appendAmounts(op.RemoveUniform.MinimumOutputAmounts); err != nil {
			return nil, err
		}
	case models.PoolInstructionRemoveExactBurn:
		data = append(data, 3)
		if err := appendAmount(op.RemoveExactBurn.ExactBurnAmount); err != nil {
			return nil, err
		}
		data = append(data, byte(op.RemoveExactBurn.OutputTokenIndex))
		if err := appendAmount(op.RemoveExactBurn.MinimumOutputAmount); err != nil {
			return nil, err
		}
	case models.PoolInstructionRemoveExactOutput:
		data = append(data, 4)
		if err := appendAmount(op.RemoveExactOutput.MaximumBurnAmount); err != nil {
			return nil, err
		}
		if err := appendAmounts(op.RemoveExactOutput.ExactOutputAmounts); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown pool instruction %q", op.Instruction)
	}

	return data, nil
}

// sendAndConfirm signs and submits one transaction and polls until it is
// finalized.
func (c *Client) sendAndConfirm(ctx context.Context, instructions []solana.Instruction) (string, error) {
	blockhash, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(c.signer.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.signer.PublicKey()) {
			return &c.signer
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpcClient.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	if err := c.waitForConfirmation(ctx, sig); err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (c *Client) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for transaction %s", sig)
		case <-ticker.C:
			statuses, err := c.rpcClient.GetSignatureStatuses(ctx, true, sig)
			if err != nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction failed: %s", sig)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}

// txSequence submits the prepared instruction batches one transaction at a
// time.
type txSequence struct {
	client  *Client
	batches [][]solana.Instruction
}

func (s *txSequence) Next(ctx context.Context) (string, bool, error) {
	if len(s.batches) == 0 {
		return "", false, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]

	sig, err := s.client.sendAndConfirm(ctx, batch)
	if err != nil {
		return "", false, s.client.rpcError("postVaaSignatures", err)
	}
	return sig, true, nil
}

func tokenBalanceAtoms(balance rpc.TokenBalance) (*big.Int, error) {
	if balance.UiTokenAmount == nil {
		return nil, fmt.Errorf("token balance without amount")
	}
	atoms, ok := new(big.Int).SetString(balance.UiTokenAmount.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token balance %q", balance.UiTokenAmount.Amount)
	}
	return atoms, nil
}

// atomicU64 converts a human-unit value to atomic units, rejecting values
// that do not fit the token's decimals.
func atomicU64(value decimal.Decimal, decimals uint8) (uint64, error) {
	shifted := value.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("value %s has more than %d decimals", value, decimals)
	}
	if shifted.IsNegative() || !shifted.BigInt().IsUint64() {
		return 0, fmt.Errorf("value %s out of range", value)
	}
	return shifted.BigInt().Uint64(), nil
}
