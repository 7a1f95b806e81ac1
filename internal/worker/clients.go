package worker

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/models"
)

// TxSequence yields confirmed transaction ids one at a time so the caller can
// persist each id before the next transaction is submitted. A sequence is
// finite and not restartable.
type TxSequence interface {
	// Next submits and confirms the next transaction. ok is false once the
	// sequence is exhausted.
	Next(ctx context.Context) (txID string, ok bool, err error)
}

// EVMClient is the per-chain surface the executor drives on the EVM side.
type EVMClient interface {
	Ecosystem() models.Ecosystem

	// ApproveAndTransfer approves the token bridge for amount and locks the
	// tokens for the given Solana recipient. Returns the confirmed tx hashes
	// in submission order and the bridge message sequence number.
	ApproveAndTransfer(ctx context.Context, token config.TokenDetails, amount *big.Int, solanaRecipient string) ([]string, uint64, error)

	// TransferSequence recovers the bridge sequence number from an already
	// confirmed transfer transaction, for resuming after a restart.
	TransferSequence(ctx context.Context, txHash string) (uint64, error)

	// RedeemTransfer submits the signed attestation to the token bridge and
	// releases the tokens to the recipient encoded in it.
	RedeemTransfer(ctx context.Context, vaa []byte) (string, error)

	// TransferRedeemed reports whether the attestation was already redeemed on
	// the token bridge, so a resumed run does not re-submit a claim whose
	// transaction id was lost.
	TransferRedeemed(ctx context.Context, vaa []byte) (bool, error)
}

// SolanaClient is the surface the executor drives on the Solana side.
type SolanaClient interface {
	// TokenAccountExists reports whether the owner already has an associated
	// token account for the mint.
	TokenAccountExists(ctx context.Context, owner, mint string) (bool, error)

	// CreateTokenAccount creates the associated token account for the mint.
	CreateTokenAccount(ctx context.Context, owner, mint string) (string, error)

	// PostVaaSignatures uploads the attestation's guardian signatures in
	// batches, skipping the first submitted batches. The returned address
	// identifies the signature set account the batches accumulate into.
	PostVaaSignatures(ctx context.Context, vaa []byte, submitted int) (signatureSetAddress string, seq TxSequence, err error)

	// SignatureSetComplete reports whether every signature batch for the set
	// has landed.
	SignatureSetComplete(ctx context.Context, signatureSetAddress string) (bool, error)

	// ClaimTransfer completes the bridge transfer, minting the wrapped tokens
	// to the owner's token account.
	ClaimTransfer(ctx context.Context, vaa []byte, owner string) (string, error)

	// TransferClaimed reports whether the attestation's claim account already
	// exists, so a resumed run does not re-submit a claim whose transaction id
	// was lost.
	TransferClaimed(ctx context.Context, vaa []byte) (bool, error)

	// ExecutePoolOperation submits one pool instruction and returns the
	// confirmed transaction id together with the amounts the instruction paid
	// out, in human units keyed by token id. A swap pays out one token; a
	// uniform removal pays out every pool token.
	ExecutePoolOperation(ctx context.Context, pool config.PoolDetails, op models.OperationSpec) (string, map[models.TokenID]decimal.Decimal, error)

	// PoolOperationOutputs re-reads the payout amounts of an already confirmed
	// pool operation transaction.
	PoolOperationOutputs(ctx context.Context, txID string) (map[models.TokenID]decimal.Decimal, error)

	// TransferToEVM locks value of the token with the bridge, addressed to
	// the recipient on the target chain. Returns the confirmed transaction id
	// and the bridge message sequence number.
	TransferToEVM(ctx context.Context, token config.TokenDetails, value decimal.Decimal, target models.Ecosystem, recipient string) (string, uint64, error)

	// TransferSequence recovers the bridge sequence number from an already
	// confirmed transfer transaction.
	TransferSequence(ctx context.Context, txID string) (uint64, error)
}

// AttestationClient fetches signed guardian attestations for bridge messages.
type AttestationClient interface {
	// FetchSignedVAA polls until the attestation for the emitter chain's
	// message sequence is available, within the chain's retry budget.
	FetchSignedVAA(ctx context.Context, emitter models.Ecosystem, sequence uint64) ([]byte, error)
}
