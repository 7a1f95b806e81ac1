package models

import "github.com/shopspring/decimal"

// StateVersion is the current persisted schema version
const StateVersion = 2

// TokenAccountState tracks the "ensure the destination token account exists"
// precondition for one Solana account
type TokenAccountState struct {
	IsExistingAccount bool
	TxID              *string
}

// ToSolanaTxIDs records the transactions of one bridge-in sub-flow. The two
// list fields are append-only multi-transaction sequences.
type ToSolanaTxIDs struct {
	ApproveAndTransferEVMToken []string
	PostVaaOnSolana            []string
	ClaimTokenOnSolana         *string
}

// ToSolanaTransfer is one per-source-ecosystem bridge-in record
type ToSolanaTransfer struct {
	Token               Amount
	FromEcosystem       Ecosystem
	SignatureSetAddress *string
	TxIDs               ToSolanaTxIDs
}

// SolanaPoolOperationState pairs an operation spec with its completion marker
type SolanaPoolOperationState struct {
	Operation OperationSpec
	TxID      *string
}

// FromSolanaTxIDs records the transactions of one bridge-out sub-flow
type FromSolanaTxIDs struct {
	TransferSplToken *string
	ClaimTokenOnEVM  *string
}

// FromSolanaTransfer is one per-destination-ecosystem bridge-out record.
// Value nil means the amount is not yet known; it is backfilled from the
// upstream pool operation's actual output. Nil is distinct from zero.
type FromSolanaTransfer struct {
	TokenID     TokenID
	ToEcosystem Ecosystem
	Value       *decimal.Decimal
	TxIDs       FromSolanaTxIDs
}

// InteractionState is the mutable execution record for one Interaction,
// owned exclusively by the store and mutated only through its atomic update
// entry point. Lists are ordered consistently with execution order:
// bridge-in, pool operations, bridge-out.
type InteractionState struct {
	Interaction              Interaction
	RequiredSplTokenAccounts map[string]TokenAccountState
	ToSolanaTransfers        []ToSolanaTransfer
	SolanaPoolOperations     []SolanaPoolOperationState
	FromSolanaTransfers      []FromSolanaTransfer
	Version                  int
}

// ID returns the interaction id, the sole lookup key for the aggregate
func (s *InteractionState) ID() string {
	return s.Interaction.ID
}

// Clone returns a deep copy, used by the store for copy-on-write drafts
func (s *InteractionState) Clone() *InteractionState {
	out := &InteractionState{
		Interaction: s.Interaction.clone(),
		Version:     s.Version,
	}

	if s.RequiredSplTokenAccounts != nil {
		out.RequiredSplTokenAccounts = make(map[string]TokenAccountState, len(s.RequiredSplTokenAccounts))
		for key, acct := range s.RequiredSplTokenAccounts {
			acct.TxID = cloneStr(acct.TxID)
			out.RequiredSplTokenAccounts[key] = acct
		}
	}

	out.ToSolanaTransfers = make([]ToSolanaTransfer, len(s.ToSolanaTransfers))
	for i, t := range s.ToSolanaTransfers {
		t.SignatureSetAddress = cloneStr(t.SignatureSetAddress)
		t.TxIDs.ApproveAndTransferEVMToken = append([]string(nil), t.TxIDs.ApproveAndTransferEVMToken...)
		t.TxIDs.PostVaaOnSolana = append([]string(nil), t.TxIDs.PostVaaOnSolana...)
		t.TxIDs.ClaimTokenOnSolana = cloneStr(t.TxIDs.ClaimTokenOnSolana)
		out.ToSolanaTransfers[i] = t
	}

	out.SolanaPoolOperations = make([]SolanaPoolOperationState, len(s.SolanaPoolOperations))
	for i, op := range s.SolanaPoolOperations {
		op.Operation = *cloneOp(&op.Operation)
		op.TxID = cloneStr(op.TxID)
		out.SolanaPoolOperations[i] = op
	}

	out.FromSolanaTransfers = make([]FromSolanaTransfer, len(s.FromSolanaTransfers))
	for i, t := range s.FromSolanaTransfers {
		if t.Value != nil {
			v := *t.Value
			t.Value = &v
		}
		t.TxIDs.TransferSplToken = cloneStr(t.TxIDs.TransferSplToken)
		t.TxIDs.ClaimTokenOnEVM = cloneStr(t.TxIDs.ClaimTokenOnEVM)
		out.FromSolanaTransfers[i] = t
	}

	return out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneOp(o *OperationSpec) *OperationSpec {
	c := o.clone()
	return &c
}
