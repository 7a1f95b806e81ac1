package models

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InteractionKind discriminates the variants of a user request
type InteractionKind string

const (
	InteractionAdd               InteractionKind = "ADD"
	InteractionSwap              InteractionKind = "SWAP"
	InteractionRemoveUniform     InteractionKind = "REMOVE_UNIFORM"
	InteractionRemoveExactBurn   InteractionKind = "REMOVE_EXACT_BURN"
	InteractionRemoveExactOutput InteractionKind = "REMOVE_EXACT_OUTPUT"
	InteractionSwapV2            InteractionKind = "SWAP_V2"
)

// Interaction is the immutable record of one user intent. Exactly one of the
// variant params fields is non-nil, matching Kind. Created once at submission
// time; never mutated; ID is the sole lookup key.
type Interaction struct {
	ID               string
	Kind             InteractionKind
	PoolIDs          []PoolID
	Env              Env
	SubmittedAt      int64 // unix milliseconds
	ConnectedWallets map[Ecosystem]*string

	Add               *AddParams
	Swap              *SwapParams
	RemoveUniform     *RemoveUniformParams
	RemoveExactBurn   *RemoveExactBurnParams
	RemoveExactOutput *RemoveExactOutputParams
	SwapV2            *SwapV2Params
}

// AddParams deposits tokens into a pool in exchange for LP tokens
type AddParams struct {
	InputAmounts      []Amount
	MinimumMintAmount Amount
}

// SwapParams swaps an exact input amount for at least MinimumOutputAmount of
// the output token
type SwapParams struct {
	ExactInputAmount    Amount
	MinimumOutputAmount Amount
}

// RemoveUniformParams burns an exact LP amount for a proportional share of
// every pool token
type RemoveUniformParams struct {
	ExactBurnAmount      Amount
	MinimumOutputAmounts []Amount
}

// RemoveExactBurnParams burns an exact LP amount for a single output token
type RemoveExactBurnParams struct {
	ExactBurnAmount     Amount
	MinimumOutputAmount Amount
}

// RemoveExactOutputParams burns at most MaximumBurnAmount for exact output
// amounts
type RemoveExactOutputParams struct {
	MaximumBurnAmount  Amount
	ExactOutputAmounts []Amount
}

// SwapV2Params is the v2 swap request. It references tokens by id and
// ecosystem rather than resolved descriptors, and supports single-pool and
// cross-pool routes (pool selection happens at derivation time).
type SwapV2Params struct {
	FromTokenID        TokenID
	FromEcosystem      Ecosystem
	ToTokenID          TokenID
	ToEcosystem        Ecosystem
	ExactInputValue    decimal.Decimal
	MinimumOutputValue decimal.Decimal
}

// NewInteractionID generates a collision-resistant 32-char hex id from 16
// random bytes. Generated client-side, unique within a user's store.
func NewInteractionID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// NowMillis returns the current submission timestamp.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Wallet returns the connected address for an ecosystem, or a
// MissingWalletError if none is connected.
func (i *Interaction) Wallet(ecosystem Ecosystem) (string, error) {
	addr, ok := i.ConnectedWallets[ecosystem]
	if !ok || addr == nil || *addr == "" {
		return "", &MissingWalletError{Ecosystem: ecosystem}
	}
	return *addr, nil
}

// Validate checks that exactly one variant params field is set and matches
// Kind.
func (i *Interaction) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("interaction has no id")
	}

	set := 0
	for _, p := range []bool{
		i.Add != nil,
		i.Swap != nil,
		i.RemoveUniform != nil,
		i.RemoveExactBurn != nil,
		i.RemoveExactOutput != nil,
		i.SwapV2 != nil,
	} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("interaction %s has %d variant params, want exactly 1", i.ID, set)
	}

	var ok bool
	switch i.Kind {
	case InteractionAdd:
		ok = i.Add != nil
	case InteractionSwap:
		ok = i.Swap != nil
	case InteractionRemoveUniform:
		ok = i.RemoveUniform != nil
	case InteractionRemoveExactBurn:
		ok = i.RemoveExactBurn != nil
	case InteractionRemoveExactOutput:
		ok = i.RemoveExactOutput != nil
	case InteractionSwapV2:
		ok = i.SwapV2 != nil
	default:
		return fmt.Errorf("interaction %s has unknown kind %q", i.ID, i.Kind)
	}
	if !ok {
		return fmt.Errorf("interaction %s params do not match kind %s", i.ID, i.Kind)
	}
	return nil
}

// clone returns a deep copy. Variant params and amounts are immutable by
// convention, so only container fields need copying.
func (i *Interaction) clone() Interaction {
	out := *i
	out.PoolIDs = append([]PoolID(nil), i.PoolIDs...)
	out.ConnectedWallets = make(map[Ecosystem]*string, len(i.ConnectedWallets))
	for eco, addr := range i.ConnectedWallets {
		if addr == nil {
			out.ConnectedWallets[eco] = nil
			continue
		}
		a := *addr
		out.ConnectedWallets[eco] = &a
	}
	return out
}
