package models

import "fmt"

// PoolInstruction names the on-chain pool program instruction an
// OperationSpec maps to
type PoolInstruction string

const (
	PoolInstructionAdd               PoolInstruction = "ADD"
	PoolInstructionSwap              PoolInstruction = "SWAP"
	PoolInstructionRemoveUniform     PoolInstruction = "REMOVE_UNIFORM"
	PoolInstructionRemoveExactBurn   PoolInstruction = "REMOVE_EXACT_BURN"
	PoolInstructionRemoveExactOutput PoolInstruction = "REMOVE_EXACT_OUTPUT"
)

// OperationSpec is a fully parameterized pool instruction for one pool hop.
// Amount vectors are fixed-arity, positioned by the pool's token-index
// ordering, with zero placeholders at uninvolved indices (the on-chain
// instruction format is fixed-arity per pool). Exactly one params field is
// non-nil, matching Instruction.
type OperationSpec struct {
	InteractionID string
	PoolID        PoolID
	Instruction   PoolInstruction

	Add               *AddOpParams
	Swap              *SwapOpParams
	RemoveUniform     *RemoveUniformOpParams
	RemoveExactBurn   *RemoveExactBurnOpParams
	RemoveExactOutput *RemoveExactOutputOpParams
}

type AddOpParams struct {
	InputAmounts      []Amount
	MinimumMintAmount Amount
}

type SwapOpParams struct {
	ExactInputAmounts   []Amount
	OutputTokenIndex    int
	MinimumOutputAmount Amount
}

type RemoveUniformOpParams struct {
	ExactBurnAmount      Amount
	MinimumOutputAmounts []Amount
}

type RemoveExactBurnOpParams struct {
	ExactBurnAmount     Amount
	OutputTokenIndex    int
	MinimumOutputAmount Amount
}

type RemoveExactOutputOpParams struct {
	MaximumBurnAmount  Amount
	ExactOutputAmounts []Amount
}

// Validate checks the params field matches Instruction.
func (o *OperationSpec) Validate() error {
	var ok bool
	switch o.Instruction {
	case PoolInstructionAdd:
		ok = o.Add != nil
	case PoolInstructionSwap:
		ok = o.Swap != nil
	case PoolInstructionRemoveUniform:
		ok = o.RemoveUniform != nil
	case PoolInstructionRemoveExactBurn:
		ok = o.RemoveExactBurn != nil
	case PoolInstructionRemoveExactOutput:
		ok = o.RemoveExactOutput != nil
	default:
		return fmt.Errorf("unknown pool instruction %q", o.Instruction)
	}
	if !ok {
		return fmt.Errorf("operation params do not match instruction %s", o.Instruction)
	}
	return nil
}

// clone deep-copies the spec
func (o *OperationSpec) clone() OperationSpec {
	out := *o
	if o.Add != nil {
		p := *o.Add
		p.InputAmounts = append([]Amount(nil), o.Add.InputAmounts...)
		out.Add = &p
	}
	if o.Swap != nil {
		p := *o.Swap
		p.ExactInputAmounts = append([]Amount(nil), o.Swap.ExactInputAmounts...)
		out.Swap = &p
	}
	if o.RemoveUniform != nil {
		p := *o.RemoveUniform
		p.MinimumOutputAmounts = append([]Amount(nil), o.RemoveUniform.MinimumOutputAmounts...)
		out.RemoveUniform = &p
	}
	if o.RemoveExactBurn != nil {
		p := *o.RemoveExactBurn
		out.RemoveExactBurn = &p
	}
	if o.RemoveExactOutput != nil {
		p := *o.RemoveExactOutput
		p.ExactOutputAmounts = append([]Amount(nil), o.RemoveExactOutput.ExactOutputAmounts...)
		out.RemoveExactOutput = &p
	}
	return out
}
