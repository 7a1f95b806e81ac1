package api

// AmountPayload is a token-bound amount on the wire: the value is a decimal
// string in human units, never a float.
type AmountPayload struct {
	TokenID string `json:"tokenId"`
	Value   string `json:"value"`
}

// CreateInteractionRequest carries one interaction request. Exactly one of
// the params objects must be set, matching the kind.
type CreateInteractionRequest struct {
	Kind             string             `json:"kind"`
	PoolIDs          []string           `json:"poolIds"`
	ConnectedWallets map[string]*string `json:"connectedWallets"`

	Add               *AddPayload               `json:"add,omitempty"`
	Swap              *SwapPayload              `json:"swap,omitempty"`
	RemoveUniform     *RemoveUniformPayload     `json:"removeUniform,omitempty"`
	RemoveExactBurn   *RemoveExactBurnPayload   `json:"removeExactBurn,omitempty"`
	RemoveExactOutput *RemoveExactOutputPayload `json:"removeExactOutput,omitempty"`
	SwapV2            *SwapV2Payload            `json:"swapV2,omitempty"`
}

type AddPayload struct {
	InputAmounts      []AmountPayload `json:"inputAmounts"`
	MinimumMintAmount AmountPayload   `json:"minimumMintAmount"`
}

type SwapPayload struct {
	ExactInputAmount    AmountPayload `json:"exactInputAmount"`
	MinimumOutputAmount AmountPayload `json:"minimumOutputAmount"`
}

type RemoveUniformPayload struct {
	ExactBurnAmount      AmountPayload   `json:"exactBurnAmount"`
	MinimumOutputAmounts []AmountPayload `json:"minimumOutputAmounts"`
}

type RemoveExactBurnPayload struct {
	ExactBurnAmount     AmountPayload `json:"exactBurnAmount"`
	MinimumOutputAmount AmountPayload `json:"minimumOutputAmount"`
}

type RemoveExactOutputPayload struct {
	MaximumBurnAmount  AmountPayload   `json:"maximumBurnAmount"`
	ExactOutputAmounts []AmountPayload `json:"exactOutputAmounts"`
}

type SwapV2Payload struct {
	FromTokenID        string `json:"fromTokenId"`
	ToTokenID          string `json:"toTokenId"`
	ExactInputValue    string `json:"exactInputValue"`
	MinimumOutputValue string `json:"minimumOutputValue"`
}

// InteractionStateResponse is the full step-by-step view of one interaction.
type InteractionStateResponse struct {
	ID               string             `json:"id"`
	Kind             string             `json:"kind"`
	Env              string             `json:"env"`
	PoolIDs          []string           `json:"poolIds"`
	SubmittedAt      int64              `json:"submittedAt"`
	ConnectedWallets map[string]*string `json:"connectedWallets"`

	RequiredSplTokenAccounts map[string]TokenAccountView `json:"requiredSplTokenAccounts"`
	ToSolanaTransfers        []ToSolanaTransferView      `json:"toSolanaTransfers"`
	SolanaPoolOperations     []PoolOperationView         `json:"solanaPoolOperations"`
	FromSolanaTransfers      []FromSolanaTransferView    `json:"fromSolanaTransfers"`

	Error *string `json:"error,omitempty"`
}

type TokenAccountView struct {
	IsExistingAccount bool    `json:"isExistingAccount"`
	TxID              *string `json:"txId"`
}

type ToSolanaTransferView struct {
	Token                      AmountPayload `json:"token"`
	FromEcosystem              string        `json:"fromEcosystem"`
	SignatureSetAddress        *string       `json:"signatureSetAddress"`
	ApproveAndTransferEVMToken []string      `json:"approveAndTransferEvmToken"`
	PostVaaOnSolana            []string      `json:"postVaaOnSolana"`
	ClaimTokenOnSolana         *string       `json:"claimTokenOnSolana"`
	Status                     string        `json:"status"`
}

type PoolOperationView struct {
	PoolID      string  `json:"poolId"`
	Instruction string  `json:"instruction"`
	TxID        *string `json:"txId"`
	Status      string  `json:"status"`
}

type FromSolanaTransferView struct {
	TokenID          string  `json:"tokenId"`
	ToEcosystem      string  `json:"toEcosystem"`
	Value            *string `json:"value"`
	TransferSplToken *string `json:"transferSplToken"`
	ClaimTokenOnEVM  *string `json:"claimTokenOnEvm"`
	Status           string  `json:"status"`
}

// ListInteractionsResponse wraps the recent interactions, most recent first.
type ListInteractionsResponse struct {
	Interactions []InteractionStateResponse `json:"interactions"`
}

// ResumeResponse acknowledges an accepted resume request.
type ResumeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
