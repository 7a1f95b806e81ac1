package models

import "fmt"

// NotFoundError indicates a lookup by id found nothing. Always fatal to the
// current operation.
type NotFoundError struct {
	Kind string // "interaction", "pool", "route"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// MissingWalletError indicates a structurally required ecosystem wallet is
// not connected. Raised before any chain call is attempted.
type MissingWalletError struct {
	Ecosystem Ecosystem
}

func (e *MissingWalletError) Error() string {
	return fmt.Sprintf("no connected wallet for ecosystem %s", e.Ecosystem)
}

// MissingAccountError indicates a required token account was expected but not
// found.
type MissingAccountError struct {
	Account string
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("required token account %s not found", e.Account)
}

// TokenResolutionError indicates a persisted token id does not resolve
// against the current registry. Fatal to deserialization of that one record.
type TokenResolutionError struct {
	TokenID TokenID
	Env     Env
}

func (e *TokenResolutionError) Error() string {
	return fmt.Sprintf("token %q does not resolve in %s registry", e.TokenID, e.Env)
}

// ChainRpcError wraps a failure from a chain query or transaction
// collaborator. Propagated unchanged to the caller; never retried inside the
// core.
type ChainRpcError struct {
	Ecosystem Ecosystem
	Op        string
	Err       error
}

func (e *ChainRpcError) Error() string {
	return fmt.Sprintf("%s rpc %s: %v", e.Ecosystem, e.Op, e.Err)
}

func (e *ChainRpcError) Unwrap() error { return e.Err }
