package models

// Ecosystem identifies a supported chain ecosystem
type Ecosystem string

const (
	EcosystemSolana    Ecosystem = "solana"
	EcosystemEthereum  Ecosystem = "ethereum"
	EcosystemBsc       Ecosystem = "bsc"
	EcosystemAvalanche Ecosystem = "avalanche"
	EcosystemPolygon   Ecosystem = "polygon"
)

// Ecosystems lists every supported ecosystem; ConnectedWallets carries one
// entry per element
var Ecosystems = []Ecosystem{
	EcosystemSolana,
	EcosystemEthereum,
	EcosystemBsc,
	EcosystemAvalanche,
	EcosystemPolygon,
}

// WormholeChainID returns the guardian-network chain id for an ecosystem,
// or 0 if the ecosystem is unknown
func (e Ecosystem) WormholeChainID() uint16 {
	switch e {
	case EcosystemSolana:
		return 1
	case EcosystemEthereum:
		return 2
	case EcosystemBsc:
		return 4
	case EcosystemPolygon:
		return 5
	case EcosystemAvalanche:
		return 6
	default:
		return 0
	}
}

// IsEVM reports whether the ecosystem uses EVM semantics
func (e Ecosystem) IsEVM() bool {
	return e != EcosystemSolana && e != ""
}

// Env tags the network environment an interaction was submitted against
type Env string

const (
	EnvMainnet  Env = "mainnet"
	EnvTestnet  Env = "testnet"
	EnvLocalnet Env = "localnet"
)

// TokenID identifies a token in the configuration registry
type TokenID string

// PoolID identifies a pool in the configuration registry
type PoolID string

// StepStatus is the derived completion state of a single sub-step
type StepStatus string

const (
	StepStatusPending   StepStatus = "PENDING"
	StepStatusPartial   StepStatus = "PARTIAL"
	StepStatusSubmitted StepStatus = "SUBMITTED"
)

// ScalarTxStatus classifies a single-transaction completion marker
func ScalarTxStatus(txID *string) StepStatus {
	if txID == nil {
		return StepStatusPending
	}
	return StepStatusSubmitted
}

// ListTxStatus classifies a multi-transaction completion marker against the
// expected number of transactions
func ListTxStatus(txIDs []string, expected int) StepStatus {
	switch {
	case len(txIDs) == 0:
		return StepStatusPending
	case len(txIDs) < expected:
		return StepStatusPartial
	default:
		return StepStatusSubmitted
	}
}
