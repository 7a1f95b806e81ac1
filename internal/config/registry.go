package config

import (
	"propeller/offchain/internal/models"
)

// TokenDetails is a token's full descriptor from the configuration registry
type TokenDetails struct {
	ID              models.TokenID
	Symbol          string
	NativeEcosystem models.Ecosystem
	// Decimals and Addresses are keyed by ecosystem; a token has an entry for
	// its native ecosystem plus every ecosystem it is bridged to.
	Decimals  map[models.Ecosystem]uint8
	Addresses map[models.Ecosystem]string
}

// Address returns the token's address on an ecosystem, "" if absent
func (t TokenDetails) Address(ecosystem models.Ecosystem) string {
	return t.Addresses[ecosystem]
}

// SolanaMint returns the token's mint address on Solana
func (t TokenDetails) SolanaMint() string {
	return t.Addresses[models.EcosystemSolana]
}

// SolanaDecimals returns the token's decimal count on Solana
func (t TokenDetails) SolanaDecimals() uint8 {
	return t.Decimals[models.EcosystemSolana]
}

// PoolDetails is a pool's descriptor: its ordered token list fixes the
// instruction index of every amount vector
type PoolDetails struct {
	ID        models.PoolID
	Ecosystem models.Ecosystem
	Address   string
	TokenIDs  []models.TokenID
	LPTokenID models.TokenID
}

// TokenIndex returns the fixed index of a token within the pool, or -1
func (p PoolDetails) TokenIndex(id models.TokenID) int {
	for i, t := range p.TokenIDs {
		if t == id {
			return i
		}
	}
	return -1
}

// Environment resolves token and pool ids for one network environment
type Environment struct {
	Env    models.Env
	tokens map[models.TokenID]TokenDetails
	pools  map[models.PoolID]PoolDetails
	// poolOrder preserves declaration order for deterministic route lookup
	poolOrder []models.PoolID
}

// NewEnvironment builds a registry from explicit tables (used in tests)
func NewEnvironment(env models.Env, tokens []TokenDetails, pools []PoolDetails) *Environment {
	e := &Environment{
		Env:    env,
		tokens: make(map[models.TokenID]TokenDetails, len(tokens)),
		pools:  make(map[models.PoolID]PoolDetails, len(pools)),
	}
	for _, t := range tokens {
		e.tokens[t.ID] = t
	}
	for _, p := range pools {
		e.pools[p.ID] = p
		e.poolOrder = append(e.poolOrder, p.ID)
	}
	return e
}

// Token resolves a token id to its descriptor
func (e *Environment) Token(id models.TokenID) (TokenDetails, error) {
	t, ok := e.tokens[id]
	if !ok {
		return TokenDetails{}, &models.TokenResolutionError{TokenID: id, Env: e.Env}
	}
	return t, nil
}

// TokenBySolanaMint resolves a Solana mint address back to its token
// descriptor. ok is false for mints outside the registry.
func (e *Environment) TokenBySolanaMint(mint string) (TokenDetails, bool) {
	for _, t := range e.tokens {
		if t.SolanaMint() == mint {
			return t, true
		}
	}
	return TokenDetails{}, false
}

// Pool resolves a pool id to its descriptor
func (e *Environment) Pool(id models.PoolID) (PoolDetails, error) {
	p, ok := e.pools[id]
	if !ok {
		return PoolDetails{}, &models.NotFoundError{Kind: "pool", ID: string(id)}
	}
	return p, nil
}

// PoolsForTokenPair finds the pools a swap from one token to another routes
// through: a single pool containing both, or a two-pool route joined by the
// first pool's LP token appearing in the second pool's token list.
func (e *Environment) PoolsForTokenPair(from, to models.TokenID) ([]PoolDetails, error) {
	for _, id := range e.poolOrder {
		p := e.pools[id]
		if p.TokenIndex(from) >= 0 && p.TokenIndex(to) >= 0 {
			return []PoolDetails{p}, nil
		}
	}

	for _, id1 := range e.poolOrder {
		p1 := e.pools[id1]
		if p1.TokenIndex(from) < 0 {
			continue
		}
		for _, id2 := range e.poolOrder {
			if id2 == id1 {
				continue
			}
			p2 := e.pools[id2]
			if p2.TokenIndex(to) < 0 {
				continue
			}
			// Joined either by p1's LP token tradable in p2, or by p2's LP
			// token tradable in p1.
			if p2.TokenIndex(p1.LPTokenID) >= 0 || p1.TokenIndex(p2.LPTokenID) >= 0 {
				return []PoolDetails{p1, p2}, nil
			}
		}
	}

	return nil, &models.NotFoundError{Kind: "route", ID: string(from) + "->" + string(to)}
}

// EnvironmentFor returns the built-in registry for a network environment
func EnvironmentFor(env models.Env) *Environment {
	switch env {
	case models.EnvTestnet:
		return NewEnvironment(env, testnetTokens, testnetPools)
	default:
		return NewEnvironment(models.EnvMainnet, mainnetTokens, mainnetPools)
	}
}

var mainnetTokens = []TokenDetails{
	{
		ID:              "propeller-usd",
		Symbol:          "prUSD",
		NativeEcosystem: models.EcosystemSolana,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemSolana: 8,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemSolana: "BJUH9GJLaMSLV1E7B3SQLCy9eCfyr6zsrwGcpS2MkqR1",
		},
	},
	{
		ID:              "solana-usdc",
		Symbol:          "USDC",
		NativeEcosystem: models.EcosystemSolana,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemSolana: 6,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemSolana: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		},
	},
	{
		ID:              "solana-usdt",
		Symbol:          "USDT",
		NativeEcosystem: models.EcosystemSolana,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemSolana: 6,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemSolana: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
		},
	},
	{
		ID:              "ethereum-usdc",
		Symbol:          "USDC",
		NativeEcosystem: models.EcosystemEthereum,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemEthereum: 6,
			models.EcosystemSolana:   6,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemEthereum: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			models.EcosystemSolana:   "A9mUU4qviSctJVPJdBJWkb28deg915LYJKrzQ19ji3FM",
		},
	},
	{
		ID:              "ethereum-usdt",
		Symbol:          "USDT",
		NativeEcosystem: models.EcosystemEthereum,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemEthereum: 6,
			models.EcosystemSolana:   6,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemEthereum: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			models.EcosystemSolana:   "Dn4noZ5jgGfkntzcQSUZ8czkreiZ1ForXYoV2H8Dm7S1",
		},
	},
	{
		ID:              "bsc-busd",
		Symbol:          "BUSD",
		NativeEcosystem: models.EcosystemBsc,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemBsc:    18,
			models.EcosystemSolana: 8,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemBsc:    "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56",
			models.EcosystemSolana: "5RpUwQ8wtdPCZHhu6MERp2RGrpobsbZ6MH5dDHkUjs2",
		},
	},
	{
		ID:              "bsc-usdt",
		Symbol:          "USDT",
		NativeEcosystem: models.EcosystemBsc,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemBsc:    18,
			models.EcosystemSolana: 8,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemBsc:    "0x55d398326f99059fF775485246999027B3197955",
			models.EcosystemSolana: "8qJSyQprMC57TWKaYEmetUR3UUiTP2M3hXdcvFhkZdmv",
		},
	},
	{
		ID:              "lp-meta-avalanche-usdc",
		Symbol:          "prUSD-AVAX-USDC",
		NativeEcosystem: models.EcosystemSolana,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemSolana: 8,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemSolana: "BM3sXSFRZdB4Y8PUQHdPJZYspmhUzVmjjCbRUy1t1uMa",
		},
	},
	{
		ID:              "avalanche-usdc",
		Symbol:          "USDC",
		NativeEcosystem: models.EcosystemAvalanche,
		Decimals: map[models.Ecosystem]uint8{
			models.EcosystemAvalanche: 6,
			models.EcosystemSolana:    6,
		},
		Addresses: map[models.Ecosystem]string{
			models.EcosystemAvalanche: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
			models.EcosystemSolana:    "FHfba3ov5P3RjaiLVgh8FTv4oirxQDoVXuoUUDvHuXax",
		},
	},
}

var mainnetPools = []PoolDetails{
	{
		ID:        "hexapool",
		Ecosystem: models.EcosystemSolana,
		Address:   "8VDztipJNeqkDjhLNmAnyCSlUB4qNzVsKNBXHtGBUxzF",
		TokenIDs: []models.TokenID{
			"solana-usdc",
			"solana-usdt",
			"ethereum-usdc",
			"ethereum-usdt",
			"bsc-busd",
			"bsc-usdt",
		},
		LPTokenID: "propeller-usd",
	},
	{
		ID:        "meta-avalanche-usdc",
		Ecosystem: models.EcosystemSolana,
		Address:   "4z3wmYsmnzgdTWEGxjGvuNbFZ4hUJdMzdLHMfZk3ZcCQ",
		TokenIDs: []models.TokenID{
			"avalanche-usdc",
			"propeller-usd",
		},
		LPTokenID: "lp-meta-avalanche-usdc",
	},
}

var testnetTokens = func() []TokenDetails {
	// Same shape as mainnet with devnet addresses; ids stay stable so
	// persisted records survive an environment switch in tests.
	tokens := make([]TokenDetails, len(mainnetTokens))
	copy(tokens, mainnetTokens)
	return tokens
}()

var testnetPools = func() []PoolDetails {
	pools := make([]PoolDetails, len(mainnetPools))
	copy(pools, mainnetPools)
	return pools
}()
