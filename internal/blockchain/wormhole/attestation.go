package wormhole

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/models"
)

const pollInterval = 5 * time.Second

// Client polls the guardian network's REST API for signed attestations.
type Client struct {
	httpClient *http.Client
	endpoint   string
	// emitters maps each ecosystem to its token bridge emitter address,
	// 32 bytes hex encoded, as the guardian API expects it.
	emitters    map[models.Ecosystem]string
	retryBudget map[models.Ecosystem]int
	logger      *zap.Logger
}

func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	emitters := make(map[models.Ecosystem]string, len(cfg.Chains)+1)
	for ecosystem, chain := range cfg.Chains {
		emitters[ecosystem] = evmEmitter(chain.TokenBridgeAddress)
	}

	bridgeEmitter, err := solanaEmitter(cfg.Solana.TokenBridgeAddress)
	if err != nil {
		return nil, err
	}
	emitters[models.EcosystemSolana] = bridgeEmitter

	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		endpoint:    strings.TrimSuffix(cfg.Wormhole.GuardianRPCEndpoint, "/"),
		emitters:    emitters,
		retryBudget: cfg.Wormhole.RetryBudget,
		logger:      logger.Named("wormhole"),
	}, nil
}

// FetchSignedVAA polls until the attestation for the emitter chain's message
// sequence is available. The poll count is bounded per ecosystem: chains with
// slower finality get a larger budget.
func (c *Client) FetchSignedVAA(ctx context.Context, emitter models.Ecosystem, sequence uint64) ([]byte, error) {
	address, ok := c.emitters[emitter]
	if !ok {
		return nil, fmt.Errorf("no emitter configured for ecosystem %s", emitter)
	}

	url := fmt.Sprintf("%s/v1/signed_vaa/%d/%s/%d",
		c.endpoint, emitter.WormholeChainID(), address, sequence)

	budget := c.retryBudget[emitter]
	if budget <= 0 {
		budget = 60
	}

	for attempt := 0; attempt < budget; attempt++ {
		vaa, err := c.fetchOnce(ctx, url)
		if err == nil {
			c.logger.Info("attestation received",
				zap.String("emitter", string(emitter)),
				zap.Uint64("sequence", sequence),
				zap.Int("attempts", attempt+1))
			return vaa, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	return nil, &models.ChainRpcError{
		Ecosystem: emitter,
		Op:        "fetchSignedVAA",
		Err:       fmt.Errorf("attestation for sequence %d not available after %d polls", sequence, budget),
	}
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("guardian API returned status %d", resp.StatusCode)
	}

	var body struct {
		VaaBytes string `json:"vaaBytes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid guardian API response: %w", err)
	}

	vaa, err := base64.StdEncoding.DecodeString(body.VaaBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid attestation encoding: %w", err)
	}
	return vaa, nil
}

// evmEmitter left-pads the 20-byte token bridge address to the 32-byte form
// the guardian API uses.
func evmEmitter(tokenBridge string) string {
	var padded [32]byte
	copy(padded[12:], common.HexToAddress(tokenBridge).Bytes())
	return hex.EncodeToString(padded[:])
}

// solanaEmitter derives the token bridge's emitter account.
func solanaEmitter(tokenBridge string) (string, error) {
	program, err := solana.PublicKeyFromBase58(tokenBridge)
	if err != nil {
		return "", fmt.Errorf("invalid solana token bridge address: %w", err)
	}
	emitter, _, err := solana.FindProgramAddress([][]byte{[]byte("emitter")}, program)
	if err != nil {
		return "", fmt.Errorf("failed to derive solana emitter: %w", err)
	}
	return hex.EncodeToString(emitter.Bytes()), nil
}
