package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	"go.uber.org/zap"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/models"
)

const confirmTimeout = 5 * time.Minute

// tokenBridgeABI covers the token bridge entry points the relayer calls.
const tokenBridgeABI = `[
	{"name":"transferTokens","type":"function","inputs":[
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"recipientChain","type":"uint16"},
		{"name":"recipient","type":"bytes32"},
		{"name":"arbiterFee","type":"uint256"},
		{"name":"nonce","type":"uint32"}],
		"outputs":[{"name":"sequence","type":"uint64"}]},
	{"name":"completeTransfer","type":"function","inputs":[
		{"name":"encodedVm","type":"bytes"}],"outputs":[]},
	{"name":"isTransferCompleted","type":"function","stateMutability":"view","inputs":[
		{"name":"hash","type":"bytes32"}],
		"outputs":[{"name":"","type":"bool"}]}
]`

// logMessagePublishedTopic is the core bridge's
// LogMessagePublished(address,uint64,uint32,bytes,uint8) event signature.
var logMessagePublishedTopic = crypto.Keccak256Hash(
	[]byte("LogMessagePublished(address,uint64,uint32,bytes,uint8)"))

// Client submits bridge transactions on one EVM chain.
type Client struct {
	ethClient   *ethclient.Client
	chainConfig config.EVMChainConfig
	bridgeABI   abi.ABI
	privateKey  *ecdsa.PrivateKey
	fromAddress common.Address
	logger      *zap.Logger
}

// NewClient creates a client for the configured chain.
func NewClient(chainCfg config.EVMChainConfig, logger *zap.Logger) (*Client, error) {
	ethClient, err := ethclient.Dial(chainCfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint %s: %w", chainCfg.RPCEndpoint, err)
	}

	privateKeyHex := strings.TrimPrefix(chainCfg.PrivateKey, "0x")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key to ECDSA")
	}
	fromAddress := crypto.PubkeyToAddress(*publicKey)

	bridgeABI, err := abi.JSON(strings.NewReader(tokenBridgeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token bridge ABI: %w", err)
	}

	logger.Info("EVM client initialized",
		zap.String("chain_name", chainCfg.Name),
		zap.String("chain_id", chainCfg.ChainID),
		zap.String("relayer_address", fromAddress.Hex()))

	return &Client{
		ethClient:   ethClient,
		chainConfig: chainCfg,
		bridgeABI:   bridgeABI,
		privateKey:  privateKey,
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	c.ethClient.Close()
}

func (c *Client) Ecosystem() models.Ecosystem {
	return c.chainConfig.Ecosystem
}

// RelayerAddress returns the relayer's address
func (c *Client) RelayerAddress() common.Address {
	return c.fromAddress
}

func (c *Client) rpcError(op string, err error) error {
	return &models.ChainRpcError{Ecosystem: c.chainConfig.Ecosystem, Op: op, Err: err}
}

// ApproveAndTransfer approves the token bridge for amount, then locks the
// tokens addressed to the Solana recipient. Returns both confirmed tx hashes
// in order plus the bridge message sequence parsed from the transfer receipt.
func (c *Client) ApproveAndTransfer(
	ctx context.Context,
	token config.TokenDetails,
	amount *big.Int,
	solanaRecipient string,
) ([]string, uint64, error) {
	tokenAddress := common.HexToAddress(token.Address(c.chainConfig.Ecosystem))
	bridgeAddress := common.HexToAddress(c.chainConfig.TokenBridgeAddress)

	recipientKey, err := solana.PublicKeyFromBase58(solanaRecipient)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid solana recipient %s: %w", solanaRecipient, err)
	}
	var recipient [32]byte
	copy(recipient[:], recipientKey.Bytes())

	// ERC20 approve(address,uint256) selector: 0x095ea7b3
	approveData := append(
		common.Hex2Bytes("095ea7b3"),
		append(
			common.LeftPadBytes(bridgeAddress.Bytes(), 32),
			common.LeftPadBytes(amount.Bytes(), 32)...,
		)...,
	)
	approveHash, err := c.signAndSend(ctx, tokenAddress, approveData)
	if err != nil {
		return nil, 0, c.rpcError("approve", err)
	}
	if _, err := c.WaitForTransaction(ctx, approveHash, confirmTimeout); err != nil {
		return nil, 0, c.rpcError("approve", err)
	}

	transferData, err := c.bridgeABI.Pack("transferTokens",
		tokenAddress,
		amount,
		models.EcosystemSolana.WormholeChainID(),
		recipient,
		big.NewInt(0),
		uint32(time.Now().Unix()),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to pack transferTokens: %w", err)
	}
	transferHash, err := c.signAndSend(ctx, bridgeAddress, transferData)
	if err != nil {
		return nil, 0, c.rpcError("transferTokens", err)
	}
	receipt, err := c.WaitForTransaction(ctx, transferHash, confirmTimeout)
	if err != nil {
		return nil, 0, c.rpcError("transferTokens", err)
	}

	sequence, err := sequenceFromReceipt(receipt, common.HexToAddress(c.chainConfig.CoreBridgeAddress))
	if err != nil {
		return nil, 0, err
	}

	c.logger.Info("bridge transfer submitted",
		zap.String("token", string(token.ID)),
		zap.String("tx_hash", transferHash.Hex()),
		zap.Uint64("sequence", sequence))

	return []string{approveHash.Hex(), transferHash.Hex()}, sequence, nil
}

// TransferSequence re-reads the bridge sequence from a confirmed transfer
// transaction's receipt.
func (c *Client) TransferSequence(ctx context.Context, txHash string) (uint64, error) {
	receipt, err := c.ethClient.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return 0, c.rpcError("transactionReceipt", err)
	}
	return sequenceFromReceipt(receipt, common.HexToAddress(c.chainConfig.CoreBridgeAddress))
}

// RedeemTransfer submits the signed attestation to the token bridge,
// releasing the tokens to the recipient encoded in it.
func (c *Client) RedeemTransfer(ctx context.Context, vaa []byte) (string, error) {
	data, err := c.bridgeABI.Pack("completeTransfer", vaa)
	if err != nil {
		return "", fmt.Errorf("failed to pack completeTransfer: %w", err)
	}

	bridgeAddress := common.HexToAddress(c.chainConfig.TokenBridgeAddress)
	txHash, err := c.signAndSend(ctx, bridgeAddress, data)
	if err != nil {
		return "", c.rpcError("completeTransfer", err)
	}
	if _, err := c.WaitForTransaction(ctx, txHash, confirmTimeout); err != nil {
		return "", c.rpcError("completeTransfer", err)
	}

	c.logger.Info("bridge transfer redeemed", zap.String("tx_hash", txHash.Hex()))
	return txHash.Hex(), nil
}

// TransferRedeemed reports whether the attestation was already redeemed on
// the token bridge. The bridge keys completed transfers by the message
// digest, so the check needs no local bookkeeping.
func (c *Client) TransferRedeemed(ctx context.Context, rawVAA []byte) (bool, error) {
	parsed, err := vaa.Unmarshal(rawVAA)
	if err != nil {
		return false, fmt.Errorf("failed to parse attestation: %w", err)
	}

	data, err := c.bridgeABI.Pack("isTransferCompleted", [32]byte(parsed.SigningDigest()))
	if err != nil {
		return false, fmt.Errorf("failed to pack isTransferCompleted: %w", err)
	}

	bridgeAddress := common.HexToAddress(c.chainConfig.TokenBridgeAddress)
	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &bridgeAddress,
		Data: data,
	}, nil)
	if err != nil {
		return false, c.rpcError("isTransferCompleted", err)
	}

	values, err := c.bridgeABI.Unpack("isTransferCompleted", result)
	if err != nil {
		return false, fmt.Errorf("failed to unpack isTransferCompleted: %w", err)
	}
	completed, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isTransferCompleted result")
	}
	return completed, nil
}

// WaitForTransaction waits for a transaction to be mined
func (c *Client) WaitForTransaction(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction %s", txHash.Hex())
		case <-ticker.C:
			receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
			if err == nil && receipt != nil {
				if receipt.Status == 0 {
					return receipt, fmt.Errorf("transaction failed: %s", txHash.Hex())
				}
				return receipt, nil
			}
			// Transaction not yet mined, continue waiting
		}
	}
}

// signAndSend creates, signs, and sends a transaction
func (c *Client) signAndSend(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	chainID, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := c.ethClient.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	gasLimit, err := c.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From: c.fromAddress,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}
	// Add 20% buffer
	gasLimit = gasLimit * 120 / 100

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("transaction sent",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce))

	return signedTx.Hash(), nil
}

// sequenceFromReceipt extracts the bridge message sequence from the core
// bridge's LogMessagePublished event. The sequence is the first word of the
// event data.
func sequenceFromReceipt(receipt *types.Receipt, coreBridge common.Address) (uint64, error) {
	for _, log := range receipt.Logs {
		if log.Address != coreBridge {
			continue
		}
		if len(log.Topics) == 0 || log.Topics[0] != logMessagePublishedTopic {
			continue
		}
		if len(log.Data) < 32 {
			return 0, fmt.Errorf("malformed LogMessagePublished data in tx %s", receipt.TxHash.Hex())
		}
		return new(big.Int).SetBytes(log.Data[:32]).Uint64(), nil
	}
	return 0, fmt.Errorf("no LogMessagePublished event in tx %s", receipt.TxHash.Hex())
}
