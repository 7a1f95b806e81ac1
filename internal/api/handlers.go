package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"propeller/offchain/internal/config"
	"propeller/offchain/internal/derive"
	"propeller/offchain/internal/models"
	"propeller/offchain/internal/store"
)

// AccountChecker answers whether a wallet already has a token account for a
// mint; the live Solana client implements it.
type AccountChecker interface {
	TokenAccountExists(ctx context.Context, owner, mint string) (bool, error)
}

// InteractionRunner drives an interaction to completion in the background.
type InteractionRunner interface {
	ResumeInteraction(ctx context.Context, id string) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store    *store.Store
	env      *config.Environment
	accounts AccountChecker
	runner   InteractionRunner
	logger   *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	st *store.Store,
	env *config.Environment,
	accounts AccountChecker,
	runner InteractionRunner,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:    st,
		env:      env,
		accounts: accounts,
		runner:   runner,
		logger:   logger,
	}
}

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}

// HandleCreateInteraction handles POST /api/v1/interactions. It derives the
// full execution state for the request, stores it, and kicks off execution in
// the background.
func (h *Handler) HandleCreateInteraction(w http.ResponseWriter, r *http.Request) {
	var req CreateInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	interaction, err := h.buildInteraction(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid interaction", err)
		return
	}

	state, err := h.deriveState(r.Context(), interaction)
	if err != nil {
		h.respondDomainError(w, "Failed to derive interaction state", err)
		return
	}

	if err := h.store.AddInteractionState(r.Context(), state); err != nil {
		h.respondDomainError(w, "Failed to store interaction", err)
		return
	}

	h.logger.Info("interaction created",
		zap.String("interaction_id", interaction.ID),
		zap.String("kind", string(interaction.Kind)))

	go func() {
		if err := h.runner.ResumeInteraction(context.Background(), interaction.ID); err != nil {
			h.logger.Error("interaction execution failed",
				zap.String("interaction_id", interaction.ID),
				zap.Error(err))
		}
	}()

	respondJSON(w, http.StatusCreated, h.stateResponse(state))
}

// HandleGetInteraction handles GET /api/v1/interactions/{interactionId}
func (h *Handler) HandleGetInteraction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interactionId"]

	state, err := h.store.GetInteractionState(id)
	if err != nil {
		h.respondDomainError(w, "Failed to get interaction", err)
		return
	}

	respondJSON(w, http.StatusOK, h.stateResponse(state))
}

// HandleListInteractions handles GET /api/v1/interactions?limit=N
func (h *Handler) HandleListInteractions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = parsed
	}

	states := h.store.RecentInteractions(limit)
	response := ListInteractionsResponse{
		Interactions: make([]InteractionStateResponse, len(states)),
	}
	for i, state := range states {
		response.Interactions[i] = h.stateResponse(state)
	}
	respondJSON(w, http.StatusOK, response)
}

// HandleResumeInteraction handles POST /api/v1/interactions/{interactionId}/resume.
// Execution continues in the background from the first unfinished step.
func (h *Handler) HandleResumeInteraction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interactionId"]

	if _, err := h.store.GetInteractionState(id); err != nil {
		h.respondDomainError(w, "Failed to resume interaction", err)
		return
	}

	go func() {
		if err := h.runner.ResumeInteraction(context.Background(), id); err != nil {
			h.logger.Error("interaction resume failed",
				zap.String("interaction_id", id),
				zap.Error(err))
		}
	}()

	respondJSON(w, http.StatusAccepted, ResumeResponse{ID: id, Status: "resuming"})
}

// deriveState queries the live token account set and derives the initial
// aggregate.
func (h *Handler) deriveState(ctx context.Context, interaction models.Interaction) (*models.InteractionState, error) {
	owner, err := interaction.Wallet(models.EcosystemSolana)
	if err != nil {
		return nil, err
	}

	mints, err := derive.RequiredMints(h.env, interaction)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(mints))
	for _, mint := range mints {
		exists, err := h.accounts.TokenAccountExists(ctx, owner, mint)
		if err != nil {
			return nil, err
		}
		existing[mint] = exists
	}

	return derive.NewInteractionState(h.env, interaction, existing)
}

func (h *Handler) buildInteraction(req *CreateInteractionRequest) (models.Interaction, error) {
	interaction := models.Interaction{
		ID:               models.NewInteractionID(),
		Kind:             models.InteractionKind(req.Kind),
		Env:              h.env.Env,
		SubmittedAt:      models.NowMillis(),
		ConnectedWallets: make(map[models.Ecosystem]*string, len(req.ConnectedWallets)),
	}
	for eco, addr := range req.ConnectedWallets {
		ecosystem := models.Ecosystem(eco)
		if !slices.Contains(models.Ecosystems, ecosystem) {
			return models.Interaction{}, fmt.Errorf("unknown wallet ecosystem %q", eco)
		}
		interaction.ConnectedWallets[ecosystem] = addr
	}
	for _, id := range req.PoolIDs {
		interaction.PoolIDs = append(interaction.PoolIDs, models.PoolID(id))
	}

	var err error
	switch {
	case req.Add != nil:
		params := &models.AddParams{}
		if params.InputAmounts, err = parseAmounts(req.Add.InputAmounts); err != nil {
			return models.Interaction{}, err
		}
		if params.MinimumMintAmount, err = parseAmount(req.Add.MinimumMintAmount); err != nil {
			return models.Interaction{}, err
		}
		interaction.Add = params
	case req.Swap != nil:
		params := &models.SwapParams{}
		if params.ExactInputAmount, err = parseAmount(req.Swap.ExactInputAmount); err != nil {
			return models.Interaction{}, err
		}
		if params.MinimumOutputAmount, err = parseAmount(req.Swap.MinimumOutputAmount); err != nil {
			return models.Interaction{}, err
		}
		interaction.Swap = params
	case req.RemoveUniform != nil:
		params := &models.RemoveUniformParams{}
		if params.ExactBurnAmount, err = parseAmount(req.RemoveUniform.ExactBurnAmount); err != nil {
			return models.Interaction{}, err
		}
		if params.MinimumOutputAmounts, err = parseAmounts(req.RemoveUniform.MinimumOutputAmounts); err != nil {
			return models.Interaction{}, err
		}
		interaction.RemoveUniform = params
	case req.RemoveExactBurn != nil:
		params := &models.RemoveExactBurnParams{}
		if params.ExactBurnAmount, err = parseAmount(req.RemoveExactBurn.ExactBurnAmount); err != nil {
			return models.Interaction{}, err
		}
		if params.MinimumOutputAmount, err = parseAmount(req.RemoveExactBurn.MinimumOutputAmount); err != nil {
			return models.Interaction{}, err
		}
		interaction.RemoveExactBurn = params
	case req.RemoveExactOutput != nil:
		params := &models.RemoveExactOutputParams{}
		if params.MaximumBurnAmount, err = parseAmount(req.RemoveExactOutput.MaximumBurnAmount); err != nil {
			return models.Interaction{}, err
		}
		if params.ExactOutputAmounts, err = parseAmounts(req.RemoveExactOutput.ExactOutputAmounts); err != nil {
			return models.Interaction{}, err
		}
		interaction.RemoveExactOutput = params
	case req.SwapV2 != nil:
		params, err := h.buildSwapV2(req.SwapV2)
		if err != nil {
			return models.Interaction{}, err
		}
		interaction.SwapV2 = params
	default:
		return models.Interaction{}, fmt.Errorf("missing interaction params")
	}

	return interaction, interaction.Validate()
}

// buildSwapV2 resolves the source and target ecosystems from the token
// registry; the caller supplies only token ids.
func (h *Handler) buildSwapV2(payload *SwapV2Payload) (*models.SwapV2Params, error) {
	fromToken, err := h.env.Token(models.TokenID(payload.FromTokenID))
	if err != nil {
		return nil, err
	}
	toToken, err := h.env.Token(models.TokenID(payload.ToTokenID))
	if err != nil {
		return nil, err
	}
	exactInput, err := decimal.NewFromString(payload.ExactInputValue)
	if err != nil {
		return nil, fmt.Errorf("invalid exactInputValue %q: %w", payload.ExactInputValue, err)
	}
	minimumOutput, err := decimal.NewFromString(payload.MinimumOutputValue)
	if err != nil {
		return nil, fmt.Errorf("invalid minimumOutputValue %q: %w", payload.MinimumOutputValue, err)
	}

	return &models.SwapV2Params{
		FromTokenID:        fromToken.ID,
		FromEcosystem:      fromToken.NativeEcosystem,
		ToTokenID:          toToken.ID,
		ToEcosystem:        toToken.NativeEcosystem,
		ExactInputValue:    exactInput,
		MinimumOutputValue: minimumOutput,
	}, nil
}

func (h *Handler) stateResponse(state *models.InteractionState) InteractionStateResponse {
	interaction := state.Interaction

	response := InteractionStateResponse{
		ID:               interaction.ID,
		Kind:             string(interaction.Kind),
		Env:              string(interaction.Env),
		SubmittedAt:      interaction.SubmittedAt,
		ConnectedWallets: make(map[string]*string, len(interaction.ConnectedWallets)),
	}
	for eco, addr := range interaction.ConnectedWallets {
		response.ConnectedWallets[string(eco)] = addr
	}
	for _, id := range interaction.PoolIDs {
		response.PoolIDs = append(response.PoolIDs, string(id))
	}

	response.RequiredSplTokenAccounts = make(map[string]TokenAccountView, len(state.RequiredSplTokenAccounts))
	for mint, acct := range state.RequiredSplTokenAccounts {
		response.RequiredSplTokenAccounts[mint] = TokenAccountView{
			IsExistingAccount: acct.IsExistingAccount,
			TxID:              acct.TxID,
		}
	}

	response.ToSolanaTransfers = make([]ToSolanaTransferView, len(state.ToSolanaTransfers))
	for i, t := range state.ToSolanaTransfers {
		response.ToSolanaTransfers[i] = ToSolanaTransferView{
			Token: AmountPayload{
				TokenID: string(t.Token.TokenID()),
				Value:   t.Token.HumanString(),
			},
			FromEcosystem:              string(t.FromEcosystem),
			SignatureSetAddress:        t.SignatureSetAddress,
			ApproveAndTransferEVMToken: t.TxIDs.ApproveAndTransferEVMToken,
			PostVaaOnSolana:            t.TxIDs.PostVaaOnSolana,
			ClaimTokenOnSolana:         t.TxIDs.ClaimTokenOnSolana,
			Status:                     string(models.ScalarTxStatus(t.TxIDs.ClaimTokenOnSolana)),
		}
	}

	response.SolanaPoolOperations = make([]PoolOperationView, len(state.SolanaPoolOperations))
	for i, op := range state.SolanaPoolOperations {
		response.SolanaPoolOperations[i] = PoolOperationView{
			PoolID:      string(op.Operation.PoolID),
			Instruction: string(op.Operation.Instruction),
			TxID:        op.TxID,
			Status:      string(models.ScalarTxStatus(op.TxID)),
		}
	}

	response.FromSolanaTransfers = make([]FromSolanaTransferView, len(state.FromSolanaTransfers))
	for i, t := range state.FromSolanaTransfers {
		var value *string
		if t.Value != nil {
			v := t.Value.String()
			value = &v
		}
		response.FromSolanaTransfers[i] = FromSolanaTransferView{
			TokenID:          string(t.TokenID),
			ToEcosystem:      string(t.ToEcosystem),
			Value:            value,
			TransferSplToken: t.TxIDs.TransferSplToken,
			ClaimTokenOnEVM:  t.TxIDs.ClaimTokenOnEVM,
			Status:           string(models.ScalarTxStatus(t.TxIDs.ClaimTokenOnEVM)),
		}
	}

	if message, ok := h.store.GetInteractionError(interaction.ID); ok {
		response.Error = &message
	}

	return response
}

// respondDomainError maps domain errors onto HTTP status codes.
func (h *Handler) respondDomainError(w http.ResponseWriter, message string, err error) {
	var (
		notFound      *models.NotFoundError
		missingWallet *models.MissingWalletError
		badToken      *models.TokenResolutionError
		chainRPC      *models.ChainRpcError
	)

	switch {
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.As(err, &missingWallet), errors.As(err, &badToken):
		respondError(w, http.StatusBadRequest, message, err)
	case errors.As(err, &chainRPC):
		h.logger.Error("chain RPC failure", zap.Error(err))
		respondError(w, http.StatusBadGateway, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

func parseAmount(payload AmountPayload) (models.Amount, error) {
	return models.AmountFromHumanString(models.TokenID(payload.TokenID), payload.Value)
}

func parseAmounts(payloads []AmountPayload) ([]models.Amount, error) {
	amounts := make([]models.Amount, len(payloads))
	for i, p := range payloads {
		amount, err := parseAmount(p)
		if err != nil {
			return nil, err
		}
		amounts[i] = amount
	}
	return amounts, nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already written, nothing else to do.
		fmt.Printf("Failed to encode JSON response: %v\n", err)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
	}

	respondJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Message: errorMsg,
	})
}
