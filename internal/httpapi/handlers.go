// Package httpapi exposes the lottery token service over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	interrors "github.com/randworks/lottery_token/internal/errors"
	"github.com/randworks/lottery_token/internal/httputil"
	"github.com/randworks/lottery_token/internal/logging"
	"github.com/randworks/lottery_token/internal/lottery"
)

// CallerAddressHeader carries the fulfillment caller's address. The service
// authenticates fulfillments by comparing it against the configured oracle.
const CallerAddressHeader = "X-Caller-Address"

// Handler serves the mint and fulfillment endpoints.
type Handler struct {
	service *lottery.Service
	logger  *logging.Logger
}

// NewHandler creates the API handler.
func NewHandler(service *lottery.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewDefault("httpapi")
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the API routes on the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/v1/mints", h.handleMintTo).Methods(http.MethodPost)
	r.HandleFunc("/v1/fulfillments", h.handleFulfillment).Methods(http.MethodPost)
	r.HandleFunc("/v1/requests/{nonce}", h.handleGetRequest).Methods(http.MethodGet)
	r.HandleFunc("/v1/stats", h.handleStats).Methods(http.MethodGet)
}

type mintRequestBody struct {
	Recipient string `json:"recipient"`
}

type fulfillmentBody struct {
	Nonce        string   `json:"nonce"`
	RandomValues []string `json:"random_values"`
}

type requestResponse struct {
	Nonce       string `json:"nonce"`
	Recipient   string `json:"recipient"`
	Status      string `json:"status"`
	Amount      string `json:"amount,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	CreatedAt   string `json:"created_at"`
	FulfilledAt string `json:"fulfilled_at,omitempty"`
}

func toResponse(req lottery.PendingRequest) requestResponse {
	out := requestResponse{
		Nonce:     req.Nonce.String(),
		Recipient: req.Recipient.Hex(),
		Status:    string(req.Status),
		LastError: req.LastError,
		CreatedAt: req.CreatedAt.Format(time.RFC3339),
	}
	if req.Amount != nil {
		out.Amount = req.Amount.String()
	}
	if !req.FulfilledAt.IsZero() {
		out.FulfilledAt = req.FulfilledAt.Format(time.RFC3339)
	}
	return out
}

func (h *Handler) handleMintTo(w http.ResponseWriter, r *http.Request) {
	var body mintRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteServiceError(w, r, interrors.InvalidRequest("invalid JSON body"))
		return
	}
	if !common.IsHexAddress(body.Recipient) {
		httputil.WriteServiceError(w, r, interrors.InvalidFormat("recipient", "0x-prefixed hex address"))
		return
	}

	req, err := h.service.MintTo(r.Context(), common.HexToAddress(body.Recipient))
	if err != nil {
		h.writeLotteryError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusAccepted, toResponse(req))
}

func (h *Handler) handleFulfillment(w http.ResponseWriter, r *http.Request) {
	callerHex := r.Header.Get(CallerAddressHeader)
	if !common.IsHexAddress(callerHex) {
		httputil.WriteServiceError(w, r, interrors.InvalidFormat(CallerAddressHeader, "0x-prefixed hex address"))
		return
	}

	var body fulfillmentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteServiceError(w, r, interrors.InvalidRequest("invalid JSON body"))
		return
	}

	nonce, ok := new(big.Int).SetString(body.Nonce, 10)
	if !ok {
		httputil.WriteServiceError(w, r, interrors.InvalidFormat("nonce", "decimal integer"))
		return
	}

	randomValues := make([]*big.Int, 0, len(body.RandomValues))
	for _, raw := range body.RandomValues {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			httputil.WriteServiceError(w, r, interrors.InvalidFormat("random_values", "decimal integers"))
			return
		}
		randomValues = append(randomValues, v)
	}

	req, err := h.service.MintRandomAmount(r.Context(), common.HexToAddress(callerHex), nonce, randomValues)
	if err != nil {
		h.writeLotteryError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, toResponse(req))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["nonce"]
	nonce, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		httputil.WriteServiceError(w, r, interrors.InvalidFormat("nonce", "decimal integer"))
		return
	}

	req, err := h.service.GetRequest(r.Context(), nonce)
	if err != nil {
		h.writeLotteryError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, toResponse(req))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeLotteryError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

// writeLotteryError maps domain errors onto HTTP statuses.
func (h *Handler) writeLotteryError(w http.ResponseWriter, r *http.Request, err error) {
	var serviceErr *interrors.ServiceError
	switch {
	case errors.Is(err, lottery.ErrUnauthorizedCaller):
		serviceErr = interrors.Forbidden("caller is not the configured oracle")
	case errors.Is(err, lottery.ErrMalformedFulfillment):
		serviceErr = interrors.InvalidRequest("fulfillment payload missing random value")
	case errors.Is(err, lottery.ErrUnknownNonce):
		serviceErr = interrors.NotFound("no request registered for nonce")
	case errors.Is(err, lottery.ErrAlreadyFulfilled):
		serviceErr = interrors.Conflict("nonce already fulfilled")
	case errors.Is(err, lottery.ErrRandomnessRequestFailed):
		serviceErr = interrors.UpstreamFailure("randomness request failed", err)
	case errors.Is(err, lottery.ErrMintFailed):
		serviceErr = interrors.UpstreamFailure("token mint failed", err)
	default:
		serviceErr = interrors.Internal("internal error", err)
	}

	h.logger.WithContext(r.Context()).WithError(err).
		WithField("path", r.URL.Path).
		Warn("request failed")
	httputil.WriteServiceError(w, r, serviceErr)
}
