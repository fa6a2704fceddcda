package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/market"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/storage"
)

var (
	errBadRequest      = errors.New("bad request")
	errUnauthenticated = errors.New("missing or invalid caller identity")
	errBadSignature    = errors.New("signature verification failed")
)

// errorMapping assigns an HTTP status and a stable code to a sentinel error.
type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	// Unknown subjects come first: Finalize on an absent request matches ErrNotApproved too.
	{registry.ErrUnknownRequest, http.StatusNotFound, "UNKNOWN_REQUEST"},
	{market.ErrUnknownMarket, http.StatusNotFound, "UNKNOWN_MARKET"},
	{storage.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

	{errUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{errBadSignature, http.StatusUnauthorized, "BAD_SIGNATURE"},
	{errStaleRequest, http.StatusUnauthorized, "STALE_REQUEST"},
	{errReplayedRequest, http.StatusUnauthorized, "REPLAYED_REQUEST"},
	{errReplayCacheFull, http.StatusServiceUnavailable, "REPLAY_CACHE_FULL"},

	{registry.ErrNotAdmin, http.StatusForbidden, "NOT_ADMIN"},
	{registry.ErrNotOwner, http.StatusForbidden, "NOT_OWNER"},
	{registry.ErrNotCreator, http.StatusForbidden, "NOT_CREATOR"},

	{errBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
	{registry.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{registry.ErrInvalidAdminList, http.StatusBadRequest, "INVALID_ADMIN_LIST"},
	{registry.ErrInvalidThreshold, http.StatusBadRequest, "INVALID_THRESHOLD"},
	{market.ErrZeroPayment, http.StatusBadRequest, "ZERO_PAYMENT"},
	{market.ErrZeroAmount, http.StatusBadRequest, "ZERO_AMOUNT"},
	{market.ErrInvalidBeneficiary, http.StatusBadRequest, "INVALID_BENEFICIARY"},
	{market.ErrInvalidPayer, http.StatusBadRequest, "INVALID_PAYER"},
	{market.ErrInvalidSeller, http.StatusBadRequest, "INVALID_SELLER"},
	{market.ErrInvalidParams, http.StatusBadRequest, "INVALID_PARAMS"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{domain.ErrInvalidAccount, http.StatusBadRequest, "INVALID_ACCOUNT"},

	{market.ErrInvariantViolation, http.StatusInternalServerError, "INVARIANT_VIOLATION"},

	{registry.ErrDuplicateRequest, http.StatusConflict, "DUPLICATE_REQUEST"},
	{registry.ErrAlreadyApproved, http.StatusConflict, "ALREADY_APPROVED"},
	{registry.ErrAlreadyFinalized, http.StatusConflict, "ALREADY_FINALIZED"},
	{registry.ErrNotApproved, http.StatusConflict, "NOT_APPROVED"},
	{market.ErrSupplyExhausted, http.StatusConflict, "SUPPLY_EXHAUSTED"},
	{market.ErrExceedsMaxSupply, http.StatusConflict, "EXCEEDS_MAX_SUPPLY"},
	{market.ErrInsufficientFunds, http.StatusConflict, "INSUFFICIENT_FUNDS"},
	{market.ErrInsufficientBalance, http.StatusConflict, "INSUFFICIENT_BALANCE"},
	{market.ErrInsufficientReserve, http.StatusConflict, "INSUFFICIENT_RESERVE"},
	{market.ErrDuplicateMarket, http.StatusConflict, "DUPLICATE_MARKET"},
	{ledger.ErrInsufficientBalance, http.StatusConflict, "INSUFFICIENT_BALANCE"},
}

// classify returns the HTTP status and code for err.
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
