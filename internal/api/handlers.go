package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi/v5"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/market"
)

const (
	defaultEventPage = 100
	maxEventPage     = 1000
)

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// decodeOptionalBody is decodeBody that accepts an empty body.
func decodeOptionalBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// parseAmountField parses an optional base-unit amount; empty yields zero.
func parseAmountField(name, raw string) (sdkmath.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return sdkmath.ZeroInt(), nil
	}
	v, err := domain.ParseAmount(raw)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func (s *Server) marketParam(r *http.Request) (*market.Market, error) {
	addr, err := domain.ParseAccount(chi.URLParam(r, "address"))
	if err != nil {
		return nil, fmt.Errorf("market address: %w", err)
	}
	return s.directory.Get(addr)
}

// Requests

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.registry.Submit(r.Context(), callerFrom(r.Context()), body.Name, body.Symbol)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := s.registry.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestView(req))
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	status := domain.RequestStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status != "" && !status.IsValid() {
		s.writeError(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, status))
		return
	}

	reqs := s.registry.List(status)
	views := make([]RequestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, requestView(req))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.registry.Get(domain.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestView(req))
}

func (s *Server) approveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.registry.Approve(r.Context(), callerFrom(r.Context()), domain.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestView(req))
}

func (s *Server) rejectRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.registry.Reject(r.Context(), callerFrom(r.Context()), domain.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestView(req))
}

func (s *Server) issueRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Payment string `json:"payment"`
	}
	if err := decodeOptionalBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	payment, err := parseAmountField("payment", body.Payment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.issuer.Issue(r.Context(), callerFrom(r.Context()), domain.RequestID(chi.URLParam(r, "id")), payment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IssueView{
		Request:  requestView(res.Request),
		Market:   marketView(res.Market.State()),
		Purchase: tradeView(res.Purchase),
	})
}

// Admins

func (s *Server) adminSetView() AdminSetView {
	set := s.registry.AdminSet()
	return AdminSetView{Owner: s.registry.Owner(), Admins: set.Admins, Threshold: set.Threshold}
}

func (s *Server) getAdmins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.adminSetView())
}

func (s *Server) putAdmins(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Admins    []domain.Account `json:"admins"`
		Threshold int              `json:"threshold"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.registry.Reconfigure(r.Context(), callerFrom(r.Context()), body.Admins, body.Threshold); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.adminSetView())
}

// Markets

func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.directory.List()
	views := make([]MarketView, 0, len(markets))
	for _, m := range markets {
		views = append(views, marketView(m.State()))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	m, err := s.marketParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marketView(m.State()))
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	m, err := s.marketParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmountField("amount", r.URL.Query().Get("amount"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var q market.Quote
	switch side := domain.TradeSide(strings.ToLower(r.URL.Query().Get("side"))); side {
	case domain.TradeSideBuy, "":
		q, err = m.QuoteBuy(amount)
	case domain.TradeSideSell:
		q, err = m.QuoteSell(amount)
	default:
		err = fmt.Errorf("%w: side must be buy or sell, got %q", errBadRequest, side)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteView(q))
}

func (s *Server) buy(w http.ResponseWriter, r *http.Request) {
	m, err := s.marketParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		Payment     string          `json:"payment"`
		Beneficiary *domain.Account `json:"beneficiary"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	payment, err := parseAmountField("payment", body.Payment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	caller := callerFrom(r.Context())
	beneficiary := caller
	if body.Beneficiary != nil {
		beneficiary = *body.Beneficiary
	}

	trade, err := m.Buy(r.Context(), caller, beneficiary, payment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeView(trade))
}

func (s *Server) sell(w http.ResponseWriter, r *http.Request) {
	m, err := s.marketParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		Amount string `json:"amount"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmountField("amount", body.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	trade, err := m.Sell(r.Context(), callerFrom(r.Context()), amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeView(trade))
}

func (s *Server) tokenBalance(w http.ResponseWriter, r *http.Request) {
	m, err := s.marketParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	account, err := domain.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	addr := m.Address()
	bal := m.BalanceOf(account)
	writeJSON(w, http.StatusOK, BalanceView{Account: account, Market: &addr, Balance: bal, Units: domain.FormatUnits(bal)})
}

func (s *Server) baseBalance(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	bal := s.base.BalanceOf(account)
	writeJSON(w, http.StatusOK, BalanceView{Account: account, Balance: bal, Units: domain.FormatUnits(bal)})
}

func (s *Server) marketTrades(w http.ResponseWriter, r *http.Request) {
	m, err := s.marketParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := []*TradeView{}
	if s.trades != nil {
		trades, err := s.trades.GetByMarket(r.Context(), m.Address())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		for _, t := range trades {
			views = append(views, tradeView(t))
		}
	}
	writeJSON(w, http.StatusOK, views)
}

// Events

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusOK, []EventView{})
		return
	}

	after, err := queryInt(r, "after", 0)
	if err != nil || after < 0 {
		s.writeError(w, r, fmt.Errorf("%w: after must be a non-negative integer", errBadRequest))
		return
	}
	limit, err := queryInt(r, "limit", defaultEventPage)
	if err != nil || limit <= 0 {
		s.writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
		return
	}
	if limit > maxEventPage {
		limit = maxEventPage
	}

	records, err := s.events.GetRange(r.Context(), after, int(limit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]EventView, 0, len(records))
	for _, rec := range records {
		v, err := eventView(rec)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("event %d: %w", rec.Seq, err))
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func queryInt(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
