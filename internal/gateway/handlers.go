package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/roach88/dajeum/internal/engine"
	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
	"github.com/roach88/dajeum/internal/store"
)

// DefaultLogLimit bounds GET /v1/log when no limit is given.
const DefaultLogLimit = 100

// operationRequest is the body of POST /v1/operations.
type operationRequest struct {
	RequestID string    `json:"request_id,omitempty"`
	Action    ir.Action `json:"action"`
	Args      ir.Object `json:"args"`
}

// errorBody is the JSON body of every non-2xx response.
type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// amountBody renders a minor-unit amount with its display form.
type amountBody struct {
	Amount    int64  `json:"amount"`
	Formatted string `json:"formatted"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	seq, head := s.engine.Head()
	_, genesis := s.engine.Genesis()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"head_seq":     seq,
		"head":         head,
		"genesis_hash": genesis,
	})
}

func (s *Server) submitOperation(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(HeaderCaller)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, ledger.CodeUnauthorized, "missing "+HeaderCaller+" header")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, ledger.CodeValidation, "request body too large")
		return
	}
	var req operationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, ledger.CodeValidation, "malformed JSON body: "+err.Error())
		return
	}
	if !req.Action.Valid() {
		respondError(w, http.StatusBadRequest, ledger.CodeValidation, "unknown action "+strconv.Quote(string(req.Action)))
		return
	}
	if id := r.Header.Get(HeaderRequestID); id != "" && req.RequestID == "" {
		req.RequestID = id
	}

	entry, err := s.engine.Submit(r.Context(), engine.Request{
		RequestID: req.RequestID,
		Action:    req.Action,
		Caller:    caller,
		Args:      req.Args,
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, outcomeStatus(entry.Receipt.Outcome), entry)
}

func (s *Server) getName(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var rec ledger.NameRecord
	err := s.engine.View(func(st *ledger.State) error {
		var err error
		rec, err = st.Names.Get(id)
		return err
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) getNameCertificates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var certs []ledger.Certificate
	err := s.engine.View(func(st *ledger.State) error {
		if _, err := st.Names.Get(id); err != nil {
			return err
		}
		certs = st.Certificates.ByName(id)
		return nil
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	if certs == nil {
		certs = []ledger.Certificate{}
	}
	respondJSON(w, http.StatusOK, certs)
}

func (s *Server) getCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var cert ledger.Certificate
	err := s.engine.View(func(st *ledger.State) error {
		var err error
		cert, err = st.Certificates.Get(id)
		return err
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cert)
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	addr := ledger.Address(mux.Vars(r)["address"])
	var body amountBody
	_ = s.engine.View(func(st *ledger.State) error {
		body.Amount = st.Tokens.BalanceOf(addr)
		body.Formatted = st.Tokens.Format(body.Amount)
		return nil
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"address":   addr,
		"balance":   body.Amount,
		"formatted": body.Formatted,
	})
}

func (s *Server) getAllowance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, spender := ledger.Address(vars["owner"]), ledger.Address(vars["spender"])
	var body amountBody
	_ = s.engine.View(func(st *ledger.State) error {
		body.Amount = st.Tokens.Allowance(owner, spender)
		body.Formatted = st.Tokens.Format(body.Amount)
		return nil
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"owner":     owner,
		"spender":   spender,
		"allowance": body.Amount,
		"formatted": body.Formatted,
	})
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	prices := map[string]amountBody{}
	_ = s.engine.View(func(st *ledger.State) error {
		for _, name := range st.Tokens.Services() {
			p, _ := st.Tokens.ServicePrice(name)
			prices[name] = amountBody{Amount: p, Formatted: st.Tokens.Format(p)}
		}
		return nil
	})
	respondJSON(w, http.StatusOK, prices)
}

func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var body amountBody
	err := s.engine.View(func(st *ledger.State) error {
		p, err := st.Tokens.ServicePrice(name)
		if err != nil {
			return err
		}
		body = amountBody{Amount: p, Formatted: st.Tokens.Format(p)}
		return nil
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"service_name": name,
		"price":        body.Amount,
		"formatted":    body.Formatted,
	})
}

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	var out map[string]any
	_ = s.engine.View(func(st *ledger.State) error {
		out = map[string]any{
			"symbol":       st.Tokens.Symbol(),
			"decimals":     st.Tokens.Decimals(),
			"total_supply": st.Tokens.TotalSupply(),
			"formatted":    st.Tokens.Format(st.Tokens.TotalSupply()),
			"treasury":     st.Tokens.Treasury(),
			"admin":        st.Tokens.Admin(),
		}
		return nil
	})
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) readLog(w http.ResponseWriter, r *http.Request) {
	after, err := queryInt(r, "after", 0)
	if err != nil || after < 0 {
		respondError(w, http.StatusBadRequest, ledger.CodeValidation, "after must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", DefaultLogLimit)
	if err != nil || limit < 1 || limit > 1000 {
		respondError(w, http.StatusBadRequest, ledger.CodeValidation, "limit must be between 1 and 1000")
		return
	}
	q := r.URL.Query()
	filter := store.LogFilter{
		After:     after,
		Action:    q.Get("action"),
		Caller:    q.Get("caller"),
		Outcome:   q.Get("outcome"),
		RequestID: q.Get("request_id"),
		Event:     q.Get("event"),
	}
	entries, err := s.store.Query(r.Context(), store.Query{Filter: filter.Predicate(), Limit: int(limit)})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) readEntry(w http.ResponseWriter, r *http.Request) {
	seq, ok := pathInt(w, r, "seq")
	if !ok {
		return
	}
	entry, err := s.store.ReadEntry(r.Context(), seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, ledger.CodeNotFound, "no log entry at seq "+strconv.FormatInt(seq, 10))
			return
		}
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) readEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ReadEvents(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Snapshot())
}

// outcomeStatus maps a receipt outcome to an HTTP status. Rejected
// operations are still logged, so their receipt is the response body.
func outcomeStatus(outcome string) int {
	switch outcome {
	case ir.OutcomeOK:
		return http.StatusOK
	case ledger.CodeNotFound:
		return http.StatusNotFound
	case ledger.CodeUnauthorized:
		return http.StatusForbidden
	case ledger.CodeValidation, ledger.CodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondLedgerError(w http.ResponseWriter, err error) {
	code := ledger.CodeOf(err)
	respondError(w, outcomeStatus(code), code, err.Error())
}

func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrClosed), engine.IsHalted(err):
		respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Submit only reports cancellation for requests that were never logged.
		respondError(w, http.StatusServiceUnavailable, "CANCELLED", err.Error())
	default:
		slog.Error("gateway request failed", "error", err)
		respondError(w, http.StatusInternalServerError, string(engine.ErrCodeInternal), "internal error")
	}
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, ledger.CodeValidation, name+" must be an integer")
		return 0, false
	}
	return n, true
}

func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Debug("write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, code int, errCode, msg string) {
	respondJSON(w, code, errorBody{Code: errCode, Error: msg})
}
