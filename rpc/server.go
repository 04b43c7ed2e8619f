package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swapledger/native/common"
	"swapledger/native/swap"
	"swapledger/observability"
)

// Committer flushes staged ledger writes to durable storage after a
// successful mutation.
type Committer interface {
	Commit() error
}

// Server exposes the swap engine over HTTP. A single mutex serializes
// every engine call with its commit: a flush must never land while
// another handler's operation is still inside its snapshot window, or
// that operation's rollback would strand partial writes.
type Server struct {
	engine    *swap.Engine
	committer Committer
	log       *slog.Logger

	mu     sync.Mutex
	router http.Handler
}

// New constructs a configured HTTP router around the engine. The
// committer may be nil when the backing store needs no explicit flush.
func New(engine *swap.Engine, committer Committer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	srv := &Server{engine: engine, committer: committer, log: log}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/swap", func(sr chi.Router) {
		sr.Post("/open", s.OpenSwap)
		sr.Get("/{id}", s.GetSwap)
		sr.Post("/{id}/approve", s.ApproveSwap)
		sr.Post("/{id}/reject", s.RejectSwap)
		sr.Post("/{id}/cancel", s.CancelSwap)
	})
	r.Route("/admin", func(ar chi.Router) {
		ar.Post("/treasury", s.SetTreasury)
		ar.Post("/fee-rate", s.SetFeeRate)
	})
	return r
}

type openRequest struct {
	Initiator       string `json:"initiator"`
	Counterparty    string `json:"counterparty"`
	OfferedAsset    string `json:"offeredAsset"`
	OfferedAmount   string `json:"offeredAmount"`
	RequestedAsset  string `json:"requestedAsset"`
	RequestedAmount string `json:"requestedAmount"`
}

type callerRequest struct {
	Caller string `json:"caller"`
}

type treasuryRequest struct {
	Caller   string `json:"caller"`
	Treasury string `json:"treasury"`
}

type feeRateRequest struct {
	Caller string `json:"caller"`
	Rate   uint32 `json:"rate"`
}

type swapView struct {
	ID              uint64 `json:"id"`
	Initiator       string `json:"initiator"`
	Counterparty    string `json:"counterparty"`
	OfferedAsset    string `json:"offeredAsset"`
	OfferedAmount   string `json:"offeredAmount"`
	RequestedAsset  string `json:"requestedAsset"`
	RequestedAmount string `json:"requestedAmount"`
	CreatedAt       int64  `json:"createdAt"`
	Status          string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Healthz reports liveness and ledger readiness.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.Config(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// OpenSwap escrows the offered asset and records a pending request.
func (s *Server) OpenSwap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body openRequest
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, "open", start, err)
		return
	}
	initiator, err := parseAddress(body.Initiator)
	if err != nil {
		s.fail(w, "open", start, err)
		return
	}
	counterparty, err := parseAddress(body.Counterparty)
	if err != nil {
		s.fail(w, "open", start, err)
		return
	}
	offered, err := parseAsset(body.OfferedAsset)
	if err != nil {
		s.fail(w, "open", start, err)
		return
	}
	requested, err := parseAsset(body.RequestedAsset)
	if err != nil {
		s.fail(w, "open", start, err)
		return
	}
	offeredAmount, err := parseAmount(body.OfferedAmount)
	if err != nil {
		s.fail(w, "open", start, err)
		return
	}
	requestedAmount, err := parseAmount(body.RequestedAmount)
	if err != nil {
		s.fail(w, "open", start, err)
		return
	}
	var req *swap.SwapRequest
	err = s.withLock(func() error {
		var openErr error
		req, openErr = s.engine.Open(initiator, counterparty, offered, offeredAmount, requested, requestedAmount)
		return openErr
	})
	if err != nil {
		s.fail(w, "open", start, err)
		return
	}
	observability.Metrics().Observe("open", "ok", start)
	writeJSON(w, http.StatusCreated, viewOf(req))
}

// GetSwap returns the stored request for an id.
func (s *Server) GetSwap(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.mu.Lock()
	req, err := s.engine.Get(id)
	s.mu.Unlock()
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(req))
}

// ApproveSwap settles a pending request as its counterparty.
func (s *Server) ApproveSwap(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "approve", s.engine.Approve)
}

// RejectSwap declines a pending request.
func (s *Server) RejectSwap(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "reject", s.engine.Reject)
}

// CancelSwap withdraws a pending request as its initiator.
func (s *Server) CancelSwap(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "cancel", s.engine.Cancel)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, op string, fn func(uint64, [20]byte) error) {
	start := time.Now()
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, op, start, err)
		return
	}
	var body callerRequest
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, op, start, err)
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.fail(w, op, start, err)
		return
	}
	var req *swap.SwapRequest
	err = s.withLock(func() error {
		if err := fn(id, caller); err != nil {
			return err
		}
		var getErr error
		req, getErr = s.engine.Get(id)
		return getErr
	})
	if err != nil {
		s.fail(w, op, start, err)
		return
	}
	observability.Metrics().Observe(op, "ok", start)
	writeJSON(w, http.StatusOK, viewOf(req))
}

// SetTreasury rotates the fee treasury address.
func (s *Server) SetTreasury(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body treasuryRequest
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, "set_treasury", start, err)
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.fail(w, "set_treasury", start, err)
		return
	}
	treasury, err := parseAddress(body.Treasury)
	if err != nil {
		s.fail(w, "set_treasury", start, err)
		return
	}
	err = s.withLock(func() error {
		return s.engine.SetTreasury(caller, treasury)
	})
	if err != nil {
		s.fail(w, "set_treasury", start, err)
		return
	}
	observability.Metrics().Observe("set_treasury", "ok", start)
	writeJSON(w, http.StatusOK, map[string]string{"treasury": body.Treasury})
}

// SetFeeRate updates the configured fee rate for the active policy.
func (s *Server) SetFeeRate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body feeRateRequest
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, "set_fee_rate", start, err)
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.fail(w, "set_fee_rate", start, err)
		return
	}
	err = s.withLock(func() error {
		return s.engine.SetFeeRate(caller, body.Rate)
	})
	if err != nil {
		s.fail(w, "set_fee_rate", start, err)
		return
	}
	observability.Metrics().Observe("set_fee_rate", "ok", start)
	writeJSON(w, http.StatusOK, map[string]uint32{"rate": body.Rate})
}

// withLock runs one mutation and its commit as a single serialized
// unit. Nothing else may flush or mutate between the two.
func (s *Server) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	if s.committer == nil {
		return nil
	}
	return s.committer.Commit()
}

func (s *Server) fail(w http.ResponseWriter, op string, start time.Time, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("swap operation failed", "operation", op, "error", err)
	} else {
		s.log.Warn("swap operation rejected", "operation", op, "error", err)
	}
	observability.Metrics().Observe(op, "error", start)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("rpc: malformed request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, swap.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, swap.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, swap.ErrNotPending),
		errors.Is(err, swap.ErrDuplicateRequest),
		errors.Is(err, common.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, swap.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, swap.ErrInvalidAmount),
		errors.Is(err, swap.ErrInvalidAsset),
		errors.Is(err, swap.ErrSelfSwap),
		errors.Is(err, swap.ErrZeroAddress),
		errors.Is(err, swap.ErrZeroTreasury),
		errors.Is(err, swap.ErrFeeRateRange),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, swap.ErrNilTreasury), errors.Is(err, swap.ErrNotInitialized):
		return http.StatusServiceUnavailable
	}
	var custodyErr *swap.CustodyError
	if errors.As(err, &custodyErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

func parseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(addr) {
		return addr, errBadRequest
	}
	copy(addr[:], decoded)
	return addr, nil
}

func parseAsset(raw string) (swap.Asset, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.EqualFold(trimmed, "native"):
		return swap.NativeAsset(), nil
	case strings.HasPrefix(strings.ToLower(trimmed), "token:"):
		symbol := trimmed[len("token:"):]
		asset := swap.TokenAsset(symbol)
		if !asset.Valid() {
			return swap.Asset{}, errBadRequest
		}
		return asset, nil
	}
	return swap.Asset{}, errBadRequest
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errBadRequest
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errBadRequest
	}
	return amount, nil
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errBadRequest
	}
	return id, nil
}

func viewOf(req *swap.SwapRequest) swapView {
	return swapView{
		ID:              req.ID,
		Initiator:       encodeAddress(req.Initiator),
		Counterparty:    encodeAddress(req.Counterparty),
		OfferedAsset:    req.Offered.String(),
		OfferedAmount:   req.OfferedAmount.String(),
		RequestedAsset:  req.Requested.String(),
		RequestedAmount: req.RequestedAmount.String(),
		CreatedAt:       req.CreatedAt,
		Status:          req.Status.String(),
	}
}

func encodeAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
