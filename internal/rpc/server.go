// Package rpc provides the HTTP REST API for the trinity swap daemon,
// consumed by the UI layer and by validator/chain-adapter processes.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/internal/consensus"
	"github.com/trinity-exchange/trinity-swapd/internal/metrics"
	"github.com/trinity-exchange/trinity-swapd/internal/route"
	"github.com/trinity-exchange/trinity-swapd/internal/storage"
	"github.com/trinity-exchange/trinity-swapd/internal/swap"
	"github.com/trinity-exchange/trinity-swapd/pkg/logging"
)

// Server is the REST API server.
type Server struct {
	service  *swap.Service
	finder   *route.Finder
	rec      *metrics.Recorder
	adapters *chain.Registry
	log      *logging.Logger

	server   *http.Server
	listener net.Listener
}

// NewServer creates the API server.
func NewServer(service *swap.Service, finder *route.Finder, rec *metrics.Recorder, adapters *chain.Registry) *Server {
	return &Server{
		service:  service,
		finder:   finder,
		rec:      rec,
		adapters: adapters,
		log:      logging.GetDefault().Component("rpc"),
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /swap/routes", s.handleRoutes)
	mux.HandleFunc("GET /swap/price", s.handlePrice)
	mux.HandleFunc("POST /swap/create", s.handleCreate)
	mux.HandleFunc("POST /swap/{id}/lock", s.handleLock)
	mux.HandleFunc("POST /swap/{id}/execute", s.handleExecute)
	mux.HandleFunc("POST /swap/{id}/refund", s.handleRefund)
	mux.HandleFunc("POST /swap/{id}/proof", s.handleProof)
	mux.HandleFunc("GET /swap/{id}/consensus", s.handleConsensus)
	mux.HandleFunc("GET /swap/orders/{userAddress}", s.handleUserOrders)
	mux.HandleFunc("GET /swap/order/{id}", s.handleOrder)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics/report", s.handleMetricsReport)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	return corsMiddleware(mux)
}

// Start starts the API server.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("API server error", "error", err)
		}
	}()

	s.log.Info("API server started", "addr", addr)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorCode maps service errors to HTTP status and machine reason codes.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, swap.ErrInvalidSecretHash):
		return http.StatusBadRequest, "INVALID_SECRET_HASH"
	case errors.Is(err, swap.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT_FORMAT"
	case errors.Is(err, swap.ErrAmountTooSmall):
		return http.StatusBadRequest, "AMOUNT_TOO_SMALL"
	case errors.Is(err, swap.ErrAmountTooLarge):
		return http.StatusBadRequest, "AMOUNT_TOO_LARGE"
	case errors.Is(err, swap.ErrUnsupportedToken):
		return http.StatusBadRequest, "UNSUPPORTED_TOKEN"
	case errors.Is(err, swap.ErrInvalidAddress):
		return http.StatusBadRequest, "INVALID_ADDRESS"
	case errors.Is(err, swap.ErrMinAboveExpected):
		return http.StatusBadRequest, "MIN_ABOVE_EXPECTED"
	case errors.Is(err, swap.ErrSecretMismatch):
		return http.StatusBadRequest, "SECRET_MISMATCH"
	case errors.Is(err, chain.ErrUnknownNetwork):
		return http.StatusBadRequest, "UNKNOWN_NETWORK"
	case errors.Is(err, consensus.ErrMalformedProof), errors.Is(err, consensus.ErrBadSignature):
		return http.StatusBadRequest, "INVALID_PROOF"
	case errors.Is(err, swap.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"
	case errors.Is(err, swap.ErrNoRouteFound):
		return http.StatusUnprocessableEntity, "NO_ROUTE_FOUND"
	case errors.Is(err, storage.ErrOrderNotFound), errors.Is(err, consensus.ErrOrderNotTracked):
		return http.StatusNotFound, "ORDER_NOT_FOUND"
	case errors.Is(err, swap.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, swap.ErrConsensusRequired):
		return http.StatusConflict, "CONSENSUS_REQUIRED"
	case errors.Is(err, swap.ErrTimelockExpired):
		return http.StatusConflict, "TIMELOCK_EXPIRED"
	case errors.Is(err, swap.ErrTimelockNotExpired):
		return http.StatusConflict, "TIMELOCK_NOT_EXPIRED"
	case errors.Is(err, swap.ErrSlippageExceeded):
		return http.StatusConflict, "SLIPPAGE_EXCEEDED"
	case errors.Is(err, chain.ErrExecutionFailed):
		return http.StatusBadGateway, "CHAIN_EXECUTION_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := errorCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: err.Error(), Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware adds CORS headers to all responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
