package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/internal/consensus"
	"github.com/trinity-exchange/trinity-swapd/internal/route"
	"github.com/trinity-exchange/trinity-swapd/internal/storage"
	"github.com/trinity-exchange/trinity-swapd/internal/swap"
	"github.com/trinity-exchange/trinity-swapd/pkg/helpers"
)

// ========================================
// Wire representations
// ========================================

// OrderInfo is the external representation of an order. The secret is
// omitted until the order has passed the lock step.
type OrderInfo struct {
	ID             string        `json:"id"`
	UserAddress    string        `json:"user_address"`
	Recipient      string        `json:"recipient"`
	FromToken      string        `json:"from_token"`
	ToToken        string        `json:"to_token"`
	FromAmount     string        `json:"from_amount"`
	ExpectedAmount string        `json:"expected_amount"`
	MinAmount      string        `json:"min_amount"`
	FromNetwork    chain.Network `json:"from_network"`
	ToNetwork      chain.Network `json:"to_network"`
	Status         string        `json:"status"`
	SecretHash     string        `json:"secret_hash"`
	Secret         string        `json:"secret,omitempty"`
	LockTxHash     string        `json:"lock_tx_hash,omitempty"`
	ExecuteTxHash  string        `json:"execute_tx_hash,omitempty"`
	RefundTxHash   string        `json:"refund_tx_hash,omitempty"`
	FailureReason  string        `json:"failure_reason,omitempty"`

	ConsensusRequired int                      `json:"consensus_required"`
	ValidProofCount   int                      `json:"valid_proof_count"`
	ProofStatus       map[chain.Network]string `json:"proof_status,omitempty"`

	Timelock  int64     `json:"timelock"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func orderToInfo(o *storage.Order) *OrderInfo {
	info := &OrderInfo{
		ID:                o.ID,
		UserAddress:       o.UserAddress,
		Recipient:         o.Recipient,
		FromToken:         o.FromToken,
		ToToken:           o.ToToken,
		FromAmount:        o.FromAmount,
		ExpectedAmount:    o.ExpectedAmount,
		MinAmount:         o.MinAmount,
		FromNetwork:       o.FromNetwork,
		ToNetwork:         o.ToNetwork,
		Status:            string(o.Status),
		SecretHash:        o.SecretHash,
		LockTxHash:        o.LockTxHash,
		ExecuteTxHash:     o.ExecuteTxHash,
		RefundTxHash:      o.RefundTxHash,
		FailureReason:     o.FailureReason,
		ConsensusRequired: o.ConsensusRequired,
		ValidProofCount:   o.ValidProofCount,
		ProofStatus:       o.ProofStatus,
		Timelock:          o.Timelock,
		CreatedAt:         o.CreatedAt,
		ExpiresAt:         o.ExpiresAt,
	}
	// The secret only exists once locked; never expose it before then.
	if o.Status != storage.StatusPending {
		info.Secret = o.Secret
	}
	return info
}

// ========================================
// Route discovery and pricing
// ========================================

// RouteRequest is the body of POST /swap/routes and the query shape of
// GET /swap/price.
type RouteRequest struct {
	FromToken   string        `json:"from_token"`
	ToToken     string        `json:"to_token"`
	Amount      string        `json:"amount"`
	FromNetwork chain.Network `json:"from_network"`
	ToNetwork   chain.Network `json:"to_network"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", swap.ErrInvalidAmount, err))
		return
	}

	routes, err := s.findRoutes(&req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"routes": routes})
}

// PriceResult is the response of GET /swap/price.
type PriceResult struct {
	Price       string   `json:"price"`
	PriceImpact float64  `json:"price_impact"`
	Route       []string `json:"route"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &RouteRequest{
		FromToken:   q.Get("from_token"),
		ToToken:     q.Get("to_token"),
		Amount:      q.Get("amount"),
		FromNetwork: chain.Network(q.Get("from_network")),
		ToNetwork:   chain.Network(q.Get("to_network")),
	}

	routes, err := s.findRoutes(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	best := routes[0]
	s.writeJSON(w, http.StatusOK, &PriceResult{
		Price:       best.EstimatedOutput,
		PriceImpact: best.PriceImpact,
		Route:       best.Path,
	})
}

func (s *Server) findRoutes(req *RouteRequest) ([]*route.Route, error) {
	if !chain.Valid(req.FromNetwork) || !chain.Valid(req.ToNetwork) {
		return nil, chain.ErrUnknownNetwork
	}
	amount, err := helpers.ParseDecimal(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", swap.ErrInvalidAmount, err)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", swap.ErrInvalidAmount)
	}
	if _, ok := chain.GetToken(req.FromNetwork, req.FromToken); !ok {
		return nil, fmt.Errorf("%w: %s on %s", swap.ErrUnsupportedToken, req.FromToken, req.FromNetwork)
	}
	if _, ok := chain.GetToken(req.ToNetwork, req.ToToken); !ok {
		return nil, fmt.Errorf("%w: %s on %s", swap.ErrUnsupportedToken, req.ToToken, req.ToNetwork)
	}

	routes, err := s.finder.FindOptimalRoute(req.FromToken, req.ToToken, req.Amount, req.FromNetwork, req.ToNetwork)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", swap.ErrInvalidAmount, err)
	}
	if len(routes) == 0 {
		return nil, swap.ErrNoRouteFound
	}
	return routes, nil
}

// ========================================
// Order lifecycle
// ========================================

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req swap.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", swap.ErrInvalidAmount, err))
		return
	}

	order, err := s.service.CreateOrder(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, orderToInfo(order))
}

// LockParams is the body of POST /swap/{id}/lock.
type LockParams struct {
	Secret string `json:"secret"`
}

// TxResult carries a transaction reference.
type TxResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	TxHash  string `json:"tx_hash"`
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var p LockParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", swap.ErrSecretMismatch, err))
		return
	}

	order, err := s.service.Lock(r.Context(), r.PathValue("id"), p.Secret)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &TxResult{OrderID: order.ID, Status: string(order.Status), TxHash: order.LockTxHash})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	order, err := s.service.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &TxResult{OrderID: order.ID, Status: string(order.Status), TxHash: order.ExecuteTxHash})
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	order, err := s.service.Refund(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &TxResult{OrderID: order.ID, Status: string(order.Status), TxHash: order.RefundTxHash})
}

// ProofParams is the body of POST /swap/{id}/proof, submitted by validator
// processes.
type ProofParams struct {
	Network chain.Network `json:"network"`
	Proof   string        `json:"proof"` // 0x-prefixed hex signature
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	var p ProofParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", consensus.ErrMalformedProof, err))
		return
	}

	proof, err := helpers.HexToBytes(p.Proof)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: proof must be hex", consensus.ErrMalformedProof))
		return
	}

	status, err := s.service.SubmitProof(r.Context(), r.PathValue("id"), p.Network, proof)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleConsensus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.ConsensusStatus(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.service.ListUserOrders(r.PathValue("userAddress"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	infos := make([]*OrderInfo, len(orders))
	for i, o := range orders {
		infos[i] = orderToInfo(o)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"orders": infos})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.service.GetOrder(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orderToInfo(order))
}
