// Package swap implements the HTLC order lifecycle: admission, creation,
// lock, consensus, execution, and refund. All order mutation goes through
// this package; the store is never written to directly by anything else.
package swap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/internal/config"
	"github.com/trinity-exchange/trinity-swapd/internal/consensus"
	"github.com/trinity-exchange/trinity-swapd/internal/metrics"
	"github.com/trinity-exchange/trinity-swapd/internal/ratelimit"
	"github.com/trinity-exchange/trinity-swapd/internal/route"
	"github.com/trinity-exchange/trinity-swapd/internal/storage"
	"github.com/trinity-exchange/trinity-swapd/pkg/helpers"
	"github.com/trinity-exchange/trinity-swapd/pkg/logging"
)

// lockStripes is the size of the per-order mutex table.
const lockStripes = 64

// ServiceConfig wires the lifecycle service's collaborators.
type ServiceConfig struct {
	Store    storage.OrderStore
	Limiter  ratelimit.Limiter
	Finder   *route.Finder
	Tracker  *consensus.Tracker
	Adapters *chain.Registry
	Metrics  *metrics.Recorder
	Limits   config.LimitsConfig

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Service drives atomic swap orders through their lifecycle.
type Service struct {
	store    storage.OrderStore
	limiter  ratelimit.Limiter
	finder   *route.Finder
	tracker  *consensus.Tracker
	adapters *chain.Registry
	rec      *metrics.Recorder
	limits   config.LimitsConfig
	log      *logging.Logger
	now      func() time.Time

	// Striped per-order locks: transitions for one order serialize, orders
	// hashing to different stripes proceed in parallel.
	locks [lockStripes]sync.Mutex
}

// NewService creates the lifecycle service.
func NewService(cfg *ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    cfg.Store,
		limiter:  cfg.Limiter,
		finder:   cfg.Finder,
		tracker:  cfg.Tracker,
		adapters: cfg.Adapters,
		rec:      cfg.Metrics,
		limits:   cfg.Limits,
		log:      logging.GetDefault().Component("swap"),
		now:      now,
	}
}

func (s *Service) orderLock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}

// CreateOrder admits, prices, and stores a new pending order.
func (s *Service) CreateOrder(ctx context.Context, req *CreateRequest) (*storage.Order, error) {
	start := s.now()
	defer func() {
		s.rec.RecordTiming(metrics.OpCreate, time.Since(start))
	}()

	allowed, err := s.limiter.Allow(ctx, req.UserAddress, s.limits.RateLimit, s.limits.RateWindow)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		return nil, ErrRateLimitExceeded
	}

	usdValue, err := validateRequest(req, s.limits)
	if err != nil {
		return nil, err
	}

	routes, err := s.finder.FindOptimalRoute(req.FromToken, req.ToToken, req.FromAmount, req.FromNetwork, req.ToNetwork)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if len(routes) == 0 {
		return nil, ErrNoRouteFound
	}
	best := routes[0]

	if cmp, err := compareDecimals(req.MinAmount, best.EstimatedOutput); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	} else if cmp > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrMinAboveExpected, req.MinAmount, best.EstimatedOutput)
	}

	recipient := req.Recipient
	if recipient == "" {
		recipient = req.UserAddress
	}

	now := s.now()
	order := &storage.Order{
		ID:                uuid.New().String(),
		UserAddress:       req.UserAddress,
		Recipient:         recipient,
		FromToken:         req.FromToken,
		ToToken:           req.ToToken,
		FromAmount:        req.FromAmount,
		ExpectedAmount:    best.EstimatedOutput,
		MinAmount:         req.MinAmount,
		FromNetwork:       req.FromNetwork,
		ToNetwork:         req.ToNetwork,
		SecretHash:        req.SecretHash,
		Status:            storage.StatusPending,
		ConsensusRequired: consensus.Required,
		Timelock:          now.Add(s.limits.Timelock).Unix(),
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(s.limits.Timelock),
	}

	if err := s.store.Create(order); err != nil {
		return nil, err
	}

	s.rec.RecordCreation(order, usdValue)
	s.log.Info("Order created",
		"id", order.ID,
		"user", order.UserAddress,
		"pair", order.FromToken+"/"+order.ToToken,
		"route", fmt.Sprintf("%s -> %s", order.FromNetwork, order.ToNetwork),
		"expected", order.ExpectedAmount,
	)
	return order, nil
}

// Lock verifies the revealed secret against the order's hash commitment and
// submits the lock transaction. On success the order moves to locked and
// begins collecting consensus proofs.
func (s *Service) Lock(ctx context.Context, orderID, secret string) (*storage.Order, error) {
	start := s.now()
	defer func() { s.rec.RecordTiming(metrics.OpLock, time.Since(start)) }()

	mu := s.orderLock(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.store.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != storage.StatusPending {
		return nil, fmt.Errorf("%w: cannot lock order in state %s", ErrInvalidState, order.Status)
	}
	if s.now().Unix() > order.Timelock {
		return nil, ErrTimelockExpired
	}
	if err := verifySecret(secret, order.SecretHash); err != nil {
		return nil, err
	}

	adapter, ok := s.adapters.Get(order.FromNetwork)
	if !ok {
		return nil, fmt.Errorf("%w: %s", chain.ErrUnknownNetwork, order.FromNetwork)
	}
	lockTx, err := adapter.Lock(ctx, &chain.LockRequest{
		OrderID:    order.ID,
		Sender:     order.UserAddress,
		Token:      order.FromToken,
		Amount:     order.FromAmount,
		SecretHash: order.SecretHash,
		Timelock:   order.Timelock,
	})
	if err != nil {
		// The transition is refused and the order stays pending; the
		// caller may retry once the chain recovers.
		return nil, fmt.Errorf("lock transaction: %w", err)
	}

	updated, err := s.store.Update(orderID, func(o *storage.Order) error {
		o.Secret = secret
		o.LockTxHash = lockTx
		o.Status = storage.StatusLocked
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.tracker.Track(order.ID, order.SecretHash)
	s.rec.RecordTransition(order.ID, storage.StatusLocked)
	s.log.Info("Order locked", "id", order.ID, "tx", lockTx)
	return updated, nil
}

// SubmitProof records a validator proof for a locked order. The first proof
// moves the order to consensus_pending; the second valid proof achieves
// consensus.
func (s *Service) SubmitProof(ctx context.Context, orderID string, network chain.Network, proof []byte) (*consensus.Status, error) {
	mu := s.orderLock(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.store.Get(orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case storage.StatusLocked, storage.StatusConsensusPending, storage.StatusConsensusAchieved:
	default:
		return nil, fmt.Errorf("%w: proofs require a locked order, got %s", ErrInvalidState, order.Status)
	}

	status, err := s.tracker.SubmitProof(orderID, network, proof)
	if errors.Is(err, consensus.ErrOrderNotTracked) {
		// The tracker is memory-only. A locked order that survived a
		// restart in the store is re-registered from its persisted
		// proof snapshot before the submission is retried.
		s.tracker.Restore(order.ID, order.SecretHash, persistedProofs(order))
		status, err = s.tracker.SubmitProof(orderID, network, proof)
	}
	if err != nil {
		return nil, err
	}

	next := order.Status
	if next == storage.StatusLocked {
		next = storage.StatusConsensusPending
	}
	if status.Achieved && next == storage.StatusConsensusPending {
		next = storage.StatusConsensusAchieved
	}

	if _, err := s.store.Update(orderID, func(o *storage.Order) error {
		o.Status = next
		o.ValidProofCount = status.ValidProofCount
		o.ProofStatus = proofSnapshot(status)
		o.UpdatedAt = s.now()
		return nil
	}); err != nil {
		return nil, err
	}
	if next != order.Status {
		s.rec.RecordTransition(orderID, next)
		s.log.Info("Order consensus state", "id", orderID, "status", next, "valid", status.ValidProofCount)
	}
	return status, nil
}

// Execute claims the destination funds after consensus, strictly before the
// timelock. The current best-route estimate is re-checked against the
// order's minAmount slippage floor at claim time.
func (s *Service) Execute(ctx context.Context, orderID string) (*storage.Order, error) {
	start := s.now()
	defer func() { s.rec.RecordTiming(metrics.OpExecute, time.Since(start)) }()

	mu := s.orderLock(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.store.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order already %s", ErrInvalidState, order.Status)
	}
	if order.Status != storage.StatusConsensusAchieved {
		if order.Status == storage.StatusLocked || order.Status == storage.StatusConsensusPending {
			return nil, ErrConsensusRequired
		}
		return nil, fmt.Errorf("%w: cannot execute order in state %s", ErrInvalidState, order.Status)
	}

	// A claim at or past expiry fails toward refund eligibility.
	if s.now().Unix() >= order.Timelock {
		return nil, ErrTimelockExpired
	}

	if err := s.checkSlippage(order); err != nil {
		return nil, err
	}

	adapter, ok := s.adapters.Get(order.ToNetwork)
	if !ok {
		return nil, fmt.Errorf("%w: %s", chain.ErrUnknownNetwork, order.ToNetwork)
	}
	execTx, execErr := adapter.Claim(ctx, &chain.ClaimRequest{
		OrderID:   order.ID,
		Recipient: order.Recipient,
		Token:     order.ToToken,
		Amount:    order.ExpectedAmount,
		Secret:    order.Secret,
	})
	if execErr != nil {
		if _, err := s.store.Update(orderID, func(o *storage.Order) error {
			o.Status = storage.StatusFailed
			o.FailureReason = execErr.Error()
			o.CompletedAt = s.now()
			o.UpdatedAt = s.now()
			return nil
		}); err != nil {
			return nil, err
		}
		s.tracker.Forget(orderID)
		s.rec.RecordTransition(orderID, storage.StatusFailed)
		s.log.Error("Order execution failed", "id", orderID, "error", execErr)
		return nil, fmt.Errorf("execute transaction: %w", execErr)
	}

	updated, err := s.store.Update(orderID, func(o *storage.Order) error {
		o.Status = storage.StatusExecuted
		o.ExecuteTxHash = execTx
		o.CompletedAt = s.now()
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.tracker.Forget(orderID)
	s.rec.RecordTransition(orderID, storage.StatusExecuted)
	s.log.Info("Order executed", "id", orderID, "tx", execTx)
	return updated, nil
}

// Refund finalizes an order once wall-clock time has passed its timelock.
// Pending orders that were never locked refund without a chain call.
func (s *Service) Refund(ctx context.Context, orderID string) (*storage.Order, error) {
	start := s.now()
	defer func() { s.rec.RecordTiming(metrics.OpRefund, time.Since(start)) }()

	mu := s.orderLock(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.store.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order already %s", ErrInvalidState, order.Status)
	}
	if s.now().Unix() <= order.Timelock {
		return nil, ErrTimelockNotExpired
	}

	var refundTx string
	if order.LockTxHash != "" {
		adapter, ok := s.adapters.Get(order.FromNetwork)
		if !ok {
			return nil, fmt.Errorf("%w: %s", chain.ErrUnknownNetwork, order.FromNetwork)
		}
		refundTx, err = adapter.Refund(ctx, &chain.RefundRequest{
			OrderID: order.ID,
			Sender:  order.UserAddress,
		})
		if err != nil {
			// Leave the order as-is: refund stays available for retry.
			return nil, fmt.Errorf("refund transaction: %w", err)
		}
	}

	updated, err := s.store.Update(orderID, func(o *storage.Order) error {
		o.Status = storage.StatusRefunded
		o.RefundTxHash = refundTx
		o.CompletedAt = s.now()
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.tracker.Forget(orderID)
	s.rec.RecordTransition(orderID, storage.StatusRefunded)
	s.log.Info("Order refunded", "id", orderID, "tx", refundTx)
	return updated, nil
}

// GetOrder returns a copy of the order.
func (s *Service) GetOrder(orderID string) (*storage.Order, error) {
	return s.store.Get(orderID)
}

// ListUserOrders returns the user's orders, newest first.
func (s *Service) ListUserOrders(userAddress string) ([]*storage.Order, error) {
	return s.store.ListByUser(userAddress)
}

// ConsensusStatus returns the tracker's view of an order still collecting
// proofs, falling back to the order's persisted snapshot once terminal.
func (s *Service) ConsensusStatus(orderID string) (*consensus.Status, error) {
	if status, err := s.tracker.Status(orderID); err == nil {
		return status, nil
	}

	order, err := s.store.Get(orderID)
	if err != nil {
		return nil, err
	}
	status := &consensus.Status{
		OrderID:         order.ID,
		Required:        consensus.Required,
		ValidProofCount: order.ValidProofCount,
		Achieved:        order.ValidProofCount >= consensus.Required,
		Proofs:          make(map[chain.Network]consensus.ProofStatus, len(order.ProofStatus)),
	}
	for n, p := range order.ProofStatus {
		status.Proofs[n] = consensus.ProofStatus(p)
	}
	return status, nil
}

// Ping probes the order store and rate limiter backends for the health
// endpoint. A not-found probe order is the healthy store answer.
func (s *Service) Ping(ctx context.Context) (storeErr, limiterErr error) {
	if _, err := s.store.Get("healthz-probe"); err != nil && !errors.Is(err, storage.ErrOrderNotFound) {
		storeErr = err
	}
	if _, err := s.limiter.Allow(ctx, "healthz-probe", 1<<30, time.Minute); err != nil {
		limiterErr = err
	}
	return storeErr, limiterErr
}

// checkSlippage re-validates the order's minAmount floor against the
// current best-route estimate.
func (s *Service) checkSlippage(order *storage.Order) error {
	routes, err := s.finder.FindOptimalRoute(order.FromToken, order.ToToken, order.FromAmount, order.FromNetwork, order.ToNetwork)
	if err != nil || len(routes) == 0 {
		// No current estimate: fall back to the creation-time figure,
		// which already satisfied the floor.
		return nil
	}
	cmp, err := compareDecimals(routes[0].EstimatedOutput, order.MinAmount)
	if err != nil {
		return nil
	}
	if cmp < 0 {
		return fmt.Errorf("%w: estimate %s < floor %s", ErrSlippageExceeded, routes[0].EstimatedOutput, order.MinAmount)
	}
	return nil
}

// verifySecret checks that keccak256 of the revealed secret's bytes equals
// the order's hash commitment.
func verifySecret(secret, secretHash string) error {
	secretBytes, err := helpers.HexToBytes(secret)
	if err != nil || len(secretBytes) == 0 {
		return fmt.Errorf("%w: secret must be 0x-prefixed hex", ErrSecretMismatch)
	}
	want, err := helpers.HexToBytes(secretHash)
	if err != nil {
		return fmt.Errorf("%w: malformed hash commitment", ErrSecretMismatch)
	}
	if !bytes.Equal(crypto.Keccak256(secretBytes), want) {
		return ErrSecretMismatch
	}
	return nil
}

func proofSnapshot(status *consensus.Status) map[chain.Network]string {
	m := make(map[chain.Network]string, len(status.Proofs))
	for n, p := range status.Proofs {
		m[n] = string(p)
	}
	return m
}

func persistedProofs(o *storage.Order) map[chain.Network]consensus.ProofStatus {
	m := make(map[chain.Network]consensus.ProofStatus, len(o.ProofStatus))
	for n, p := range o.ProofStatus {
		m[n] = consensus.ProofStatus(p)
	}
	return m
}

func compareDecimals(a, b string) (int, error) {
	ra, err := helpers.ParseDecimal(a)
	if err != nil {
		return 0, err
	}
	rb, err := helpers.ParseDecimal(b)
	if err != nil {
		return 0, err
	}
	return ra.Cmp(rb), nil
}
