// Package consensus tracks per-order validator proofs for the 2-of-3
// consensus requirement. A swap may only finalize once at least two of the
// three network validators have attested to it.
package consensus

import (
	"errors"
	"sync"
	"time"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
	"github.com/trinity-exchange/trinity-swapd/pkg/logging"
)

// Threshold is fixed at 2 of 3: one byzantine or unavailable network is
// tolerated, a single network's proof is never sufficient.
const (
	Required      = 2
	TotalNetworks = 3
)

var ErrOrderNotTracked = errors.New("order not tracked for consensus")

// ProofStatus is the per-network proof state.
type ProofStatus string

const (
	ProofPending ProofStatus = "pending"
	ProofSigned  ProofStatus = "signed"
	ProofFailed  ProofStatus = "failed"
)

// Proof records one network's submission.
type Proof struct {
	Network     chain.Network `json:"network"`
	Status      ProofStatus   `json:"status"`
	SubmittedAt time.Time     `json:"submitted_at,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// Status is the consensus view of one order.
type Status struct {
	OrderID         string                        `json:"order_id"`
	Required        int                           `json:"required"`
	ValidProofCount int                           `json:"valid_proof_count"`
	Achieved        bool                          `json:"achieved"`
	Proofs          map[chain.Network]ProofStatus `json:"proofs"`
}

type entry struct {
	secretHash string
	proofs     map[chain.Network]*Proof
	achieved   bool
}

// Tracker records validator proofs and reports when the threshold is met.
type Tracker struct {
	verifier Verifier
	log      *logging.Logger

	mu     sync.Mutex
	orders map[string]*entry
}

// NewTracker creates a tracker using the given proof verifier.
func NewTracker(verifier Verifier) *Tracker {
	return &Tracker{
		verifier: verifier,
		log:      logging.GetDefault().Component("consensus"),
		orders:   make(map[string]*entry),
	}
}

// Track starts collecting proofs for an order. Called when the order locks.
func (t *Tracker) Track(orderID, secretHash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.orders[orderID]; ok {
		return
	}
	proofs := make(map[chain.Network]*Proof, TotalNetworks)
	for _, n := range chain.Networks {
		proofs[n] = &Proof{Network: n, Status: ProofPending}
	}
	t.orders[orderID] = &entry{secretHash: secretHash, proofs: proofs}
}

// Restore re-registers an order from a persisted proof snapshot after a
// restart. Live tracker state wins; networks already signed or failed keep
// their recorded outcome so a submission stays first-wins across restarts.
func (t *Tracker) Restore(orderID, secretHash string, snapshot map[chain.Network]ProofStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.orders[orderID]; ok {
		return
	}
	proofs := make(map[chain.Network]*Proof, TotalNetworks)
	for _, n := range chain.Networks {
		status := ProofPending
		if s, ok := snapshot[n]; ok && (s == ProofSigned || s == ProofFailed) {
			status = s
		}
		proofs[n] = &Proof{Network: n, Status: status}
	}
	e := &entry{secretHash: secretHash, proofs: proofs}
	e.achieved = countSigned(e) >= Required
	t.orders[orderID] = e
	t.log.Info("Consensus state restored", "order", orderID, "valid", countSigned(e))
}

// SubmitProof validates and records one network's proof. A repeat submission
// from the same network is an idempotent no-op and never adds a vote.
func (t *Tracker) SubmitProof(orderID string, network chain.Network, proof []byte) (*Status, error) {
	if !chain.Valid(network) {
		return nil, chain.ErrUnknownNetwork
	}

	t.mu.Lock()
	e, ok := t.orders[orderID]
	if !ok {
		t.mu.Unlock()
		return nil, ErrOrderNotTracked
	}

	p := e.proofs[network]
	if p.Status == ProofPending {
		p.SubmittedAt = time.Now()
		if err := t.verifier.Verify(orderID, network, e.secretHash, proof); err != nil {
			p.Status = ProofFailed
			p.Reason = err.Error()
			t.log.Warn("Proof rejected", "order", orderID, "network", network, "error", err)
		} else {
			p.Status = ProofSigned
			t.log.Info("Proof recorded", "order", orderID, "network", network, "valid", countSigned(e))
		}
	}

	status := t.statusLocked(orderID, e)
	if status.Achieved && !e.achieved {
		e.achieved = true
		t.log.Info("Consensus achieved", "order", orderID, "valid", status.ValidProofCount)
	}
	t.mu.Unlock()
	return status, nil
}

// Status returns the consensus view of an order.
func (t *Tracker) Status(orderID string) (*Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.orders[orderID]
	if !ok {
		return nil, ErrOrderNotTracked
	}
	return t.statusLocked(orderID, e), nil
}

// Forget drops an order's consensus state. Called by the retention sweep.
func (t *Tracker) Forget(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.orders, orderID)
}

func (t *Tracker) statusLocked(orderID string, e *entry) *Status {
	signed := countSigned(e)
	s := &Status{
		OrderID:         orderID,
		Required:        Required,
		ValidProofCount: signed,
		Achieved:        signed >= Required,
		Proofs:          make(map[chain.Network]ProofStatus, TotalNetworks),
	}
	for n, p := range e.proofs {
		s.Proofs[n] = p.Status
	}
	return s
}

func countSigned(e *entry) int {
	n := 0
	for _, p := range e.proofs {
		if p.Status == ProofSigned {
			n++
		}
	}
	return n
}
