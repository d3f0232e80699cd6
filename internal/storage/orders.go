// Package storage provides the order store abstraction: a keyed collection
// of atomic swap orders behind one interface, with an in-memory
// implementation and a durable SQLite implementation.
package storage

import (
	"errors"
	"time"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
)

// Order persistence errors.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order already exists")
)

// Status is the lifecycle state of an atomic swap order.
type Status string

const (
	StatusPending           Status = "pending"
	StatusLocked            Status = "locked"
	StatusConsensusPending  Status = "consensus_pending"
	StatusConsensusAchieved Status = "consensus_achieved"
	StatusExecuted          Status = "executed"
	StatusRefunded          Status = "refunded"
	StatusFailed            Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusExecuted, StatusRefunded, StatusFailed:
		return true
	}
	return false
}

// Order is the authoritative record of one atomic swap. Orders are mutated
// only through the lifecycle service; external callers receive copies.
type Order struct {
	// Identity
	ID string `json:"id"`

	// Parties
	UserAddress string `json:"user_address"`
	Recipient   string `json:"recipient"`

	// Economics; amounts are decimal strings, never floats.
	FromToken      string `json:"from_token"`
	ToToken        string `json:"to_token"`
	FromAmount     string `json:"from_amount"`
	ExpectedAmount string `json:"expected_amount"`
	MinAmount      string `json:"min_amount"`

	// Networks
	FromNetwork chain.Network `json:"from_network"`
	ToNetwork   chain.Network `json:"to_network"`

	// Cryptographic commitment. Secret stays empty until the lock step and
	// must never leave the process before then.
	SecretHash string `json:"secret_hash"`
	Secret     string `json:"-"`

	Status Status `json:"status"`

	// Transaction references, populated as each action occurs.
	LockTxHash    string `json:"lock_tx_hash,omitempty"`
	ExecuteTxHash string `json:"execute_tx_hash,omitempty"`
	RefundTxHash  string `json:"refund_tx_hash,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	// Consensus snapshot, mirrored from the tracker on each transition.
	ConsensusRequired int                      `json:"consensus_required"`
	ValidProofCount   int                      `json:"valid_proof_count"`
	ProofStatus       map[chain.Network]string `json:"proof_status,omitempty"`

	// Timing. Timelock is the absolute HTLC expiry in unix seconds, fixed
	// at creation.
	Timelock    int64     `json:"timelock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	if o.ProofStatus != nil {
		c.ProofStatus = make(map[chain.Network]string, len(o.ProofStatus))
		for k, v := range o.ProofStatus {
			c.ProofStatus[k] = v
		}
	}
	return &c
}

// OrderStore is the single source of truth for swap lifecycle state.
type OrderStore interface {
	// Create inserts a new order. Returns ErrOrderExists on an ID collision.
	Create(o *Order) error
	// Get returns a copy of the order or ErrOrderNotFound.
	Get(id string) (*Order, error)
	// Update applies fn to the stored order under the store's lock and
	// persists the result. If fn errors, nothing is written. The returned
	// order is a copy of the post-update state. Timestamps are the
	// caller's concern; the store never touches them.
	Update(id string, fn func(*Order) error) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(userAddress string) ([]*Order, error)
	// PurgeCompletedBefore removes terminal orders completed before the
	// cutoff, returning how many were removed.
	PurgeCompletedBefore(cutoff time.Time) (int, error)
	Close() error
}
