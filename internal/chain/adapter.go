package chain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// ErrExecutionFailed indicates the chain rejected or reverted the transaction.
var ErrExecutionFailed = errors.New("chain execution failed")

// LockRequest describes an HTLC lock transaction to submit.
type LockRequest struct {
	OrderID    string
	Sender     string
	Token      string
	Amount     string
	SecretHash string
	Timelock   int64
}

// ClaimRequest describes an HTLC claim transaction using the revealed secret.
type ClaimRequest struct {
	OrderID   string
	Recipient string
	Token     string
	Amount    string
	Secret    string
}

// RefundRequest describes an HTLC refund transaction after timelock expiry.
type RefundRequest struct {
	OrderID string
	Sender  string
}

// Adapter submits HTLC transactions on one network. Implementations wrap the
// real chain clients; the state machine never talks to a chain directly.
type Adapter interface {
	Network() Network
	Lock(ctx context.Context, req *LockRequest) (string, error)
	Claim(ctx context.Context, req *ClaimRequest) (string, error)
	Refund(ctx context.Context, req *RefundRequest) (string, error)
	// Healthy reports whether the adapter can currently reach its chain.
	Healthy(ctx context.Context) bool
}

// Registry holds the adapter for each configured network.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Network]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Network]Adapter)}
}

// NewSimRegistry creates a registry with simulated adapters for all networks.
func NewSimRegistry() *Registry {
	r := NewRegistry()
	for _, n := range Networks {
		r.Set(NewSimAdapter(n))
	}
	return r
}

// Set registers or replaces the adapter for its network.
func (r *Registry) Set(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Network()] = a
}

// Get returns the adapter for a network.
func (r *Registry) Get(n Network) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[n]
	return a, ok
}

// All returns all registered adapters.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// SimAdapter is an in-process adapter that fabricates chain-shaped
// transaction references. It stands in for real chain clients in tests and
// in simulation deployments.
type SimAdapter struct {
	network Network

	mu       sync.Mutex
	failNext map[string]error
}

// NewSimAdapter creates a simulated adapter for a network.
func NewSimAdapter(n Network) *SimAdapter {
	return &SimAdapter{
		network:  n,
		failNext: make(map[string]error),
	}
}

// Network returns the network this adapter serves.
func (a *SimAdapter) Network() Network {
	return a.network
}

// FailNext makes the next call of the named operation ("lock", "claim",
// "refund") return the given error.
func (a *SimAdapter) FailNext(op string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext[op] = err
}

func (a *SimAdapter) takeFailure(op string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.failNext[op]
	delete(a.failNext, op)
	return err
}

// Lock simulates an HTLC lock transaction.
func (a *SimAdapter) Lock(ctx context.Context, req *LockRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := a.takeFailure("lock"); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	return a.txHash(), nil
}

// Claim simulates an HTLC claim transaction.
func (a *SimAdapter) Claim(ctx context.Context, req *ClaimRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := a.takeFailure("claim"); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	return a.txHash(), nil
}

// Refund simulates an HTLC refund transaction.
func (a *SimAdapter) Refund(ctx context.Context, req *RefundRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := a.takeFailure("refund"); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	return a.txHash(), nil
}

// Healthy always reports true for the simulator.
func (a *SimAdapter) Healthy(ctx context.Context) bool {
	return true
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// txHash fabricates a transaction reference in the network's native shape.
func (a *SimAdapter) txHash() string {
	buf := make([]byte, 32)
	rand.Read(buf)

	switch a.network {
	case Ethereum:
		return "0x" + hex.EncodeToString(buf)
	default:
		// Solana and TON signatures render as base58 strings.
		out := make([]byte, 44)
		for i, b := range buf {
			out[i] = base58Alphabet[int(b)%len(base58Alphabet)]
		}
		for i := len(buf); i < len(out); i++ {
			out[i] = base58Alphabet[i%len(base58Alphabet)]
		}
		return string(out)
	}
}
