package consensus

import (
	"errors"
	"testing"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
)

// acceptAll is the simulation-mode verifier used by most tracker tests.
type acceptAll struct{}

func (acceptAll) Verify(orderID string, network chain.Network, secretHash string, proof []byte) error {
	return nil
}

// rejectNetworks fails verification for the listed networks.
type rejectNetworks map[chain.Network]bool

func (r rejectNetworks) Verify(orderID string, network chain.Network, secretHash string, proof []byte) error {
	if r[network] {
		return ErrBadSignature
	}
	return nil
}

var testProof = make([]byte, 64)

func TestTrackerThreshold(t *testing.T) {
	tr := NewTracker(acceptAll{})
	tr.Track("order-1", "0xhash")

	status, err := tr.SubmitProof("order-1", chain.Ethereum, testProof)
	if err != nil {
		t.Fatalf("SubmitProof error: %v", err)
	}
	if status.ValidProofCount != 1 {
		t.Errorf("ValidProofCount = %d, want 1", status.ValidProofCount)
	}
	if status.Achieved {
		t.Error("one proof must never achieve consensus")
	}

	status, err = tr.SubmitProof("order-1", chain.Solana, testProof)
	if err != nil {
		t.Fatalf("SubmitProof error: %v", err)
	}
	if status.ValidProofCount != 2 {
		t.Errorf("ValidProofCount = %d, want 2", status.ValidProofCount)
	}
	if !status.Achieved {
		t.Error("two valid proofs should achieve consensus")
	}
	if status.Proofs[chain.TON] != ProofPending {
		t.Errorf("ton proof = %s, want pending", status.Proofs[chain.TON])
	}
}

func TestTrackerDuplicateProofIsIdempotent(t *testing.T) {
	tr := NewTracker(acceptAll{})
	tr.Track("order-1", "0xhash")

	tr.SubmitProof("order-1", chain.Ethereum, testProof)
	status, err := tr.SubmitProof("order-1", chain.Ethereum, testProof)
	if err != nil {
		t.Fatalf("duplicate SubmitProof error: %v", err)
	}
	if status.ValidProofCount != 1 {
		t.Errorf("ValidProofCount = %d after duplicate, want 1", status.ValidProofCount)
	}
	if status.Achieved {
		t.Error("duplicates from one network must not reach the threshold")
	}
}

func TestTrackerFailedProofNotCounted(t *testing.T) {
	tr := NewTracker(rejectNetworks{chain.Ethereum: true})
	tr.Track("order-1", "0xhash")

	status, err := tr.SubmitProof("order-1", chain.Ethereum, testProof)
	if err != nil {
		t.Fatalf("SubmitProof error: %v", err)
	}
	if status.ValidProofCount != 0 {
		t.Errorf("ValidProofCount = %d, want 0", status.ValidProofCount)
	}
	if status.Proofs[chain.Ethereum] != ProofFailed {
		t.Errorf("ethereum proof = %s, want failed", status.Proofs[chain.Ethereum])
	}

	// A failed submission is final for that network.
	status, _ = tr.SubmitProof("order-1", chain.Ethereum, testProof)
	if status.Proofs[chain.Ethereum] != ProofFailed {
		t.Error("resubmission must not overwrite a failed proof")
	}

	// The other two networks still reach the threshold.
	tr.SubmitProof("order-1", chain.Solana, testProof)
	status, _ = tr.SubmitProof("order-1", chain.TON, testProof)
	if !status.Achieved {
		t.Error("solana and ton proofs should achieve consensus despite ethereum failure")
	}
}

func TestTrackerRestore(t *testing.T) {
	tr := NewTracker(acceptAll{})

	// Seed from a persisted snapshot: one signed, one failed.
	tr.Restore("order-1", "0xhash", map[chain.Network]ProofStatus{
		chain.Ethereum: ProofSigned,
		chain.TON:      ProofFailed,
	})

	status, err := tr.Status("order-1")
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if status.ValidProofCount != 1 || status.Achieved {
		t.Errorf("restored status = %+v, want 1 valid, not achieved", status)
	}

	// The restored outcomes stay first-wins: ton cannot retry its way in.
	status, err = tr.SubmitProof("order-1", chain.TON, testProof)
	if err != nil {
		t.Fatalf("SubmitProof error: %v", err)
	}
	if status.Proofs[chain.TON] != ProofFailed {
		t.Errorf("ton proof = %s, want failed", status.Proofs[chain.TON])
	}

	status, err = tr.SubmitProof("order-1", chain.Solana, testProof)
	if err != nil {
		t.Fatalf("SubmitProof error: %v", err)
	}
	if !status.Achieved {
		t.Error("restored signed proof plus a new one should achieve consensus")
	}

	// Restore never clobbers a live entry.
	tr.Restore("order-1", "0xhash", nil)
	status, _ = tr.Status("order-1")
	if status.ValidProofCount != 2 {
		t.Errorf("ValidProofCount = %d after redundant restore, want 2", status.ValidProofCount)
	}
}

func TestTrackerUnknownOrder(t *testing.T) {
	tr := NewTracker(acceptAll{})
	if _, err := tr.SubmitProof("nope", chain.Ethereum, testProof); !errors.Is(err, ErrOrderNotTracked) {
		t.Errorf("err = %v, want ErrOrderNotTracked", err)
	}
	if _, err := tr.Status("nope"); !errors.Is(err, ErrOrderNotTracked) {
		t.Errorf("Status err = %v, want ErrOrderNotTracked", err)
	}
}

func TestTrackerUnknownNetwork(t *testing.T) {
	tr := NewTracker(acceptAll{})
	tr.Track("order-1", "0xhash")
	if _, err := tr.SubmitProof("order-1", "bitcoin", testProof); !errors.Is(err, chain.ErrUnknownNetwork) {
		t.Errorf("err = %v, want ErrUnknownNetwork", err)
	}
}

func TestTrackerForget(t *testing.T) {
	tr := NewTracker(acceptAll{})
	tr.Track("order-1", "0xhash")
	tr.Forget("order-1")

	if _, err := tr.Status("order-1"); !errors.Is(err, ErrOrderNotTracked) {
		t.Error("forgotten order should not be tracked")
	}
}
