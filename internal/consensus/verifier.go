package consensus

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
)

var (
	ErrBadSignature     = errors.New("proof signature verification failed")
	ErrMalformedProof   = errors.New("malformed proof")
	ErrUnknownValidator = errors.New("no validator key for network")
)

// Verifier checks a validator's proof for an order on one network.
type Verifier interface {
	Verify(orderID string, network chain.Network, secretHash string, proof []byte) error
}

// proofDigest is the message every validator signs: the order identity bound
// to its network and secret commitment.
func proofDigest(orderID string, network chain.Network, secretHash string) []byte {
	return crypto.Keccak256([]byte(orderID), []byte(network), []byte(secretHash))
}

// SigVerifier verifies proofs against configured validator keys. Ethereum
// validators sign with secp256k1 (recovered to an address); Solana and TON
// validators sign with ed25519. A network with no configured key accepts any
// well-formed proof, which is the simulation mode.
type SigVerifier struct {
	ethValidator common.Address
	hasEth       bool
	ed25519Keys  map[chain.Network]ed25519.PublicKey
}

// NewSigVerifier creates a verifier with no keys configured (simulation mode).
func NewSigVerifier() *SigVerifier {
	return &SigVerifier{ed25519Keys: make(map[chain.Network]ed25519.PublicKey)}
}

// SetEthereumValidator sets the expected secp256k1 signer address.
func (v *SigVerifier) SetEthereumValidator(addr common.Address) {
	v.ethValidator = addr
	v.hasEth = true
}

// SetEd25519Validator sets the ed25519 public key for a network.
func (v *SigVerifier) SetEd25519Validator(network chain.Network, key ed25519.PublicKey) error {
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: ed25519 key must be %d bytes", ErrMalformedProof, ed25519.PublicKeySize)
	}
	v.ed25519Keys[network] = key
	return nil
}

// Verify implements Verifier.
func (v *SigVerifier) Verify(orderID string, network chain.Network, secretHash string, proof []byte) error {
	if len(proof) < 32 {
		return fmt.Errorf("%w: proof too short", ErrMalformedProof)
	}

	digest := proofDigest(orderID, network, secretHash)

	switch network {
	case chain.Ethereum:
		if !v.hasEth {
			return nil
		}
		if len(proof) != crypto.SignatureLength {
			return fmt.Errorf("%w: want %d-byte secp256k1 signature", ErrMalformedProof, crypto.SignatureLength)
		}
		pub, err := crypto.SigToPub(digest, proof)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		if crypto.PubkeyToAddress(*pub) != v.ethValidator {
			return ErrBadSignature
		}
		return nil

	case chain.Solana, chain.TON:
		key, ok := v.ed25519Keys[network]
		if !ok {
			return nil
		}
		if len(proof) != ed25519.SignatureSize {
			return fmt.Errorf("%w: want %d-byte ed25519 signature", ErrMalformedProof, ed25519.SignatureSize)
		}
		if !ed25519.Verify(key, digest, proof) {
			return ErrBadSignature
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownValidator, network)
	}
}

// ProofDigest exposes the signed message so validator processes (and tests)
// can produce matching signatures.
func ProofDigest(orderID string, network chain.Network, secretHash string) []byte {
	return proofDigest(orderID, network, secretHash)
}
