package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/aussiebroadwan/issuer/pkg/cryptox"
	"github.com/aussiebroadwan/issuer/pkg/idx"
)

// KeyManager owns the session signing keys, the KeySet published on the
// JWKS endpoint and the Verifier built on top of it.
type KeyManager struct {
	KeySet   *KeySet
	Verifier *Verifier

	mu      sync.RWMutex
	signers []*Signer
}

// KeyManagerOptions configures a KeyManager.
type KeyManagerOptions struct {
	// Issuer is the iss claim stamped on and required of every token.
	Issuer string

	// Audience values that will be validated. Empty means no check.
	Audience []string

	// NumKeys is how many ephemeral signing keys to generate. Defaults to 1,
	// capped at 10. Ignored when PrivateKeyPEM is set.
	NumKeys int

	// PrivateKeyPEM pins a single signing key so sessions survive restarts
	// and are valid across replicas.
	PrivateKeyPEM []byte

	// KeyID names the pinned key. Defaults to "issuer-session".
	KeyID string

	VerifierOptions []VerifierOption
}

// NewKeyManager creates a KeyManager. Without PrivateKeyPEM the keys only
// exist in memory and every session is invalidated on restart, which is
// acceptable for tokens that live fifteen minutes.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	keyset := NewKeySet()
	km := &KeyManager{
		KeySet:   keyset,
		Verifier: NewVerifier(keyset, opts.Issuer, opts.Audience, opts.VerifierOptions...),
	}

	if len(opts.PrivateKeyPEM) > 0 {
		kid := opts.KeyID
		if kid == "" {
			kid = "issuer-session"
		}
		signer, err := NewSigner(kid, opts.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load pinned key: %w", err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
		return km, nil
	}

	numKeys := min(max(opts.NumKeys, 1), 10)
	for i := range numKeys {
		signer, err := generateSigner()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}

	return km, nil
}

func generateSigner() (*Signer, error) {
	pemBytes, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, err
	}
	return NewSigner(idx.PrefixKey.New().String(), pemBytes)
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// GetSigner returns one of the active signers at random.
func (km *KeyManager) GetSigner() *Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// AddSigner adds a signing key to both the active list and the KeySet.
func (km *KeyManager) AddSigner(signer *Signer) error {
	if signer == nil {
		return fmt.Errorf("signer cannot be nil")
	}
	if err := signer.Validate(); err != nil {
		return err
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(signer); err != nil {
		return fmt.Errorf("failed to add signer to keyset: %w", err)
	}
	km.signers = append(km.signers, signer)
	return nil
}
