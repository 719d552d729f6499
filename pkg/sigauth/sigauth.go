// Package sigauth authenticates callers by a personal_sign signature over a
// timestamped challenge. There is no server-side nonce: a signature can be
// replayed for as long as its timestamp is inside the freshness window.
package sigauth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Request headers carrying a challenge.
const (
	HeaderAddress   = "X-Wallet-Address"
	HeaderSignature = "X-Wallet-Signature"
	HeaderTimestamp = "X-Auth-Timestamp"
	HeaderMessage   = "X-Auth-Message"
)

const (
	DefaultMaxAge  = 30 * time.Minute
	DefaultMaxSkew = 5 * time.Minute
)

const messagePrefix = "Sign this message to authenticate with the credential issuer.\n\nTimestamp: "

var (
	ErrUnauthenticated = errors.New("sigauth: unauthenticated")

	ErrMissingCredentials = fmt.Errorf("%w: missing address, signature or timestamp", ErrUnauthenticated)
	ErrInvalidAddress     = fmt.Errorf("%w: malformed address", ErrUnauthenticated)
	ErrInvalidTimestamp   = fmt.Errorf("%w: malformed timestamp", ErrUnauthenticated)
	ErrStale              = fmt.Errorf("%w: challenge expired", ErrUnauthenticated)
	ErrFromFuture         = fmt.Errorf("%w: challenge timestamp is in the future", ErrUnauthenticated)
	ErrMessageMismatch    = fmt.Errorf("%w: message does not embed the timestamp", ErrUnauthenticated)
	ErrInvalidSignature   = fmt.Errorf("%w: malformed signature", ErrUnauthenticated)
	ErrSignerMismatch     = fmt.Errorf("%w: signature does not match address", ErrUnauthenticated)
)

// Challenge is what a caller presents. Timestamp is unix milliseconds as a
// decimal string. Message is optional; when empty the canonical message for
// Timestamp is assumed.
type Challenge struct {
	Address   string
	Signature string
	Timestamp string
	Message   string
}

// Identity is a verified caller.
type Identity struct {
	Address  string // lower-case, 0x-prefixed
	SignedAt time.Time
}

// Verifier checks challenges. The zero value is not usable; use NewVerifier.
type Verifier struct {
	MaxAge  time.Duration
	MaxSkew time.Duration

	now func() time.Time
}

func NewVerifier() *Verifier {
	return &Verifier{
		MaxAge:  DefaultMaxAge,
		MaxSkew: DefaultMaxSkew,
		now:     time.Now,
	}
}

// WithClock returns a copy of v that reads time from now.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	cp := *v
	cp.now = now
	return &cp
}

// Message returns the canonical challenge for a unix-millisecond timestamp.
func Message(ts int64) string {
	return messagePrefix + strconv.FormatInt(ts, 10)
}

// Verify returns the caller's identity or an error wrapping
// ErrUnauthenticated. Freshness is checked before any signature work.
func (v *Verifier) Verify(c Challenge) (Identity, error) {
	if c.Address == "" || c.Signature == "" || c.Timestamp == "" {
		return Identity{}, ErrMissingCredentials
	}
	if !common.IsHexAddress(c.Address) {
		return Identity{}, ErrInvalidAddress
	}

	tsMillis, err := strconv.ParseInt(strings.TrimSpace(c.Timestamp), 10, 64)
	if err != nil || tsMillis <= 0 {
		return Identity{}, ErrInvalidTimestamp
	}
	signedAt := time.UnixMilli(tsMillis).UTC()

	now := v.now()
	if now.Sub(signedAt) > v.MaxAge {
		return Identity{}, ErrStale
	}
	if signedAt.Sub(now) > v.MaxSkew {
		return Identity{}, ErrFromFuture
	}

	msg := c.Message
	if msg == "" {
		msg = Message(tsMillis)
	} else if !embedsTimestamp(msg, tsMillis) {
		return Identity{}, ErrMessageMismatch
	}

	recovered, err := RecoverAddress(msg, c.Signature)
	if err != nil {
		return Identity{}, err
	}

	claimed := common.HexToAddress(c.Address)
	if recovered != claimed {
		return Identity{}, ErrSignerMismatch
	}

	return Identity{
		Address:  NormalizeAddress(c.Address),
		SignedAt: signedAt,
	}, nil
}

// embedsTimestamp reports whether msg has a "Timestamp: <ts>" token for
// exactly ts, not merely a prefix of a longer number.
func embedsTimestamp(msg string, ts int64) bool {
	needle := "Timestamp: " + strconv.FormatInt(ts, 10)
	for {
		i := strings.Index(msg, needle)
		if i < 0 {
			return false
		}
		rest := msg[i+len(needle):]
		if rest == "" || rest[0] < '0' || rest[0] > '9' {
			return true
		}
		msg = rest
	}
}

// RecoverAddress returns the address that produced an EIP-191 personal_sign
// signature over msg.
func RecoverAddress(msg, signature string) (common.Address, error) {
	raw, err := hexutil.Decode(signature)
	if err != nil || len(raw) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}

	sig := make([]byte, len(raw))
	copy(sig, raw)
	// Wallets emit V as 27/28; the recovery routine wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, ErrInvalidSignature
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign produces a personal_sign signature over msg with V in 27/28 form,
// the shape wallets hand back.
func Sign(key *ecdsa.PrivateKey, msg string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		return "", fmt.Errorf("sigauth: sign: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// NormalizeAddress lower-cases a hex address and ensures the 0x prefix.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	return addr
}
