package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a prefixed ULID such as "dlg_01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV". The prefix
// tells operators what kind of record an id points at when it turns up in a
// log line or a support ticket.
type ID string

// Zero represents the zero value ID, don't use this unless its a placeholder.
const Zero ID = ""

// Prefix names a kind of record.
type Prefix string

const (
	PrefixDelegation Prefix = "dlg"
	PrefixCredential Prefix = "cred"
	PrefixRequest    Prefix = "req"
	PrefixSession    Prefix = "ses" // session token jti
	PrefixKey        Prefix = "key" // ephemeral signing key id
)

const sep = "_"

// ErrInvalid reports a malformed id string.
var ErrInvalid = errors.New("idx: invalid id")

var (
	entropyMu   sync.Mutex
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func nextULID(t time.Time) ulid.ULID {
	entropyOnce.Do(func() {
		entropy = ulid.Monotonic(rand.Reader, 0)
	})

	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t.UTC()), entropy)
}

// New returns a fresh id for this prefix using the current time.
func (p Prefix) New() ID {
	return p.NewAt(time.Now())
}

// NewAt returns a fresh id for this prefix stamped with t. Ids created with
// the same prefix sort by creation time.
func (p Prefix) NewAt(t time.Time) ID {
	return ID(string(p) + sep + nextULID(t).String())
}

// Parse validates s as a prefixed ULID. Any known or unknown prefix is
// accepted as long as the ULID part is well formed.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	prefix, raw, ok := strings.Cut(s, sep)
	if !ok || prefix == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(raw); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// ParseKind is Parse plus a check that the id carries the wanted prefix.
func ParseKind(s string, want Prefix) (ID, error) {
	id, err := Parse(s)
	if err != nil {
		return Zero, err
	}
	if id.Prefix() != want {
		return Zero, ErrInvalid
	}
	return id, nil
}

// MustParse parses or panics. Useful for hard-coded IDs in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// Prefix returns the kind part of the id, or "" for malformed ids.
func (id ID) Prefix() Prefix {
	prefix, _, ok := strings.Cut(string(id), sep)
	if !ok {
		return ""
	}
	return Prefix(prefix)
}

// Time extracts the embedded UTC timestamp. Zero or malformed ids return
// the zero time.
func (id ID) Time() time.Time {
	_, raw, ok := strings.Cut(string(id), sep)
	if !ok {
		return time.Time{}
	}
	u, err := ulid.ParseStrict(raw)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
