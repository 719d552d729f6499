package issuersdk

import (
	"context"
	"crypto/ecdsa"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/issuer/pkg/sigauth"
	"github.com/ethereum/go-ethereum/crypto"
)

// SDKClient talks to the issuer service as one wallet.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// Now stamps challenges. Defaults to time.Now.
	Now func() time.Time

	key     *ecdsa.PrivateKey
	address string

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewSDKClient returns a client signing with key. key may be nil for
// public endpoints only.
func NewSDKClient(baseURL string, key *ecdsa.PrivateKey) *SDKClient {
	c := &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute, // issuance waits for a confirmation
		},
		Now: time.Now,
		key: key,
	}
	if key != nil {
		c.address = sigauth.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex())
	}
	return c
}

// Address is the wallet this client authenticates as.
func (c *SDKClient) Address() string { return c.address }

// SignChallenge builds fresh signature headers for the current time.
func (c *SDKClient) SignChallenge() (sigauth.Challenge, error) {
	if c.key == nil {
		return sigauth.Challenge{}, ErrNoKey
	}

	ts := c.Now().UnixMilli()
	msg := sigauth.Message(ts)
	sig, err := sigauth.Sign(c.key, msg)
	if err != nil {
		return sigauth.Challenge{}, err
	}
	return sigauth.Challenge{
		Address:   c.address,
		Signature: sig,
		Timestamp: strconv.FormatInt(ts, 10),
	}, nil
}

// OpenSession exchanges a signature for a bearer token used by every later
// call until it is about to expire.
func (c *SDKClient) OpenSession(ctx context.Context) error {
	sess, err := c.CreateSession(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = sess.Token
	c.expiresAt = sess.ExpiresAt.Add(-30 * time.Second) // 30 second buffer
	return nil
}

// CloseSession drops the bearer token; later calls sign again.
func (c *SDKClient) CloseSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

// authenticate sets either the bearer token or fresh signature headers.
func (c *SDKClient) authenticate(req *http.Request) error {
	c.mu.RLock()
	token, expiresAt := c.token, c.expiresAt
	c.mu.RUnlock()

	if token != "" && c.Now().Before(expiresAt) {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}

	ch, err := c.SignChallenge()
	if err != nil {
		return err
	}
	ch.SetHeader(req.Header)
	return nil
}
