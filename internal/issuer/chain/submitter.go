// Package chain submits transactions from the backend signer and waits for
// them to be mined.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrReverted     = errors.New("chain: transaction reverted")
	ErrNoBaseFee    = errors.New("chain: node did not report a base fee")
	ErrConfirmation = errors.New("chain: confirmation wait failed")
)

// DefaultConfirmTimeout bounds how long Submit waits for a receipt.
const DefaultConfirmTimeout = 3 * time.Minute

// Backend is the node surface the submitter needs. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Call is a zero-value contract call.
type Call struct {
	To   common.Address
	Data []byte
}

// Submitter signs with a single key. Nonce allocation and broadcast are
// serialized so concurrent mints never reuse a nonce.
type Submitter struct {
	backend        Backend
	key            *ecdsa.PrivateKey
	from           common.Address
	chainID        *big.Int
	confirmTimeout time.Duration

	mu sync.Mutex
}

type SubmitterOption func(*Submitter)

func WithConfirmTimeout(d time.Duration) SubmitterOption {
	return func(s *Submitter) {
		if d > 0 {
			s.confirmTimeout = d
		}
	}
}

// ParsePrivateKey accepts hex with or without 0x.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}
	return key, nil
}

// Dial connects to rpcURL and checks the node is on chainID. A zero chainID
// accepts whatever the node reports.
func Dial(ctx context.Context, rpcURL string, chainID int64, key *ecdsa.PrivateKey, opts ...SubmitterOption) (*Submitter, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: dial: %w", err)
	}

	got, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("chain: read chain id: %w", err)
	}
	if chainID != 0 && got.Int64() != chainID {
		client.Close()
		return nil, nil, fmt.Errorf("chain: node is on chain %s, want %d", got, chainID)
	}

	return NewSubmitter(client, got, key, opts...), client, nil
}

func NewSubmitter(backend Backend, chainID *big.Int, key *ecdsa.PrivateKey, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		backend:        backend,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        chainID,
		confirmTimeout: DefaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address is the backend signer every delegation must name.
func (s *Submitter) Address() common.Address { return s.from }

// Ping checks the node answers.
func (s *Submitter) Ping(ctx context.Context) error {
	_, err := s.backend.ChainID(ctx)
	return err
}

// Submit signs, broadcasts and waits for one confirmation. The caller
// should pass a context detached from client cancellation: once broadcast
// the transaction will land regardless.
func (s *Submitter) Submit(ctx context.Context, call Call) (*types.Receipt, error) {
	tx, err := s.send(ctx, call)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, s.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: tx %s: %v", ErrConfirmation, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: tx %s", ErrReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

func (s *Submitter) send(ctx context.Context, call Call) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("chain: nonce: %w", err)
	}

	tip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: gas tip: %w", err)
	}
	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: latest header: %w", err)
	}
	if head.BaseFee == nil {
		return nil, ErrNoBaseFee
	}
	// 2*baseFee + tip survives several full blocks of base fee growth.
	feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)

	to := call.To
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &to,
		Data: call.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("chain: estimate gas: %w", err)
	}
	gas += gas / 5

	tx, err := types.SignTx(types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      call.Data,
	}), types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("chain: sign: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("chain: send: %w", err)
	}
	return tx, nil
}
