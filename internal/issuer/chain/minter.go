package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const delegationManagerABI = `[{"type":"function","name":"redeemDelegations","stateMutability":"nonpayable","inputs":[{"name":"_permissionContexts","type":"bytes[]"},{"name":"_modes","type":"bytes32[]"},{"name":"_executionCallDatas","type":"bytes[]"}],"outputs":[]}]`

const credentialABI = `[{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"credentialType","type":"string"},{"name":"tokenURI","type":"string"}],"outputs":[{"name":"","type":"uint256"}]}]`

// transferTopic is keccak256("Transfer(address,address,uint256)").
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// singleDefaultMode is the ERC-7579 mode for one call that reverts on failure.
var singleDefaultMode [32]byte

// CallSubmitter is implemented by *Submitter.
type CallSubmitter interface {
	Submit(ctx context.Context, call Call) (*types.Receipt, error)
}

// Minter mints credentials by redeeming a stored delegation on the
// delegation manager, so the credential contract sees the issuer's smart
// account as the caller.
type Minter struct {
	submitter         CallSubmitter
	delegationManager common.Address
	credential        common.Address
	managerABI        abi.ABI
	credABI           abi.ABI
}

func NewMinter(submitter CallSubmitter, delegationManager, credentialContract common.Address) (*Minter, error) {
	mgr, err := abi.JSON(strings.NewReader(delegationManagerABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse manager abi: %w", err)
	}
	cred, err := abi.JSON(strings.NewReader(credentialABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse credential abi: %w", err)
	}
	return &Minter{
		submitter:         submitter,
		delegationManager: delegationManager,
		credential:        credentialContract,
		managerABI:        mgr,
		credABI:           cred,
	}, nil
}

type MintRequest struct {
	PermissionContext []byte // ABI-encoded delegation chain
	Recipient         common.Address
	CredentialType    string
	TokenURI          string
}

type MintResult struct {
	TxHash      common.Hash
	TokenID     string
	TokenFound  bool
	BlockNumber uint64
}

// Calldata returns the redeemDelegations call for req.
func (m *Minter) Calldata(req MintRequest) ([]byte, error) {
	mintData, err := m.credABI.Pack("mint", req.Recipient, req.CredentialType, req.TokenURI)
	if err != nil {
		return nil, fmt.Errorf("chain: pack mint: %w", err)
	}

	// ERC-7579 single execution: target(20) ‖ value(32) ‖ calldata
	execution := make([]byte, 0, 20+32+len(mintData))
	execution = append(execution, m.credential.Bytes()...)
	execution = append(execution, common.LeftPadBytes(nil, 32)...)
	execution = append(execution, mintData...)

	data, err := m.managerABI.Pack("redeemDelegations",
		[][]byte{req.PermissionContext},
		[][32]byte{singleDefaultMode},
		[][]byte{execution},
	)
	if err != nil {
		return nil, fmt.Errorf("chain: pack redeemDelegations: %w", err)
	}
	return data, nil
}

func (m *Minter) Mint(ctx context.Context, req MintRequest) (MintResult, error) {
	data, err := m.Calldata(req)
	if err != nil {
		return MintResult{}, err
	}

	receipt, err := m.submitter.Submit(ctx, Call{To: m.delegationManager, Data: data})
	if err != nil {
		return MintResult{}, err
	}

	id, ok := TokenIDFromReceipt(receipt, m.credential, req.Recipient)
	res := MintResult{
		TxHash:     receipt.TxHash,
		TokenID:    "0",
		TokenFound: ok,
	}
	if ok {
		res.TokenID = id.String()
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res, nil
}

// TokenIDFromReceipt finds the ERC-721 Transfer from the zero address to
// recipient emitted by contract.
func TokenIDFromReceipt(receipt *types.Receipt, contract, recipient common.Address) (*big.Int, bool) {
	if receipt == nil {
		return nil, false
	}
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != contract || len(lg.Topics) != 4 {
			continue
		}
		if lg.Topics[0] != transferTopic || lg.Topics[1] != (common.Hash{}) {
			continue
		}
		if common.BytesToAddress(lg.Topics[2].Bytes()) != recipient {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[3].Bytes()), true
	}
	return nil, false
}
