// Package registry provides a client for the on-chain clinical trials
// registry contract.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ruteri/confidential-trials/interfaces"
)

// ErrNoTransactOpts is returned when a transaction is attempted without first binding a signer.
var ErrNoTransactOpts = interfaces.ErrNoTransactOpts

// OnchainTrialsClient implements interfaces.TrialRegistry for the registry
// contract deployed at a fixed address.
type OnchainTrialsClient struct {
	contract *bind.BoundContract
	client   bind.ContractBackend
	backend  bind.DeployBackend
	address  common.Address
	auth     *bind.TransactOpts
}

// NewOnchainTrialsClient creates a client for the registry contract at address.
// client serves calls and transactions, backend serves receipt lookups.
func NewOnchainTrialsClient(client bind.ContractBackend, backend bind.DeployBackend, address common.Address) (*OnchainTrialsClient, error) {
	if client == nil || backend == nil {
		return nil, errors.New("registry client requires a contract backend and a deploy backend")
	}

	return &OnchainTrialsClient{
		contract: bind.NewBoundContract(address, ParsedABI, client, client, client),
		client:   client,
		backend:  backend,
		address:  address,
	}, nil
}

// Address returns the registry contract address.
func (c *OnchainTrialsClient) Address() common.Address {
	return c.address
}

// BindSigner returns a copy of the client whose writes are signed with auth.
// The receiver is left read-only.
func (c *OnchainTrialsClient) BindSigner(auth *bind.TransactOpts) interfaces.TrialWriter {
	bound := *c
	bound.auth = auth
	return &bound
}

// AllTrialIDs enumerates every trial identifier known to the registry.
func (c *OnchainTrialsClient) AllTrialIDs(ctx context.Context) ([]interfaces.TrialID, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodAllIDs); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", interfaces.ErrFetchFailure, methodAllIDs, err)
	}

	raw := *abi.ConvertType(out[0], new([]string)).(*[]string)
	ids := make([]interfaces.TrialID, len(raw))
	for i, id := range raw {
		ids[i] = interfaces.TrialID(id)
	}
	return ids, nil
}

// Trial fetches the public fields and verification status of one trial.
// publicValue1 holds the condition score and publicValue2 the treatment phase,
// matching the argument order of createBusinessData.
func (c *OnchainTrialsClient) Trial(ctx context.Context, id interfaces.TrialID) (*interfaces.Trial, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodTrial, string(id)); err != nil {
		return nil, fmt.Errorf("%w: %s(%s): %w", interfaces.ErrFetchFailure, methodTrial, id, err)
	}

	name := *abi.ConvertType(out[0], new(string)).(*string)
	publicValue1 := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	publicValue2 := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	description := *abi.ConvertType(out[3], new(string)).(*string)
	creator := *abi.ConvertType(out[4], new(common.Address)).(*common.Address)
	timestamp := *abi.ConvertType(out[5], new(*big.Int)).(**big.Int)
	isVerified := *abi.ConvertType(out[6], new(bool)).(*bool)
	decryptedValue := *abi.ConvertType(out[7], new(uint32)).(*uint32)

	return &interfaces.Trial{
		ID:             id,
		Name:           name,
		ConditionScore: saturatingUint64(publicValue1),
		TreatmentPhase: saturatingUint64(publicValue2),
		Description:    description,
		Creator:        creator,
		Timestamp:      time.Unix(int64(saturatingUint64(timestamp)), 0),
		IsVerified:     isVerified,
		DecryptedValue: decryptedValue,
	}, nil
}

// CiphertextHandle returns the on-chain handle of the trial's encrypted age.
func (c *OnchainTrialsClient) CiphertextHandle(ctx context.Context, id interfaces.TrialID) (interfaces.CiphertextHandle, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodHandle, string(id)); err != nil {
		return interfaces.CiphertextHandle{}, fmt.Errorf("%w: %s(%s): %w", interfaces.ErrFetchFailure, methodHandle, id, err)
	}

	handle := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return interfaces.CiphertextHandle(handle), nil
}

// IsAvailable calls the contract's diagnostic view.
func (c *OnchainTrialsClient) IsAvailable(ctx context.Context) (bool, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodAvailable); err != nil {
		return false, fmt.Errorf("%w: %s: %w", interfaces.ErrFetchFailure, methodAvailable, err)
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// CreateTrial submits a new trial carrying the encrypted age handle and its proof.
// Returns the pending transaction; use WaitConfirmed to await inclusion.
func (c *OnchainTrialsClient) CreateTrial(ctx context.Context, id interfaces.TrialID, input interfaces.TrialInput, encrypted *interfaces.EncryptedInput) (*types.Transaction, error) {
	if c.auth == nil {
		return nil, ErrNoTransactOpts
	}
	if encrypted == nil {
		return nil, fmt.Errorf("%w: missing encrypted input", interfaces.ErrSubmissionFailure)
	}

	tx, err := c.contract.Transact(c.transactOpts(ctx), methodCreate,
		string(id),
		input.Name,
		[32]byte(encrypted.Handle),
		encrypted.Proof,
		new(big.Int).SetUint64(input.ConditionScore),
		new(big.Int).SetUint64(input.TreatmentPhase),
		input.Description,
	)
	if err != nil {
		return nil, classifyTransactError(err)
	}
	return tx, nil
}

// SubmitVerification records an ABI-encoded clear value and its decryption proof.
// A repeated verification of the same trial returns interfaces.ErrAlreadyVerified.
func (c *OnchainTrialsClient) SubmitVerification(ctx context.Context, id interfaces.TrialID, clearValues []byte, proof []byte) (*types.Transaction, error) {
	if c.auth == nil {
		return nil, ErrNoTransactOpts
	}

	tx, err := c.contract.Transact(c.transactOpts(ctx), methodVerify, string(id), clearValues, proof)
	if err != nil {
		return nil, classifyTransactError(err)
	}
	return tx, nil
}

// WaitConfirmed blocks until tx is mined. A reverted receipt is reported as
// interfaces.ErrSubmissionFailure.
func (c *OnchainTrialsClient) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s: %w", interfaces.ErrSubmissionFailure, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: transaction %s reverted", interfaces.ErrSubmissionFailure, tx.Hash().Hex())
	}
	return receipt, nil
}

func (c *OnchainTrialsClient) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.auth
	opts.Context = ctx
	return &opts
}

// classifyTransactError maps the contract's "already verified" revert and
// signer rejections onto the workflow taxonomy.
func classifyTransactError(err error) error {
	if errors.Is(err, interfaces.ErrUserRejected) {
		return err
	}
	if reason, ok := revertReason(err); ok && reason == revertAlreadyVerify {
		return fmt.Errorf("%w: %s", interfaces.ErrAlreadyVerified, reason)
	}
	return fmt.Errorf("%w: %w", interfaces.ErrSubmissionFailure, err)
}

// revertReason extracts a Solidity Error(string) reason from an RPC error.
// Backends that do not attach revert data still embed the reason in the
// message as "execution reverted: <reason>".
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok {
			if reason, uerr := abi.UnpackRevert(common.FromHex(data)); uerr == nil {
				return reason, true
			}
		}
	}

	const prefix = "execution reverted: "
	if idx := strings.Index(err.Error(), prefix); idx >= 0 {
		return strings.TrimSpace(err.Error()[idx+len(prefix):]), true
	}
	return "", false
}

func saturatingUint64(v *big.Int) uint64 {
	if v == nil || v.Sign() < 0 {
		return 0
	}
	if !v.IsUint64() {
		return ^uint64(0)
	}
	return v.Uint64()
}
