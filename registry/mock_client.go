package registry

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/confidential-trials/interfaces"
)

// MockRegistryClient is an in-memory implementation of the TrialRegistry
// interface for tests and local development without a blockchain.
// Transactions are applied immediately; WaitConfirmed always succeeds.
type MockRegistryClient struct {
	mutex     sync.RWMutex
	address   common.Address
	ids       []interfaces.TrialID
	trials    map[interfaces.TrialID]*interfaces.Trial
	handles   map[interfaces.TrialID]interfaces.CiphertextHandle
	nonce     uint64
	available bool
	now       func() time.Time

	// FailTrial makes Trial fail for the listed identifiers.
	FailTrial map[interfaces.TrialID]error
}

// NewMockRegistryClient creates an empty in-memory registry at address.
func NewMockRegistryClient(address common.Address) *MockRegistryClient {
	return &MockRegistryClient{
		address:   address,
		trials:    make(map[interfaces.TrialID]*interfaces.Trial),
		handles:   make(map[interfaces.TrialID]interfaces.CiphertextHandle),
		available: true,
		now:       time.Now,
		FailTrial: make(map[interfaces.TrialID]error),
	}
}

// SetAvailable controls the result of IsAvailable.
func (m *MockRegistryClient) SetAvailable(available bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.available = available
}

// Address returns the configured contract address.
func (m *MockRegistryClient) Address() common.Address {
	return m.address
}

// AllTrialIDs returns identifiers in creation order.
func (m *MockRegistryClient) AllTrialIDs(ctx context.Context) ([]interfaces.TrialID, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]interfaces.TrialID, len(m.ids))
	copy(ids, m.ids)
	return ids, nil
}

// Trial returns a copy of the stored record.
func (m *MockRegistryClient) Trial(ctx context.Context, id interfaces.TrialID) (*interfaces.Trial, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if err, ok := m.FailTrial[id]; ok {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrFetchFailure, err)
	}
	trial, ok := m.trials[id]
	if !ok {
		return nil, fmt.Errorf("%w: trial %s does not exist", interfaces.ErrFetchFailure, id)
	}
	copied := *trial
	return &copied, nil
}

// CiphertextHandle returns the handle stored at creation.
func (m *MockRegistryClient) CiphertextHandle(ctx context.Context, id interfaces.TrialID) (interfaces.CiphertextHandle, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	handle, ok := m.handles[id]
	if !ok {
		return interfaces.CiphertextHandle{}, fmt.Errorf("%w: trial %s does not exist", interfaces.ErrFetchFailure, id)
	}
	return handle, nil
}

// IsAvailable reports the value set with SetAvailable.
func (m *MockRegistryClient) IsAvailable(ctx context.Context) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.available, nil
}

// BindSigner returns a writer that records auth.From as the creator.
func (m *MockRegistryClient) BindSigner(auth *bind.TransactOpts) interfaces.TrialWriter {
	return &mockRegistryWriter{registry: m, auth: auth}
}

// WaitConfirmed returns a successful receipt immediately.
func (m *MockRegistryClient) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

func (m *MockRegistryClient) nextTx(data []byte) *types.Transaction {
	m.nonce++
	return types.NewTx(&types.LegacyTx{
		Nonce:    m.nonce,
		To:       &m.address,
		Gas:      21000,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
}

type mockRegistryWriter struct {
	registry *MockRegistryClient
	auth     *bind.TransactOpts
}

func (w *mockRegistryWriter) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return w.registry.WaitConfirmed(ctx, tx)
}

func (w *mockRegistryWriter) CreateTrial(ctx context.Context, id interfaces.TrialID, input interfaces.TrialInput, encrypted *interfaces.EncryptedInput) (*types.Transaction, error) {
	if w.auth == nil {
		return nil, ErrNoTransactOpts
	}
	if encrypted == nil {
		return nil, fmt.Errorf("%w: missing encrypted input", interfaces.ErrSubmissionFailure)
	}

	m := w.registry
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.trials[id]; exists {
		return nil, fmt.Errorf("%w: execution reverted: Business data already exists", interfaces.ErrSubmissionFailure)
	}

	m.ids = append(m.ids, id)
	m.trials[id] = &interfaces.Trial{
		ID:             id,
		Name:           input.Name,
		ConditionScore: input.ConditionScore,
		TreatmentPhase: input.TreatmentPhase,
		Description:    input.Description,
		Creator:        w.auth.From,
		Timestamp:      time.Unix(m.now().Unix(), 0),
	}
	m.handles[id] = encrypted.Handle
	return m.nextTx([]byte(id)), nil
}

func (w *mockRegistryWriter) SubmitVerification(ctx context.Context, id interfaces.TrialID, clearValues []byte, proof []byte) (*types.Transaction, error) {
	if w.auth == nil {
		return nil, ErrNoTransactOpts
	}

	m := w.registry
	m.mutex.Lock()
	defer m.mutex.Unlock()

	trial, ok := m.trials[id]
	if !ok {
		return nil, fmt.Errorf("%w: execution reverted: Business data does not exist", interfaces.ErrSubmissionFailure)
	}
	if trial.IsVerified {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrAlreadyVerified, revertAlreadyVerify)
	}

	value, err := decodeClearValue(clearValues)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrSubmissionFailure, err)
	}

	trial.IsVerified = true
	trial.DecryptedValue = value
	return m.nextTx(clearValues), nil
}

func decodeClearValue(encoded []byte) (uint32, error) {
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return 0, err
	}
	values, err := abi.Arguments{{Type: uint256Ty}}.Unpack(encoded)
	if err != nil {
		return 0, fmt.Errorf("could not decode clear value: %w", err)
	}
	v := values[0].(*big.Int)
	if !v.IsUint64() || v.Uint64() > uint64(^uint32(0)) {
		return 0, fmt.Errorf("clear value %s overflows uint32", v)
	}
	return uint32(v.Uint64()), nil
}
