package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/confidential-trials/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the TrialRegistry and TrialWriter interfaces.
// BindSigner returns the mock itself so writes are asserted on the same object.
type MockRegistry struct {
	mock.Mock
}

// Address mocks the Address method
func (m *MockRegistry) Address() common.Address {
	args := m.Called()
	return args.Get(0).(common.Address)
}

// AllTrialIDs mocks the AllTrialIDs method
func (m *MockRegistry) AllTrialIDs(ctx context.Context) ([]interfaces.TrialID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.TrialID), args.Error(1)
}

// Trial mocks the Trial method
func (m *MockRegistry) Trial(ctx context.Context, id interfaces.TrialID) (*interfaces.Trial, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Trial), args.Error(1)
}

// CiphertextHandle mocks the CiphertextHandle method
func (m *MockRegistry) CiphertextHandle(ctx context.Context, id interfaces.TrialID) (interfaces.CiphertextHandle, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(interfaces.CiphertextHandle), args.Error(1)
}

// IsAvailable mocks the IsAvailable method
func (m *MockRegistry) IsAvailable(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// BindSigner mocks the BindSigner method
func (m *MockRegistry) BindSigner(auth *bind.TransactOpts) interfaces.TrialWriter {
	m.Called(auth)
	return m
}

// CreateTrial mocks the CreateTrial method
func (m *MockRegistry) CreateTrial(ctx context.Context, id interfaces.TrialID, input interfaces.TrialInput, encrypted *interfaces.EncryptedInput) (*types.Transaction, error) {
	args := m.Called(ctx, id, input, encrypted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

// SubmitVerification mocks the SubmitVerification method
func (m *MockRegistry) SubmitVerification(ctx context.Context, id interfaces.TrialID, clearValues []byte, proof []byte) (*types.Transaction, error) {
	args := m.Called(ctx, id, clearValues, proof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

// WaitConfirmed mocks the WaitConfirmed method
func (m *MockRegistry) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}
