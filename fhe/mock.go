package fhe

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/confidential-trials/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockFHEClient mocks the interfaces.FHEClient interface.
type MockFHEClient struct {
	mock.Mock
}

// Initialize mocks the Initialize method
func (m *MockFHEClient) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Encrypt mocks the Encrypt method
func (m *MockFHEClient) Encrypt(ctx context.Context, contract common.Address, user common.Address, value uint32) (*interfaces.EncryptedInput, error) {
	args := m.Called(ctx, contract, user, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.EncryptedInput), args.Error(1)
}

// VerifyDecryption mocks the VerifyDecryption method. When the expectation
// is configured with Run, the test can invoke submit itself.
func (m *MockFHEClient) VerifyDecryption(ctx context.Context, handles []interfaces.CiphertextHandle, contract common.Address, submit interfaces.SubmitFunc) (*interfaces.DecryptionResult, error) {
	args := m.Called(ctx, handles, contract, submit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.DecryptionResult), args.Error(1)
}
