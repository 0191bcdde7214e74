package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Encryptor turns a plaintext integer into an input handle and proof bound
// to a contract and the account that will submit it.
type Encryptor interface {
	Encrypt(ctx context.Context, contract common.Address, user common.Address, value uint32) (*EncryptedInput, error)
}

// SubmitFunc records a decryption result on-chain and returns the pending transaction.
type SubmitFunc func(ctx context.Context, clearValues []byte, proof []byte) (*types.Transaction, error)

// DecryptionVerifier drives the off-chain decryption protocol for a set of
// handles and submits the result through submit. A repeated verification
// surfaces as ErrAlreadyVerified.
type DecryptionVerifier interface {
	VerifyDecryption(ctx context.Context, handles []CiphertextHandle, contract common.Address, submit SubmitFunc) (*DecryptionResult, error)
}

// FHEClient is the full client surface consumed by the orchestrator.
type FHEClient interface {
	Encryptor
	DecryptionVerifier

	// Initialize fetches the key material the client needs. Safe to call repeatedly.
	Initialize(ctx context.Context) error
}
