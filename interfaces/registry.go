package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TrialReader is the read-only handle on the registry contract.
type TrialReader interface {
	// Address is the deployed registry contract address.
	Address() common.Address
	AllTrialIDs(ctx context.Context) ([]TrialID, error)
	Trial(ctx context.Context, id TrialID) (*Trial, error)
	CiphertextHandle(ctx context.Context, id TrialID) (CiphertextHandle, error)
	IsAvailable(ctx context.Context) (bool, error)
}

// TxWaiter blocks until a transaction is mined and reports a reverted
// receipt as an error.
type TxWaiter interface {
	WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// TrialWriter is the signer-bound handle on the registry contract.
type TrialWriter interface {
	TxWaiter
	CreateTrial(ctx context.Context, id TrialID, input TrialInput, encrypted *EncryptedInput) (*types.Transaction, error)
	SubmitVerification(ctx context.Context, id TrialID, clearValues []byte, proof []byte) (*types.Transaction, error)
}

// TrialRegistry combines the read-only handle with the ability to bind a signer.
type TrialRegistry interface {
	TrialReader
	TxWaiter

	// BindSigner returns a writer whose transactions are signed with auth.
	BindSigner(auth *bind.TransactOpts) TrialWriter
}
