package fhe

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/confidential-trials/interfaces"
)

// MockRelayer is an in-memory FHE client. Handles are opaque hashes and
// the plaintexts are kept in memory, so "decryption" is a lookup.
type MockRelayer struct {
	mutex   sync.Mutex
	counter uint64
	values  map[interfaces.CiphertextHandle]uint32
	waiter  interfaces.TxWaiter
}

// NewMockRelayer creates an empty in-memory relayer. Verification
// transactions are awaited with waiter.
func NewMockRelayer(waiter interfaces.TxWaiter) *MockRelayer {
	return &MockRelayer{
		values: make(map[interfaces.CiphertextHandle]uint32),
		waiter: waiter,
	}
}

// Initialize always succeeds.
func (r *MockRelayer) Initialize(ctx context.Context) error {
	return nil
}

// Encrypt derives a fresh handle and remembers value for it.
func (r *MockRelayer) Encrypt(ctx context.Context, contract common.Address, user common.Address, value uint32) (*interfaces.EncryptedInput, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.counter++
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], r.counter)
	handle := interfaces.CiphertextHandle(crypto.Keccak256Hash(contract.Bytes(), user.Bytes(), counter[:]))
	r.values[handle] = value

	return &interfaces.EncryptedInput{Handle: handle, Proof: crypto.Keccak256(handle[:])}, nil
}

// VerifyDecryption looks up the plaintexts, submits them and waits for the transaction.
func (r *MockRelayer) VerifyDecryption(ctx context.Context, handles []interfaces.CiphertextHandle, contract common.Address, submit interfaces.SubmitFunc) (*interfaces.DecryptionResult, error) {
	r.mutex.Lock()
	values := make([]*big.Int, len(handles))
	for i, h := range handles {
		v, ok := r.values[h]
		if !ok {
			r.mutex.Unlock()
			return nil, fmt.Errorf("%w: unknown handle %s", interfaces.ErrSubmissionFailure, h.Hex())
		}
		values[i] = new(big.Int).SetUint64(uint64(v))
	}
	r.mutex.Unlock()

	encoded, err := EncodeClearValues(values...)
	if err != nil {
		return nil, err
	}

	tx, err := submit(ctx, encoded, crypto.Keccak256(encoded))
	if err != nil {
		return nil, fmt.Errorf("submitting decryption proof: %w", err)
	}
	if _, err := r.waiter.WaitConfirmed(ctx, tx); err != nil {
		return nil, err
	}

	clear := make(map[interfaces.CiphertextHandle]*big.Int, len(handles))
	for i, h := range handles {
		clear[h] = values[i]
	}
	return &interfaces.DecryptionResult{ClearValues: clear, TxHash: tx.Hash()}, nil
}
