package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/confidential-trials/interfaces"
)

// Approver decides whether a transaction may be signed.
type Approver interface {
	Approve(ctx context.Context, from common.Address, tx *types.Transaction) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, from common.Address, tx *types.Transaction) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, from common.Address, tx *types.Transaction) (bool, error) {
	return f(ctx, from, tx)
}

// AutoApprove signs every transaction.
var AutoApprove = ApproverFunc(func(context.Context, common.Address, *types.Transaction) (bool, error) {
	return true, nil
})

// Session is the connected wallet: one signing key for one chain.
// It implements interfaces.Wallet.
type Session struct {
	mu       sync.RWMutex
	key      *ecdsa.PrivateKey
	account  common.Address
	source   string
	chainID  *big.Int
	approver Approver
	log      *slog.Logger
}

// NewSession creates a disconnected session for chainID. A nil approver
// approves everything.
func NewSession(chainID *big.Int, approver Approver, log *slog.Logger) *Session {
	if approver == nil {
		approver = AutoApprove
	}
	return &Session{
		chainID:  new(big.Int).Set(chainID),
		approver: approver,
		log:      log,
	}
}

// Connect loads the key from source and makes its account the active one.
func (s *Session) Connect(ctx context.Context, source KeySource) (common.Address, error) {
	key, err := source.LoadKey(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("could not load key from %s: %w", source.Name(), err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	s.mu.Lock()
	s.key = key
	s.account = account
	s.source = source.Name()
	s.mu.Unlock()

	s.log.Info("Wallet connected", "account", account.Hex(), "source", source.Name(), "chainID", s.chainID.String())
	return account, nil
}

// Disconnect forgets the key.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return
	}
	s.log.Info("Wallet disconnected", "account", s.account.Hex())
	s.key = nil
	s.account = common.Address{}
	s.source = ""
}

// Account returns the connected account.
func (s *Session) Account() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account, s.key != nil
}

// ChainID returns the chain the session signs for.
func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// TransactOpts returns signing options bound to ctx. Every signature goes
// through the approver; a declined transaction fails with
// interfaces.ErrUserRejected.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return nil, interfaces.ErrNotConnected
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("could not create transactor: %w", err)
	}
	auth.Context = ctx

	sign := auth.Signer
	auth.Signer = func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		approved, err := s.approver.Approve(ctx, from, tx)
		if err != nil {
			return nil, fmt.Errorf("%w: approval prompt: %w", interfaces.ErrSubmissionFailure, err)
		}
		if !approved {
			s.log.Info("Transaction rejected", "from", from.Hex(), "to", tx.To())
			return nil, interfaces.ErrUserRejected
		}
		return sign(from, tx)
	}
	return auth, nil
}
