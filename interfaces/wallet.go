package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Wallet exposes the connected account and its transaction signer.
type Wallet interface {
	// Account returns the connected address, or false when disconnected.
	Account() (common.Address, bool)

	// TransactOpts returns signing options for ctx, or ErrNotConnected.
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}
