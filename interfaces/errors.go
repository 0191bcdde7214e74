package interfaces

import "errors"

// Workflow error taxonomy. Callers classify with errors.Is.
var (
	// ErrNotConnected is returned when a workflow needs a wallet and none is connected.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrInitialization indicates the FHE subsystem could not be initialized.
	ErrInitialization = errors.New("fhe initialization failed")

	// ErrFetchFailure wraps read failures against the registry contract.
	ErrFetchFailure = errors.New("registry fetch failed")

	// ErrUserRejected is returned when the signer declines a transaction.
	ErrUserRejected = errors.New("user rejected transaction")

	// ErrSubmissionFailure covers encryption, decryption and write failures.
	ErrSubmissionFailure = errors.New("submission failed")

	// ErrAlreadyVerified is the benign race where another caller verified the record first.
	ErrAlreadyVerified = errors.New("data already verified")

	// ErrInvalidInput is returned for creation input outside the accepted ranges.
	ErrInvalidInput = errors.New("invalid trial input")

	// ErrWorkflowBusy is returned when the same workflow is already running.
	ErrWorkflowBusy = errors.New("workflow already in progress")

	// ErrNoTransactOpts is returned when a write is attempted without a signer.
	ErrNoTransactOpts = errors.New("no authorized transactor available")
)
