// Package registry provides a client for the clinical trials registry
// contract deployed on an Ethereum-compatible chain.
//
// OnchainTrialsClient implements interfaces.TrialRegistry on top of a
// go-ethereum BoundContract built from TrialsRegistryABI. The same client
// value is the read-only handle; BindSigner returns a signer-bound copy for
// the two state-changing calls:
//
//	client, err := registry.NewOnchainTrialsClient(ethClient, ethClient, contractAddr)
//	if err != nil {
//	    return err
//	}
//	ids, err := client.AllTrialIDs(ctx)
//
//	writer := client.BindSigner(auth)
//	tx, err := writer.CreateTrial(ctx, id, input, encrypted)
//	receipt, err := writer.WaitConfirmed(ctx, tx)
//
// # Error mapping
//
// Read failures wrap interfaces.ErrFetchFailure. Write failures wrap
// interfaces.ErrSubmissionFailure, except for the contract's
// "Data already verified" revert, which is surfaced as
// interfaces.ErrAlreadyVerified so callers never match on error text, and
// signer rejections, which keep interfaces.ErrUserRejected.
//
// # Test doubles
//
// MockRegistry is a testify mock of the full interface. MockRegistryClient
// is an in-memory registry that applies transactions immediately, used for
// handler tests and local development.
package registry
